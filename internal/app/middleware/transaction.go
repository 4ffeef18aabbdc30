package middleware

import (
	"context"
	"errors"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
)

var ErrUnitOfWorkMissing = errors.New("middleware: unit of work not found")

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// ContextInjector lets a storage-backed unit bind its native session to
// the context so repositories observe the transaction.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

// Transaction opens a unit of work around every dispatched command and
// commits it only when the handler succeeds.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			if _, ok := uow.FromContext(ctx); ok {
				return nextFn(ctx, cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			ctx = uow.ContextWithUnitOfWork(ctx, unit)
			if injector, ok := unit.(ContextInjector); ok {
				ctx = injector.InjectContext(ctx)
			}
			res, err := nextFn(ctx, cmd)
			if err != nil {
				_ = unit.Rollback(ctx)
				return nil, err
			}
			if err := unit.Commit(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
