package middleware

import (
	"context"
	"errors"
	"testing"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

type fakeStore struct {
	records map[string]IdempotencyRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]IdempotencyRecord)}
}

func (s *fakeStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *fakeStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.records[rec.Key] = rec
	return nil
}

type countingCommand struct {
	key string
}

func (c countingCommand) Key() string            { return "test.counting" }
func (c countingCommand) IdempotencyKey() string { return c.key }
func (c countingCommand) ResultPrototype() any   { return &countingResult{} }

type countingResult struct {
	Calls int `json:"calls"`
}

type countingBus struct {
	calls int
	err   error
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &countingResult{Calls: b.calls}, nil
}

func TestIdempotencyReplaysResult(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(newFakeStore(), nil))

	first, err := bus.Dispatch(context.Background(), countingCommand{key: "k1"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := bus.Dispatch(context.Background(), countingCommand{key: "k1"})
	if err != nil {
		t.Fatal(err)
	}
	if base.calls != 1 {
		t.Fatalf("handler calls = %d, want 1", base.calls)
	}
	if first.(*countingResult).Calls != second.(*countingResult).Calls {
		t.Fatalf("replayed result %+v differs from original %+v", second, first)
	}
}

func TestIdempotencyDistinctKeysExecute(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(newFakeStore(), nil))

	if _, err := bus.Dispatch(context.Background(), countingCommand{key: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Dispatch(context.Background(), countingCommand{key: "b"}); err != nil {
		t.Fatal(err)
	}
	if base.calls != 2 {
		t.Fatalf("handler calls = %d, want 2", base.calls)
	}
}

func TestIdempotencyEmptyKeyPassesThrough(t *testing.T) {
	base := &countingBus{}
	bus := ChainCommands(base, Idempotency(newFakeStore(), nil))

	for i := 0; i < 3; i++ {
		if _, err := bus.Dispatch(context.Background(), countingCommand{}); err != nil {
			t.Fatal(err)
		}
	}
	if base.calls != 3 {
		t.Fatalf("handler calls = %d, want 3", base.calls)
	}
}

func TestIdempotencyRetriesFailedCommand(t *testing.T) {
	base := &countingBus{err: &domainbooking.ConflictError{ListingID: "ls-1"}}
	bus := ChainCommands(base, Idempotency(newFakeStore(), nil))

	var conflict *domainbooking.ConflictError
	if _, err := bus.Dispatch(context.Background(), countingCommand{key: "k"}); !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}

	// failures are not cached, so the retry re-executes and the caller
	// still sees the typed error
	conflict = nil
	if _, err := bus.Dispatch(context.Background(), countingCommand{key: "k"}); !errors.As(err, &conflict) {
		t.Fatalf("retried err = %v, want ConflictError", err)
	}
	if base.calls != 2 {
		t.Fatalf("handler calls = %d, want 2", base.calls)
	}

	// once a run succeeds its result is the one replayed
	base.err = nil
	if _, err := bus.Dispatch(context.Background(), countingCommand{key: "k"}); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Dispatch(context.Background(), countingCommand{key: "k"}); err != nil {
		t.Fatal(err)
	}
	if base.calls != 3 {
		t.Fatalf("handler calls = %d, want 3", base.calls)
	}
}

// fakeTxUnit tracks transaction outcomes; the embedded interface covers
// the repository accessors the transaction middleware never touches.
type fakeTxUnit struct {
	uow.UnitOfWork
	committed  *bool
	rolledBack *bool
}

func (u fakeTxUnit) Commit(context.Context) error   { *u.committed = true; return nil }
func (u fakeTxUnit) Rollback(context.Context) error { *u.rolledBack = true; return nil }

type fakeFactory struct {
	unit fakeTxUnit
}

func (f *fakeFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{unit: fakeTxUnit{committed: new(bool), rolledBack: new(bool)}}
}

type plainCommand struct{}

func (plainCommand) Key() string { return "test.plain" }

func TestTransactionCommitsOnSuccess(t *testing.T) {
	factory := newFakeFactory()
	var sawUnit bool
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		_, sawUnit = uow.FromContext(ctx)
		return "ok", nil
	})
	bus := ChainCommands(base, Transaction(factory, nil))

	if _, err := bus.Dispatch(context.Background(), plainCommand{}); err != nil {
		t.Fatal(err)
	}
	if !sawUnit {
		t.Fatal("handler did not receive the unit of work")
	}
	if !*factory.unit.committed || *factory.unit.rolledBack {
		t.Fatalf("committed = %v, rolledBack = %v", *factory.unit.committed, *factory.unit.rolledBack)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	factory := newFakeFactory()
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		return nil, errors.New("handler failed")
	})
	bus := ChainCommands(base, Transaction(factory, nil))

	if _, err := bus.Dispatch(context.Background(), plainCommand{}); err == nil {
		t.Fatal("expected error")
	}
	if *factory.unit.committed || !*factory.unit.rolledBack {
		t.Fatalf("committed = %v, rolledBack = %v", *factory.unit.committed, *factory.unit.rolledBack)
	}
}

func TestTransactionReusesExistingUnit(t *testing.T) {
	factory := newFakeFactory()
	outer := fakeTxUnit{committed: new(bool), rolledBack: new(bool)}
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		unit, _ := uow.FromContext(ctx)
		if unit != uow.UnitOfWork(outer) {
			t.Fatal("expected the outer unit to flow through")
		}
		return "ok", nil
	})
	bus := ChainCommands(base, Transaction(factory, nil))

	ctx := uow.ContextWithUnitOfWork(context.Background(), outer)
	if _, err := bus.Dispatch(ctx, plainCommand{}); err != nil {
		t.Fatal(err)
	}
	if *factory.unit.committed || *factory.unit.rolledBack {
		t.Fatal("nested dispatch must not manage the outer transaction")
	}
}
