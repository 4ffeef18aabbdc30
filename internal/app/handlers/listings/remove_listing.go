package listings

import (
	"context"
	"errors"

	"staybook/internal/app/commands"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
)

const removeListingKey = "listings.remove"

var ErrUnitOfWorkRequired = errors.New("listings: unit of work required")

type RemoveListingCommand struct {
	ListingID string
	ActorID   string
	ActorRole string
}

func (c RemoveListingCommand) Key() string { return removeListingKey }

type RemoveListingResult struct {
	ListingID string `json:"listing_id"`
}

// RemoveListingHandler destroys a listing and cascades to its bookings,
// the one path where booking records are deleted rather than retained.
type RemoveListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *RemoveListingHandler) Handle(ctx context.Context, cmd RemoveListingCommand) (*RemoveListingResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if string(listing.Owner) != cmd.ActorID && cmd.ActorRole != bookingapp.RoleAdmin {
		return nil, bookingapp.ErrNotAllowed
	}

	if err := unit.Booking().DeleteByListing(ctx, listing.ID); err != nil {
		return nil, err
	}
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &RemoveListingResult{ListingID: string(listing.ID)}, nil
}

var _ commands.Handler[RemoveListingCommand, *RemoveListingResult] = (*RemoveListingHandler)(nil)
