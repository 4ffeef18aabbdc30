package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound        = errors.New("listings: not found")
	ErrTitleRequired   = errors.New("listings: title is required")
	ErrNightlyRate     = errors.New("listings: nightly rate must be non-negative")
	ErrGuestsLimit     = errors.New("listings: guests limit must be at least 1")
	ErrInvalidState    = errors.New("listings: invalid state transition")
	ErrAddressRequired = errors.New("listings: address must be provided when activating")
)

type ListingID string
type OwnerID string

type ListingState string

const (
	ListingDraft     ListingState = "DRAFT"
	ListingActive    ListingState = "ACTIVE"
	ListingSuspended ListingState = "SUSPENDED"
)

type Address struct {
	Line1   string
	City    string
	Region  string
	Country string
	Lat     float64
	Lon     float64
}

func (a Address) Valid() bool {
	return strings.TrimSpace(a.Line1) != "" && strings.TrimSpace(a.City) != "" && strings.TrimSpace(a.Country) != ""
}

// Listing is read-only input to the booking core: the nightly rate feeds
// price quotes, the owner receives booking notifications.
type Listing struct {
	ID           ListingID
	Owner        OwnerID
	Title        string
	Description  string
	Address      Address
	GuestsLimit  int
	NightlyRate  money.Money
	State        ListingState
	ThumbnailURL string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (l *Listing) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return ErrTitleRequired
	}
	if l.NightlyRate.IsNegative() {
		return ErrNightlyRate
	}
	if l.GuestsLimit < 1 {
		return ErrGuestsLimit
	}
	return nil
}

func (l *Listing) Activate(now time.Time) error {
	if l.State != ListingDraft && l.State != ListingSuspended {
		return ErrInvalidState
	}
	if !l.Address.Valid() {
		return ErrAddressRequired
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) Suspend(now time.Time) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	return nil
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
}
