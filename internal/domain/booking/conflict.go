package booking

import (
	"fmt"
	"strings"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

// ConflictResult is the outcome of an availability check. Available is
// true exactly when Conflicts is empty.
type ConflictResult struct {
	Available bool
	Conflicts []*Booking
}

// FindConflicts tests a proposed stay against the bookings currently
// occupying the listing's calendar and returns every overlapping one,
// not just the first, so callers can show the guest all taken ranges.
//
// The existing slice must already be filtered to non-cancelled bookings
// (Repository.ActiveByListing does this); which statuses occupy the
// calendar is the caller's policy, the overlap test here is purely
// geometric. Half-open semantics: checking in on another guest's
// checkout day is fine.
func FindConflicts(proposed daterange.DateRange, existing []*Booking) (ConflictResult, error) {
	if err := proposed.Validate(); err != nil {
		return ConflictResult{}, err
	}
	var conflicts []*Booking
	for _, b := range existing {
		if b == nil {
			continue
		}
		if proposed.Overlaps(b.Range) {
			conflicts = append(conflicts, b)
		}
	}
	return ConflictResult{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// ConflictError carries the full set of conflicting bookings so the HTTP
// layer can hand the taken ranges to the UI verbatim.
type ConflictError struct {
	ListingID listings.ListingID
	Conflicts []*Booking
}

func (e *ConflictError) Error() string {
	ranges := make([]string, 0, len(e.Conflicts))
	for _, b := range e.Conflicts {
		ranges = append(ranges, fmt.Sprintf("[%s, %s)",
			b.Range.CheckIn.Format("2006-01-02"), b.Range.CheckOut.Format("2006-01-02")))
	}
	return fmt.Sprintf("booking: listing %s already booked for %s", e.ListingID, strings.Join(ranges, ", "))
}
