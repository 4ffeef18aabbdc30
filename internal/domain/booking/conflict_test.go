package booking

import (
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/shared/daterange"
)

func june(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, from, to time.Time) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(from, to)
	if err != nil {
		t.Fatal(err)
	}
	return dr
}

func occupied(t *testing.T, id string, from, to time.Time) *Booking {
	t.Helper()
	return &Booking{
		ID:     BookingID(id),
		Range:  mustRange(t, from, to),
		Status: StatusConfirmed,
	}
}

func TestFindConflictsGrid(t *testing.T) {
	// Sweep every stay of 1..4 nights starting -5..+5 days around a
	// fixed booking and compare against the raw interval predicate.
	base := june(10)
	existing := []*Booking{occupied(t, "b1", june(10), june(13))}

	for start := -5; start <= 5; start++ {
		for length := 1; length <= 4; length++ {
			from := base.AddDate(0, 0, start)
			to := from.AddDate(0, 0, length)
			proposed := mustRange(t, from, to)

			want := from.Before(june(13)) && june(10).Before(to)

			res, err := FindConflicts(proposed, existing)
			if err != nil {
				t.Fatal(err)
			}
			if res.Available == want {
				t.Errorf("stay %s..%s: Available = %v, want %v",
					from.Format("01-02"), to.Format("01-02"), res.Available, !want)
			}
		}
	}
}

func TestFindConflictsTouchingBoundaries(t *testing.T) {
	existing := []*Booking{occupied(t, "b1", june(10), june(15))}

	backToBack := mustRange(t, june(15), june(18))
	res, err := FindConflicts(backToBack, existing)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatal("check-in on another guest's checkout day must be available")
	}

	endingAtCheckIn := mustRange(t, june(7), june(10))
	res, err = FindConflicts(endingAtCheckIn, existing)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatal("checkout on another guest's check-in day must be available")
	}
}

func TestFindConflictsOverlappingStay(t *testing.T) {
	existing := []*Booking{occupied(t, "b1", june(1), june(5))}

	res, err := FindConflicts(mustRange(t, june(3), june(7)), existing)
	if err != nil {
		t.Fatal(err)
	}
	if res.Available {
		t.Fatal("stay starting mid-booking must conflict")
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0].ID != "b1" {
		t.Fatalf("Conflicts = %v, want [b1]", res.Conflicts)
	}

	res, err = FindConflicts(mustRange(t, june(5), june(8)), existing)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatal("stay starting on checkout day must be available")
	}
}

func TestFindConflictsReturnsAllOverlaps(t *testing.T) {
	existing := []*Booking{
		occupied(t, "b1", june(1), june(4)),
		occupied(t, "b2", june(6), june(9)),
		occupied(t, "b3", june(20), june(25)),
		nil, // repository gaps are tolerated
	}
	res, err := FindConflicts(mustRange(t, june(2), june(8)), existing)
	if err != nil {
		t.Fatal(err)
	}
	if res.Available {
		t.Fatal("expected conflicts")
	}
	if len(res.Conflicts) != 2 {
		t.Fatalf("len(Conflicts) = %d, want 2", len(res.Conflicts))
	}
	if res.Conflicts[0].ID != "b1" || res.Conflicts[1].ID != "b2" {
		t.Fatalf("Conflicts = [%s %s], want [b1 b2]", res.Conflicts[0].ID, res.Conflicts[1].ID)
	}
}

func TestFindConflictsRejectsInvalidProposal(t *testing.T) {
	if _, err := FindConflicts(daterange.DateRange{CheckIn: june(5), CheckOut: june(5)}, nil); !errors.Is(err, daterange.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestFindConflictsEmptyCalendar(t *testing.T) {
	res, err := FindConflicts(mustRange(t, june(1), june(5)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available || len(res.Conflicts) != 0 {
		t.Fatalf("empty calendar: Available = %v, Conflicts = %v", res.Available, res.Conflicts)
	}
}
