package dto

import (
	"sort"
	"time"

	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
)

type CalendarRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Calendar is the merged view of a listing's taken dates. Adjacent and
// overlapping bookings collapse into single blocks.
type Calendar struct {
	ListingID string          `json:"listing_id"`
	Taken     []CalendarRange `json:"taken"`
}

func MapCalendar(listingID string, bookings []*domainbooking.Booking) Calendar {
	ranges := make([]daterange.DateRange, 0, len(bookings))
	for _, b := range bookings {
		ranges = append(ranges, b.Range)
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].CheckIn.Before(ranges[j].CheckIn) })

	var merged []daterange.DateRange
	for _, r := range ranges {
		if len(merged) == 0 {
			merged = append(merged, r)
			continue
		}
		last := &merged[len(merged)-1]
		if combined, ok := last.Merge(r); ok {
			*last = combined
		} else {
			merged = append(merged, r)
		}
	}

	cal := Calendar{ListingID: listingID, Taken: make([]CalendarRange, 0, len(merged))}
	for _, r := range merged {
		cal.Taken = append(cal.Taken, CalendarRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut})
	}
	return cal
}
