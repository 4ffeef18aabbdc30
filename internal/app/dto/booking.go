package dto

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type PriceBreakdownDTO struct {
	Nights   int      `json:"nights"`
	Nightly  MoneyDTO `json:"nightly"`
	Subtotal MoneyDTO `json:"subtotal"`
	Taxes    MoneyDTO `json:"taxes"`
	Total    MoneyDTO `json:"total"`
}

type BookingListingSnapshot struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	City         string `json:"city"`
	Country      string `json:"country"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type BookingDetail struct {
	ID        string                 `json:"id"`
	Listing   BookingListingSnapshot `json:"listing"`
	GuestID   string                 `json:"guest_id"`
	CheckIn   time.Time              `json:"check_in"`
	CheckOut  time.Time              `json:"check_out"`
	Guests    int                    `json:"guests"`
	Status    string                 `json:"status"`
	Price     PriceBreakdownDTO      `json:"price"`
	CreatedAt time.Time              `json:"created_at"`
}

type GuestBookingSummary struct {
	ID        string                 `json:"id"`
	Listing   BookingListingSnapshot `json:"listing"`
	CheckIn   time.Time              `json:"check_in"`
	CheckOut  time.Time              `json:"check_out"`
	Guests    int                    `json:"guests"`
	Status    string                 `json:"status"`
	Total     MoneyDTO               `json:"total"`
	CreatedAt time.Time              `json:"created_at"`
}

type GuestBookingCollection struct {
	Items []GuestBookingSummary `json:"items"`
}

// TakenRange mirrors the public availability payload: the UI renders it
// verbatim to grey out booked dates.
type TakenRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Status   string    `json:"status,omitempty"`
}

type TakenRangeCollection struct {
	Items []TakenRange `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func MapPriceBreakdown(p domainpricing.PriceBreakdown) PriceBreakdownDTO {
	return PriceBreakdownDTO{
		Nights:   p.Nights,
		Nightly:  MapMoney(p.Nightly),
		Subtotal: MapMoney(p.Subtotal),
		Taxes:    MapMoney(p.Taxes),
		Total:    MapMoney(p.Total),
	}
}

func mapListingSnapshot(id domainlistings.ListingID, listing *domainlistings.Listing) BookingListingSnapshot {
	snapshot := BookingListingSnapshot{ID: string(id)}
	if listing != nil {
		snapshot.Title = listing.Title
		snapshot.City = listing.Address.City
		snapshot.Country = listing.Address.Country
		snapshot.ThumbnailURL = listing.ThumbnailURL
	}
	return snapshot
}

func MapBookingDetail(b *domainbooking.Booking, listing *domainlistings.Listing) BookingDetail {
	return BookingDetail{
		ID:        string(b.ID),
		Listing:   mapListingSnapshot(b.ListingID, listing),
		GuestID:   b.GuestID,
		CheckIn:   b.Range.CheckIn,
		CheckOut:  b.Range.CheckOut,
		Guests:    b.Guests,
		Status:    string(b.Status),
		Price:     MapPriceBreakdown(b.Price),
		CreatedAt: b.CreatedAt,
	}
}

func MapGuestBookingSummary(b *domainbooking.Booking, listing *domainlistings.Listing) GuestBookingSummary {
	return GuestBookingSummary{
		ID:        string(b.ID),
		Listing:   mapListingSnapshot(b.ListingID, listing),
		CheckIn:   b.Range.CheckIn,
		CheckOut:  b.Range.CheckOut,
		Guests:    b.Guests,
		Status:    string(b.Status),
		Total:     MapMoney(b.Price.Total),
		CreatedAt: b.CreatedAt,
	}
}

func MapTakenRanges(bookings []*domainbooking.Booking) TakenRangeCollection {
	items := make([]TakenRange, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, TakenRange{CheckIn: b.Range.CheckIn, CheckOut: b.Range.CheckOut, Status: string(b.Status)})
	}
	return TakenRangeCollection{Items: items}
}
