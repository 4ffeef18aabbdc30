package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staybook/internal/app/commands"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	listingapp "staybook/internal/app/handlers/listings"
	"staybook/internal/app/middleware"
	"staybook/internal/app/queries"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/storage/memory"
)

const (
	testListingID = "ls-1"
	testOwnerID   = "owner-1"
	testGuestID   = "guest-1"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	listingsRepo := memory.NewListingRepository()
	bookingRepo := memory.NewBookingRepository()
	factory := &memory.Factory{
		ListingsRepo:      listingsRepo,
		BookingRepo:       bookingRepo,
		NotificationsRepo: memory.NewNotificationStore(),
	}
	outboxStore := memory.NewOutbox()
	idStore := memory.NewIdempotencyStore(time.Hour)

	listing := &domainlistings.Listing{
		ID:          testListingID,
		Owner:       testOwnerID,
		Title:       "Harbour flat",
		GuestsLimit: 4,
		NightlyRate: money.Must(2000, "USD"),
		State:       domainlistings.ListingActive,
		Address:     domainlistings.Address{Line1: "2 Quay St", City: "Porto", Country: "PT"},
	}
	if err := listingsRepo.Save(context.Background(), listing); err != nil {
		t.Fatal(err)
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: factory,
		Outbox:     outboxStore,
	})
	commands.RegisterHandler(commandBus, bookingapp.ConfirmBookingCommand{}.Key(), &bookingapp.ConfirmBookingHandler{
		UoWFactory: factory,
		Outbox:     outboxStore,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: factory,
		Outbox:     outboxStore,
	})
	commands.RegisterHandler(commandBus, listingapp.RemoveListingCommand{}.Key(), &listingapp.RemoveListingHandler{
		UoWFactory: factory,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsQuery{}.Key(), &bookingapp.ListGuestBookingsHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, availabilityapp.ListingBookingsQuery{}.Key(), &availabilityapp.ListingBookingsHandler{UoWFactory: factory})

	commandsMW := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queriesMW := middleware.ChainQueries(queryBus)

	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{
		Ready: func() error { return nil },
	}, Handlers{
		Booking:      BookingHandler{Commands: commandsMW, Queries: queriesMW},
		Availability: AvailabilityHandler{Queries: queriesMW},
		Me:           MeHandler{Queries: queriesMW},
		Listing:      ListingHandler{Commands: commandsMW},
	})
	return server.Handler
}

func stayDate(d int) string {
	base := time.Now().UTC().AddDate(0, 2, 0)
	base = time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, d).Format(time.RFC3339)
}

func doJSON(t *testing.T, h http.Handler, method, path, userID, role string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createStay(t *testing.T, h http.Handler, guest string, from, to int) map[string]any {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/bookings", guest, "", map[string]any{
		"listing_id": testListingID,
		"check_in":   stayDate(from),
		"check_out":  stayDate(to),
		"guests":     2,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create stay: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Booking map[string]any `json:"booking"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out.Booking
}

func TestCreateBookingEndpoint(t *testing.T) {
	h := newTestServer(t)

	booking := createStay(t, h, testGuestID, 1, 4)
	if booking["status"] != "confirmed" {
		t.Fatalf("status = %v, want confirmed", booking["status"])
	}
	price := booking["price"].(map[string]any)
	total := price["total"].(map[string]any)
	if total["amount"].(float64) != 7080 {
		t.Fatalf("total = %v, want 7080", total["amount"])
	}
}

func TestCreateBookingRequiresAuth(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/bookings", "", "", map[string]any{
		"listing_id": testListingID,
		"check_in":   stayDate(1),
		"check_out":  stayDate(4),
		"guests":     2,
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateBookingConflictResponse(t *testing.T) {
	h := newTestServer(t)
	createStay(t, h, testGuestID, 1, 5)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/bookings", "guest-2", "", map[string]any{
		"listing_id": testListingID,
		"check_in":   stayDate(3),
		"check_out":  stayDate(7),
		"guests":     2,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error            string `json:"error"`
		ConflictingDates []struct {
			CheckIn  time.Time `json:"check_in"`
			CheckOut time.Time `json:"check_out"`
		} `json:"conflicting_dates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "This listing is already booked for the selected dates" {
		t.Fatalf("error = %q", body.Error)
	}
	if len(body.ConflictingDates) != 1 {
		t.Fatalf("conflicting_dates = %+v, want one range", body.ConflictingDates)
	}
}

func TestCreateBookingUnknownListing(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/bookings", testGuestID, "", map[string]any{
		"listing_id": "missing",
		"check_in":   stayDate(1),
		"check_out":  stayDate(4),
		"guests":     2,
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateBookingIdempotencyKeyReplays(t *testing.T) {
	h := newTestServer(t)
	headers := map[string]string{"Idempotency-Key": "idem-123"}

	body := map[string]any{
		"listing_id": testListingID,
		"check_in":   stayDate(1),
		"check_out":  stayDate(4),
		"guests":     2,
	}
	first := doJSON(t, h, http.MethodPost, "/api/v1/bookings", testGuestID, "", body, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("first: status = %d, body = %s", first.Code, first.Body.String())
	}
	second := doJSON(t, h, http.MethodPost, "/api/v1/bookings", testGuestID, "", body, headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay: status = %d, body = %s", second.Code, second.Body.String())
	}

	var a, b struct {
		Booking struct {
			ID string `json:"id"`
		} `json:"booking"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if a.Booking.ID != b.Booking.ID {
		t.Fatalf("replayed booking id %q != original %q", b.Booking.ID, a.Booking.ID)
	}
}

func TestCreateBookingConflictRepeatsWithIdempotencyKey(t *testing.T) {
	h := newTestServer(t)
	createStay(t, h, testGuestID, 1, 5)

	body := map[string]any{
		"listing_id": testListingID,
		"check_in":   stayDate(3),
		"check_out":  stayDate(7),
		"guests":     2,
	}
	headers := map[string]string{"Idempotency-Key": "idem-conflict"}
	for attempt := 0; attempt < 2; attempt++ {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/bookings", "guest-2", "", body, headers)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: status = %d, want 400, body = %s", attempt, rec.Code, rec.Body.String())
		}
		var out struct {
			Error            string `json:"error"`
			ConflictingDates []any  `json:"conflicting_dates"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		if len(out.ConflictingDates) != 1 {
			t.Fatalf("attempt %d: conflicting_dates = %+v, want one range", attempt, out.ConflictingDates)
		}
	}
}

func TestGetBookingAuthorization(t *testing.T) {
	h := newTestServer(t)
	booking := createStay(t, h, testGuestID, 1, 4)
	path := fmt.Sprintf("/api/v1/bookings/%s", booking["id"])

	if rec := doJSON(t, h, http.MethodGet, path, testGuestID, "", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("guest read: status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, path, "stranger", "", nil, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger read: status = %d, want 403", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, path, "root", "admin", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin read: status = %d", rec.Code)
	}
}

func TestCancelBookingEndpoint(t *testing.T) {
	h := newTestServer(t)
	booking := createStay(t, h, testGuestID, 1, 4)
	path := fmt.Sprintf("/api/v1/bookings/%s/cancel", booking["id"])

	if rec := doJSON(t, h, http.MethodPost, path, "stranger", "", nil, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger cancel: status = %d, want 403", rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, path, testGuestID, "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// dates are released immediately
	cal := doJSON(t, h, http.MethodGet, "/api/v1/listings/"+testListingID+"/calendar", "", "", nil, nil)
	var calendar struct {
		Taken []any `json:"taken"`
	}
	if err := json.Unmarshal(cal.Body.Bytes(), &calendar); err != nil {
		t.Fatal(err)
	}
	if len(calendar.Taken) != 0 {
		t.Fatalf("taken = %+v, want empty after cancellation", calendar.Taken)
	}
}

func TestCalendarMergesAdjacentStays(t *testing.T) {
	h := newTestServer(t)
	createStay(t, h, "guest-1", 1, 5)
	createStay(t, h, "guest-2", 5, 9)
	createStay(t, h, "guest-3", 12, 14)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/listings/"+testListingID+"/calendar", "", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var calendar struct {
		ListingID string `json:"listing_id"`
		Taken     []struct {
			CheckIn  time.Time `json:"check_in"`
			CheckOut time.Time `json:"check_out"`
		} `json:"taken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &calendar); err != nil {
		t.Fatal(err)
	}
	if len(calendar.Taken) != 2 {
		t.Fatalf("taken = %+v, want two merged blocks", calendar.Taken)
	}
	if !calendar.Taken[0].CheckOut.Equal(calendar.Taken[1].CheckIn.AddDate(0, 0, -3)) {
		// first block ends day 9, second starts day 12
		t.Fatalf("merged blocks = %+v", calendar.Taken)
	}
}

func TestListBookingsForGuest(t *testing.T) {
	h := newTestServer(t)
	createStay(t, h, testGuestID, 1, 4)
	createStay(t, h, testGuestID, 10, 12)
	createStay(t, h, "guest-2", 20, 22)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/me/bookings", testGuestID, "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Items []struct {
			ID      string    `json:"id"`
			CheckIn time.Time `json:"check_in"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(out.Items))
	}
	if !out.Items[0].CheckIn.After(out.Items[1].CheckIn) {
		t.Fatal("bookings should be sorted newest stay first")
	}
}

func TestRemoveListingCascades(t *testing.T) {
	h := newTestServer(t)
	booking := createStay(t, h, testGuestID, 1, 4)
	path := "/api/v1/listings/" + testListingID

	if rec := doJSON(t, h, http.MethodDelete, path, "stranger", "", nil, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger delete: status = %d, want 403", rec.Code)
	}

	if rec := doJSON(t, h, http.MethodDelete, path, testOwnerID, "", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("owner delete: status = %d", rec.Code)
	}

	get := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%s", booking["id"]), testGuestID, "", nil, nil)
	if get.Code != http.StatusNotFound {
		t.Fatalf("booking after cascade: status = %d, want 404", get.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t)
	if rec := doJSON(t, h, http.MethodGet, "/livez", "", "", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("livez: status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/readyz", "", "", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: status = %d", rec.Code)
	}
}
