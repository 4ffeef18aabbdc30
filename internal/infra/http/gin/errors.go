package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
	domainrange "staybook/internal/domain/shared/daterange"
	mongodb "staybook/internal/infra/db/mongo"
)

// respondError maps domain errors onto the wire contract. Conflicts go
// out as 400 with the full conflicting_dates list; the UI renders that
// payload verbatim.
func respondError(c *gin.Context, err error) {
	var conflict *domainbooking.ConflictError
	if errors.As(err, &conflict) {
		ranges := make([]dto.TakenRange, 0, len(conflict.Conflicts))
		for _, b := range conflict.Conflicts {
			ranges = append(ranges, dto.TakenRange{CheckIn: b.Range.CheckIn, CheckOut: b.Range.CheckOut})
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "This listing is already booked for the selected dates",
			"conflicting_dates": ranges,
		})
		return
	}

	switch {
	case errors.Is(err, domainlistings.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
	case errors.Is(err, domainbooking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
	case errors.Is(err, bookingapp.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, mongodb.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": "booking state changed concurrently, retry"})
	case errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, domainpricing.ErrInvalidPrice),
		errors.Is(err, domainbooking.ErrInvalidGuests),
		errors.Is(err, domainlistings.ErrGuestsLimit),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domainbooking.ErrCancellationWindowClosed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
