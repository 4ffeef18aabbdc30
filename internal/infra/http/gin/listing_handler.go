package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	listingapp "staybook/internal/app/handlers/listings"
)

type ListingHandler struct {
	Commands commands.Bus
}

func (h ListingHandler) Remove(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	cmd := listingapp.RemoveListingCommand{
		ListingID: c.Param("id"),
		ActorID:   user.ID,
		ActorRole: user.Role,
	}
	result, err := commands.Dispatch[listingapp.RemoveListingCommand, *listingapp.RemoveListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ListingHTTP = ListingHandler{}
