package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"weekrent/internal/app/dto"
	availabilityapp "weekrent/internal/app/handlers/availability"
	"weekrent/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h AvailabilityHandler) Segments(c *gin.Context) {
	query := availabilityapp.GetSegmentsQuery{PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[availabilityapp.GetSegmentsQuery, dto.Segments](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) CheckOutOptions(c *gin.Context) {
	checkIn, err := parseDay(c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query := availabilityapp.CheckOutOptionsQuery{PropertyID: strings.TrimSpace(c.Param("id")), CheckIn: checkIn}
	result, err := queries.Ask[availabilityapp.CheckOutOptionsQuery, dto.CheckOutOptions](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
