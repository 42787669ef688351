package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"weekrent/internal/app/commands"
	"weekrent/internal/app/dto"
	bookingapp "weekrent/internal/app/handlers/booking"
	"weekrent/internal/app/queries"
	"weekrent/internal/domain/relisting"
)

type BookingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
}

type cancelBookingRequest struct {
	PropertyID string `json:"property_id"`
	Reason     string `json:"reason"`
}

type cancellationResponse struct {
	dto.CancellationOutcome
	Message  string `json:"message"`
	Language string `json:"language"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "guest")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkIn, err := parseDay(req.CheckIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkOut, err := parseDay(req.CheckOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		CommandID:       generateCommandID(),
		PropertyID:      strings.TrimSpace(req.PropertyID),
		GuestID:         user.ID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Cancel runs the relisting decision and tells the caller which tab the property landed in.
func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:       strings.TrimSpace(c.Param("id")),
		PropertyID:      strings.TrimSpace(req.PropertyID),
		RequestedBy:     user.ID,
		Reason:          strings.TrimSpace(req.Reason),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancellationOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	msg, tag := outcomeMessage(relisting.Kind(result.Outcome), c.GetHeader("Accept-Language"))
	c.Header("Content-Language", tag.String())
	c.JSON(http.StatusOK, cancellationResponse{CancellationOutcome: *result, Message: msg, Language: tag.String()})
}

func generateCommandID() string {
	return uuid.NewString()
}

type OwnerBookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h OwnerBookingHandler) List(c *gin.Context) {
	owner, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	query := bookingapp.ListOwnerBookingsQuery{OwnerID: owner.ID, Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListOwnerBookingsQuery, []dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

func (h OwnerBookingHandler) Confirm(c *gin.Context) {
	owner, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmOwnerBookingCommand{OwnerID: owner.ID, BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[bookingapp.ConfirmOwnerBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OwnerBookingHandler) Complete(c *gin.Context) {
	owner, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	cmd := bookingapp.CompleteOwnerBookingCommand{OwnerID: owner.ID, BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[bookingapp.CompleteOwnerBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var (
	_ BookingHTTP      = BookingHandler{}
	_ OwnerBookingHTTP = OwnerBookingHandler{}
)
