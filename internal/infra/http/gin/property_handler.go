package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"weekrent/internal/app/commands"
	"weekrent/internal/app/dto"
	propertiesapp "weekrent/internal/app/handlers/properties"
	"weekrent/internal/app/queries"
)

type OwnerPropertyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createPropertyRequest struct {
	Title           string `json:"title"`
	WindowStart     string `json:"window_start"`
	WindowEnd       string `json:"window_end"`
	CalendarFeedURL string `json:"calendar_feed_url"`
}

// List returns the owner's properties split into listing tabs.
func (h OwnerPropertyHandler) List(c *gin.Context) {
	owner, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	query := propertiesapp.OwnerPropertiesQuery{OwnerID: owner.ID}
	result, err := queries.Ask[propertiesapp.OwnerPropertiesQuery, dto.OwnerProperties](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OwnerPropertyHandler) Create(c *gin.Context) {
	owner, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := parseDay(req.WindowStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end, err := parseDay(req.WindowEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := propertiesapp.CreatePropertyCommand{
		OwnerID:         owner.ID,
		Title:           strings.TrimSpace(req.Title),
		WindowStart:     start,
		WindowEnd:       end,
		CalendarFeedURL: strings.TrimSpace(req.CalendarFeedURL),
	}
	result, err := commands.Dispatch[propertiesapp.CreatePropertyCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Delete soft-deletes by default; ?permanent=true removes the record.
func (h OwnerPropertyHandler) Delete(c *gin.Context) {
	owner, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	permanent := false
	if raw := c.Query("permanent"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "permanent must be a boolean"})
			return
		}
		permanent = v
	}
	cmd := propertiesapp.DeletePropertyCommand{OwnerID: owner.ID, PropertyID: strings.TrimSpace(c.Param("id")), Permanent: permanent}
	result, err := commands.Dispatch[propertiesapp.DeletePropertyCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OwnerPropertyHandler) Reactivate(c *gin.Context) {
	owner, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	cmd := propertiesapp.ReactivatePropertyCommand{OwnerID: owner.ID, PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[propertiesapp.ReactivatePropertyCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ OwnerPropertyHTTP = OwnerPropertyHandler{}
