package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "weekrent/internal/app/handlers/booking"
	propertiesapp "weekrent/internal/app/handlers/properties"
	"weekrent/internal/app/middleware"
	"weekrent/internal/app/uow"
	domainavailability "weekrent/internal/domain/availability"
	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
	"weekrent/internal/domain/relisting"
	domainrange "weekrent/internal/domain/shared/daterange"
)

// statusFor maps application and domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, middleware.ErrForbidden),
		errors.Is(err, bookingapp.ErrNotParticipant),
		errors.Is(err, bookingapp.ErrOwnBooking):
		return http.StatusForbidden
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainproperties.ErrPropertyNotFound),
		errors.Is(err, domainproperties.ErrNotOwner),
		errors.Is(err, bookingapp.ErrBookingNotOwned):
		return http.StatusNotFound
	case errors.Is(err, domainavailability.ErrMinimumStayUnavailable),
		errors.Is(err, domainavailability.ErrDateUnavailable),
		errors.Is(err, domainavailability.ErrInvalidCheckOut),
		errors.Is(err, propertiesapp.ErrActiveLimitReached),
		errors.Is(err, bookingapp.ErrPropertyNotBookable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, uow.ErrConcurrentModification),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domainproperties.ErrInvalidState),
		errors.Is(err, domainavailability.ErrInvalidSelection),
		errors.Is(err, propertiesapp.ErrHasActiveBookings),
		errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return http.StatusConflict
	case errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, relisting.ErrNoWindow),
		errors.Is(err, domainbooking.ErrStayGranularity),
		errors.Is(err, domainbooking.ErrOutsideWindow),
		errors.Is(err, domainbooking.ErrGuestRequired),
		errors.Is(err, domainproperties.ErrInvalidWindow),
		errors.Is(err, domainproperties.ErrTitleRequired),
		errors.Is(err, middleware.ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if logger != nil {
		fields := []any{"status", status, "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id")}
		if p, ok := currentPrincipal(c); ok {
			fields = append(fields, "user_id", p.ID)
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
	}
	if status >= http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
