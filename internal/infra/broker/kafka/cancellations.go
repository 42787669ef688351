package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"weekrent/internal/app/commands"
	"weekrent/internal/app/dto"
	bookinghandlers "weekrent/internal/app/handlers/booking"
	"weekrent/internal/app/middleware"
	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
	"weekrent/internal/domain/relisting"
)

// Inbox remembers which events a consumer already handled.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// CancellationRequest is the message other services publish to cancel a booking.
type CancellationRequest struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

// CancellationHandler turns cancellation requests into CancelBookingCommand dispatches.
type CancellationHandler struct {
	Bus    commands.Bus
	Inbox  Inbox
	Logger *slog.Logger
}

var errMalformedRequest = errors.New("kafka: malformed cancellation request")

func (h CancellationHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	req, err := decodeCancellation(msg)
	if err != nil {
		// redelivery cannot fix a bad payload
		logger.Error("dropping cancellation request", "offset", msg.Offset, "error", err)
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, req.ID)
		if err != nil {
			return err
		}
		if seen {
			logger.Debug("duplicate cancellation request", "event_id", req.ID)
			return nil
		}
	}

	cmd := bookinghandlers.CancelBookingCommand{
		BookingID:       req.BookingID,
		Reason:          req.Reason,
		IdempotencyKeyV: "cancellation:" + req.ID,
	}
	outcome, err := commands.Dispatch[bookinghandlers.CancelBookingCommand, *dto.CancellationOutcome](ctx, h.Bus, cmd)
	if err != nil {
		if permanent(err) {
			logger.Warn("cancellation request rejected", "event_id", req.ID, "booking_id", req.BookingID, "error", err)
			return nil
		}
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(context.WithoutCancel(ctx), req.ID); ferr != nil {
				return errors.Join(err, ferr)
			}
		}
		return err
	}
	if outcome != nil {
		logger.Info("cancellation request applied", "event_id", req.ID, "booking_id", req.BookingID, "outcome", outcome.Outcome)
	}
	return nil
}

func decodeCancellation(msg *sarama.ConsumerMessage) (CancellationRequest, error) {
	var req CancellationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return req, fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	if req.ID == "" {
		req.ID = headerValue(msg, "ce-id")
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		return req, fmt.Errorf("%w: booking_id required", errMalformedRequest)
	}
	return req, nil
}

func headerValue(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && strings.EqualFold(string(h.Key), key) {
			return string(h.Value)
		}
	}
	return ""
}

// permanent reports errors a retry of the same message cannot change.
func permanent(err error) bool {
	for _, target := range []error{
		domainbooking.ErrBookingNotFound,
		domainbooking.ErrInvalidState,
		domainproperties.ErrPropertyNotFound,
		domainproperties.ErrInvalidState,
		middleware.ErrValidation,
		middleware.ErrIdempotencyKeyReused,
		relisting.ErrNoWindow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
