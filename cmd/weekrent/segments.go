package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"weekrent/internal/app/dto"
	"weekrent/internal/domain/availability"
	"weekrent/internal/domain/shared/daterange"
	"weekrent/internal/infra/config"
)

func newSegmentsCmd() *cobra.Command {
	var (
		window     string
		booked     []string
		today      string
		policyFile string
	)

	c := &cobra.Command{
		Use:   "segments",
		Short: "Compute the open segments of a window offline",
		Example: "  weekrent segments --window 2025-01-01/2025-01-29 --booked 2025-01-08/2025-01-15",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := config.DefaultPolicy()
			if policyFile != "" {
				var err error
				if policy, err = config.LoadPolicy(policyFile, policy); err != nil {
					return err
				}
			}
			w, err := parseRangeFlag(window)
			if err != nil {
				return fmt.Errorf("--window: %w", err)
			}
			var taken []daterange.DateRange
			for _, raw := range booked {
				r, err := parseRangeFlag(raw)
				if err != nil {
					return fmt.Errorf("--booked %q: %w", raw, err)
				}
				taken = append(taken, r)
			}
			segments := availability.Segments(w, taken)
			if today != "" {
				t, err := time.Parse(time.DateOnly, today)
				if err != nil {
					return fmt.Errorf("--today: %w", err)
				}
				segments = availability.Upcoming(segments, t)
			}

			stay := availability.StayPolicy{StepDays: policy.StayStepDays, MaxSteps: policy.StayMaxSteps}
			win := dto.MapRange(w)
			out := dto.Segments{
				Window:    &win,
				Segments:  dto.MapRanges(segments),
				MinNights: stay.MinimumNights(),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				dto.Segments
				Bookable bool `json:"bookable"`
			}{out, stay.HasBookableSegment(segments)})
		},
	}

	c.Flags().StringVar(&window, "window", "", "advertised window YYYY-MM-DD/YYYY-MM-DD")
	c.Flags().StringArrayVar(&booked, "booked", nil, "booked range YYYY-MM-DD/YYYY-MM-DD (repeatable)")
	c.Flags().StringVar(&today, "today", "", "clip segments to days from this date on")
	c.Flags().StringVar(&policyFile, "policy", "", "policy YAML file")
	_ = c.MarkFlagRequired("window")
	return c
}

// parseRangeFlag reads a half-open range written as checkin/checkout.
func parseRangeFlag(raw string) (daterange.DateRange, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok {
		return daterange.DateRange{}, fmt.Errorf("expected checkin/checkout, got %q", raw)
	}
	checkIn, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return daterange.DateRange{}, err
	}
	checkOut, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.New(checkIn, checkOut)
}
