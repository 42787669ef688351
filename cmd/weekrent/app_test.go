package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekrent/internal/app/dto"
	"weekrent/internal/infra/config"
	ginserver "weekrent/internal/infra/http/gin"
	"weekrent/internal/infra/obs"
)

type testClient struct {
	t      *testing.T
	server *httptest.Server
}

func newTestClient(t *testing.T) testClient {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORAGE_MODE", "memory")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("POLICY_FILE", "")
	t.Setenv("ACTIVE_LISTING_CAP", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := buildApplication(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	server := httptest.NewServer(ginserver.NewRouter(obs.Middleware{Logger: logger}, app.health, app.handlers))
	t.Cleanup(server.Close)
	return testClient{t: t, server: server}
}

func (c testClient) do(method, path, user, roles string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-User-Roles", roles)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(time.DateOnly)
}

func TestCancellationMergesBackIntoListing(t *testing.T) {
	client := newTestClient(t)

	resp := client.do(http.MethodPost, "/api/v1/owner/properties", "owner-1", "owner", map[string]string{
		"title":        "Seaside flat",
		"window_start": day(7),
		"window_end":   day(35),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	property := decode[dto.Property](t, resp)
	require.NotEmpty(t, property.ID)
	assert.Equal(t, "active", property.Status)

	resp = client.do(http.MethodPost, "/api/v1/bookings", "guest-1", "guest", map[string]string{
		"property_id": property.ID,
		"check_in":    day(14),
		"check_out":   day(21),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decode[dto.Booking](t, resp)
	assert.Equal(t, 7, booking.Stay.Nights)

	resp = client.do(http.MethodGet, "/api/v1/properties/"+property.ID+"/segments", "", "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	segments := decode[dto.Segments](t, resp)
	require.Len(t, segments.Segments, 2)
	assert.Equal(t, 7, segments.Segments[0].Nights)
	assert.Equal(t, 14, segments.Segments[1].Nights)

	resp = client.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", "guest-1", "guest",
		map[string]string{"reason": "plans changed"}, map[string]string{"Accept-Language": "ko-KR"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ko", resp.Header.Get("Content-Language"))
	outcome := decode[struct {
		dto.CancellationOutcome
		Message string `json:"message"`
	}](t, resp)
	assert.Equal(t, "merged", outcome.Outcome)
	assert.Equal(t, "active", outcome.Tab)
	assert.NotEmpty(t, outcome.Message)

	resp = client.do(http.MethodGet, "/api/v1/properties/"+property.ID+"/segments", "", "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	segments = decode[dto.Segments](t, resp)
	require.Len(t, segments.Segments, 1)
	assert.Equal(t, 28, segments.Segments[0].Nights)
}

func TestCancellingTwiceIsRejected(t *testing.T) {
	client := newTestClient(t)

	resp := client.do(http.MethodPost, "/api/v1/owner/properties", "owner-1", "owner", map[string]string{
		"title":        "Cabin",
		"window_start": day(7),
		"window_end":   day(21),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	property := decode[dto.Property](t, resp)

	resp = client.do(http.MethodPost, "/api/v1/bookings", "guest-1", "guest", map[string]string{
		"property_id": property.ID,
		"check_in":    day(7),
		"check_out":   day(14),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decode[dto.Booking](t, resp)

	resp = client.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", "owner-1", "owner", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = client.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", "owner-1", "owner", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRequestBookingRejectsOddLengthStay(t *testing.T) {
	client := newTestClient(t)

	resp := client.do(http.MethodPost, "/api/v1/owner/properties", "owner-1", "owner", map[string]string{
		"title":        "Loft",
		"window_start": day(7),
		"window_end":   day(35),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	property := decode[dto.Property](t, resp)

	resp = client.do(http.MethodPost, "/api/v1/bookings", "guest-1", "guest", map[string]string{
		"property_id": property.ID,
		"check_in":    day(7),
		"check_out":   day(10),
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = client.do(http.MethodPost, "/api/v1/bookings", "", "", map[string]string{
		"property_id": property.ID,
		"check_in":    day(7),
		"check_out":   day(14),
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	client := newTestClient(t)

	resp := client.do(http.MethodGet, "/livez", "", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = client.do(http.MethodGet, "/readyz", "", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSegmentsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"segments", "--window", "2025-01-01/2025-01-29", "--booked", "2025-01-08/2025-01-15"})
	require.NoError(t, cmd.Execute())

	var got struct {
		dto.Segments
		Bookable bool `json:"bookable"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Segments.Segments, 2)
	assert.Equal(t, 7, got.Segments.Segments[0].Nights)
	assert.Equal(t, 14, got.Segments.Segments[1].Nights)
	assert.True(t, got.Bookable)
	assert.Equal(t, 7, got.MinNights)
}
