package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/roamstay-booking-ledger/internal/config"
)

// availabilityDateLayout is the wire format the availability endpoint
// accepts. Dates are whole days; anything more precise is rejected.
const availabilityDateLayout = "2006-01-02"

// AvailabilityResult is the answer of an availability check
type AvailabilityResult struct {
	Available bool        `json:"available"`
	Conflicts []uuid.UUID `json:"conflicts"`
}

// AvailabilityClient asks a separate authoritative source whether a property
// is free for a date range. This is the strict cross-partition check; the
// in-transaction re-check closes the remaining race locally.
type AvailabilityClient interface {
	CheckAvailable(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (*AvailabilityResult, error)
}

type availabilityRequest struct {
	PropertyID uuid.UUID `json:"property_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
}

// availabilityResponse mirrors the endpoint's response envelope
type availabilityResponse struct {
	Data AvailabilityResult `json:"data"`
}

// HTTPAvailabilityClient implements AvailabilityClient over HTTP
type HTTPAvailabilityClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAvailabilityClient creates an availability client with a bounded request timeout
func NewAvailabilityClient(logger *slog.Logger, cfg *config.CollaboratorsConfig) *HTTPAvailabilityClient {
	return &HTTPAvailabilityClient{
		baseURL:    cfg.AvailabilityServiceURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// CheckAvailable posts the date range to the availability endpoint. Any
// failure, including a timeout, means "unknown" and surfaces as
// ErrCollaboratorUnavailable rather than an optimistic "available".
func (c *HTTPAvailabilityClient) CheckAvailable(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (*AvailabilityResult, error) {
	body, err := json.Marshal(availabilityRequest{
		PropertyID: propertyID,
		StartDate:  start.Format(availabilityDateLayout),
		EndDate:    end.Format(availabilityDateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal availability request: %w", err)
	}

	url := fmt.Sprintf("%s/bookings/availability", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build availability request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Availability service request failed", "property_id", propertyID.String(), "error", err)
		return nil, fmt.Errorf("availability service request failed: %w", ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Availability service returned unexpected status", "property_id", propertyID.String(), "status", resp.StatusCode)
		return nil, fmt.Errorf("availability service returned status %d: %w", resp.StatusCode, ErrCollaboratorUnavailable)
	}

	var envelope availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode availability response: %w", err)
	}

	return &envelope.Data, nil
}
