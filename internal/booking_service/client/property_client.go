// Package client holds the HTTP clients for the collaborator services the
// booking coordinator calls synchronously. Both carry a bounded timeout, and
// a timeout is always an error, never an implicit success.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/roamstay-booking-ledger/internal/config"
)

// ErrCollaboratorUnavailable indicates the remote service timed out or failed;
// callers must treat the answer as unknown, not as a success
var ErrCollaboratorUnavailable = errors.New("collaborator service unavailable")

// ErrPropertyNotFound indicates missing property
type ErrPropertyNotFound struct {
	PropertyID uuid.UUID
}

func (e ErrPropertyNotFound) Error() string {
	return "property not found: " + e.PropertyID.String()
}

// Is implements the errors.Is interface for ErrPropertyNotFound
func (e ErrPropertyNotFound) Is(target error) bool {
	_, ok := target.(ErrPropertyNotFound)
	return ok
}

// Property is the subset of the property record the coordinator needs for
// validation and pricing
type Property struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          uuid.UUID `json:"owner_id"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	MaxGuests        int       `json:"max_guests"`
}

// PropertyClient fetches authoritative property data
type PropertyClient interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*Property, error)
}

// HTTPPropertyClient implements PropertyClient against the property service
type HTTPPropertyClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewPropertyClient creates a property client with a bounded request timeout
func NewPropertyClient(logger *slog.Logger, cfg *config.CollaboratorsConfig) *HTTPPropertyClient {
	return &HTTPPropertyClient{
		baseURL:    cfg.PropertyServiceURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// GetProperty fetches a property by id. Timeouts and 5xx responses map to
// ErrCollaboratorUnavailable so the caller fails closed.
func (c *HTTPPropertyClient) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	url := fmt.Sprintf("%s/properties/%s", c.baseURL, id.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build property request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Property service request failed", "property_id", id.String(), "error", err)
		return nil, fmt.Errorf("property service request failed: %w", ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrPropertyNotFound{PropertyID: id}
	case resp.StatusCode != http.StatusOK:
		c.logger.Error("Property service returned unexpected status", "property_id", id.String(), "status", resp.StatusCode)
		return nil, fmt.Errorf("property service returned status %d: %w", resp.StatusCode, ErrCollaboratorUnavailable)
	}

	var property Property
	if err := json.NewDecoder(resp.Body).Decode(&property); err != nil {
		return nil, fmt.Errorf("failed to decode property response: %w", err)
	}

	return &property, nil
}
