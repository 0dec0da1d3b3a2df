// Package handler exposes the projected ledger over HTTP. Reads are served
// straight from the projection store and are eventually consistent: an entry
// appears only once the corresponding event has been applied.
package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roamstay-booking-ledger/internal/domain/ledger"
)

const (
	dateLayout = "2006-01-02"

	defaultPageLimit = 50
	maxPageLimit     = 200
)

// LedgerHandler handles HTTP requests for ledger reads
type LedgerHandler struct {
	repo   ledger.Repository
	logger *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, repo ledger.Repository) *LedgerHandler {
	return &LedgerHandler{
		repo:   repo,
		logger: logger,
	}
}

// EntryResponse represents a ledger entry in API responses. Placeholder
// entries only carry the booking id and status; their descriptive fields
// are omitted.
type EntryResponse struct {
	BookingID       string `json:"booking_id"`
	PropertyID      string `json:"property_id,omitempty"`
	RequesterID     string `json:"requester_id,omitempty"`
	OwnerID         string `json:"owner_id,omitempty"`
	StartDate       string `json:"start_date,omitempty"`
	EndDate         string `json:"end_date,omitempty"`
	Guests          int    `json:"guests,omitempty"`
	TotalPriceCents int64  `json:"total_price_cents,omitempty"`
	Status          string `json:"status"`
	Comments        string `json:"comments,omitempty"`
	Placeholder     bool   `json:"placeholder"`
	LastEventAt     string `json:"last_event_at"`
}

// EntryListResponse represents a page of ledger entries
type EntryListResponse struct {
	Entries []EntryResponse `json:"entries"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// GetByBookingID returns the ledger entry for a booking, 404 if the entry
// has not been projected yet
func (h *LedgerHandler) GetByBookingID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid booking ID")
		return
	}

	entry, err := h.repo.GetByBookingID(c.Request.Context(), id)
	if err != nil {
		var notFound ledger.ErrEntryNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Ledger entry not found")
			return
		}
		h.logger.Error("Failed to get ledger entry", "booking_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// ListByProperty returns the ledger entries for a property, newest first.
// Pagination is driven by the limit and offset query parameters.
func (h *LedgerHandler) ListByProperty(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid property ID")
		return
	}

	limit, err := parsePositiveQuery(c, "limit", defaultPageLimit)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset, err := parsePositiveQuery(c, "offset", 0)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	entries, err := h.repo.ListByProperty(c.Request.Context(), propertyID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list ledger entries", "property_id", propertyID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := EntryListResponse{
		Entries: make([]EntryResponse, 0, len(entries)),
		Limit:   limit,
		Offset:  offset,
	}
	for _, entry := range entries {
		response.Entries = append(response.Entries, mapEntryToResponse(entry))
	}

	RespondOK(c, response)
}

func parsePositiveQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

// mapEntryToResponse maps a ledger entry to a response DTO
func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		BookingID:       e.BookingID.String(),
		Guests:          e.Guests,
		TotalPriceCents: e.TotalPriceCents,
		Status:          string(e.Status),
		Comments:        e.Comments,
		Placeholder:     e.Placeholder,
		LastEventAt:     e.LastEventAt.UTC().Format(time.RFC3339),
	}
	if e.PropertyID != uuid.Nil {
		resp.PropertyID = e.PropertyID.String()
	}
	if e.RequesterID != uuid.Nil {
		resp.RequesterID = e.RequesterID.String()
	}
	if e.OwnerID != uuid.Nil {
		resp.OwnerID = e.OwnerID.String()
	}
	if !e.StartDate.IsZero() {
		resp.StartDate = e.StartDate.Format(dateLayout)
	}
	if !e.EndDate.IsZero() {
		resp.EndDate = e.EndDate.Format(dateLayout)
	}
	return resp
}
