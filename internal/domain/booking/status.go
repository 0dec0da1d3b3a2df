package booking

// Status defines the booking lifecycle states
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// ParseStatus validates a raw status string
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusAccepted, StatusCancelled, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

// Blocks reports whether a booking in this status holds its date range.
// Only blocking bookings participate in availability conflicts.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusAccepted
}

// Terminal reports whether the status admits no further transitions
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransitionTo reports whether the transition s -> next is legal.
// PENDING may be accepted or cancelled; ACCEPTED may be cancelled or
// completed; terminal states never move again.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusCancelled
	case StatusAccepted:
		return next == StatusCancelled || next == StatusCompleted
	default:
		return false
	}
}
