package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"PENDING", "ACCEPTED", "CANCELLED", "COMPLETED"} {
		s, ok := ParseStatus(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, Status(valid), s)
	}

	for _, invalid := range []string{"", "pending", "APPROVED", "DONE"} {
		_, ok := ParseStatus(invalid)
		assert.False(t, ok, invalid)
	}
}

func TestStatus_Blocks(t *testing.T) {
	assert.True(t, StatusPending.Blocks())
	assert.True(t, StatusAccepted.Blocks())
	assert.False(t, StatusCancelled.Blocks())
	assert.False(t, StatusCompleted.Blocks())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusAccepted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusCompleted, true},
		{StatusAccepted, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusAccepted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusAccepted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
