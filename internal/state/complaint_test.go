package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/fleetdash/internal/models"
)

func TestComplaintMachine_ClearAndReopen(t *testing.T) {
	var changes [][2]string
	m := NewComplaintMachine(7, models.ComplaintOpen, func(id int64, from, to string) {
		assert.Equal(t, int64(7), id)
		changes = append(changes, [2]string{from, to})
	})

	assert.True(t, m.Can(EventClear))
	assert.False(t, m.Can(EventReopen))

	status, err := m.Trigger(context.Background(), EventClear)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintCleared, status)

	status, err = m.Trigger(context.Background(), EventReopen)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintOpen, status)

	assert.Equal(t, [][2]string{
		{models.ComplaintOpen, models.ComplaintCleared},
		{models.ComplaintCleared, models.ComplaintOpen},
	}, changes)
}

func TestComplaintMachine_InvalidTransition(t *testing.T) {
	m := NewComplaintMachine(1, models.ComplaintCleared, nil)

	status, err := m.Trigger(context.Background(), EventClear)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.ComplaintCleared, status)

	_, err = m.Trigger(context.Background(), "explode")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestComplaintMachine_UnknownStatusStartsOpen(t *testing.T) {
	m := NewComplaintMachine(1, "Closed?", nil)
	assert.Equal(t, models.ComplaintOpen, m.Current())
}
