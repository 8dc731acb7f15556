package booking

import (
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBooking(t *testing.T) *BookingRef {
	t.Helper()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b, err := NewBookingRef(uuid.New(), nil, uuid.New(), nil, StatusConfirmed, start, start.Add(time.Hour))
	require.NoError(t, err)
	return b
}

func TestNewBookingRef_Validation(t *testing.T) {
	start := time.Now()
	_, err := NewBookingRef(uuid.New(), nil, uuid.New(), nil, StatusPending, start, start)
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	_, err = NewBookingRef(uuid.Nil, nil, uuid.New(), nil, StatusPending, start, start.Add(time.Hour))
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	_, err = NewBookingRef(uuid.New(), nil, uuid.New(), nil, "lost", start, start.Add(time.Hour))
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestBookingRef_StatusTransitions(t *testing.T) {
	b := newTestBooking(t)

	require.NoError(t, b.TransitionTo(StatusInProgress))
	require.NoError(t, b.TransitionTo(StatusCompleted))

	err := b.TransitionTo(StatusCancelled)
	assert.True(t, domain.IsKind(err, domain.KindConflict))
	assert.True(t, b.Status().IsTerminal())
	assert.False(t, b.Status().IsRoutable())
}

func TestBookingRef_RescheduleRejectedWhenTerminal(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.TransitionTo(StatusCancelled))

	err := b.Reschedule(time.Now(), time.Now().Add(time.Hour))
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestBookingRef_MarkProviderArrived(t *testing.T) {
	b := newTestBooking(t)
	first := time.Date(2026, 3, 2, 8, 55, 0, 0, time.UTC)
	second := first.Add(3 * time.Minute)

	b.MarkProviderArrived(first, false)
	require.NotNil(t, b.ArrivedAt())
	assert.False(t, b.ArrivalVerified())

	b.MarkProviderArrived(second, true)
	assert.True(t, b.ArrivalVerified())
	assert.Equal(t, second, *b.ArrivedAt())

	b.MarkProviderArrived(second.Add(time.Minute), false)
	assert.True(t, b.ArrivalVerified(), "verified arrival is never downgraded")
	assert.Equal(t, second, *b.ArrivedAt())
}
