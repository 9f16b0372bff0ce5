package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopping-dashboard/internal/models"
)

func TestNormalize_KeepsEveryRow(t *testing.T) {
	events := segmentableEvents()
	out := Normalize(events)
	assert.Len(t, out, len(events))
}

func TestNormalize_EmptyInput(t *testing.T) {
	out := Normalize(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestNormalize_SortsByUserThenTime(t *testing.T) {
	events := []models.Event{
		event("b", "s2", 2*time.Minute, "view"),
		event("a", "s1", 5*time.Minute, "view"),
		event("b", "s2", time.Minute, "view"),
		event("a", "s1", 0, "view"),
	}

	out := Normalize(events)

	require.Len(t, out, 4)
	assert.Equal(t, "a", out[0].UserID)
	assert.Equal(t, baseTime, out[0].Timestamp)
	assert.Equal(t, "a", out[1].UserID)
	assert.Equal(t, "b", out[2].UserID)
	assert.Equal(t, baseTime.Add(time.Minute), out[2].Timestamp)
	assert.Equal(t, baseTime.Add(2*time.Minute), out[3].Timestamp)
}

func TestNormalize_SessionDuration(t *testing.T) {
	events := []models.Event{
		event("u1", "long", 0, "view"),
		event("u1", "long", 90*time.Second, "view"),
		event("u1", "long", 12*time.Minute, "view"),
		event("u1", "single", 2*time.Hour, "view"),
	}

	out := Normalize(events)

	for _, e := range out {
		switch e.SessionID {
		case "long":
			assert.InDelta(t, 12.0, e.SessionDuration, 1e-9)
		case "single":
			assert.Zero(t, e.SessionDuration, "single-event sessions last 0 minutes")
		}
	}
}

func TestNormalize_SingleEventSessionsAlwaysZero(t *testing.T) {
	events := []models.Event{
		event("u1", "a", 0, "view"),
		event("u2", "b", time.Hour, "view"),
		event("u3", "c", 0, "purchase"),
	}

	for _, e := range Normalize(events) {
		assert.Zero(t, e.SessionDuration)
	}
}

func TestNormalize_TimeBetweenEvents(t *testing.T) {
	events := []models.Event{
		event("u1", "s1", 30*time.Second, "view"),
		event("u1", "s1", 0, "view"),
		event("u1", "s2", 2*time.Minute, "view"),
		event("u2", "s3", 5*time.Minute, "view"),
	}

	out := Normalize(events)

	require.Len(t, out, 4)
	assert.Zero(t, out[0].TimeBetweenEvents, "first event of a user")
	assert.InDelta(t, 30.0, out[1].TimeBetweenEvents, 1e-9)
	assert.InDelta(t, 90.0, out[2].TimeBetweenEvents, 1e-9)
	assert.Zero(t, out[3].TimeBetweenEvents, "first event of the next user")
}

func TestNormalize_PurchaseFlag(t *testing.T) {
	tests := []struct {
		action string
		want   bool
	}{
		{"purchase", true},
		{"Purchase", true},
		{"PURCHASE", true},
		{"purchased", false},
		{" purchase", false},
		{"add_to_cart", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			out := Normalize([]models.Event{event("u", "s", 0, tt.action)})
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Purchased)
		})
	}
}

func TestNormalize_EmptyUserID(t *testing.T) {
	events := []models.Event{
		event("", "s1", 0, "view"),
		event("", "s1", time.Minute, "view"),
	}

	out := Normalize(events)

	require.Len(t, out, 2)
	assert.Zero(t, out[1].TimeBetweenEvents)
	assert.InDelta(t, 1.0, out[1].SessionDuration, 1e-9)
}
