package pipeline

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"shopping-dashboard/internal/models"
)

const purchaseAction = "purchase"

// Normalize derives the per-row and per-session fields. The output has one
// row per input event, ordered by user and then timestamp.
//
// Session duration is max minus min timestamp of the session in minutes,
// computed once per session and copied onto each of its rows; a session
// with a single event lasts 0. Time between events is the gap in seconds to
// the previous event of the same user, 0 for the user's first event.
// Rows with an empty user or session id keep 0 for the respective field.
func Normalize(events []models.Event) []models.EnrichedEvent {
	out := make([]models.EnrichedEvent, len(events))
	for i, e := range events {
		out[i] = models.EnrichedEvent{
			Event:     e,
			Purchased: IsPurchase(e.Action),
		}
	}

	slices.SortStableFunc(out, func(a, b models.EnrichedEvent) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return a.Timestamp.Compare(b.Timestamp)
	})

	durations := sessionDurations(out)
	for i := range out {
		if out[i].SessionID != "" {
			out[i].SessionDuration = durations[out[i].SessionID]
		}

		if i > 0 && out[i].UserID != "" && out[i-1].UserID == out[i].UserID {
			out[i].TimeBetweenEvents = out[i].Timestamp.Sub(out[i-1].Timestamp).Seconds()
		}
	}

	return out
}

// IsPurchase reports whether an action label denotes a purchase.
func IsPurchase(action string) bool {
	return strings.EqualFold(action, purchaseAction)
}

type sessionBounds struct {
	first, last time.Time
	events      int
}

func sessionDurations(events []models.EnrichedEvent) map[string]float64 {
	bounds := make(map[string]*sessionBounds)
	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		b, ok := bounds[e.SessionID]
		if !ok {
			bounds[e.SessionID] = &sessionBounds{first: e.Timestamp, last: e.Timestamp, events: 1}
			continue
		}
		if e.Timestamp.Before(b.first) {
			b.first = e.Timestamp
		}
		if e.Timestamp.After(b.last) {
			b.last = e.Timestamp
		}
		b.events++
	}

	durations := make(map[string]float64, len(bounds))
	for id, b := range bounds {
		if b.events > 1 {
			durations[id] = b.last.Sub(b.first).Minutes()
		} else {
			durations[id] = 0
		}
	}
	return durations
}
