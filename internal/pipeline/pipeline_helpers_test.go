package pipeline

import (
	"fmt"
	"time"

	"shopping-dashboard/internal/models"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func event(user, session string, offset time.Duration, action string) models.Event {
	return models.Event{
		UserID:    user,
		SessionID: session,
		Timestamp: baseTime.Add(offset),
		Action:    action,
	}
}

// userEvents builds sessions*perSession events for one user. The first
// purchases events are purchases, events within a session are gap apart.
func userEvents(user string, sessions, perSession, purchases int, gap time.Duration) []models.Event {
	var out []models.Event
	n := 0
	for s := range sessions {
		session := fmt.Sprintf("%s_s%d", user, s)
		start := time.Duration(s) * 24 * time.Hour
		for i := range perSession {
			action := "page_view"
			if n < purchases {
				action = "purchase"
			}
			out = append(out, event(user, session, start+time.Duration(i)*gap, action))
			n++
		}
	}
	return out
}

// segmentableEvents yields four well separated behaviour groups of five
// users each.
func segmentableEvents() []models.Event {
	var out []models.Event
	for i := range 5 {
		out = append(out, userEvents(fmt.Sprintf("heavy_%d", i), 4, 10, 8, 3*time.Minute)...)
		out = append(out, userEvents(fmt.Sprintf("regular_%d", i), 2, 6, 2, time.Minute)...)
		out = append(out, userEvents(fmt.Sprintf("browser_%d", i), 1, 8, 0, 30*time.Second)...)
		out = append(out, userEvents(fmt.Sprintf("idle_%d", i), 1, 1, 0, 0)...)
	}
	return out
}

func enrich(events []models.Event) []models.EnrichedEvent {
	return Aggregate(Normalize(events)).Events
}
