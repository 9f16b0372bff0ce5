// Package sample generates a deterministic synthetic clickstream for demos
// and tests.
package sample

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"time"

	"shopping-dashboard/internal/models"
)

var eventTypes = []string{
	"page_view",
	"product_view",
	"add_to_cart",
	"remove_from_cart",
	"purchase",
	"search",
}

// Header lists the columns WriteCSV emits.
var Header = []string{"user_id", "event_type", "timestamp", "session_id"}

type Options struct {
	Users int
	Days  int
	Seed  uint64
	// End is the upper bound of generated timestamps; zero means now.
	End time.Time
}

func DefaultOptions() Options {
	return Options{Users: 100, Days: 30, Seed: 42}
}

// Info describes the generated columns for display next to the data.
const Info = `Sample Data Structure:
- user_id: Unique identifier for each user
- event_type: Type of user interaction (page_view, product_view, etc.)
- timestamp: When the event occurred
- session_id: Unique identifier for user sessions`

// Generate gives every user 5 to 49 events spread over 1 to 4 sessions,
// with actions and timestamps drawn uniformly. The result is ordered by
// user and timestamp.
func Generate(opts Options) []models.Event {
	end := opts.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = end.Truncate(time.Second)
	start := end.Add(-time.Duration(opts.Days) * 24 * time.Hour)
	span := int64(opts.Days) * 24 * 60 * 60

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	var events []models.Event
	for i := range opts.Users {
		userID := fmt.Sprintf("user_%d", i)
		numEvents := 5 + rng.IntN(45)
		numSessions := 1 + rng.IntN(4)

		for range numEvents {
			offset := time.Duration(rng.Int64N(max(span, 1))) * time.Second
			events = append(events, models.Event{
				UserID:    userID,
				Action:    eventTypes[rng.IntN(len(eventTypes))],
				Timestamp: start.Add(offset),
				SessionID: fmt.Sprintf("session_%s_%d", userID, rng.IntN(numSessions)),
			})
		}
	}

	slices.SortStableFunc(events, func(a, b models.Event) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return a.Timestamp.Compare(b.Timestamp)
	})
	if events == nil {
		events = []models.Event{}
	}
	return events
}

// WriteCSV writes events in the sample column layout with RFC 3339
// timestamps.
func WriteCSV(w io.Writer, events []models.Event) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range events {
		record := []string{e.UserID, e.Action, e.Timestamp.UTC().Format(time.RFC3339), e.SessionID}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
