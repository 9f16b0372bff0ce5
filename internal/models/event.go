package models

import "time"

// Event is one input clickstream row after column aliasing. Optional
// funnel columns are empty when the input does not carry them.
type Event struct {
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"event_type"`
	PageType      string    `json:"page_type,omitempty"`
	MainCategory  string    `json:"main_category,omitempty"`
	ClothingModel string    `json:"clothing_model,omitempty"`
	Order         string    `json:"order,omitempty"`
}

// EnrichedEvent is an Event with its derived per-row and per-session fields
// and the per-user metrics joined onto it.
type EnrichedEvent struct {
	Event

	Purchased         bool    `json:"purchased"`
	SessionDuration   float64 `json:"session_duration"`
	TimeBetweenEvents float64 `json:"time_between_events"`

	TotalSessions      int     `json:"total_sessions"`
	TotalEvents        int     `json:"total_events"`
	TotalPurchases     int     `json:"total_purchases"`
	AvgSessionDuration float64 `json:"avg_session_duration"`

	Segment string `json:"segment"`
}

// UserMetrics is the per-user summary joined back onto every row of that user.
type UserMetrics struct {
	UserID             string  `json:"user_id"`
	TotalSessions      int     `json:"total_sessions"`
	TotalEvents        int     `json:"total_events"`
	TotalPurchases     int     `json:"total_purchases"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
}

// DefaultUserMetrics is used for rows that have no metrics row after the
// join. One implicit session keeps downstream ratios defined.
func DefaultUserMetrics(userID string) UserMetrics {
	return UserMetrics{
		UserID:        userID,
		TotalSessions: 1,
	}
}

type Overview struct {
	TotalUsers         int     `json:"total_users"`
	TotalSessions      int     `json:"total_sessions"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
	ConversionRate     float64 `json:"conversion_rate"`
}
