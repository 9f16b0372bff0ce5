package pipeline

import (
	"fmt"
	"math"
	"slices"

	"shopping-dashboard/internal/models"
)

// AggregateResult is the metrics-joined, segment-labelled table plus the
// per-user metrics and how each sub-step went.
type AggregateResult struct {
	Events  []models.EnrichedEvent
	Metrics []models.UserMetrics

	MetricsReport  StageReport
	SegmentsReport StageReport
}

// Aggregate computes one metrics row per user, joins it onto every row of
// that user and assigns the rule-based segment.
//
// A metrics failure leaves the metrics table empty so every row gets the
// defaults; a segment failure labels every row Visitors. Neither stops the
// pipeline.
func Aggregate(events []models.EnrichedEvent) AggregateResult {
	out := slices.Clone(events)
	if out == nil {
		out = []models.EnrichedEvent{}
	}

	result := AggregateResult{
		Events:         out,
		Metrics:        []models.UserMetrics{},
		MetricsReport:  okReport(StageMetrics),
		SegmentsReport: okReport(StageSegments),
	}

	err := guard(func() error {
		metrics, err := ComputeUserMetrics(out)
		if err != nil {
			return err
		}
		result.Metrics = metrics
		return nil
	})
	if err != nil {
		result.Metrics = []models.UserMetrics{}
		result.MetricsReport = degradedReport(StageMetrics, err)
	}

	JoinMetrics(out, result.Metrics)

	var labels []string
	err = guard(func() error {
		var err error
		labels, err = AssignSegments(out)
		return err
	})
	if err != nil {
		result.SegmentsReport = degradedReport(StageSegments, err)
		labels = nil
	}

	for i := range out {
		if labels != nil {
			out[i].Segment = labels[i]
		} else {
			out[i].Segment = models.SegmentVisitors
		}
	}

	return result
}

type userAccumulator struct {
	sessions      map[string]struct{}
	events        int
	purchases     int
	durationSum   float64
	durationCount int
}

// ComputeUserMetrics groups rows by user id; rows with an empty user id
// form no group. Non-finite durations are skipped in the mean, negative
// durations are rejected.
func ComputeUserMetrics(events []models.EnrichedEvent) ([]models.UserMetrics, error) {
	users := make(map[string]*userAccumulator)
	var order []string

	for _, e := range events {
		if e.UserID == "" {
			continue
		}
		if e.SessionDuration < 0 {
			return nil, fmt.Errorf("negative session duration %.2f for user %q", e.SessionDuration, e.UserID)
		}

		acc, ok := users[e.UserID]
		if !ok {
			acc = &userAccumulator{sessions: make(map[string]struct{})}
			users[e.UserID] = acc
			order = append(order, e.UserID)
		}

		if e.SessionID != "" {
			acc.sessions[e.SessionID] = struct{}{}
		}
		acc.events++
		if e.Purchased {
			acc.purchases++
		}
		if !math.IsNaN(e.SessionDuration) && !math.IsInf(e.SessionDuration, 0) {
			acc.durationSum += e.SessionDuration
			acc.durationCount++
		}
	}

	slices.Sort(order)

	metrics := make([]models.UserMetrics, 0, len(order))
	for _, userID := range order {
		acc := users[userID]
		m := models.DefaultUserMetrics(userID)
		if len(acc.sessions) > 0 {
			m.TotalSessions = len(acc.sessions)
		}
		m.TotalEvents = acc.events
		m.TotalPurchases = acc.purchases
		if acc.durationCount > 0 {
			m.AvgSessionDuration = acc.durationSum / float64(acc.durationCount)
		}
		metrics = append(metrics, m)
	}

	return metrics, nil
}

// JoinMetrics copies each user's metrics onto the user's rows in place.
// Rows without a metrics row receive models.DefaultUserMetrics.
func JoinMetrics(events []models.EnrichedEvent, metrics []models.UserMetrics) {
	byUser := make(map[string]models.UserMetrics, len(metrics))
	for _, m := range metrics {
		byUser[m.UserID] = m
	}

	for i := range events {
		m, ok := byUser[events[i].UserID]
		if !ok {
			m = models.DefaultUserMetrics(events[i].UserID)
		}
		events[i].TotalSessions = m.TotalSessions
		events[i].TotalEvents = m.TotalEvents
		events[i].TotalPurchases = m.TotalPurchases
		events[i].AvgSessionDuration = m.AvgSessionDuration
	}
}

// AssignSegments evaluates the segment rules on every joined row.
func AssignSegments(events []models.EnrichedEvent) ([]string, error) {
	labels := make([]string, len(events))
	for i, e := range events {
		if e.TotalEvents < 0 || e.TotalPurchases < 0 {
			return nil, fmt.Errorf("negative metrics for user %q", e.UserID)
		}
		if math.IsNaN(e.AvgSessionDuration) || math.IsInf(e.AvgSessionDuration, 0) {
			return nil, fmt.Errorf("non-finite average session duration for user %q", e.UserID)
		}
		labels[i] = SegmentFor(e.TotalPurchases, e.AvgSessionDuration, e.TotalEvents)
	}
	return labels, nil
}

// SegmentFor applies the rules in order; the first match wins.
func SegmentFor(purchases int, avgSessionDuration float64, events int) string {
	switch {
	case purchases > 3 && avgSessionDuration > 10:
		return models.SegmentPowerShoppers
	case purchases > 0:
		return models.SegmentCustomers
	case events > 5:
		return models.SegmentBrowsers
	default:
		return models.SegmentVisitors
	}
}
