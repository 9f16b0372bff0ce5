package pipeline

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"shopping-dashboard/internal/models"
)

type LabelStrategy int

const (
	// LabelByIndex gives cluster i the i-th descriptive label regardless of
	// what the cluster contains.
	LabelByIndex LabelStrategy = iota
	// LabelByRank orders clusters by mean purchases times mean session
	// duration, highest first, before handing out labels.
	LabelByRank
)

type SegmentOptions struct {
	Seed          uint64
	NInit         int
	MaxIterations int
	Tolerance     float64
	Labels        LabelStrategy
}

func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		Seed:          42,
		NInit:         10,
		MaxIterations: 300,
		Tolerance:     1e-4,
		Labels:        LabelByIndex,
	}
}

// UserFeatures is one user's row in the clustering input. TimeBetweenEvents
// is aggregated for reporting but is not a clustering feature.
type UserFeatures struct {
	UserID            string  `json:"user_id"`
	Events            float64 `json:"events"`
	Purchases         float64 `json:"purchases"`
	SessionDuration   float64 `json:"session_duration"`
	Sessions          float64 `json:"sessions"`
	TimeBetweenEvents float64 `json:"time_between_events"`
}

func (u UserFeatures) vector() []float64 {
	return []float64{u.Events, u.Purchases, u.SessionDuration, u.Sessions}
}

type SegmentationResult struct {
	Summary     []models.SegmentSummary `json:"summary"`
	Stats       []models.ClusterStats   `json:"stats,omitempty"`
	Assignments map[string]int          `json:"assignments,omitempty"`
	Report      StageReport             `json:"report"`
}

// Segment clusters users into len(models.ClusterLabels) groups and
// summarises each group. The summary has exactly one row per label on
// success; on any failure it holds the single "All Users" row instead.
func Segment(events []models.EnrichedEvent, opts SegmentOptions) SegmentationResult {
	var result SegmentationResult
	err := guard(func() error {
		var err error
		result, err = segment(events, opts)
		return err
	})
	if err != nil {
		return SegmentationResult{
			Summary: []models.SegmentSummary{FallbackSummary(events)},
			Report:  degradedReport(StageSegmentation, err),
		}
	}
	return result
}

func segment(events []models.EnrichedEvent, opts SegmentOptions) (SegmentationResult, error) {
	k := len(models.ClusterLabels)

	users := BuildUserFeatures(events)
	if len(users) == 0 {
		return SegmentationResult{}, fmt.Errorf("no users to segment")
	}

	Impute(users)

	points := make([][]float64, len(users))
	for i, u := range users {
		points[i] = u.vector()
	}
	Standardize(points)

	km := KMeans{
		K:             k,
		NInit:         opts.NInit,
		MaxIterations: opts.MaxIterations,
		Tolerance:     opts.Tolerance,
		Seed:          opts.Seed,
	}
	clustering, err := km.Fit(points)
	if err != nil {
		return SegmentationResult{}, fmt.Errorf("cluster users: %w", err)
	}

	stats := ClusterStatistics(users, clustering.Labels, k)
	summary, err := Summarize(stats, opts.Labels)
	if err != nil {
		return SegmentationResult{}, err
	}

	assignments := make(map[string]int, len(users))
	for i, u := range users {
		assignments[u.UserID] = clustering.Labels[i]
	}

	return SegmentationResult{
		Summary:     summary,
		Stats:       stats,
		Assignments: assignments,
		Report:      okReport(StageSegmentation),
	}, nil
}

// BuildUserFeatures re-aggregates rows to one feature row per user, ordered
// by user id. Means skip NaN values and stay NaN when nothing is left.
func BuildUserFeatures(events []models.EnrichedEvent) []UserFeatures {
	type acc struct {
		features    UserFeatures
		durations   []float64
		gaps        []float64
		sessionsSet bool
	}

	byUser := make(map[string]*acc)
	for _, e := range events {
		if e.UserID == "" {
			continue
		}
		a, ok := byUser[e.UserID]
		if !ok {
			a = &acc{features: UserFeatures{UserID: e.UserID}}
			byUser[e.UserID] = a
		}
		a.features.Events++
		if e.Purchased {
			a.features.Purchases++
		}
		if !a.sessionsSet {
			a.features.Sessions = float64(e.TotalSessions)
			a.sessionsSet = true
		}
		a.durations = append(a.durations, e.SessionDuration)
		a.gaps = append(a.gaps, e.TimeBetweenEvents)
	}

	users := make([]UserFeatures, 0, len(byUser))
	for _, a := range byUser {
		a.features.SessionDuration = nanMean(a.durations)
		a.features.TimeBetweenEvents = nanMean(a.gaps)
		users = append(users, a.features)
	}

	slices.SortFunc(users, func(a, b UserFeatures) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return users
}

// Impute fills missing feature values in place: event count and session
// duration with their column mean, purchases with 0, sessions with 1.
func Impute(users []UserFeatures) {
	events := make([]float64, len(users))
	durations := make([]float64, len(users))
	for i, u := range users {
		events[i] = u.Events
		durations[i] = u.SessionDuration
	}
	eventsMean := nanMean(events)
	durationMean := nanMean(durations)

	for i := range users {
		if math.IsNaN(users[i].Events) {
			users[i].Events = orZero(eventsMean)
		}
		if math.IsNaN(users[i].Purchases) {
			users[i].Purchases = 0
		}
		if math.IsNaN(users[i].SessionDuration) {
			users[i].SessionDuration = orZero(durationMean)
		}
		if math.IsNaN(users[i].Sessions) {
			users[i].Sessions = 1
		}
	}
}

// Standardize rescales every column in place to zero mean and unit
// population variance. Constant columns are only centred.
func Standardize(points [][]float64) {
	if len(points) == 0 {
		return
	}

	column := make([]float64, len(points))
	for j := range points[0] {
		for i, p := range points {
			column[i] = p[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for _, p := range points {
			p[j] = (p[j] - mean) / std
		}
	}
}

// ClusterStatistics returns the rounded means of each non-empty cluster,
// ordered by cluster id.
func ClusterStatistics(users []UserFeatures, labels []int, k int) []models.ClusterStats {
	stats := make([]models.ClusterStats, k)
	for c := range stats {
		stats[c].Cluster = c
	}

	for i, u := range users {
		s := &stats[labels[i]]
		s.Users++
		s.AvgEvents += u.Events
		s.AvgPurchases += u.Purchases
		s.AvgSessionDuration += u.SessionDuration
		s.AvgSessions += u.Sessions
	}

	out := make([]models.ClusterStats, 0, k)
	for _, s := range stats {
		if s.Users == 0 {
			continue
		}
		n := float64(s.Users)
		s.AvgEvents = round2(s.AvgEvents / n)
		s.AvgPurchases = round2(s.AvgPurchases / n)
		s.AvgSessionDuration = round2(s.AvgSessionDuration / n)
		s.AvgSessions = round2(s.AvgSessions / n)
		out = append(out, s)
	}
	return out
}

// Summarize maps cluster statistics onto the descriptive labels. It needs
// exactly one statistics row per label.
func Summarize(stats []models.ClusterStats, strategy LabelStrategy) ([]models.SegmentSummary, error) {
	if len(stats) != len(models.ClusterLabels) {
		return nil, fmt.Errorf("got %d non-empty clusters, want %d", len(stats), len(models.ClusterLabels))
	}

	ordered := slices.Clone(stats)
	if strategy == LabelByRank {
		slices.SortStableFunc(ordered, func(a, b models.ClusterStats) int {
			return cmp.Compare(b.AvgPurchases*b.AvgSessionDuration, a.AvgPurchases*a.AvgSessionDuration)
		})
	}

	summary := make([]models.SegmentSummary, len(ordered))
	for i, s := range ordered {
		label := models.ClusterLabels[i]
		summary[i] = models.SegmentSummary{
			Segment:            label.Name,
			Description:        label.Description,
			Size:               s.Users,
			AvgPurchases:       orZero(s.AvgPurchases),
			AvgSessionDuration: orZero(s.AvgSessionDuration),
		}
	}
	return summary, nil
}

// FallbackSummary describes the whole input as one segment: distinct
// users, share of purchase rows and mean row session duration. Unlike the
// cluster statistics its means are not rounded.
func FallbackSummary(events []models.EnrichedEvent) models.SegmentSummary {
	users := make(map[string]struct{})
	purchases := 0
	durations := make([]float64, 0, len(events))
	for _, e := range events {
		users[e.UserID] = struct{}{}
		if e.Purchased {
			purchases++
		}
		durations = append(durations, e.SessionDuration)
	}

	summary := models.SegmentSummary{
		Segment:     models.FallbackSegment,
		Description: models.FallbackDescription,
		Size:        len(users),
	}
	if len(events) > 0 {
		summary.AvgPurchases = float64(purchases) / float64(len(events))
		summary.AvgSessionDuration = orZero(nanMean(durations))
	}
	return summary
}

func nanMean(values []float64) float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	return stat.Mean(finite, nil)
}

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
