package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"shopping-dashboard/internal/charts"
	"shopping-dashboard/internal/ingest"
	"shopping-dashboard/internal/models"
	"shopping-dashboard/internal/observability"
	"shopping-dashboard/internal/pipeline"
	"shopping-dashboard/internal/sample"
)

const (
	SourceNone   = "none"
	SourceCSV    = "csv"
	SourceSample = "sample"
	SourceMemory = "memory"
)

// ProcessedData is the output of one pipeline run: every input row with its
// derived fields, metrics and rule segment, plus how each stage went.
type ProcessedData struct {
	Events       []models.EnrichedEvent `json:"-"`
	Format       ingest.Format          `json:"format"`
	Reports      []pipeline.StageReport `json:"reports"`
	Source       string                 `json:"source"`
	LastModified time.Time              `json:"last_modified"`
	RecordCount  int64                  `json:"record_count"`
}

type Analytics struct {
	mu               sync.RWMutex
	processed        *ProcessedData
	segmentOpts      pipeline.SegmentOptions
	recordsProcessed atomic.Int64
	logger           *slog.Logger
	metrics          *observability.Metrics
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) {
		a.logger = logger
	}
}

func WithSegmentOptions(opts pipeline.SegmentOptions) Option {
	return func(a *Analytics) {
		a.segmentOpts = opts
	}
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Analytics) {
		a.metrics = metrics
	}
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		processed:   &ProcessedData{Events: []models.EnrichedEvent{}, Source: SourceNone},
		segmentOpts: pipeline.DefaultSegmentOptions(),
		logger:      slog.Default(),
		metrics:     observability.NewMetrics(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadFromCSV reads, normalizes and aggregates the file at path. A fatal
// input error leaves the previously loaded data in place.
func (a *Analytics) LoadFromCSV(ctx context.Context, path string) error {
	ctx, span := observability.StartSpan(ctx, "load_csv")
	span.SetTag("path", path)
	defer span.Log(ctx, a.logger)

	start := time.Now()
	a.logger.Info("processing CSV file", "filename", path)

	dataset, err := ingest.ReadFile(ctx, path)
	if err != nil {
		span.SetError(err)
		a.metrics.RecordRun("fatal")
		return fmt.Errorf("load %s: %w", path, err)
	}

	a.process(ctx, dataset.Events, dataset.Format, SourceCSV)

	duration := time.Since(start)
	a.metrics.ObserveDuration("load", duration.Seconds())
	a.logger.Info("csv processing complete",
		"records", len(dataset.Events),
		"format", dataset.Format,
		"duration", duration)

	return nil
}

// LoadSample replaces the data with a generated clickstream.
func (a *Analytics) LoadSample(ctx context.Context, opts sample.Options) {
	ctx, span := observability.StartSpan(ctx, "load_sample")
	defer span.Log(ctx, a.logger)

	start := time.Now()
	events := sample.Generate(opts)
	a.process(ctx, events, ingest.FormatEventLog, SourceSample)
	a.metrics.ObserveDuration("load", time.Since(start).Seconds())

	a.logger.Info("sample data generated",
		"users", opts.Users,
		"days", opts.Days,
		"records", len(events))
}

// SetEvents runs the pipeline over events that are already in memory.
func (a *Analytics) SetEvents(events []models.Event, format ingest.Format) {
	a.process(context.Background(), events, format, SourceMemory)
}

func (a *Analytics) process(ctx context.Context, events []models.Event, format ingest.Format, source string) {
	_, span := observability.StartSpan(ctx, "pipeline")
	defer span.Log(ctx, a.logger)

	normalized := pipeline.Normalize(events)
	a.metrics.EventsProcessed.Add(float64(len(normalized)))

	result := pipeline.Aggregate(normalized)
	reports := []pipeline.StageReport{result.MetricsReport, result.SegmentsReport}
	a.recordReports(span, reports)

	a.mu.Lock()
	a.processed = &ProcessedData{
		Events:       result.Events,
		Format:       format,
		Reports:      reports,
		Source:       source,
		LastModified: time.Now(),
		RecordCount:  int64(len(result.Events)),
	}
	a.mu.Unlock()

	a.recordsProcessed.Store(int64(len(result.Events)))
	a.metrics.RecordRun("ok")
}

func (a *Analytics) recordReports(span *observability.Span, reports []pipeline.StageReport) {
	for _, r := range reports {
		a.metrics.RecordStage(r.Stage, string(r.Outcome))
		if r.Degraded() {
			span.SetDegraded(r.Reason)
			a.logger.Warn("stage degraded, using defaults",
				"stage", r.Stage,
				"reason", r.Reason)
		}
	}
}

// Filter selects rows by calendar date (inclusive, UTC) and rule segment.
// Zero values select everything.
type Filter struct {
	From     time.Time
	To       time.Time
	Segments []string
}

func (f Filter) Match(e models.EnrichedEvent) bool {
	day := truncateDay(e.Timestamp)
	if !f.From.IsZero() && day.Before(truncateDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(truncateDay(f.To)) {
		return false
	}
	if len(f.Segments) > 0 && !slices.Contains(f.Segments, e.Segment) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (a *Analytics) filtered(f Filter) []models.EnrichedEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.EnrichedEvent, 0, len(a.processed.Events))
	for _, e := range a.processed.Events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Format is the input format detected for the loaded data.
func (a *Analytics) Format() ingest.Format {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.processed.Format
}

// Overview summarises the whole dataset: distinct users and sessions, mean
// row session duration in minutes and the share of purchase rows in percent.
func (a *Analytics) Overview() models.Overview {
	events := a.filtered(Filter{})
	if len(events) == 0 {
		return models.Overview{}
	}

	users := make(map[string]struct{})
	sessions := make(map[string]struct{})
	purchases := 0
	durationSum := 0.0
	for _, e := range events {
		users[e.UserID] = struct{}{}
		sessions[e.SessionID] = struct{}{}
		if e.Purchased {
			purchases++
		}
		durationSum += e.SessionDuration
	}

	n := float64(len(events))
	return models.Overview{
		TotalUsers:         len(users),
		TotalSessions:      len(sessions),
		AvgSessionDuration: durationSum / n,
		ConversionRate:     float64(purchases) / n * 100,
	}
}

func (a *Analytics) DailyActivity(f Filter) []models.DailyActivity {
	return charts.DailyActivity(a.filtered(f))
}

func (a *Analytics) UserPoints(f Filter) []models.UserPoint {
	return charts.UserPoints(a.filtered(f))
}

func (a *Analytics) SessionDurations(f Filter) []models.HistogramBin {
	return charts.SessionDurationHistogram(a.filtered(f), charts.DefaultHistogramBins)
}

func (a *Analytics) Funnel(f Filter) []models.FunnelStage {
	return charts.Funnel(a.filtered(f), a.Format())
}

// Segments clusters the users of the filtered rows. Segmentation always
// returns a summary; a degraded run is counted and logged.
func (a *Analytics) Segments(f Filter) pipeline.SegmentationResult {
	start := time.Now()
	result := pipeline.Segment(a.filtered(f), a.segmentOpts)
	a.metrics.ObserveDuration("segmentation", time.Since(start).Seconds())

	a.metrics.RecordStage(result.Report.Stage, string(result.Report.Outcome))
	if result.Report.Degraded() {
		a.logger.Warn("stage degraded, using defaults",
			"stage", result.Report.Stage,
			"reason", result.Report.Reason)
	}
	return result
}

// Events returns up to limit filtered rows; limit <= 0 returns all of them.
func (a *Analytics) Events(f Filter, limit int) []models.EnrichedEvent {
	events := a.filtered(f)
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}

// SegmentNames lists the rule segments present in the data, sorted.
func (a *Analytics) SegmentNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, 4)
	for _, e := range a.processed.Events {
		if !slices.Contains(names, e.Segment) {
			names = append(names, e.Segment)
		}
	}
	slices.Sort(names)
	return names
}

// Reports returns the stage outcomes of the last pipeline run.
func (a *Analytics) Reports() []pipeline.StageReport {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.processed.Reports)
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	users := make(map[string]struct{})
	for _, e := range a.processed.Events {
		users[e.UserID] = struct{}{}
	}

	return map[string]any{
		"record_count":      a.processed.RecordCount,
		"records_processed": a.recordsProcessed.Load(),
		"last_processed":    a.processed.LastModified,
		"source":            a.processed.Source,
		"format":            a.processed.Format.String(),
		"users":             len(users),
		"reports":           a.processed.Reports,
	}
}
