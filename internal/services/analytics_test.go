package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	apperrors "shopping-dashboard/internal/errors"
	"shopping-dashboard/internal/ingest"
	"shopping-dashboard/internal/models"
	"shopping-dashboard/internal/pipeline"
	"shopping-dashboard/internal/sample"
)

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "test*.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, time.UTC)
}

// testEvents has one user per rule segment:
// u1 Power Shoppers, u2 Customers, u3 Browsers, u4 Visitors.
func testEvents() []models.Event {
	var events []models.Event
	for i := range 6 {
		events = append(events, models.Event{UserID: "u1", SessionID: "s1", Timestamp: at(1, 10, i*4), Action: "purchase"})
	}
	events = append(events,
		models.Event{UserID: "u2", SessionID: "s2", Timestamp: at(2, 10, 0), Action: "page_view"},
		models.Event{UserID: "u2", SessionID: "s2", Timestamp: at(2, 10, 5), Action: "purchase"},
	)
	for i := range 7 {
		action := "page_view"
		if i%2 == 1 {
			action = "product_view"
		}
		events = append(events, models.Event{UserID: "u3", SessionID: "s3", Timestamp: at(3, 9, i), Action: action})
	}
	events = append(events, models.Event{UserID: "u4", SessionID: "s4", Timestamp: at(3, 12, 0), Action: "add_to_cart"})
	return events
}

func loadedAnalytics() *Analytics {
	a := NewAnalytics(WithLogger(quietLogger()))
	a.SetEvents(testEvents(), ingest.FormatEventLog)
	return a
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.processed == nil {
		t.Error("processed should be initialized")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
	if a.metrics == nil {
		t.Error("metrics should be initialized")
	}
	if a.segmentOpts.Seed != 42 {
		t.Errorf("default seed = %d, want 42", a.segmentOpts.Seed)
	}
}

func TestAnalytics_SetEvents(t *testing.T) {
	a := loadedAnalytics()

	if a.processed.RecordCount != 16 {
		t.Errorf("Expected RecordCount = 16, got %d", a.processed.RecordCount)
	}
	if a.processed.Source != SourceMemory {
		t.Errorf("Expected source %q, got %q", SourceMemory, a.processed.Source)
	}

	for _, r := range a.Reports() {
		if r.Degraded() {
			t.Errorf("stage %s degraded: %s", r.Stage, r.Reason)
		}
	}

	want := map[string]string{
		"u1": models.SegmentPowerShoppers,
		"u2": models.SegmentCustomers,
		"u3": models.SegmentBrowsers,
		"u4": models.SegmentVisitors,
	}
	for _, p := range a.UserPoints(Filter{}) {
		if p.Segment != want[p.UserID] {
			t.Errorf("user %s segment = %q, want %q", p.UserID, p.Segment, want[p.UserID])
		}
	}
}

func TestAnalytics_Overview(t *testing.T) {
	a := loadedAnalytics()
	got := a.Overview()

	if got.TotalUsers != 4 {
		t.Errorf("TotalUsers = %d, want 4", got.TotalUsers)
	}
	if got.TotalSessions != 4 {
		t.Errorf("TotalSessions = %d, want 4", got.TotalSessions)
	}
	// (6*20 + 2*5 + 7*6 + 0) / 16 rows
	if got.AvgSessionDuration != 10.75 {
		t.Errorf("AvgSessionDuration = %v, want 10.75", got.AvgSessionDuration)
	}
	if got.ConversionRate != 43.75 {
		t.Errorf("ConversionRate = %v, want 43.75", got.ConversionRate)
	}
}

func TestAnalytics_Filter(t *testing.T) {
	a := loadedAnalytics()

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"zero filter", Filter{}, 16},
		{"from date inclusive", Filter{From: at(3, 23, 0)}, 8},
		{"to date inclusive", Filter{To: at(2, 0, 0)}, 8},
		{"single day", Filter{From: at(2, 0, 0), To: at(2, 0, 0)}, 2},
		{"segment", Filter{Segments: []string{models.SegmentBrowsers}}, 7},
		{"segments and dates", Filter{From: at(3, 0, 0), Segments: []string{models.SegmentBrowsers, models.SegmentVisitors}}, 8},
		{"no match", Filter{Segments: []string{"Unknown"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(a.Events(tt.filter, 0)); got != tt.want {
				t.Errorf("Events() returned %d rows, want %d", got, tt.want)
			}
		})
	}
}

func TestAnalytics_EventsLimit(t *testing.T) {
	a := loadedAnalytics()

	events := a.Events(Filter{}, 5)
	if len(events) != 5 {
		t.Fatalf("Events(limit 5) returned %d rows", len(events))
	}
	if events[0].UserID != "u1" {
		t.Errorf("first row user = %q, want u1", events[0].UserID)
	}
}

func TestAnalytics_DailyActivity(t *testing.T) {
	a := loadedAnalytics()
	got := a.DailyActivity(Filter{})

	want := []models.DailyActivity{
		{Date: "2024-01-01", PageViews: 6, Orders: 6},
		{Date: "2024-01-02", PageViews: 2, Orders: 1},
		{Date: "2024-01-03", PageViews: 8, Orders: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("DailyActivity() returned %d days, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAnalytics_Funnel(t *testing.T) {
	a := loadedAnalytics()
	got := a.Funnel(Filter{})

	wantCounts := []int{16, 3, 1, 7}
	if len(got) != len(wantCounts) {
		t.Fatalf("Funnel() returned %d stages, want %d", len(got), len(wantCounts))
	}
	for i, want := range wantCounts {
		if got[i].Count != want {
			t.Errorf("stage %s count = %d, want %d", got[i].Label, got[i].Count, want)
		}
	}
	if got[0].PercentInitial != 100 {
		t.Errorf("initial stage percent = %v, want 100", got[0].PercentInitial)
	}
}

func TestAnalytics_SessionDurations(t *testing.T) {
	a := loadedAnalytics()
	bins := a.SessionDurations(Filter{})

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 16 {
		t.Errorf("histogram counts %d rows, want 16", total)
	}
}

func TestAnalytics_Segments(t *testing.T) {
	a := loadedAnalytics()

	result := a.Segments(Filter{})
	if result.Report.Degraded() {
		t.Fatalf("segmentation degraded: %s", result.Report.Reason)
	}
	if len(result.Summary) != len(models.ClusterLabels) {
		t.Fatalf("summary has %d rows, want %d", len(result.Summary), len(models.ClusterLabels))
	}
	size := 0
	for i, s := range result.Summary {
		if s.Segment != models.ClusterLabels[i].Name {
			t.Errorf("row %d segment = %q, want %q", i, s.Segment, models.ClusterLabels[i].Name)
		}
		size += s.Size
	}
	if size != 4 {
		t.Errorf("summary sizes add up to %d users, want 4", size)
	}
}

func TestAnalytics_Segments_Fallback(t *testing.T) {
	a := loadedAnalytics()

	result := a.Segments(Filter{Segments: []string{models.SegmentPowerShoppers}})
	if !result.Report.Degraded() {
		t.Fatal("segmenting a single user should degrade")
	}
	if len(result.Summary) != 1 || result.Summary[0].Segment != models.FallbackSegment {
		t.Fatalf("summary = %+v, want single %q row", result.Summary, models.FallbackSegment)
	}
	if result.Summary[0].Size != 1 {
		t.Errorf("fallback size = %d, want 1", result.Summary[0].Size)
	}
}

func TestAnalytics_Segments_RankedLabels(t *testing.T) {
	opts := pipeline.DefaultSegmentOptions()
	opts.Labels = pipeline.LabelByRank

	a := NewAnalytics(WithLogger(quietLogger()), WithSegmentOptions(opts))
	a.SetEvents(testEvents(), ingest.FormatEventLog)

	result := a.Segments(Filter{})
	if len(result.Summary) != 4 {
		t.Fatalf("summary has %d rows, want 4", len(result.Summary))
	}
	// u1 buys 6 times over 20 minutes and ranks first.
	first := result.Summary[0]
	if first.AvgPurchases != 6 || first.AvgSessionDuration != 20 {
		t.Errorf("first ranked row = %+v, want the u1 cluster", first)
	}
}

func TestAnalytics_SegmentNames(t *testing.T) {
	a := loadedAnalytics()
	got := a.SegmentNames()

	want := []string{models.SegmentBrowsers, models.SegmentCustomers, models.SegmentPowerShoppers, models.SegmentVisitors}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("SegmentNames() = %v, want %v", got, want)
	}
}

func TestAnalytics_LoadFromCSV_ValidData(t *testing.T) {
	validCSV := `User_ID,Session_ID,Timestamp,Page_Type,Action
U001,S001,2024-01-15 10:00:00,Home,View
U001,S001,2024-01-15 10:12:00,Product,View
U001,S001,2024-01-15 10:15:00,Cart,Purchase
U002,S002,2024-01-16 09:00:00,Home,View`

	f := createTempCSV(t, validCSV)

	a := NewAnalytics(WithLogger(quietLogger()))
	if err := a.LoadFromCSV(context.Background(), f); err != nil {
		t.Fatalf("LoadFromCSV() with valid data should not error, got: %v", err)
	}

	stats := a.Stats()
	if stats["record_count"] != int64(4) {
		t.Errorf("record_count = %v, want 4", stats["record_count"])
	}
	if stats["format"] != "clickstream" {
		t.Errorf("format = %v, want clickstream", stats["format"])
	}
	if stats["source"] != SourceCSV {
		t.Errorf("source = %v, want %s", stats["source"], SourceCSV)
	}

	funnel := a.Funnel(Filter{})
	if funnel[1].Label != "Product Views" || funnel[1].Count != 1 || funnel[2].Count != 1 {
		t.Errorf("clickstream funnel = %+v", funnel)
	}
}

func TestAnalytics_LoadFromCSV_InvalidData(t *testing.T) {
	tests := []struct {
		name      string
		csv       string
		wantErr   bool
		wantFatal bool
	}{
		{
			name:    "empty file",
			csv:     "",
			wantErr: false,
		},
		{
			name:    "header only",
			csv:     "User_ID,Session_ID,Timestamp,Action",
			wantErr: false,
		},
		{
			name:      "missing columns",
			csv:       "user,session,time\nu1,s1,2024-01-01",
			wantErr:   true,
			wantFatal: true,
		},
		{
			name:      "invalid timestamp",
			csv:       "User_ID,Session_ID,Timestamp,Action\nu1,s1,invalid-date,View",
			wantErr:   true,
			wantFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTempCSV(t, tt.csv)

			a := NewAnalytics(WithLogger(quietLogger()))
			err := a.LoadFromCSV(context.Background(), f)

			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFromCSV() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := apperrors.IsFatalInput(err); got != tt.wantFatal {
				t.Errorf("IsFatalInput() = %v, want %v", got, tt.wantFatal)
			}
		})
	}
}

func TestAnalytics_LoadFromCSV_KeepsPreviousData(t *testing.T) {
	a := loadedAnalytics()

	f := createTempCSV(t, "User_ID,Timestamp\nu1,2024-01-01")
	if err := a.LoadFromCSV(context.Background(), f); err == nil {
		t.Fatal("expected an error for missing columns")
	}

	if got := len(a.Events(Filter{}, 0)); got != 16 {
		t.Errorf("after failed load %d rows remain, want 16", got)
	}
}

func TestAnalytics_LoadSample(t *testing.T) {
	a := NewAnalytics(WithLogger(quietLogger()))
	a.LoadSample(context.Background(), sample.Options{
		Users: 12,
		Days:  7,
		Seed:  42,
		End:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	stats := a.Stats()
	if stats["users"] != 12 {
		t.Errorf("users = %v, want 12", stats["users"])
	}
	if stats["source"] != SourceSample {
		t.Errorf("source = %v, want %s", stats["source"], SourceSample)
	}

	result := a.Segments(Filter{})
	if len(result.Summary) == 0 {
		t.Error("Segments() should always return a summary")
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := loadedAnalytics()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			// These should not panic or return inconsistent data
			_ = a.Overview()
			_ = a.DailyActivity(Filter{})
			_ = a.UserPoints(Filter{})
			_ = a.Funnel(Filter{})
			_ = a.SegmentNames()
		}()
	}

	a.SetEvents(testEvents(), ingest.FormatEventLog)

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestAnalytics_EmptyData(t *testing.T) {
	a := NewAnalytics(WithLogger(quietLogger()))

	if got := a.Overview(); got != (models.Overview{}) {
		t.Errorf("Overview() = %+v, want zero value", got)
	}
	if got := a.DailyActivity(Filter{}); len(got) != 0 {
		t.Errorf("DailyActivity() should return empty slice, got length %d", len(got))
	}
	if got := a.UserPoints(Filter{}); len(got) != 0 {
		t.Errorf("UserPoints() should return empty slice, got length %d", len(got))
	}
	if got := a.SessionDurations(Filter{}); len(got) != 0 {
		t.Errorf("SessionDurations() should return empty slice, got length %d", len(got))
	}

	result := a.Segments(Filter{})
	if len(result.Summary) != 1 || result.Summary[0].Size != 0 {
		t.Errorf("Segments() on empty data = %+v, want one empty fallback row", result.Summary)
	}
}

func BenchmarkAnalytics_Segments(b *testing.B) {
	a := NewAnalytics(WithLogger(quietLogger()))
	a.LoadSample(context.Background(), sample.DefaultOptions())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Segments(Filter{})
	}
}
