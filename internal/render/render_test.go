package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"shopping-dashboard/internal/models"
	"shopping-dashboard/internal/pipeline"
)

func summaryRows() []models.SegmentSummary {
	rows := make([]models.SegmentSummary, len(models.ClusterLabels))
	for i, label := range models.ClusterLabels {
		rows[i] = models.SegmentSummary{
			Segment:            label.Name,
			Description:        label.Description,
			Size:               i + 1,
			AvgPurchases:       float64(i) / 2,
			AvgSessionDuration: 12.5,
		}
	}
	return rows
}

func TestSegmentTable(t *testing.T) {
	out := SegmentTable(summaryRows())

	assert.Contains(t, out, "Segment")
	assert.Contains(t, out, "Avg. Session Duration")
	for _, label := range models.ClusterLabels {
		assert.Contains(t, out, label.Name)
	}
	assert.Contains(t, out, "12.50 min")
	assert.Contains(t, out, "1.50")
}

func TestFunnelTable(t *testing.T) {
	out := FunnelTable([]models.FunnelStage{
		{Label: "Page Views", Count: 200, PercentInitial: 100},
		{Label: "Purchases", Count: 13, PercentInitial: 6.5},
	})

	assert.Contains(t, out, "Page Views")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "6.5%")
}

func TestFunnelTable_Empty(t *testing.T) {
	assert.Contains(t, FunnelTable(nil), "no data")
}

func TestActivitySparkline(t *testing.T) {
	out := ActivitySparkline([]models.DailyActivity{
		{Date: "2024-01-01", PageViews: 4, Orders: 1},
		{Date: "2024-01-02", PageViews: 9, Orders: 2},
		{Date: "2024-01-03", PageViews: 2, Orders: 0},
	})

	assert.Contains(t, out, "2024-01-01 .. 2024-01-03")
	assert.Contains(t, out, "busiest 2024-01-02 (9 views)")
	assert.Contains(t, out, "orders 3")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), sparklineHeight)
}

func TestActivitySparkline_Empty(t *testing.T) {
	assert.Contains(t, ActivitySparkline(nil), "no data")
}

func TestOverview(t *testing.T) {
	out := Overview(models.Overview{TotalUsers: 10, TotalSessions: 25, AvgSessionDuration: 3.456, ConversionRate: 12.34})

	assert.Contains(t, out, "10")
	assert.Contains(t, out, "25")
	assert.Contains(t, out, "3.46 min")
	assert.Contains(t, out, "12.3%")
}

func TestStageNotes(t *testing.T) {
	assert.Empty(t, StageNotes([]pipeline.StageReport{{Stage: "metrics", Outcome: pipeline.OutcomeOK}}))

	out := StageNotes([]pipeline.StageReport{
		{Stage: "metrics", Outcome: pipeline.OutcomeOK},
		{Stage: "segmentation", Outcome: pipeline.OutcomeDegraded, Reason: "fewer points than clusters"},
	})
	assert.Contains(t, out, "segmentation stage degraded: fewer points than clusters")
	assert.NotContains(t, out, "metrics")
}

func TestReport_String(t *testing.T) {
	report := Report{
		Source:   "clicks.csv",
		Overview: models.Overview{TotalUsers: 4},
		Segments: pipeline.SegmentationResult{
			Summary: []models.SegmentSummary{{Segment: models.FallbackSegment, Description: models.FallbackDescription, Size: 4}},
			Report:  pipeline.StageReport{Stage: pipeline.StageSegmentation, Outcome: pipeline.OutcomeDegraded, Reason: "too few users"},
		},
		Daily:  []models.DailyActivity{{Date: "2024-01-01", PageViews: 3}},
		Funnel: []models.FunnelStage{{Label: "Page Views", Count: 3, PercentInitial: 100}},
	}

	out := report.String()

	for _, want := range []string{
		"Shopping Behavior Analysis",
		"Source: clicks.csv",
		"Summary Statistics",
		"Daily Activity",
		"Purchase Funnel",
		"Customer Segmentation Analysis",
		models.FallbackSegment,
		"segmentation stage degraded: too few users",
	} {
		assert.Contains(t, out, want)
	}
}
