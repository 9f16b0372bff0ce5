// Package charts builds the aggregated tables the dashboard plots: daily
// activity, the user scatter, the session duration histogram and the
// purchase funnel. Nothing here draws.
package charts

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"shopping-dashboard/internal/ingest"
	"shopping-dashboard/internal/models"
)

const (
	DefaultHistogramBins = 30
	dateLayout           = "2006-01-02"
)

// DailyActivity counts events and purchases per UTC calendar date.
func DailyActivity(events []models.EnrichedEvent) []models.DailyActivity {
	byDate := make(map[string]*models.DailyActivity)
	for _, e := range events {
		date := e.Timestamp.UTC().Format(dateLayout)
		day, ok := byDate[date]
		if !ok {
			day = &models.DailyActivity{Date: date}
			byDate[date] = day
		}
		day.PageViews++
		if e.Purchased {
			day.Orders++
		}
	}

	result := make([]models.DailyActivity, 0, len(byDate))
	for _, day := range byDate {
		result = append(result, *day)
	}
	slices.SortFunc(result, func(a, b models.DailyActivity) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return result
}

// UserPoints takes each user's joined totals and segment from the user's
// first row.
func UserPoints(events []models.EnrichedEvent) []models.UserPoint {
	seen := make(map[string]bool)
	result := make([]models.UserPoint, 0)
	for _, e := range events {
		if seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true
		result = append(result, models.UserPoint{
			UserID:         e.UserID,
			TotalEvents:    e.TotalEvents,
			TotalPurchases: e.TotalPurchases,
			Segment:        e.Segment,
		})
	}
	slices.SortFunc(result, func(a, b models.UserPoint) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return result
}

// SessionDurationHistogram spreads row session durations over equal-width
// bins between the smallest and largest value. The last bin includes its
// upper edge. When all durations are equal there is a single bin.
func SessionDurationHistogram(events []models.EnrichedEvent, bins int) []models.HistogramBin {
	values := make([]float64, 0, len(events))
	for _, e := range events {
		if !math.IsNaN(e.SessionDuration) && !math.IsInf(e.SessionDuration, 0) {
			values = append(values, e.SessionDuration)
		}
	}
	if len(values) == 0 || bins < 1 {
		return []models.HistogramBin{}
	}

	lo, hi := slices.Min(values), slices.Max(values)
	if lo == hi {
		bins = 1
	}
	width := (hi - lo) / float64(bins)

	result := make([]models.HistogramBin, bins)
	for i := range result {
		result[i] = models.HistogramBin{
			Lower:     lo + float64(i)*width,
			Upper:     lo + float64(i+1)*width,
			BySegment: make(map[string]int),
		}
	}
	result[bins-1].Upper = hi

	for _, e := range events {
		v := e.SessionDuration
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		idx := 0
		if width > 0 {
			idx = min(int((v-lo)/width), bins-1)
		}
		result[idx].Count++
		result[idx].BySegment[e.Segment]++
	}
	return result
}

// Funnel counts rows through the stages the input format supports.
func Funnel(events []models.EnrichedEvent, format ingest.Format) []models.FunnelStage {
	var labels []string
	var counts []int

	switch format {
	case ingest.FormatClickstream:
		labels = []string{"Page Views", "Product Views", "Cart Views", "Purchases"}
		counts = make([]int, 4)
		for _, e := range events {
			counts[0]++
			switch e.PageType {
			case "Product":
				counts[1]++
			case "Cart":
				counts[2]++
			}
			if e.Purchased {
				counts[3]++
			}
		}
	case ingest.FormatEShop:
		labels = []string{"Category Views", "Product Views", "Orders"}
		counts = make([]int, 3)
		for _, e := range events {
			if e.MainCategory != "" {
				counts[0]++
			}
			if e.ClothingModel != "" {
				counts[1]++
			}
			if e.Order != "" {
				counts[2]++
			}
		}
	default:
		labels = []string{"Page Views", "Product Views", "Cart Adds", "Purchases"}
		counts = make([]int, 4)
		for _, e := range events {
			counts[0]++
			switch strings.ToLower(e.Action) {
			case "product_view":
				counts[1]++
			case "add_to_cart":
				counts[2]++
			}
			if e.Purchased {
				counts[3]++
			}
		}
	}

	stages := make([]models.FunnelStage, len(labels))
	for i, label := range labels {
		stages[i] = models.FunnelStage{Label: label, Count: counts[i]}
		if counts[0] > 0 {
			stages[i].PercentInitial = math.Round(float64(counts[i])/float64(counts[0])*1000) / 10
		}
	}
	return stages
}
