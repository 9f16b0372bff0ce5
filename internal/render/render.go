// Package render formats analysis results for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"shopping-dashboard/internal/models"
	"shopping-dashboard/internal/pipeline"
)

const (
	sparklineWidth  = 40
	sparklineHeight = 4
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("51")).
				Bold(true).
				Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// Report is everything the CLI prints for one dataset.
type Report struct {
	Source   string
	Overview models.Overview
	Segments pipeline.SegmentationResult
	Daily    []models.DailyActivity
	Funnel   []models.FunnelStage
	Stages   []pipeline.StageReport
}

func (r Report) String() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" Shopping Behavior Analysis "))
	b.WriteString("\n")
	if r.Source != "" {
		b.WriteString(dimStyle.Render("Source: " + r.Source))
		b.WriteString("\n")
	}

	b.WriteString(Section("Summary Statistics"))
	b.WriteString(Overview(r.Overview))

	b.WriteString(Section("Daily Activity"))
	b.WriteString(ActivitySparkline(r.Daily))

	b.WriteString(Section("Purchase Funnel"))
	b.WriteString(FunnelTable(r.Funnel))

	b.WriteString(Section("Customer Segmentation Analysis"))
	b.WriteString(SegmentTable(r.Segments.Summary))

	stages := append(append([]pipeline.StageReport{}, r.Stages...), r.Segments.Report)
	if notes := StageNotes(stages); notes != "" {
		b.WriteString("\n")
		b.WriteString(notes)
	}
	return b.String()
}

func Section(title string) string {
	return sectionStyle.Render("┃ "+title) + "\n"
}

func Overview(o models.Overview) string {
	lines := []string{
		labelStyle.Render("  Total Users:           ") + valueStyle.Render(strconv.Itoa(o.TotalUsers)),
		labelStyle.Render("  Total Sessions:        ") + valueStyle.Render(strconv.Itoa(o.TotalSessions)),
		labelStyle.Render("  Avg. Session Duration: ") + valueStyle.Render(fmt.Sprintf("%.2f min", o.AvgSessionDuration)),
		labelStyle.Render("  Conversion Rate:       ") + valueStyle.Render(fmt.Sprintf("%.1f%%", o.ConversionRate)),
	}
	return strings.Join(lines, "\n") + "\n"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return cellStyle
		})
}

// SegmentTable lists one row per segment summary.
func SegmentTable(summary []models.SegmentSummary) string {
	t := newTable("Segment", "Description", "Size", "Avg. Purchases", "Avg. Session Duration")
	for _, s := range summary {
		t.Row(
			s.Segment,
			s.Description,
			strconv.Itoa(s.Size),
			fmt.Sprintf("%.2f", s.AvgPurchases),
			fmt.Sprintf("%.2f min", s.AvgSessionDuration),
		)
	}
	return t.Render() + "\n"
}

func FunnelTable(stages []models.FunnelStage) string {
	if len(stages) == 0 {
		return dimStyle.Render("  no data") + "\n"
	}

	t := newTable("Stage", "Count", "% of Initial")
	for _, s := range stages {
		t.Row(s.Label, strconv.Itoa(s.Count), fmt.Sprintf("%.1f%%", s.PercentInitial))
	}
	return t.Render() + "\n"
}

// ActivitySparkline draws page views per day, oldest first, with the date
// range and the busiest day underneath.
func ActivitySparkline(days []models.DailyActivity) string {
	if len(days) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data")) + "\n"
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	busiest := days[0]
	orders := 0
	for _, d := range days {
		spark.Push(float64(d.PageViews))
		if d.PageViews > busiest.PageViews {
			busiest = d
		}
		orders += d.Orders
	}
	spark.Draw()

	caption := fmt.Sprintf("%s .. %s  busiest %s (%d views)  orders %d",
		days[0].Date, days[len(days)-1].Date, busiest.Date, busiest.PageViews, orders)

	return sparklineStyle.Render(spark.View()) + "\n" + dimStyle.Render(caption) + "\n"
}

// StageNotes lists the stages that fell back to defaults, or "" when none did.
func StageNotes(reports []pipeline.StageReport) string {
	var lines []string
	for _, r := range reports {
		if r.Degraded() {
			lines = append(lines, warningStyle.Render(fmt.Sprintf("! %s stage degraded: %s", r.Stage, r.Reason)))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
