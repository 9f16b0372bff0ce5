package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"shopping-dashboard/internal/models"
	"shopping-dashboard/internal/services"
)

var segmentTableTemplate = template.Must(template.New("segmentTable").Parse(`
<div id="segments-content">
{{if .Degraded}}<p class="notice">{{.Reason}}</p>{{end}}
<table class="modern-table">
<thead><tr><th>Segment</th><th>Description</th><th>Size</th><th>Avg. Purchases</th><th>Avg. Session Duration</th></tr></thead>
<tbody>
{{range .Summary}}<tr>
<td><span class="category-badge">{{.Segment}}</span></td>
<td>{{.Description}}</td>
<td>{{.Size}}</td>
<td>{{printf "%.2f" .AvgPurchases}}</td>
<td><strong>{{printf "%.2f" .AvgSessionDuration}} min</strong></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var overviewTemplate = template.Must(template.New("overview").Parse(`
<div id="overview-content" class="metrics">
<div class="metric"><span>Total Users</span><strong>{{.TotalUsers}}</strong></div>
<div class="metric"><span>Total Sessions</span><strong>{{.TotalSessions}}</strong></div>
<div class="metric"><span>Avg. Session Duration</span><strong>{{printf "%.2f" .AvgSessionDuration}} min</strong></div>
<div class="metric"><span>Conversion Rate</span><strong>{{printf "%.1f" .ConversionRate}}%</strong></div>
</div>`))

var errorTemplate = template.Must(template.New("error").Parse(
	`<div id="error-banner" class="error">{{.}}</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type segmentTableData struct {
	Summary  []models.SegmentSummary
	Degraded bool
	Reason   string
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := tmpl.Execute(&buf, data)
	return buf.String(), err
}

func (h *SSEHandlers) renderSegmentTable(f services.Filter) (string, error) {
	result := h.analytics.Segments(f)
	data := segmentTableData{
		Summary:  result.Summary,
		Degraded: result.Report.Degraded(),
	}
	if data.Degraded {
		data.Reason = models.FallbackDescription
	}
	return render(segmentTableTemplate, data)
}

// filter parses the query and reports a bad query as an error banner.
func (h *SSEHandlers) filter(sse *datastar.ServerSentEventGenerator, r *http.Request) (services.Filter, bool) {
	f, err := parseFilter(r)
	if err == nil {
		return f, true
	}

	html, renderErr := render(errorTemplate, err.Error())
	if renderErr != nil {
		h.logger.Error("render error banner", "error", renderErr)
		return services.Filter{}, false
	}
	sse.PatchElements(html)
	return services.Filter{}, false
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) bool {
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return false
	}
	sse.PatchSignals(jsonData)
	return true
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	f, ok := h.filter(sse, r)
	if !ok {
		flush(w)
		return
	}

	html, err := h.renderSegmentTable(f)
	if err != nil {
		h.logger.Error("render segment table", "error", err)
		return
	}
	sse.PatchElements(html)

	flush(w)
}

func (h *SSEHandlers) HandleDailyActivity(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	f, ok := h.filter(sse, r)
	if !ok {
		flush(w)
		return
	}

	if h.patchSignals(sse, map[string]any{"dailyActivity": h.analytics.DailyActivity(f)}) {
		sse.PatchElements(`<div id="daily-activity-content">Daily activity loaded</div>`)
	}

	flush(w)
}

func (h *SSEHandlers) HandleUserClusters(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	f, ok := h.filter(sse, r)
	if !ok {
		flush(w)
		return
	}

	if h.patchSignals(sse, map[string]any{"userClusters": h.analytics.UserPoints(f)}) {
		sse.PatchElements(`<div id="user-clusters-content">User clusters loaded</div>`)
	}

	flush(w)
}

func (h *SSEHandlers) HandleSessionDurations(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	f, ok := h.filter(sse, r)
	if !ok {
		flush(w)
		return
	}

	if h.patchSignals(sse, map[string]any{"sessionDurations": h.analytics.SessionDurations(f)}) {
		sse.PatchElements(`<div id="session-durations-content">Session durations loaded</div>`)
	}

	flush(w)
}

func (h *SSEHandlers) HandleFunnel(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	f, ok := h.filter(sse, r)
	if !ok {
		flush(w)
		return
	}

	if h.patchSignals(sse, map[string]any{"funnel": h.analytics.Funnel(f)}) {
		sse.PatchElements(`<div id="funnel-content">Purchase funnel loaded</div>`)
	}

	flush(w)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	f, ok := h.filter(sse, r)
	if !ok {
		flush(w)
		return
	}

	overview, err := render(overviewTemplate, h.analytics.Overview())
	if err != nil {
		h.logger.Error("render overview", "error", err)
		return
	}
	sse.PatchElements(overview)

	table, err := h.renderSegmentTable(f)
	if err != nil {
		h.logger.Error("render segment table", "error", err)
		return
	}
	sse.PatchElements(table)

	// Send all chart tables in one call
	h.patchSignals(sse, map[string]any{
		"dailyActivity":    h.analytics.DailyActivity(f),
		"userClusters":     h.analytics.UserPoints(f),
		"sessionDurations": h.analytics.SessionDurations(f),
		"funnel":           h.analytics.Funnel(f),
		"segmentNames":     h.analytics.SegmentNames(),
	})

	flush(w)
}
