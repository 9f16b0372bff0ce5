package pipeline

import "fmt"

type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
)

// Stage names used in reports and metrics.
const (
	StageMetrics      = "metrics"
	StageSegments     = "segments"
	StageSegmentation = "segmentation"
)

// StageReport says whether a stage produced its normal output or fell back
// to defaults, and why.
type StageReport struct {
	Stage   string  `json:"stage"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

func (r StageReport) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}

func okReport(stage string) StageReport {
	return StageReport{Stage: stage, Outcome: OutcomeOK}
}

func degradedReport(stage string, err error) StageReport {
	return StageReport{Stage: stage, Outcome: OutcomeDegraded, Reason: err.Error()}
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
