package models

import "time"

// JobSummary is the per-post slice of a run report exposed to callers.
type JobSummary struct {
	Title           string   `json:"title"`
	TopicText       string   `json:"topic"`
	State           JobState `json:"state"`
	QualityScore    float64  `json:"qualityScore"`
	ImagesInserted  int      `json:"imagesInserted"`
	RewriteAttempts int      `json:"rewriteAttempts"`
	Error           string   `json:"error,omitempty"`
}

// RunReport aggregates every job outcome of one scheduler run. A partial run
// is a valid report, not an error.
type RunReport struct {
	RunID               string       `json:"runId"`
	Mode                string       `json:"mode"` // "scheduled" or "manual"
	RequestedCount      int          `json:"totalRequested"`
	SuccessCount        int          `json:"successCount"`
	AverageQualityScore float64      `json:"averageQualityScore"`
	Jobs                []JobSummary `json:"results"`
	StartedAt           time.Time    `json:"startedAt"`
	FinishedAt          time.Time    `json:"finishedAt"`
}

// Summarize fills the aggregate counters from the job list.
func (r *RunReport) Summarize() {
	var total float64
	var scored int
	r.SuccessCount = 0
	for _, j := range r.Jobs {
		if j.State == JobStatePublished {
			r.SuccessCount++
		}
		if j.QualityScore > 0 {
			total += j.QualityScore
			scored++
		}
	}
	if scored > 0 {
		r.AverageQualityScore = total / float64(scored)
	}
}
