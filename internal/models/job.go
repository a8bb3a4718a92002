package models

import "time"

// JobState is the lifecycle state of one publish job.
type JobState string

const (
	JobStateQueued         JobState = "queued"
	JobStateResearching    JobState = "researching"
	JobStateDrafting       JobState = "drafting"
	JobStateScoring        JobState = "scoring"
	JobStateRewritePending JobState = "rewrite_pending"
	JobStateFinalizing     JobState = "finalizing"
	JobStatePublished      JobState = "published"
	JobStateRejected       JobState = "rejected"
	JobStateSkipped        JobState = "skipped"
	JobStateFailed         JobState = "failed"
)

// Terminal reports whether the state ends the job.
func (s JobState) Terminal() bool {
	switch s {
	case JobStatePublished, JobStateRejected, JobStateSkipped, JobStateFailed:
		return true
	}
	return false
}

// ConsumesTopic reports whether a history entry with this status blocks the
// topic inside the dedup window. Skipped and failed attempts are recorded for
// the audit trail but leave the topic eligible for a later run.
func (s JobState) ConsumesTopic() bool {
	return s == JobStatePublished || s == JobStateRejected
}

// PublishJob is the end-to-end processing record for one topic. Owned
// exclusively by the orchestrator for its lifetime.
type PublishJob struct {
	ID             string           `json:"id"`
	RunID          string           `json:"run_id"`
	Topic          Topic            `json:"topic"`
	State          JobState         `json:"state"`
	Attempts       int              `json:"attempts"` // drafts produced so far
	FinalDraft     *Draft           `json:"final_draft,omitempty"`
	Images         []GeneratedImage `json:"images"`
	QualityHistory []QualityScore   `json:"quality_history"`
	Error          string           `json:"error,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// RewriteAttempts returns the number of rewrites performed after the first draft.
func (j *PublishJob) RewriteAttempts() int {
	if j.Attempts <= 1 {
		return 0
	}
	return j.Attempts - 1
}

// LastScore returns the most recent quality score, or nil before scoring.
func (j *PublishJob) LastScore() *QualityScore {
	if len(j.QualityHistory) == 0 {
		return nil
	}
	return &j.QualityHistory[len(j.QualityHistory)-1]
}
