package models

// Criterion names one independently scored quality dimension.
type Criterion string

const (
	CriterionFactualGrounding Criterion = "factual_grounding"
	CriterionStructure        Criterion = "structure"
	CriterionStyleAdherence   Criterion = "style_adherence"
	CriterionSEO              Criterion = "seo"
	CriterionReadability      Criterion = "readability"
)

// Verdict is the quality-gate decision for one draft.
type Verdict string

const (
	VerdictAccept  Verdict = "accept"
	VerdictRewrite Verdict = "rewrite"
	VerdictReject  Verdict = "reject"
)

// QualityScore grades one draft attempt. Immutable once computed.
type QualityScore struct {
	DraftAttempt int                   `json:"draft_attempt"`
	TotalScore   float64               `json:"total_score"` // 0-100 weighted sum
	Subscores    map[Criterion]float64 `json:"subscores"`
	Verdict      Verdict               `json:"verdict"`
}
