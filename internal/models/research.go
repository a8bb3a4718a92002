package models

// Fact is a single researched claim with its supporting sources.
type Fact struct {
	Claim      string   `json:"claim"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"` // 0-1, lowered when uncorroborated
}

// Corroborated reports whether the claim carries more than one independent source.
func (f Fact) Corroborated() bool {
	return len(f.Sources) > 1
}

// ResearchBundle is the verified factual material for one topic. Built once
// per job and immutable after research completes.
type ResearchBundle struct {
	TopicID  string   `json:"topic_id"`
	Facts    []Fact   `json:"facts"`
	Keywords []string `json:"keywords"`

	// Unverified is set when no fact carries an independent second source.
	// Downstream generation must hedge language when this is true.
	Unverified bool `json:"unverified"`
}

// CorroboratedCount returns the number of facts backed by at least two sources.
func (b ResearchBundle) CorroboratedCount() int {
	n := 0
	for _, f := range b.Facts {
		if f.Corroborated() {
			n++
		}
	}
	return n
}
