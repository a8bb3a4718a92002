package models

import "strings"

// Draft is one generated article attempt. A job produces one draft per rewrite
// attempt; only the last survives the loop.
type Draft struct {
	JobID     string   `json:"job_id"`
	Attempt   int      `json:"attempt"` // 1-based
	Title     string   `json:"title"`
	Outline   []string `json:"outline"`
	Body      string   `json:"body"` // markdown
	WordCount int      `json:"word_count"`
}

// CountWords computes and stores the body word count.
func (d *Draft) CountWords() {
	d.WordCount = len(strings.Fields(d.Body))
}

// Sections splits the body on markdown H2 headings. The leading segment before
// the first heading is included when non-empty.
func (d *Draft) Sections() []string {
	parts := strings.Split(d.Body, "\n## ")
	sections := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sections = append(sections, p)
		}
	}
	return sections
}

// GeneratedImage is one image attached to the final accepted draft.
type GeneratedImage struct {
	URL               string `json:"url"`
	AltText           string `json:"alt_text"`
	SourceAttribution string `json:"source_attribution"`
	PlacementIndex    int    `json:"placement_index"` // section index in the draft body
}
