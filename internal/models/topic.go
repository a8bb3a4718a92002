package models

import (
	"time"
)

// Topic is a candidate subject for one generated post. Immutable once created.
type Topic struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Category  Category  `json:"category"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"created_at"`
}

// Category classifies a topic for generation hints and reporting.
type Category string

const (
	CategoryTechnology Category = "technology"
	CategoryLifestyle  Category = "lifestyle"
	CategoryFinance    Category = "finance"
	CategoryHealth     Category = "health"
	CategoryTravel     Category = "travel"
	CategoryGeneral    Category = "general"
)

// HistoryEntry is one append-only record of a topic outcome. The deduplicator
// reads these within its trailing window; the orchestrator appends one per
// finished job so retries never silently repeat a topic.
type HistoryEntry struct {
	ID          string    `json:"id"`
	TopicID     string    `json:"topic_id"`
	TopicText   string    `json:"topic_text"`
	Keywords    []string  `json:"keywords"`
	Status      JobState  `json:"status"`
	PublishedAt time.Time `json:"published_at"`
}
