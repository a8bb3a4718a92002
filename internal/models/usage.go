package models

import "time"

// CallKind identifies a class of external API call for quota accounting.
type CallKind string

const (
	CallKindLLM     CallKind = "llm"
	CallKindSearch  CallKind = "search"
	CallKindImage   CallKind = "image"
	CallKindPublish CallKind = "publish"
)

// UsageRecord is the per-run accumulator of external API consumption,
// persisted when the run finishes.
type UsageRecord struct {
	RunID          string           `json:"run_id"`
	APICallsByKind map[CallKind]int `json:"api_calls_by_kind"`
	CostEstimate   float64          `json:"cost_estimate"` // USD
	RecordedAt     time.Time        `json:"recorded_at"`
}
