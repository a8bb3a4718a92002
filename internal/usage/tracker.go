package usage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AUTOPRESS/autopress/internal/config"
	"github.com/AUTOPRESS/autopress/internal/models"
)

// ErrQuotaExceeded is returned when a reservation would push a call kind past
// its per-run ceiling. Callers report it as a normal outcome, not a crash.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Metrics is the subset of the metrics collector the tracker reports to.
type Metrics interface {
	APICall(kind string)
	QuotaRejected(kind string)
}

// Tracker accounts external API consumption for one run. It is the only
// mutable state shared across concurrently processed jobs besides the run
// lock, so every check-and-increment happens under the mutex:
// callers Reserve before issuing a call and Release if the call never lands.
type Tracker struct {
	mu       sync.Mutex
	runID    string
	limits   map[models.CallKind]int
	used     map[models.CallKind]int
	reserved map[models.CallKind]int
	cost     float64
	metrics  Metrics
}

// Per-call cost estimates in USD, used for the run's CostEstimate field.
var costPerCall = map[models.CallKind]float64{
	models.CallKindLLM:     0.02,
	models.CallKindSearch:  0.005,
	models.CallKindImage:   0.001,
	models.CallKindPublish: 0,
}

// NewTracker builds a tracker for one run with limits from configuration.
func NewTracker(runID string, cfg config.QuotaConfig, metrics Metrics) *Tracker {
	return &Tracker{
		runID: runID,
		limits: map[models.CallKind]int{
			models.CallKindLLM:     cfg.LLMCalls,
			models.CallKindSearch:  cfg.SearchCalls,
			models.CallKindImage:   cfg.ImageCalls,
			models.CallKindPublish: cfg.PublishCalls,
		},
		used:     make(map[models.CallKind]int),
		reserved: make(map[models.CallKind]int),
		metrics:  metrics,
	}
}

// WouldExceed reports whether reserving n more calls of kind would pass the limit.
func (t *Tracker) WouldExceed(kind models.CallKind, n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wouldExceedLocked(kind, n)
}

func (t *Tracker) wouldExceedLocked(kind models.CallKind, n int) bool {
	limit, ok := t.limits[kind]
	if !ok {
		return false
	}
	return t.used[kind]+t.reserved[kind]+n > limit
}

// Reserve atomically claims n calls of kind before they are issued. Two
// concurrent jobs can never both pass a check that together exceeds the limit.
func (t *Tracker) Reserve(kind models.CallKind, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.wouldExceedLocked(kind, n) {
		if t.metrics != nil {
			t.metrics.QuotaRejected(string(kind))
		}
		return fmt.Errorf("%w: %s (limit %d, used %d)", ErrQuotaExceeded, kind, t.limits[kind], t.used[kind])
	}
	t.reserved[kind] += n
	return nil
}

// Release returns n reserved calls of kind after a failed or skipped call.
func (t *Tracker) Release(kind models.CallKind, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reserved[kind] -= n
	if t.reserved[kind] < 0 {
		t.reserved[kind] = 0
	}
}

// Record converts n reserved calls of kind into committed usage.
func (t *Tracker) Record(kind models.CallKind, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reserved[kind] -= n
	if t.reserved[kind] < 0 {
		t.reserved[kind] = 0
	}
	t.used[kind] += n
	t.cost += costPerCall[kind] * float64(n)

	if t.metrics != nil {
		for i := 0; i < n; i++ {
			t.metrics.APICall(string(kind))
		}
	}
}

// RemainingQuota returns how many calls of kind may still be issued.
func (t *Tracker) RemainingQuota(kind models.CallKind) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	limit, ok := t.limits[kind]
	if !ok {
		return 0
	}
	remaining := limit - t.used[kind] - t.reserved[kind]
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot produces the persistable usage record for the run.
func (t *Tracker) Snapshot() models.UsageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	calls := make(map[models.CallKind]int, len(t.used))
	for k, v := range t.used {
		calls[k] = v
	}
	return models.UsageRecord{
		RunID:          t.runID,
		APICallsByKind: calls,
		CostEstimate:   t.cost,
		RecordedAt:     time.Now(),
	}
}
