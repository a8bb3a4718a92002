package usage

import (
	"errors"
	"sync"
	"testing"

	"github.com/AUTOPRESS/autopress/internal/config"
	"github.com/AUTOPRESS/autopress/internal/models"
)

func testQuota() config.QuotaConfig {
	return config.QuotaConfig{
		LLMCalls:     10,
		SearchCalls:  5,
		ImageCalls:   3,
		PublishCalls: 2,
	}
}

func TestReserveAndRecord(t *testing.T) {
	tracker := NewTracker("run-1", testQuota(), nil)

	if err := tracker.Reserve(models.CallKindLLM, 3); err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if got := tracker.RemainingQuota(models.CallKindLLM); got != 7 {
		t.Errorf("remaining after reserve = %d, want 7", got)
	}

	tracker.Record(models.CallKindLLM, 3)
	if got := tracker.RemainingQuota(models.CallKindLLM); got != 7 {
		t.Errorf("remaining after record = %d, want 7", got)
	}

	snapshot := tracker.Snapshot()
	if snapshot.APICallsByKind[models.CallKindLLM] != 3 {
		t.Errorf("snapshot llm calls = %d, want 3", snapshot.APICallsByKind[models.CallKindLLM])
	}
}

func TestReserveRejectsOverQuota(t *testing.T) {
	tracker := NewTracker("run-1", testQuota(), nil)

	if err := tracker.Reserve(models.CallKindPublish, 2); err != nil {
		t.Fatalf("Reserve within quota returned error: %v", err)
	}
	err := tracker.Reserve(models.CallKindPublish, 1)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestReleaseReturnsReservation(t *testing.T) {
	tracker := NewTracker("run-1", testQuota(), nil)

	if err := tracker.Reserve(models.CallKindSearch, 5); err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if err := tracker.Reserve(models.CallKindSearch, 1); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	tracker.Release(models.CallKindSearch, 5)
	if err := tracker.Reserve(models.CallKindSearch, 5); err != nil {
		t.Fatalf("Reserve after release returned error: %v", err)
	}
}

// Concurrent reservations must never jointly pass a check that together
// exceeds the limit.
func TestConcurrentReservesNeverExceedLimit(t *testing.T) {
	quota := config.QuotaConfig{LLMCalls: 50, SearchCalls: 1, ImageCalls: 1, PublishCalls: 1}
	tracker := NewTracker("run-1", quota, nil)

	const workers = 20
	const perWorker = 5

	var wg sync.WaitGroup
	granted := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count := 0
			for j := 0; j < perWorker; j++ {
				if err := tracker.Reserve(models.CallKindLLM, 1); err == nil {
					tracker.Record(models.CallKindLLM, 1)
					count++
				}
			}
			granted <- count
		}()
	}
	wg.Wait()
	close(granted)

	total := 0
	for c := range granted {
		total += c
	}
	if total != 50 {
		t.Errorf("granted %d calls, want exactly the limit of 50", total)
	}
	if got := tracker.Snapshot().APICallsByKind[models.CallKindLLM]; got != 50 {
		t.Errorf("recorded %d calls, want 50", got)
	}
}

func TestSnapshotCostEstimate(t *testing.T) {
	tracker := NewTracker("run-1", testQuota(), nil)

	tracker.Reserve(models.CallKindLLM, 2)
	tracker.Record(models.CallKindLLM, 2)
	tracker.Reserve(models.CallKindSearch, 1)
	tracker.Record(models.CallKindSearch, 1)

	snapshot := tracker.Snapshot()
	want := 2*costPerCall[models.CallKindLLM] + costPerCall[models.CallKindSearch]
	if snapshot.CostEstimate != want {
		t.Errorf("cost estimate = %v, want %v", snapshot.CostEstimate, want)
	}
	if snapshot.RunID != "run-1" {
		t.Errorf("snapshot run id = %q, want run-1", snapshot.RunID)
	}
}

type fakeMetrics struct {
	mu        sync.Mutex
	calls     int
	rejected  int
	lastKind  string
	lastRejct string
}

func (f *fakeMetrics) APICall(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastKind = kind
}

func (f *fakeMetrics) QuotaRejected(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected++
	f.lastRejct = kind
}

func TestTrackerReportsMetrics(t *testing.T) {
	metrics := &fakeMetrics{}
	tracker := NewTracker("run-1", config.QuotaConfig{ImageCalls: 1}, metrics)

	tracker.Reserve(models.CallKindImage, 1)
	tracker.Record(models.CallKindImage, 1)
	if metrics.calls != 1 || metrics.lastKind != "image" {
		t.Errorf("api call metric = (%d, %q), want (1, image)", metrics.calls, metrics.lastKind)
	}

	if err := tracker.Reserve(models.CallKindImage, 1); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if metrics.rejected != 1 || metrics.lastRejct != "image" {
		t.Errorf("rejection metric = (%d, %q), want (1, image)", metrics.rejected, metrics.lastRejct)
	}
}
