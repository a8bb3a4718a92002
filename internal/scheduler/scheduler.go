package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AUTOPRESS/autopress/internal/config"
	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/topics"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"log/slog"
)

// ErrRunAlreadyActive is returned when a trigger arrives while a run is in
// flight. The caller gets it before any topic work or API spend happens.
var ErrRunAlreadyActive = errors.New("a publishing run is already active")

// Run trigger modes.
const (
	ModeScheduled = "scheduled"
	ModeManual    = "manual"
)

// TopicProposer proposes candidate topics for a run.
type TopicProposer interface {
	Propose(ctx context.Context, tracker *usage.Tracker, count int, categoryHints []string) ([]models.Topic, error)
}

// JobRunner processes one publish job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, tracker *usage.Tracker, job *models.PublishJob, profile models.StyleProfile)
}

// RunStore persists run outcomes. Both writes are best effort: a storage
// outage must not undo a run that already published.
type RunStore interface {
	SaveReport(ctx context.Context, report models.RunReport) error
	SaveUsage(ctx context.Context, record models.UsageRecord) error
}

// Metrics is the subset of the metrics collector the scheduler and the
// per-run usage tracker report to.
type Metrics interface {
	RunStarted(mode string)
	APICall(kind string)
	QuotaRejected(kind string)
}

// Scheduler owns the run lifecycle: the cadence loop, the single-run lock,
// topic selection, and the fan-out of jobs across a bounded worker pool.
type Scheduler struct {
	cfg      config.PipelineConfig
	quota    config.QuotaConfig
	proposer TopicProposer
	dedup    *topics.Deduplicator
	runner   JobRunner
	store    RunStore
	profile  models.StyleProfile
	metrics  Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	running bool

	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a scheduler.
func New(
	cfg config.PipelineConfig,
	quota config.QuotaConfig,
	proposer TopicProposer,
	dedup *topics.Deduplicator,
	runner JobRunner,
	store RunStore,
	profile models.StyleProfile,
	metrics Metrics,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		quota:    quota,
		proposer: proposer,
		dedup:    dedup,
		runner:   runner,
		store:    store,
		profile:  profile,
		metrics:  metrics,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the cadence loop until Stop is called or the context ends. Each
// tick triggers a scheduled run with the default post count; a tick that lands
// while a manual run is active is skipped, not queued.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.doneChan)

	s.logger.Info("scheduler started", "cadence", s.cfg.CadenceInterval)
	ticker := time.NewTicker(s.cfg.CadenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, context cancelled")
			return
		case <-s.stopChan:
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			report, err := s.TriggerRun(ctx, ModeScheduled, s.cfg.DefaultPostCount)
			if err != nil {
				if errors.Is(err, ErrRunAlreadyActive) {
					s.logger.Warn("scheduled run skipped, another run is active")
					continue
				}
				s.logger.Error("scheduled run failed", "error", err)
				continue
			}
			s.logger.Info("scheduled run finished",
				"run_id", report.RunID,
				"published", report.SuccessCount,
				"requested", report.RequestedCount)
		}
	}
}

// Stop signals the cadence loop to exit and waits for it.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.doneChan
}

// TriggerRun executes one publishing run and returns its report. Only one run
// may be active at a time; a concurrent trigger returns ErrRunAlreadyActive
// with no side effects.
func (s *Scheduler) TriggerRun(ctx context.Context, mode string, count int) (models.RunReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return models.RunReport{}, ErrRunAlreadyActive
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.dedup.ReleaseClaims()
	}()

	if count <= 0 {
		count = s.cfg.DefaultPostCount
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	runID := uuid.NewString()
	report := models.RunReport{
		RunID:          runID,
		Mode:           mode,
		RequestedCount: count,
		StartedAt:      time.Now(),
	}
	var usageMetrics usage.Metrics
	if s.metrics != nil {
		usageMetrics = s.metrics
		s.metrics.RunStarted(mode)
	}
	tracker := usage.NewTracker(runID, s.quota, usageMetrics)

	log := s.logger.With("run_id", runID, "mode", mode)
	log.Info("run started", "requested", count)

	selected, err := s.selectTopics(runCtx, tracker, count, log)
	if err != nil {
		report.FinishedAt = time.Now()
		return report, err
	}
	if len(selected) < count {
		log.Warn("could not fill requested count, running partial",
			"selected", len(selected), "requested", count)
	}

	jobs := s.processJobs(runCtx, tracker, runID, selected)

	report.Jobs = make([]models.JobSummary, 0, len(jobs))
	for _, job := range jobs {
		report.Jobs = append(report.Jobs, summarize(job))
	}
	report.FinishedAt = time.Now()
	report.Summarize()

	s.persist(report, tracker.Snapshot(), log)

	log.Info("run finished",
		"published", report.SuccessCount,
		"jobs", len(report.Jobs),
		"avg_score", report.AverageQualityScore)
	return report, nil
}

// selectTopics proposes and filters candidates until the run is filled or the
// proposal-round ceiling is hit. Candidates are checked against history and
// against each other within the batch.
func (s *Scheduler) selectTopics(ctx context.Context, tracker *usage.Tracker, count int, log *slog.Logger) ([]models.Topic, error) {
	selected := make([]models.Topic, 0, count)
	seen := make(map[string]bool)

	for round := 0; round < s.cfg.ProposalCeiling && len(selected) < count; round++ {
		proposed, err := s.proposer.Propose(ctx, tracker, count-len(selected), nil)
		if err != nil {
			if len(selected) > 0 {
				// A later proposal round failing does not waste the
				// candidates already vetted.
				log.Warn("proposal round failed, continuing with selected topics", "error", err)
				break
			}
			return nil, err
		}

		for _, topic := range proposed {
			if len(selected) == count {
				break
			}
			norm := topics.NormalizeTopicText(topic.Text)
			if norm == "" || seen[norm] {
				continue
			}
			if collidesWithSelected(s.dedup, topic, selected) {
				log.Debug("candidate rejected, similar to a selected topic", "topic", topic.Text)
				continue
			}
			dup, err := s.dedup.IsDuplicate(ctx, topic)
			if err != nil {
				if len(selected) > 0 {
					// Vetted candidates survive a mid-selection history outage.
					log.Warn("history check failed, continuing with selected topics", "error", err)
					return selected, nil
				}
				return nil, err
			}
			if dup {
				log.Debug("candidate rejected as duplicate", "topic", topic.Text)
				continue
			}
			seen[norm] = true
			selected = append(selected, topic)
		}
	}
	return selected, nil
}

// collidesWithSelected applies the duplicate comparator within the batch:
// exact normalized matches are caught by the seen map, so this covers the
// similar-but-reworded candidates the history check would flag.
func collidesWithSelected(dedup *topics.Deduplicator, candidate models.Topic, selected []models.Topic) bool {
	for _, picked := range selected {
		if dedup.Similar(candidate, picked) {
			return true
		}
	}
	return false
}

// processJobs fans the selected topics out across the worker pool. Report
// order follows selection order regardless of completion order.
func (s *Scheduler) processJobs(ctx context.Context, tracker *usage.Tracker, runID string, selected []models.Topic) []*models.PublishJob {
	jobs := make([]*models.PublishJob, len(selected))
	for i, topic := range selected {
		jobs[i] = &models.PublishJob{
			ID:    uuid.NewString(),
			RunID: runID,
			Topic: topic,
			State: models.JobStateQueued,
		}
	}

	parallel := int64(s.cfg.MaxParallelJobs)
	if parallel < 1 {
		parallel = 1
	}
	sem := semaphore.NewWeighted(parallel)

	var wg sync.WaitGroup
	for _, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			job.State = models.JobStateFailed
			job.Error = "run timed out before job started"
			continue
		}
		wg.Add(1)
		go func(job *models.PublishJob) {
			defer wg.Done()
			defer sem.Release(1)
			s.runner.Run(ctx, tracker, job, s.profile)
		}(job)
	}
	wg.Wait()

	return jobs
}

func (s *Scheduler) persist(report models.RunReport, record models.UsageRecord, log *slog.Logger) {
	if s.store == nil {
		return
	}
	// Persistence gets its own deadline; the run context may already be spent.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.SaveReport(ctx, report); err != nil {
		log.Error("failed to persist run report", "error", err)
	}
	if err := s.store.SaveUsage(ctx, record); err != nil {
		log.Error("failed to persist usage record", "error", err)
	}
}

func summarize(job *models.PublishJob) models.JobSummary {
	summary := models.JobSummary{
		TopicText:       job.Topic.Text,
		State:           job.State,
		ImagesInserted:  len(job.Images),
		RewriteAttempts: job.RewriteAttempts(),
		Error:           job.Error,
	}
	if job.FinalDraft != nil {
		summary.Title = job.FinalDraft.Title
	}
	if score := job.LastScore(); score != nil {
		summary.QualityScore = score.TotalScore
	}
	return summary
}
