package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/publisher"
	"github.com/AUTOPRESS/autopress/internal/topics"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"log/slog"
)

// Researcher gathers factual material for a topic.
type Researcher interface {
	Research(ctx context.Context, tracker *usage.Tracker, topic models.Topic) (models.ResearchBundle, error)
}

// Drafter produces one article attempt.
type Drafter interface {
	Draft(ctx context.Context, tracker *usage.Tracker, jobID string, topic models.Topic, bundle models.ResearchBundle, profile models.StyleProfile, attempt int, prev *models.QualityScore) (models.Draft, error)
}

// Scorer grades a draft attempt.
type Scorer interface {
	Score(draft models.Draft, bundle models.ResearchBundle, profile models.StyleProfile) models.QualityScore
}

// ImageAttacher selects images for an accepted draft. Best effort only.
type ImageAttacher interface {
	AttachImages(ctx context.Context, tracker *usage.Tracker, draft models.Draft, bundle models.ResearchBundle, count int) []models.GeneratedImage
}

// Publisher writes the final article to the blog platform.
type Publisher interface {
	Publish(ctx context.Context, tracker *usage.Tracker, draft models.Draft, category models.Category, images []models.GeneratedImage) error
}

// Metrics is the subset of the metrics collector the runner reports to.
type Metrics interface {
	JobFinished(state string)
}

// Runner drives one publish job through its lifecycle. A job is owned by
// exactly one goroutine from queued to a terminal state; only the usage
// tracker and the deduplicator's claim table are shared with siblings.
type Runner struct {
	researcher Researcher
	drafter    Drafter
	scorer     Scorer
	images     ImageAttacher
	publisher  Publisher
	dedup      *topics.Deduplicator
	history    topics.HistoryRepository
	metrics    Metrics
	logger     *slog.Logger

	maxAttempts   int
	imagesPerPost int
}

// NewRunner wires a job runner from its stage services.
func NewRunner(
	researcher Researcher,
	drafter Drafter,
	scorer Scorer,
	images ImageAttacher,
	pub Publisher,
	dedup *topics.Deduplicator,
	history topics.HistoryRepository,
	metrics Metrics,
	logger *slog.Logger,
	maxAttempts, imagesPerPost int,
) *Runner {
	return &Runner{
		researcher:    researcher,
		drafter:       drafter,
		scorer:        scorer,
		images:        images,
		publisher:     pub,
		dedup:         dedup,
		history:       history,
		metrics:       metrics,
		logger:        logger,
		maxAttempts:   maxAttempts,
		imagesPerPost: imagesPerPost,
	}
}

// Run processes the job to a terminal state. It never returns an error: every
// failure mode is captured on the job record so one bad topic cannot take the
// run down with it.
func (r *Runner) Run(ctx context.Context, tracker *usage.Tracker, job *models.PublishJob, profile models.StyleProfile) {
	job.StartedAt = time.Now()
	defer func() {
		job.FinishedAt = time.Now()
		if r.metrics != nil {
			r.metrics.JobFinished(string(job.State))
		}
	}()

	log := r.logger.With("job_id", job.ID, "topic", job.Topic.Text)

	bundle := r.research(ctx, tracker, job, log)
	if job.State.Terminal() {
		return
	}

	draft, ok := r.draftLoop(ctx, tracker, job, bundle, profile, log)
	if !ok {
		return
	}

	r.finalize(ctx, tracker, job, draft, bundle, log)
}

// research runs the fact-gathering stage. An unreachable or exhausted research
// source degrades to an unverified bundle instead of failing the job; the
// scorer's factual-grounding cap applies the penalty downstream.
func (r *Runner) research(ctx context.Context, tracker *usage.Tracker, job *models.PublishJob, log *slog.Logger) models.ResearchBundle {
	job.State = models.JobStateResearching

	bundle, err := r.researcher.Research(ctx, tracker, job.Topic)
	if err != nil {
		if ctx.Err() != nil {
			r.fail(ctx, job, "run cancelled during research: "+err.Error(), log)
			return bundle
		}
		log.Warn("research degraded to unverified", "error", err)
		bundle = models.ResearchBundle{
			TopicID:    job.Topic.ID,
			Keywords:   job.Topic.Keywords,
			Unverified: true,
		}
	}
	return bundle
}

// draftLoop runs the draft, score, rewrite cycle until a draft is accepted,
// the attempt ceiling rejects the article, or generation fails.
func (r *Runner) draftLoop(ctx context.Context, tracker *usage.Tracker, job *models.PublishJob, bundle models.ResearchBundle, profile models.StyleProfile, log *slog.Logger) (models.Draft, bool) {
	var prev *models.QualityScore

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		job.State = models.JobStateDrafting
		job.Attempts = attempt

		draft, err := r.drafter.Draft(ctx, tracker, job.ID, job.Topic, bundle, profile, attempt, prev)
		if err != nil {
			if errors.Is(err, usage.ErrQuotaExceeded) {
				r.fail(ctx, job, "llm quota exhausted: "+err.Error(), log)
			} else {
				r.fail(ctx, job, "draft generation failed: "+err.Error(), log)
			}
			return models.Draft{}, false
		}

		job.State = models.JobStateScoring
		score := r.scorer.Score(draft, bundle, profile)
		job.QualityHistory = append(job.QualityHistory, score)

		log.Info("draft scored",
			"attempt", attempt,
			"score", score.TotalScore,
			"verdict", score.Verdict)

		switch score.Verdict {
		case models.VerdictAccept:
			job.FinalDraft = &draft
			return draft, true
		case models.VerdictReject:
			job.FinalDraft = &draft
			job.State = models.JobStateRejected
			r.appendHistory(ctx, job, log)
			return models.Draft{}, false
		default:
			job.State = models.JobStateRewritePending
			prev = &score
		}
	}

	// The loop always ends in accept or reject before attempts run out, but a
	// misconfigured ceiling of zero would skip it entirely.
	r.fail(ctx, job, "draft loop exited without a verdict", log)
	return models.Draft{}, false
}

// finalize re-validates uniqueness, attaches images, and publishes. The claim
// check closes the race where two concurrent jobs drafted near-identical
// topics: exactly one holds the claim and publishes.
func (r *Runner) finalize(ctx context.Context, tracker *usage.Tracker, job *models.PublishJob, draft models.Draft, bundle models.ResearchBundle, log *slog.Logger) {
	job.State = models.JobStateFinalizing

	if !r.dedup.Claim(job.Topic, job.ID) {
		log.Info("topic claimed by sibling job, skipping")
		r.skip(ctx, job, log)
		return
	}
	if dup, err := r.dedup.IsDuplicate(ctx, job.Topic); err == nil && dup {
		log.Info("topic published since selection, skipping")
		r.skip(ctx, job, log)
		return
	}

	job.Images = r.images.AttachImages(ctx, tracker, draft, bundle, r.imagesPerPost)

	err := r.publisher.Publish(ctx, tracker, draft, job.Topic.Category, job.Images)
	switch {
	case err == nil:
		job.State = models.JobStatePublished
		r.appendHistory(ctx, job, log)
	case errors.Is(err, publisher.ErrDuplicatePost):
		log.Info("publish target already has this post, skipping")
		r.skip(ctx, job, log)
	case errors.Is(err, usage.ErrQuotaExceeded):
		r.fail(ctx, job, "publish quota exhausted: "+err.Error(), log)
	default:
		// The accepted draft stays on the record for manual recovery.
		r.fail(ctx, job, "publish failed: "+err.Error(), log)
	}
}

// appendHistory records the terminal outcome so future runs can audit it.
// Only published and rejected entries consume the topic inside the dedup
// window; skipped and failed entries leave it eligible for a retry.
func (r *Runner) appendHistory(ctx context.Context, job *models.PublishJob, log *slog.Logger) {
	entry := models.HistoryEntry{
		ID:          job.ID,
		TopicID:     job.Topic.ID,
		TopicText:   job.Topic.Text,
		Keywords:    job.Topic.Keywords,
		Status:      job.State,
		PublishedAt: time.Now(),
	}
	if err := r.history.Append(ctx, entry); err != nil {
		log.Error("failed to append topic history", "error", err)
	}
}

func (r *Runner) skip(ctx context.Context, job *models.PublishJob, log *slog.Logger) {
	job.State = models.JobStateSkipped
	r.appendHistory(ctx, job, log)
}

func (r *Runner) fail(ctx context.Context, job *models.PublishJob, msg string, log *slog.Logger) {
	job.State = models.JobStateFailed
	job.Error = msg
	r.appendHistory(ctx, job, log)
}
