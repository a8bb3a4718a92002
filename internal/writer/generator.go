package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AUTOPRESS/autopress/internal/llm"
	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"log/slog"
)

// ErrGenerationFailed marks an LLM failure that exhausted its local retries.
// The owning job transitions to failed; sibling jobs are unaffected.
var ErrGenerationFailed = errors.New("generation failed")

// Generator drives the LLM through outline and body generation for one draft
// attempt, applying the blended style profile.
type Generator struct {
	client llm.Client
	logger *slog.Logger
}

// NewGenerator creates a content generator.
func NewGenerator(client llm.Client, logger *slog.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

// Draft produces one article attempt. On rewrites, the previous attempt's
// subscores are injected as corrective feedback.
func (g *Generator) Draft(
	ctx context.Context,
	tracker *usage.Tracker,
	jobID string,
	topic models.Topic,
	bundle models.ResearchBundle,
	profile models.StyleProfile,
	attempt int,
	prev *models.QualityScore,
) (models.Draft, error) {
	title, outline, err := g.generateOutline(ctx, tracker, topic, bundle)
	if err != nil {
		return models.Draft{}, err
	}

	body, err := g.generateBody(ctx, tracker, topic, outline, bundle, profile, prev)
	if err != nil {
		return models.Draft{}, err
	}

	draft := models.Draft{
		JobID:   jobID,
		Attempt: attempt,
		Title:   title,
		Outline: outline,
		Body:    body,
	}
	draft.CountWords()

	g.logger.Info("draft produced",
		"job_id", jobID,
		"attempt", attempt,
		"sections", len(outline),
		"words", draft.WordCount)

	return draft, nil
}

func (g *Generator) generateOutline(ctx context.Context, tracker *usage.Tracker, topic models.Topic, bundle models.ResearchBundle) (string, []string, error) {
	if err := tracker.Reserve(models.CallKindLLM, 1); err != nil {
		return "", nil, err
	}

	raw, err := g.client.Complete(ctx, outlineSystemPrompt, buildOutlinePrompt(topic, bundle), 0.5, 500)
	if err != nil {
		tracker.Release(models.CallKindLLM, 1)
		return "", nil, fmt.Errorf("%w: outline: %v", ErrGenerationFailed, err)
	}
	tracker.Record(models.CallKindLLM, 1)

	title, outline := parseOutline(raw)
	if len(outline) == 0 {
		return "", nil, fmt.Errorf("%w: outline response had no sections", ErrGenerationFailed)
	}
	if title == "" {
		title = topic.Text
	}
	return title, outline, nil
}

func (g *Generator) generateBody(
	ctx context.Context,
	tracker *usage.Tracker,
	topic models.Topic,
	outline []string,
	bundle models.ResearchBundle,
	profile models.StyleProfile,
	prev *models.QualityScore,
) (string, error) {
	if err := tracker.Reserve(models.CallKindLLM, 1); err != nil {
		return "", err
	}

	body, err := g.client.Complete(ctx,
		buildBodySystemPrompt(profile, bundle),
		buildBodyPrompt(topic, outline, bundle, prev),
		0.7, 3000)
	if err != nil {
		tracker.Release(models.CallKindLLM, 1)
		return "", fmt.Errorf("%w: body: %v", ErrGenerationFailed, err)
	}
	tracker.Record(models.CallKindLLM, 1)

	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: empty body", ErrGenerationFailed)
	}
	return body, nil
}

// parseOutline splits the response into a title (first line) and section
// headings, stripping list markers and markdown prefixes.
func parseOutline(raw string) (string, []string) {
	lines := strings.Split(raw, "\n")
	var title string
	outline := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*#0123456789. ")
		if line == "" {
			continue
		}
		if title == "" {
			title = line
			continue
		}
		outline = append(outline, line)
	}
	return title, outline
}
