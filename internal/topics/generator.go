package topics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AUTOPRESS/autopress/internal/llm"
	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"github.com/google/uuid"
	"log/slog"
)

const proposalSystemPrompt = `You are an editorial planner for a technology and lifestyle blog.
Propose fresh, specific article topics. Avoid anything generic or evergreen-listicle shaped.
Respond with one topic per line in the exact format:
category | topic title
Valid categories: technology, lifestyle, finance, health, travel, general.`

// Generator proposes candidate topics for a run via the LLM.
type Generator struct {
	client llm.Client
	logger *slog.Logger
}

// NewGenerator creates a topic generator.
func NewGenerator(client llm.Client, logger *slog.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

// Propose asks the LLM for candidate topics. It requests more than count so
// the caller can lose candidates to deduplication and still fill the run.
func (g *Generator) Propose(ctx context.Context, tracker *usage.Tracker, count int, categoryHints []string) ([]models.Topic, error) {
	if count <= 0 {
		return nil, fmt.Errorf("topic count must be positive, got %d", count)
	}

	if err := tracker.Reserve(models.CallKindLLM, 1); err != nil {
		return nil, err
	}

	requested := count * 2 // headroom for dedup losses
	prompt := fmt.Sprintf("Propose %d article topics.", requested)
	if len(categoryHints) > 0 {
		prompt += fmt.Sprintf(" Prefer these categories: %s.", strings.Join(categoryHints, ", "))
	}

	raw, err := g.client.Complete(ctx, proposalSystemPrompt, prompt, 0.9, 800)
	if err != nil {
		tracker.Release(models.CallKindLLM, 1)
		return nil, fmt.Errorf("topic proposal failed: %w", err)
	}
	tracker.Record(models.CallKindLLM, 1)

	topics := parseProposals(raw)
	if len(topics) == 0 {
		return nil, fmt.Errorf("topic proposal returned no parseable topics")
	}

	g.logger.Debug("topics proposed", "requested", requested, "parsed", len(topics))
	return topics, nil
}

// parseProposals turns "category | title" lines into topics, skipping
// malformed lines rather than failing the batch.
func parseProposals(raw string) []models.Topic {
	lines := strings.Split(raw, "\n")
	topics := make([]models.Topic, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		if line == "" {
			continue
		}

		category := models.CategoryGeneral
		title := line
		if idx := strings.Index(line, "|"); idx >= 0 {
			category = parseCategory(strings.TrimSpace(line[:idx]))
			title = strings.TrimSpace(line[idx+1:])
		}
		if title == "" {
			continue
		}

		topics = append(topics, models.Topic{
			ID:        uuid.NewString(),
			Text:      title,
			Category:  category,
			Keywords:  ExtractKeywords(title),
			CreatedAt: time.Now(),
		})
	}
	return topics
}

func parseCategory(raw string) models.Category {
	switch models.Category(strings.ToLower(raw)) {
	case models.CategoryTechnology, models.CategoryLifestyle, models.CategoryFinance,
		models.CategoryHealth, models.CategoryTravel, models.CategoryGeneral:
		return models.Category(strings.ToLower(raw))
	default:
		return models.CategoryGeneral
	}
}
