package writer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AUTOPRESS/autopress/internal/config"
	"github.com/AUTOPRESS/autopress/internal/llm"
	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"log/slog"
)

func testTracker() *usage.Tracker {
	return usage.NewTracker("run-1", config.QuotaConfig{LLMCalls: 10, SearchCalls: 10, ImageCalls: 10, PublishCalls: 10}, nil)
}

func testTopic() models.Topic {
	return models.Topic{ID: "t-1", Text: "Edge computing latency", Category: models.CategoryTechnology}
}

const outlineResponse = `Edge Computing and Latency
Why Latency Matters
The Edge Advantage
Deployment Patterns
What Comes Next`

const bodyResponse = `## Why Latency Matters

Latency decides user experience.

## The Edge Advantage

Closer compute wins.`

func TestDraftProducesTitleOutlineAndBody(t *testing.T) {
	client := llm.NewMockClient(outlineResponse, bodyResponse)
	gen := NewGenerator(client, slog.Default())
	tracker := testTracker()

	draft, err := gen.Draft(context.Background(), tracker, "job-1", testTopic(), models.ResearchBundle{}, models.StyleProfile{}, 1, nil)
	if err != nil {
		t.Fatalf("Draft returned error: %v", err)
	}

	if draft.Title != "Edge Computing and Latency" {
		t.Errorf("title = %q", draft.Title)
	}
	if len(draft.Outline) != 4 {
		t.Errorf("outline has %d sections, want 4: %v", len(draft.Outline), draft.Outline)
	}
	if draft.Body != bodyResponse {
		t.Errorf("body = %q", draft.Body)
	}
	if draft.Attempt != 1 || draft.JobID != "job-1" {
		t.Errorf("draft identity = (%q, %d)", draft.JobID, draft.Attempt)
	}
	if draft.WordCount == 0 {
		t.Error("word count not computed")
	}
	if got := tracker.Snapshot().APICallsByKind[models.CallKindLLM]; got != 2 {
		t.Errorf("recorded %d llm calls, want 2 (outline + body)", got)
	}
}

func TestDraftFallsBackToTopicTitle(t *testing.T) {
	// Outline with a single heading line: that line becomes the title and the
	// outline would be empty, which is a generation failure.
	client := llm.NewMockClient("Only One Line")
	gen := NewGenerator(client, slog.Default())

	_, err := gen.Draft(context.Background(), testTracker(), "job-1", testTopic(), models.ResearchBundle{}, models.StyleProfile{}, 1, nil)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed for empty outline, got %v", err)
	}
}

func TestDraftWrapsClientFailure(t *testing.T) {
	client := llm.NewMockClient()
	client.FailWith(errors.New("rate limited"))
	gen := NewGenerator(client, slog.Default())
	tracker := testTracker()

	_, err := gen.Draft(context.Background(), tracker, "job-1", testTopic(), models.ResearchBundle{}, models.StyleProfile{}, 1, nil)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if got := tracker.RemainingQuota(models.CallKindLLM); got != 10 {
		t.Errorf("remaining llm quota = %d, want 10 after release", got)
	}
}

func TestDraftQuotaExceeded(t *testing.T) {
	tracker := usage.NewTracker("run-1", config.QuotaConfig{LLMCalls: 1}, nil)
	gen := NewGenerator(llm.NewMockClient(outlineResponse, bodyResponse), slog.Default())

	_, err := gen.Draft(context.Background(), tracker, "job-1", testTopic(), models.ResearchBundle{}, models.StyleProfile{}, 1, nil)
	if !errors.Is(err, usage.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded when only one call remains, got %v", err)
	}
}

func TestCorrectiveFeedbackTargetsWeakSubscores(t *testing.T) {
	prev := &models.QualityScore{
		TotalScore: 58,
		Subscores: map[models.Criterion]float64{
			models.CriterionFactualGrounding: 45,
			models.CriterionStructure:        88,
			models.CriterionReadability:      60,
		},
	}

	feedback := correctiveFeedback(prev)
	if !strings.Contains(feedback, string(models.CriterionFactualGrounding)) {
		t.Errorf("feedback missing weakest criterion: %q", feedback)
	}
	if !strings.Contains(feedback, string(models.CriterionReadability)) {
		t.Errorf("feedback missing readability: %q", feedback)
	}
	if strings.Contains(feedback, string(models.CriterionStructure)) {
		t.Errorf("feedback should skip strong subscores: %q", feedback)
	}
	// Weakest first.
	if strings.Index(feedback, string(models.CriterionFactualGrounding)) > strings.Index(feedback, string(models.CriterionReadability)) {
		t.Errorf("feedback not ordered weakest-first: %q", feedback)
	}

	if correctiveFeedback(nil) != "" {
		t.Error("nil previous score must produce no feedback")
	}
}

func TestBodyPromptCarriesFeedbackOnRewrite(t *testing.T) {
	prev := &models.QualityScore{
		Subscores: map[models.Criterion]float64{models.CriterionSEO: 40},
	}
	prompt := buildBodyPrompt(testTopic(), []string{"Intro"}, models.ResearchBundle{}, prev)
	if !strings.Contains(prompt, "previous draft fell short") {
		t.Errorf("rewrite prompt missing feedback preamble: %q", prompt)
	}

	first := buildBodyPrompt(testTopic(), []string{"Intro"}, models.ResearchBundle{}, nil)
	if strings.Contains(first, "previous draft fell short") {
		t.Error("first attempt prompt must not carry feedback")
	}
}

func TestBodySystemPromptHedgesUnverifiedResearch(t *testing.T) {
	verified := buildBodySystemPrompt(models.StyleProfile{}, models.ResearchBundle{})
	unverified := buildBodySystemPrompt(models.StyleProfile{}, models.ResearchBundle{Unverified: true})

	if strings.Contains(verified, "hedge factual language") {
		t.Error("verified research should not trigger hedging instructions")
	}
	if !strings.Contains(unverified, "hedge factual language") {
		t.Error("unverified research must trigger hedging instructions")
	}
}
