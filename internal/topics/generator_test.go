package topics

import (
	"context"
	"errors"
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

func TestProposeParsesTopics(t *testing.T) {
	client := llm.NewMockClient(
		"technology | Why eBPF is eating observability\n" +
			"- finance | The hidden cost of subscription churn\n" +
			"not-a-category | Something uncategorized\n" +
			"\n" +
			"| \n",
	)
	gen := NewGenerator(client, slog.Default())

	topics, err := gen.Propose(context.Background(), testTracker(), 2, nil)
	if err != nil {
		t.Fatalf("Propose returned error: %v", err)
	}

	if len(topics) != 3 {
		t.Fatalf("parsed %d topics, want 3", len(topics))
	}
	if topics[0].Category != models.CategoryTechnology {
		t.Errorf("topic 0 category = %q, want technology", topics[0].Category)
	}
	if topics[0].Text != "Why eBPF is eating observability" {
		t.Errorf("topic 0 text = %q", topics[0].Text)
	}
	if topics[1].Category != models.CategoryFinance {
		t.Errorf("topic 1 category = %q, want finance", topics[1].Category)
	}
	if topics[2].Category != models.CategoryGeneral {
		t.Errorf("unknown category should map to general, got %q", topics[2].Category)
	}
	for i, topic := range topics {
		if topic.ID == "" {
			t.Errorf("topic %d has empty id", i)
		}
		if len(topic.Keywords) == 0 {
			t.Errorf("topic %d has no keywords", i)
		}
	}
}

func TestProposeConsumesOneLLMCall(t *testing.T) {
	tracker := testTracker()
	gen := NewGenerator(llm.NewMockClient("general | A topic"), slog.Default())

	if _, err := gen.Propose(context.Background(), tracker, 1, nil); err != nil {
		t.Fatalf("Propose returned error: %v", err)
	}
	if got := tracker.Snapshot().APICallsByKind[models.CallKindLLM]; got != 1 {
		t.Errorf("recorded %d llm calls, want 1", got)
	}
}

func TestProposeReleasesQuotaOnFailure(t *testing.T) {
	tracker := testTracker()
	client := llm.NewMockClient()
	client.FailWith(errors.New("boom"))
	gen := NewGenerator(client, slog.Default())

	if _, err := gen.Propose(context.Background(), tracker, 1, nil); err == nil {
		t.Fatal("expected error from failing client")
	}
	if got := tracker.RemainingQuota(models.CallKindLLM); got != 10 {
		t.Errorf("remaining llm quota = %d, want 10 after release", got)
	}
}

func TestProposeRejectsNonPositiveCount(t *testing.T) {
	gen := NewGenerator(llm.NewMockClient(), slog.Default())
	if _, err := gen.Propose(context.Background(), testTracker(), 0, nil); err == nil {
		t.Fatal("expected error for zero count")
	}
}
