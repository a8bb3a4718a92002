package publisher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AUTOPRESS/autopress/internal/config"
	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"log/slog"
)

func testTracker() *usage.Tracker {
	return usage.NewTracker("run-1", config.QuotaConfig{LLMCalls: 10, SearchCalls: 10, ImageCalls: 10, PublishCalls: 10}, nil)
}

func acceptedDraft() models.Draft {
	draft := models.Draft{
		JobID:   "job-1",
		Title:   "Edge Computing & the Race for Low Latency!",
		Outline: []string{"Background", "Results"},
		Body:    "Intro text.\n## Background\n\nSome **bold** findings.\n## Results\n\nA [link](https://example.com).",
	}
	draft.CountWords()
	return draft
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Edge Computing & the Race for Low Latency!", "edge-computing-the-race-for-low-latency"},
		{"  Plain title  ", "plain-title"},
		{"already-slugged", "already-slugged"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPublishRendersMarkdown(t *testing.T) {
	target := &MockTarget{}
	svc := NewService(target, slog.Default())

	err := svc.Publish(context.Background(), testTracker(), acceptedDraft(), models.CategoryTechnology, nil)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(target.Posts) != 1 {
		t.Fatalf("published %d posts, want 1", len(target.Posts))
	}
	post := target.Posts[0]
	if post.Slug != "edge-computing-the-race-for-low-latency" {
		t.Errorf("slug = %q", post.Slug)
	}
	if post.Category != "technology" {
		t.Errorf("category = %q", post.Category)
	}
	if !strings.Contains(post.HTML, "<h2>Background</h2>") {
		t.Errorf("rendered HTML missing heading: %q", post.HTML)
	}
	if !strings.Contains(post.HTML, "<strong>bold</strong>") {
		t.Errorf("rendered HTML missing emphasis: %q", post.HTML)
	}
}

func TestPublishInsertsImageFigures(t *testing.T) {
	target := &MockTarget{}
	svc := NewService(target, slog.Default())

	images := []models.GeneratedImage{
		{URL: "https://img.example/1.jpg", AltText: "A rack", SourceAttribution: "Ada", PlacementIndex: 1},
	}
	err := svc.Publish(context.Background(), testTracker(), acceptedDraft(), models.CategoryTechnology, images)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	html := target.Posts[0].HTML
	if !strings.Contains(html, "https://img.example/1.jpg") {
		t.Errorf("rendered HTML missing image url: %q", html)
	}
	if !strings.Contains(html, "A rack") {
		t.Errorf("rendered HTML missing alt text: %q", html)
	}
	if !strings.Contains(html, "Ada") {
		t.Errorf("rendered HTML missing attribution: %q", html)
	}
}

func TestPublishDuplicateSlugSkips(t *testing.T) {
	target := &MockTarget{}
	svc := NewService(target, slog.Default())
	tracker := testTracker()

	if err := svc.Publish(context.Background(), tracker, acceptedDraft(), models.CategoryTechnology, nil); err != nil {
		t.Fatalf("first publish returned error: %v", err)
	}
	err := svc.Publish(context.Background(), tracker, acceptedDraft(), models.CategoryTechnology, nil)
	if !errors.Is(err, ErrDuplicatePost) {
		t.Fatalf("expected ErrDuplicatePost, got %v", err)
	}
	if len(target.Posts) != 1 {
		t.Errorf("target holds %d posts, want 1", len(target.Posts))
	}
	// The failed attempt must return its reservation.
	if got := tracker.RemainingQuota(models.CallKindPublish); got != 9 {
		t.Errorf("remaining publish quota = %d, want 9", got)
	}
}

func TestPublishQuotaExceeded(t *testing.T) {
	tracker := usage.NewTracker("run-1", config.QuotaConfig{PublishCalls: 0}, nil)
	svc := NewService(&MockTarget{}, slog.Default())

	err := svc.Publish(context.Background(), tracker, acceptedDraft(), models.CategoryTechnology, nil)
	if !errors.Is(err, usage.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestPublishTargetFailure(t *testing.T) {
	target := &MockTarget{Err: errors.New("target down")}
	svc := NewService(target, slog.Default())
	tracker := testTracker()

	err := svc.Publish(context.Background(), tracker, acceptedDraft(), models.CategoryTechnology, nil)
	if err == nil {
		t.Fatal("expected error from failing target")
	}
	if got := tracker.RemainingQuota(models.CallKindPublish); got != 10 {
		t.Errorf("remaining publish quota = %d, want 10 after release", got)
	}
}
