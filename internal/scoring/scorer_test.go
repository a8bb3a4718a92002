package scoring

import (
	"strings"
	"testing"

	"github.com/AUTOPRESS/autopress/internal/models"
)

func verifiedBundle() models.ResearchBundle {
	return models.ResearchBundle{
		TopicID: "t-1",
		Facts: []models.Fact{
			{Claim: "edge computing reduces latency for real-time workloads", Sources: []string{"https://a.example/1", "https://b.example/2"}, Confidence: 0.9},
			{Claim: "cloud providers expanded regional edge zones", Sources: []string{"https://a.example/3", "https://c.example/4"}, Confidence: 0.9},
		},
		Keywords: []string{"edge", "computing", "latency"},
	}
}

func strongDraft() models.Draft {
	sentence := "Edge computing reduces latency for real-time workloads in practice. "
	section := func(heading string) string {
		return "## " + heading + "\n\n" + strings.Repeat(sentence, 12) + "\n\n"
	}
	body := section("Why Edge Computing Matters") +
		section("Latency in Real-Time Workloads") +
		section("How Cloud Providers Expanded Regional Edge Zones") +
		section("What Comes Next")

	draft := models.Draft{
		JobID:   "job-1",
		Attempt: 1,
		Title:   "Edge Computing and the Race for Low Latency",
		Outline: []string{
			"Why Edge Computing Matters",
			"Latency in Real-Time Workloads",
			"How Cloud Providers Expanded Regional Edge Zones",
			"What Comes Next",
		},
		Body: body,
	}
	draft.CountWords()
	return draft
}

func weakDraft() models.Draft {
	draft := models.Draft{
		JobID:   "job-1",
		Attempt: 1,
		Title:   "Some thoughts",
		Outline: []string{"Introduction", "Deep Dive", "Conclusion"},
		Body:    "A few unstructured sentences about nothing in particular that ignore the outline entirely and ramble on and on without ever pausing for breath or coming to any kind of point worth making to anyone at all",
	}
	draft.CountWords()
	return draft
}

func TestScoreVerdictAccept(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 60, 3)

	score := scorer.Score(strongDraft(), verifiedBundle(), models.StyleProfile{})
	if score.Verdict != models.VerdictAccept {
		t.Fatalf("verdict = %q (total %.1f), want accept", score.Verdict, score.TotalScore)
	}
	if score.TotalScore < 60 {
		t.Errorf("strong draft total = %.1f, want >= 60", score.TotalScore)
	}
	if len(score.Subscores) != 5 {
		t.Errorf("got %d subscores, want 5", len(score.Subscores))
	}
}

func TestScoreVerdictRewriteBelowThreshold(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 99.5, 3)

	score := scorer.Score(strongDraft(), verifiedBundle(), models.StyleProfile{})
	if score.Verdict != models.VerdictRewrite {
		t.Fatalf("verdict = %q, want rewrite below an unreachable threshold", score.Verdict)
	}
}

func TestScoreVerdictRejectAtAttemptCeiling(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 99.5, 3)

	draft := strongDraft()
	draft.Attempt = 3
	score := scorer.Score(draft, verifiedBundle(), models.StyleProfile{})
	if score.Verdict != models.VerdictReject {
		t.Fatalf("verdict = %q, want reject on the final attempt", score.Verdict)
	}
	if score.DraftAttempt != 3 {
		t.Errorf("draft attempt = %d, want 3", score.DraftAttempt)
	}
}

func TestWeakDraftScoresBelowStrongDraft(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 75, 3)

	strong := scorer.Score(strongDraft(), verifiedBundle(), models.StyleProfile{})
	weak := scorer.Score(weakDraft(), verifiedBundle(), models.StyleProfile{})
	if weak.TotalScore >= strong.TotalScore {
		t.Errorf("weak draft scored %.1f, strong %.1f; want weak < strong", weak.TotalScore, strong.TotalScore)
	}
}

func TestUnverifiedResearchCapsFactualGrounding(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 75, 3)

	bundle := verifiedBundle()
	bundle.Unverified = true
	for i := range bundle.Facts {
		bundle.Facts[i].Sources = bundle.Facts[i].Sources[:1]
		bundle.Facts[i].Confidence = 0.4
	}

	score := scorer.Score(strongDraft(), bundle, models.StyleProfile{})
	if got := score.Subscores[models.CriterionFactualGrounding]; got > 60 {
		t.Errorf("factual grounding with unverified research = %.1f, want <= 60", got)
	}
}

func TestScoreTotalsStayInRange(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 75, 3)

	for _, draft := range []models.Draft{strongDraft(), weakDraft(), {}} {
		score := scorer.Score(draft, models.ResearchBundle{}, models.StyleProfile{})
		if score.TotalScore < 0 || score.TotalScore > 100 {
			t.Errorf("total score %.1f out of [0,100]", score.TotalScore)
		}
		for criterion, sub := range score.Subscores {
			if sub < 0 || sub > 100 {
				t.Errorf("subscore %s = %.1f out of [0,100]", criterion, sub)
			}
		}
	}
}

func TestStyleAdherencePenalizesRunOnSentences(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 75, 3)
	profile := models.StyleProfile{Traits: map[string]float64{models.TraitBrevity: 0.9}}

	terse := strongDraft()
	rambling := strongDraft()
	rambling.Body = strings.Repeat("word ", 400) + "."
	rambling.CountWords()

	terseScore := scorer.Score(terse, verifiedBundle(), profile)
	ramblingScore := scorer.Score(rambling, verifiedBundle(), profile)

	if ramblingScore.Subscores[models.CriterionStyleAdherence] >= terseScore.Subscores[models.CriterionStyleAdherence] {
		t.Errorf("rambling style subscore %.1f should be below terse %.1f",
			ramblingScore.Subscores[models.CriterionStyleAdherence],
			terseScore.Subscores[models.CriterionStyleAdherence])
	}
}
