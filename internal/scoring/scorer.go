package scoring

import (
	"math"
	"strings"

	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/topics"
)

// Weights maps each quality criterion to its share of the total score. The
// scorer normalizes them, so raw proportions are fine.
type Weights map[models.Criterion]float64

// DefaultWeights returns the standard criterion mix.
func DefaultWeights() Weights {
	return Weights{
		models.CriterionFactualGrounding: 0.30,
		models.CriterionStructure:        0.20,
		models.CriterionStyleAdherence:   0.15,
		models.CriterionSEO:              0.15,
		models.CriterionReadability:      0.20,
	}
}

// Scorer grades drafts against the rubric. The acceptance threshold and
// attempt ceiling are injected configuration, never derived here.
type Scorer struct {
	weights         Weights
	acceptThreshold float64
	maxAttempts     int
}

// NewScorer creates a scorer with the given policy.
func NewScorer(weights Weights, acceptThreshold float64, maxAttempts int) *Scorer {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Scorer{
		weights:         weights,
		acceptThreshold: acceptThreshold,
		maxAttempts:     maxAttempts,
	}
}

// Score grades one draft attempt. The verdict is accept at or above the
// threshold, rewrite below it, and reject when the attempt ceiling is spent.
func (s *Scorer) Score(draft models.Draft, bundle models.ResearchBundle, profile models.StyleProfile) models.QualityScore {
	subscores := map[models.Criterion]float64{
		models.CriterionFactualGrounding: scoreFactualGrounding(draft, bundle),
		models.CriterionStructure:        scoreStructure(draft),
		models.CriterionStyleAdherence:   scoreStyleAdherence(draft, profile),
		models.CriterionSEO:              scoreSEO(draft, bundle),
		models.CriterionReadability:      scoreReadability(draft),
	}

	var total, totalWeight float64
	for criterion, weight := range s.weights {
		total += subscores[criterion] * weight
		totalWeight += weight
	}
	if totalWeight > 0 {
		total /= totalWeight
	}
	total = clamp(total, 0, 100)

	verdict := models.VerdictRewrite
	switch {
	case total >= s.acceptThreshold:
		verdict = models.VerdictAccept
	case draft.Attempt >= s.maxAttempts:
		verdict = models.VerdictReject
	}

	return models.QualityScore{
		DraftAttempt: draft.Attempt,
		TotalScore:   total,
		Subscores:    subscores,
		Verdict:      verdict,
	}
}

// scoreFactualGrounding measures how many research facts surface in the body.
// With no corroborated material the criterion bottoms out, which is the
// designed penalty for unverified research.
func scoreFactualGrounding(draft models.Draft, bundle models.ResearchBundle) float64 {
	if len(bundle.Facts) == 0 {
		return 35
	}

	body := strings.ToLower(draft.Body)
	covered := 0
	for _, fact := range bundle.Facts {
		words := topics.ExtractKeywords(fact.Claim)
		if len(words) == 0 {
			continue
		}
		hits := 0
		for _, w := range words {
			if strings.Contains(body, w) {
				hits++
			}
		}
		if float64(hits)/float64(len(words)) >= 0.5 {
			covered++
		}
	}

	score := 40 + 60*float64(covered)/float64(len(bundle.Facts))
	if bundle.Unverified {
		score = math.Min(score, 60)
	}
	return clamp(score, 0, 100)
}

// scoreStructure checks outline coverage: every planned section should appear
// as a heading with substantive content beneath it.
func scoreStructure(draft models.Draft) float64 {
	if len(draft.Outline) == 0 {
		return 30
	}

	body := strings.ToLower(draft.Body)
	present := 0
	for _, heading := range draft.Outline {
		if strings.Contains(body, strings.ToLower(heading)) {
			present++
		}
	}

	score := 100 * float64(present) / float64(len(draft.Outline))

	// Thin articles cannot be structurally complete.
	if draft.WordCount < 300 {
		score *= 0.5
	}
	return clamp(score, 0, 100)
}

// scoreStyleAdherence compares measurable traits of the text against the
// blended profile: sentence economy against brevity, contractions against
// formality.
func scoreStyleAdherence(draft models.Draft, profile models.StyleProfile) float64 {
	if len(profile.Traits) == 0 {
		return 70
	}

	score := 100.0

	avgSentence := averageSentenceLength(draft.Body)
	if brevity, ok := profile.Traits[models.TraitBrevity]; ok {
		// High brevity wants short sentences; tolerance widens as the trait drops.
		limit := 30 - 12*brevity
		if avgSentence > limit {
			score -= math.Min(30, (avgSentence-limit)*2)
		}
	}

	if formality, ok := profile.Traits[models.TraitFormality]; ok && formality >= 0.7 {
		contractions := strings.Count(strings.ToLower(draft.Body), "'t ") +
			strings.Count(strings.ToLower(draft.Body), "'re ") +
			strings.Count(strings.ToLower(draft.Body), "'ll ")
		if contractions > 5 {
			score -= 15
		}
	}

	return clamp(score, 0, 100)
}

// scoreSEO rewards keywords in the title and headings and a publishable length.
func scoreSEO(draft models.Draft, bundle models.ResearchBundle) float64 {
	score := 40.0

	title := strings.ToLower(draft.Title)
	headings := strings.ToLower(strings.Join(draft.Outline, " "))

	titleHit, headingHit := false, false
	for _, k := range bundle.Keywords {
		k = strings.ToLower(k)
		if !titleHit && strings.Contains(title, k) {
			titleHit = true
		}
		if !headingHit && strings.Contains(headings, k) {
			headingHit = true
		}
	}
	if titleHit {
		score += 25
	}
	if headingHit {
		score += 15
	}

	if draft.WordCount >= 600 && draft.WordCount <= 2500 {
		score += 20
	} else if draft.WordCount >= 300 {
		score += 10
	}

	return clamp(score, 0, 100)
}

// scoreReadability penalizes run-on sentences and wall-of-text paragraphs.
func scoreReadability(draft models.Draft) float64 {
	score := 100.0

	avg := averageSentenceLength(draft.Body)
	if avg > 25 {
		score -= math.Min(40, (avg-25)*3)
	}

	for _, para := range strings.Split(draft.Body, "\n\n") {
		if len(strings.Fields(para)) > 180 {
			score -= 10
		}
	}

	return clamp(score, 0, 100)
}

func averageSentenceLength(text string) float64 {
	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	return float64(len(strings.Fields(text))) / float64(sentences)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
