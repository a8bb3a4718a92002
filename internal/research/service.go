package research

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/topics"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"log/slog"
)

// Sentinel errors for the research stage. Both degrade to "proceed
// unverified" at the orchestrator rather than failing the job.
var (
	ErrResearchUnavailable = errors.New("research service unavailable")
	ErrResearchTimeout     = errors.New("research timed out")
)

// minCorroboration is the keyword overlap two results from different hosts
// need before one counts as corroborating the other.
const minCorroboration = 0.3

// Service gathers and cross-checks factual material for a topic before
// drafting begins.
type Service struct {
	search SearchClient
	policy RetryPolicy
	logger *slog.Logger
}

// NewService creates a research service.
func NewService(search SearchClient, policy RetryPolicy, logger *slog.Logger) *Service {
	return &Service{search: search, policy: policy, logger: logger}
}

// Research builds the fact bundle for one topic. Claims without a second
// independent source are retained with low confidence rather than dropped;
// a bundle with zero corroborated facts is marked unverified.
func (s *Service) Research(ctx context.Context, tracker *usage.Tracker, topic models.Topic) (models.ResearchBundle, error) {
	bundle := models.ResearchBundle{TopicID: topic.ID}

	if err := tracker.Reserve(models.CallKindSearch, 1); err != nil {
		return bundle, err
	}

	var results []SearchResult
	err := Retry(ctx, s.policy, func() error {
		var lookupErr error
		results, lookupErr = s.search.Lookup(ctx, topic.Text)
		return lookupErr
	})
	if err != nil {
		tracker.Release(models.CallKindSearch, 1)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return bundle, fmt.Errorf("%w: %v", ErrResearchTimeout, err)
		}
		return bundle, fmt.Errorf("%w: %v", ErrResearchUnavailable, err)
	}
	tracker.Record(models.CallKindSearch, 1)

	bundle.Facts = crossCheck(results)
	bundle.Keywords = collectKeywords(topic, results)
	bundle.Unverified = bundle.CorroboratedCount() == 0

	s.logger.Info("research complete",
		"topic_id", topic.ID,
		"facts", len(bundle.Facts),
		"corroborated", bundle.CorroboratedCount(),
		"unverified", bundle.Unverified)

	return bundle, nil
}

// crossCheck turns search results into facts, attaching every independent
// source (different host, sufficient keyword overlap) that backs each claim.
func crossCheck(results []SearchResult) []models.Fact {
	facts := make([]models.Fact, 0, len(results))

	for i, r := range results {
		claim := strings.TrimSpace(r.Snippet)
		if claim == "" {
			claim = strings.TrimSpace(r.Title)
		}
		if claim == "" || r.URL == "" {
			continue
		}

		sources := []string{r.URL}
		claimWords := keywordSet(claim)
		for j, other := range results {
			if i == j || other.URL == "" {
				continue
			}
			if host(other.URL) == host(r.URL) {
				continue
			}
			if overlap(claimWords, keywordSet(other.Snippet+" "+other.Title)) >= minCorroboration {
				sources = append(sources, other.URL)
			}
		}

		confidence := 0.4
		if len(sources) > 1 {
			confidence = 0.9
		}
		facts = append(facts, models.Fact{
			Claim:      claim,
			Sources:    sources,
			Confidence: confidence,
		})
	}
	return facts
}

func collectKeywords(topic models.Topic, results []SearchResult) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0, len(topic.Keywords))
	for _, k := range topic.Keywords {
		if !seen[k] {
			seen[k] = true
			keywords = append(keywords, k)
		}
	}
	for _, r := range results {
		for _, k := range topics.ExtractKeywords(r.Title) {
			if !seen[k] && len(k) > 3 {
				seen[k] = true
				keywords = append(keywords, k)
			}
		}
	}
	return keywords
}

func host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

func keywordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range topics.ExtractKeywords(text) {
		set[w] = true
	}
	return set
}

// overlap is the Jaccard coefficient of two keyword sets.
func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
