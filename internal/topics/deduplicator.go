package topics

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/AUTOPRESS/autopress/internal/models"
)

// HistoryRepository is the append-only topic history the deduplicator reads
// and the orchestrator appends to.
type HistoryRepository interface {
	ListSince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error)
	Append(ctx context.Context, entry models.HistoryEntry) error
}

// Deduplicator decides whether a candidate topic was already published or
// attempted within the trailing window. It also tracks in-run claims so two
// concurrent jobs racing on the same topic resolve to a single publish.
type Deduplicator struct {
	history   HistoryRepository
	window    time.Duration
	threshold float64

	mu      sync.Mutex
	claimed map[string]topicClaim // normalized text -> claim
}

type topicClaim struct {
	jobID    string
	keywords map[string]bool
}

// NewDeduplicator builds a deduplicator over the given history window.
func NewDeduplicator(history HistoryRepository, windowDays int, threshold float64) *Deduplicator {
	return &Deduplicator{
		history:   history,
		window:    time.Duration(windowDays) * 24 * time.Hour,
		threshold: threshold,
		claimed:   make(map[string]topicClaim),
	}
}

// IsDuplicate reports whether the topic collides with a consuming history
// entry inside the window, either by identical normalized text or by keyword
// overlap at or above the similarity threshold. Skipped and failed entries are
// audit records only and never block a retry.
func (d *Deduplicator) IsDuplicate(ctx context.Context, topic models.Topic) (bool, error) {
	entries, err := d.history.ListSince(ctx, time.Now().Add(-d.window))
	if err != nil {
		return false, fmt.Errorf("failed to load topic history: %w", err)
	}

	norm := NormalizeTopicText(topic.Text)
	keywords := keywordSet(topic.Keywords)

	for _, entry := range entries {
		if !entry.Status.ConsumesTopic() {
			continue
		}
		if NormalizeTopicText(entry.TopicText) == norm {
			return true, nil
		}
		if jaccard(keywords, keywordSet(entry.Keywords)) >= d.threshold {
			return true, nil
		}
	}
	return false, nil
}

// Similar reports whether two topics collide by the duplicate comparator:
// identical normalized text or keyword overlap at or above the threshold.
func (d *Deduplicator) Similar(a, b models.Topic) bool {
	if NormalizeTopicText(a.Text) == NormalizeTopicText(b.Text) {
		return true
	}
	return jaccard(keywordSet(a.Keywords), keywordSet(b.Keywords)) >= d.threshold
}

// Claim reserves the topic for jobID until the run ends. It returns false
// when a sibling job already holds the same normalized text or a claim whose
// keyword set overlaps at or above the threshold; the caller must then skip
// rather than publish a duplicate. The check and the insert happen under one
// lock, so of two jobs racing on similar topics exactly one wins.
func (d *Deduplicator) Claim(topic models.Topic, jobID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	norm := NormalizeTopicText(topic.Text)
	if held, ok := d.claimed[norm]; ok {
		return held.jobID == jobID
	}

	keywords := keywordSet(topic.Keywords)
	if len(keywords) > 0 {
		for _, held := range d.claimed {
			if held.jobID == jobID {
				continue
			}
			if jaccard(keywords, held.keywords) >= d.threshold {
				return false
			}
		}
	}
	d.claimed[norm] = topicClaim{jobID: jobID, keywords: keywords}
	return true
}

// ReleaseClaims drops all in-run claims. Called when a run finishes.
func (d *Deduplicator) ReleaseClaims() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.claimed = make(map[string]topicClaim)
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	punctRe      = regexp.MustCompile(`[.,!?;:"'()\[\]]+`)
	wordRe       = regexp.MustCompile(`\w+`)
)

// stopWords are dropped during normalization so filler never defeats the
// text comparison.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true,
	"to": true, "in": true, "on": true, "and": true, "or": true,
	"with": true, "your": true, "how": true, "why": true, "what": true,
	"is": true, "are": true, "this": true, "that": true,
}

// NormalizeTopicText standardizes topic text for comparison: case-folded,
// punctuation stripped, whitespace collapsed, stop words removed.
func NormalizeTopicText(text string) string {
	normalized := strings.ToLower(text)
	normalized = punctRe.ReplaceAllString(normalized, " ")
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	words := strings.Fields(normalized)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// ExtractKeywords tokenizes normalized topic text into its keyword set.
func ExtractKeywords(text string) []string {
	return wordRe.FindAllString(NormalizeTopicText(text), -1)
}

func keywordSet(keywords []string) map[string]bool {
	set := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && !stopWords[k] {
			set[k] = true
		}
	}
	return set
}

// jaccard computes the Jaccard similarity coefficient between two keyword sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
