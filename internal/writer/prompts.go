package writer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/styles"
)

const outlineSystemPrompt = `You are a senior blog editor. Produce article outlines as a flat list
of section headings, one per line, no numbering, no commentary. The first line is the article title.
Aim for 4 to 6 sections.`

// buildOutlinePrompt asks for the article skeleton.
func buildOutlinePrompt(topic models.Topic, bundle models.ResearchBundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nCategory: %s\n", topic.Text, topic.Category)
	if len(bundle.Keywords) > 0 {
		fmt.Fprintf(&b, "Target keywords: %s\n", strings.Join(bundle.Keywords, ", "))
	}
	if len(bundle.Facts) > 0 {
		b.WriteString("Key facts to cover:\n")
		for _, f := range bundle.Facts {
			fmt.Fprintf(&b, "- %s\n", f.Claim)
		}
	}
	return b.String()
}

// buildBodySystemPrompt composes the blended style profile, the hedging
// policy for unverified research, and the house formatting rules.
func buildBodySystemPrompt(profile models.StyleProfile, bundle models.ResearchBundle) string {
	var b strings.Builder
	b.WriteString("You are a professional blog writer.\n")
	b.WriteString(styles.Describe(profile))
	b.WriteString("\nFormat the article in markdown. Use '## ' for section headings.\n")
	b.WriteString("Ground every factual statement in the provided research facts.\n")

	if bundle.Unverified {
		b.WriteString("The research for this piece could not be independently corroborated: " +
			"hedge factual language (\"reportedly\", \"according to\") and avoid absolute claims.\n")
	}
	return b.String()
}

// buildBodyPrompt carries the outline, the facts, and any corrective feedback
// from the previous attempt's subscores.
func buildBodyPrompt(topic models.Topic, outline []string, bundle models.ResearchBundle, prev *models.QualityScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the full article for: %s\n\nOutline:\n", topic.Text)
	for _, section := range outline {
		fmt.Fprintf(&b, "## %s\n", section)
	}

	if len(bundle.Facts) > 0 {
		b.WriteString("\nResearch facts (cite sources inline where natural):\n")
		for _, f := range bundle.Facts {
			fmt.Fprintf(&b, "- %s (sources: %s)\n", f.Claim, strings.Join(f.Sources, ", "))
		}
	}

	if feedback := correctiveFeedback(prev); feedback != "" {
		b.WriteString("\nThe previous draft fell short. Fix these specific weaknesses:\n")
		b.WriteString(feedback)
	}

	return b.String()
}

// correctiveFeedback converts the weakest subscores of the prior attempt into
// targeted rewrite instructions.
func correctiveFeedback(prev *models.QualityScore) string {
	if prev == nil {
		return ""
	}

	hints := map[models.Criterion]string{
		models.CriterionFactualGrounding: "tie claims directly to the research facts and cite their sources",
		models.CriterionStructure:        "cover every outline section with substantial content",
		models.CriterionStyleAdherence:   "match the requested voice and trait guidance more closely",
		models.CriterionSEO:              "work the target keywords into the title and section headings",
		models.CriterionReadability:      "shorten sentences and break up dense paragraphs",
	}

	type weak struct {
		criterion models.Criterion
		score     float64
	}
	weaknesses := make([]weak, 0, len(prev.Subscores))
	for c, s := range prev.Subscores {
		if s < 70 {
			weaknesses = append(weaknesses, weak{c, s})
		}
	}
	sort.Slice(weaknesses, func(i, j int) bool { return weaknesses[i].score < weaknesses[j].score })

	var b strings.Builder
	for _, w := range weaknesses {
		if hint, ok := hints[w.criterion]; ok {
			fmt.Fprintf(&b, "- %s (scored %.0f): %s\n", w.criterion, w.score, hint)
		}
	}
	return b.String()
}
