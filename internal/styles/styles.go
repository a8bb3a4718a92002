package styles

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/AUTOPRESS/autopress/internal/models"
)

// Weighted pairs a profile with its share of the blend.
type Weighted struct {
	Profile models.StyleProfile
	Weight  float64
}

// Blend merges writer profiles by weighted-averaging every trait. Weights are
// normalized, so callers can pass raw proportions. Voice descriptions are
// concatenated in descending weight order.
func Blend(parts []Weighted) (models.StyleProfile, error) {
	if len(parts) == 0 {
		return models.StyleProfile{}, fmt.Errorf("at least one profile required")
	}

	var totalWeight float64
	for _, p := range parts {
		if p.Weight < 0 {
			return models.StyleProfile{}, fmt.Errorf("profile %q has negative weight", p.Profile.Name)
		}
		totalWeight += p.Weight
	}
	if totalWeight == 0 {
		return models.StyleProfile{}, fmt.Errorf("blend weights sum to zero")
	}

	traits := make(map[string]float64)
	names := make([]string, 0, len(parts))

	ordered := make([]Weighted, len(parts))
	copy(ordered, parts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Weight > ordered[j].Weight })

	voices := make([]string, 0, len(ordered))
	for _, p := range ordered {
		share := p.Weight / totalWeight
		for trait, value := range p.Profile.Traits {
			traits[trait] += value * share
		}
		names = append(names, p.Profile.Name)
		if p.Profile.Voice != "" {
			voices = append(voices, p.Profile.Voice)
		}
	}

	return models.StyleProfile{
		Name:   strings.Join(names, "+"),
		Voice:  strings.Join(voices, " "),
		Traits: traits,
	}, nil
}

// Describe renders a profile's traits as generation guidance.
func Describe(p models.StyleProfile) string {
	keys := make([]string, 0, len(p.Traits))
	for k := range p.Traits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Write in the voice of %s. %s\n", p.Name, p.Voice)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, traitLevel(p.Traits[k]))
	}
	return b.String()
}

func traitLevel(v float64) string {
	switch {
	case v >= 0.75:
		return "very high"
	case v >= 0.5:
		return "high"
	case v >= 0.25:
		return "moderate"
	default:
		return "low"
	}
}

// LoadProfiles reads writer profiles from a JSON file, falling back to the
// built-in set when no path is given.
func LoadProfiles(path string) ([]models.StyleProfile, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style profiles: %w", err)
	}

	var profiles []models.StyleProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse style profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("style profile file %s contains no profiles", path)
	}
	return profiles, nil
}

// ParseBlendSpec resolves a "name:weight,name:weight" spec against the loaded
// profiles. An empty spec blends every profile equally.
func ParseBlendSpec(spec string, profiles []models.StyleProfile) ([]Weighted, error) {
	byName := make(map[string]models.StyleProfile, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}

	if strings.TrimSpace(spec) == "" {
		parts := make([]Weighted, 0, len(profiles))
		for _, p := range profiles {
			parts = append(parts, Weighted{Profile: p, Weight: 1})
		}
		return parts, nil
	}

	var parts []Weighted
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rawWeight, found := strings.Cut(entry, ":")
		if !found {
			return nil, fmt.Errorf("invalid blend entry %q: expected name:weight", entry)
		}
		profile, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown style profile %q", strings.TrimSpace(name))
		}
		var weight float64
		if _, err := fmt.Sscanf(strings.TrimSpace(rawWeight), "%f", &weight); err != nil {
			return nil, fmt.Errorf("invalid weight in blend entry %q", entry)
		}
		parts = append(parts, Weighted{Profile: profile, Weight: weight})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("blend spec %q resolved to no profiles", spec)
	}
	return parts, nil
}

// DefaultProfiles is the built-in writer corpus used when none is configured.
func DefaultProfiles() []models.StyleProfile {
	return []models.StyleProfile{
		{
			Name:  "analyst",
			Voice: "Measured and evidence-first, builds the argument from data.",
			Traits: map[string]float64{
				models.TraitFormality:    0.8,
				models.TraitHumor:        0.1,
				models.TraitTechnicality: 0.9,
				models.TraitStorytelling: 0.3,
				models.TraitBrevity:      0.6,
			},
		},
		{
			Name:  "storyteller",
			Voice: "Opens with a scene, keeps the reader moving through anecdotes.",
			Traits: map[string]float64{
				models.TraitFormality:    0.3,
				models.TraitHumor:        0.6,
				models.TraitTechnicality: 0.2,
				models.TraitStorytelling: 0.95,
				models.TraitBrevity:      0.3,
			},
		},
		{
			Name:  "pragmatist",
			Voice: "Direct and actionable, every section ends with a takeaway.",
			Traits: map[string]float64{
				models.TraitFormality:    0.5,
				models.TraitHumor:        0.3,
				models.TraitTechnicality: 0.6,
				models.TraitStorytelling: 0.4,
				models.TraitBrevity:      0.85,
			},
		},
	}
}
