package styles

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AUTOPRESS/autopress/internal/models"
)

func TestBlendWeightedAverage(t *testing.T) {
	a := models.StyleProfile{
		Name:   "a",
		Traits: map[string]float64{models.TraitFormality: 1.0, models.TraitHumor: 0.0},
	}
	b := models.StyleProfile{
		Name:   "b",
		Traits: map[string]float64{models.TraitFormality: 0.0, models.TraitHumor: 1.0},
	}

	blended, err := Blend([]Weighted{
		{Profile: a, Weight: 3},
		{Profile: b, Weight: 1},
	})
	if err != nil {
		t.Fatalf("Blend returned error: %v", err)
	}

	if got := blended.Traits[models.TraitFormality]; math.Abs(got-0.75) > 1e-9 {
		t.Errorf("formality = %v, want 0.75", got)
	}
	if got := blended.Traits[models.TraitHumor]; math.Abs(got-0.25) > 1e-9 {
		t.Errorf("humor = %v, want 0.25", got)
	}
	if blended.Name != "a+b" {
		t.Errorf("blended name = %q, want a+b (descending weight order)", blended.Name)
	}
}

func TestBlendSingleProfileIsIdentity(t *testing.T) {
	p := DefaultProfiles()[0]
	blended, err := Blend([]Weighted{{Profile: p, Weight: 0.4}})
	if err != nil {
		t.Fatalf("Blend returned error: %v", err)
	}
	for trait, value := range p.Traits {
		if math.Abs(blended.Traits[trait]-value) > 1e-9 {
			t.Errorf("trait %s = %v, want %v", trait, blended.Traits[trait], value)
		}
	}
}

func TestBlendErrors(t *testing.T) {
	p := DefaultProfiles()[0]
	tests := []struct {
		name  string
		parts []Weighted
	}{
		{name: "empty", parts: nil},
		{name: "negative weight", parts: []Weighted{{Profile: p, Weight: -1}}},
		{name: "zero sum", parts: []Weighted{{Profile: p, Weight: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Blend(tt.parts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseBlendSpec(t *testing.T) {
	profiles := DefaultProfiles()

	parts, err := ParseBlendSpec("analyst:0.6, pragmatist:0.4", profiles)
	if err != nil {
		t.Fatalf("ParseBlendSpec returned error: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("parsed %d parts, want 2", len(parts))
	}
	if parts[0].Profile.Name != "analyst" || parts[0].Weight != 0.6 {
		t.Errorf("part 0 = (%q, %v), want (analyst, 0.6)", parts[0].Profile.Name, parts[0].Weight)
	}

	// Empty spec blends everything equally.
	parts, err = ParseBlendSpec("", profiles)
	if err != nil {
		t.Fatalf("ParseBlendSpec(\"\") returned error: %v", err)
	}
	if len(parts) != len(profiles) {
		t.Errorf("empty spec parsed %d parts, want %d", len(parts), len(profiles))
	}

	if _, err := ParseBlendSpec("nobody:1", profiles); err == nil {
		t.Error("expected error for unknown profile")
	}
	if _, err := ParseBlendSpec("analyst", profiles); err == nil {
		t.Error("expected error for missing weight")
	}
}

func TestDescribeMentionsTraits(t *testing.T) {
	p := models.StyleProfile{
		Name:   "tester",
		Voice:  "Plain and direct.",
		Traits: map[string]float64{models.TraitBrevity: 0.9, models.TraitHumor: 0.1},
	}
	out := Describe(p)
	if !strings.Contains(out, "tester") || !strings.Contains(out, "Plain and direct.") {
		t.Errorf("Describe missing name or voice: %q", out)
	}
	if !strings.Contains(out, models.TraitBrevity+": very high") {
		t.Errorf("Describe missing brevity level: %q", out)
	}
	if !strings.Contains(out, models.TraitHumor+": low") {
		t.Errorf("Describe missing humor level: %q", out)
	}
}

func TestLoadProfilesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	content := `[{"name":"custom","voice":"Curt.","traits":{"brevity":0.8}}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles returned error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "custom" {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}

	// No path falls back to the built-ins.
	defaults, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles(\"\") returned error: %v", err)
	}
	if len(defaults) != len(DefaultProfiles()) {
		t.Errorf("default profiles = %d, want %d", len(defaults), len(DefaultProfiles()))
	}

	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
