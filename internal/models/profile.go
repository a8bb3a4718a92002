package models

// StyleProfile describes one writer's tone and structure traits. Profiles are
// static configuration; blending is a pure weighted average over trait values.
type StyleProfile struct {
	Name   string             `json:"name"`
	Voice  string             `json:"voice"` // short free-text description fed to generation
	Traits map[string]float64 `json:"traits"`
}

// Standard trait names shared by all profiles. Values run 0-1.
const (
	TraitFormality    = "formality"
	TraitHumor        = "humor"
	TraitTechnicality = "technicality"
	TraitStorytelling = "storytelling"
	TraitBrevity      = "brevity"
)
