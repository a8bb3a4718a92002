package images

import (
	"context"
	"strings"

	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"log/slog"
)

// Service selects and places stock images on an accepted draft. It fails
// soft: an unreachable image source yields an empty slice, never a job error.
type Service struct {
	client Client
	logger *slog.Logger
}

// NewService creates an image service.
func NewService(client Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// AttachImages picks up to count images relevant to the research keywords and
// spreads their placement across the draft's sections. Duplicate URLs within
// one job are dropped.
func (s *Service) AttachImages(ctx context.Context, tracker *usage.Tracker, draft models.Draft, bundle models.ResearchBundle, count int) []models.GeneratedImage {
	if count <= 0 {
		return []models.GeneratedImage{}
	}

	if err := tracker.Reserve(models.CallKindImage, 1); err != nil {
		s.logger.Warn("image lookup skipped, quota exhausted", "job_id", draft.JobID, "error", err)
		return []models.GeneratedImage{}
	}

	query := buildQuery(draft, bundle)
	results, err := s.client.Search(ctx, query, count*2)
	if err != nil {
		tracker.Release(models.CallKindImage, 1)
		s.logger.Warn("image lookup failed, publishing without images",
			"job_id", draft.JobID,
			"error", err)
		return []models.GeneratedImage{}
	}
	tracker.Record(models.CallKindImage, 1)

	sections := draft.Sections()
	if len(sections) == 0 {
		sections = []string{draft.Body}
	}

	seen := make(map[string]bool)
	attached := make([]models.GeneratedImage, 0, count)
	for _, img := range results {
		if len(attached) == count {
			break
		}
		if img.URL == "" || seen[img.URL] {
			continue
		}
		seen[img.URL] = true

		attached = append(attached, models.GeneratedImage{
			URL:               img.URL,
			AltText:           altText(img, draft),
			SourceAttribution: img.Photographer,
			PlacementIndex:    placement(len(attached), count, len(sections)),
		})
	}

	s.logger.Info("images attached", "job_id", draft.JobID, "count", len(attached))
	return attached
}

func buildQuery(draft models.Draft, bundle models.ResearchBundle) string {
	if len(bundle.Keywords) >= 2 {
		return strings.Join(bundle.Keywords[:2], " ")
	}
	if len(bundle.Keywords) == 1 {
		return bundle.Keywords[0]
	}
	return draft.Title
}

func altText(img StockImage, draft models.Draft) string {
	if img.Description != "" {
		return img.Description
	}
	return "Illustration for " + draft.Title
}

// placement spreads the i-th of n images evenly across the sections instead
// of stacking everything at the top.
func placement(i, n, sections int) int {
	if sections <= 1 || n <= 0 {
		return 0
	}
	idx := (i + 1) * sections / (n + 1)
	if idx >= sections {
		idx = sections - 1
	}
	return idx
}
