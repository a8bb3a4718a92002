package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/usage"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"log/slog"
)

// Sentinel errors for the publish stage.
var (
	// ErrDuplicatePost signals the target already holds a post with this
	// slug. The job skips instead of publishing twice; this is the
	// best-effort idempotency guarantee, not exactly-once delivery.
	ErrDuplicatePost = errors.New("duplicate post at publish target")

	// ErrPublish marks a final write failure; the draft is retained on the
	// job record for manual recovery.
	ErrPublish = errors.New("publish failed")
)

// Post is the rendered payload sent to the publish target.
type Post struct {
	Slug     string                  `json:"slug"`
	Title    string                  `json:"title"`
	HTML     string                  `json:"html"`
	Category string                  `json:"category"`
	Images   []models.GeneratedImage `json:"images"`
}

// Target is the blog platform boundary.
type Target interface {
	Publish(ctx context.Context, post Post) error
}

// HTTPTarget posts rendered articles to a JSON endpoint.
type HTTPTarget struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// TargetConfigFromEnv reads the publish endpoint settings.
func TargetConfigFromEnv() (endpoint, apiKey string) {
	return os.Getenv("PUBLISH_API_URL"), os.Getenv("PUBLISH_API_KEY")
}

// NewHTTPTarget builds a publish client for the given endpoint.
func NewHTTPTarget(endpoint, apiKey string) (*HTTPTarget, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("publish api url not configured")
	}
	return &HTTPTarget{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Publish sends the post. A 409 from the target means the slug already
// exists and maps to ErrDuplicatePost.
func (t *HTTPTarget) Publish(ctx context.Context, post Post) error {
	body, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPublish, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrDuplicatePost
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: target returned status %d", ErrPublish, resp.StatusCode)
	}
	return nil
}

// MockTarget records published posts for tests.
type MockTarget struct {
	Posts []Post
	Err   error
}

// Publish appends the post or returns the scripted error.
func (m *MockTarget) Publish(ctx context.Context, post Post) error {
	if m.Err != nil {
		return m.Err
	}
	for _, p := range m.Posts {
		if p.Slug == post.Slug {
			return ErrDuplicatePost
		}
	}
	m.Posts = append(m.Posts, post)
	return nil
}

// Service renders accepted drafts to HTML and writes them to the target.
type Service struct {
	target Target
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewService creates a publisher service.
func NewService(target Target, logger *slog.Logger) *Service {
	return &Service{
		target: target,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger: logger,
	}
}

// Publish renders and writes the final draft. The slug is derived from the
// title so re-running the same article is a duplicate-skip at the target.
func (s *Service) Publish(ctx context.Context, tracker *usage.Tracker, draft models.Draft, category models.Category, images []models.GeneratedImage) error {
	if err := tracker.Reserve(models.CallKindPublish, 1); err != nil {
		return err
	}

	html, err := s.render(draft, images)
	if err != nil {
		tracker.Release(models.CallKindPublish, 1)
		return fmt.Errorf("%w: render: %v", ErrPublish, err)
	}

	post := Post{
		Slug:     Slug(draft.Title),
		Title:    draft.Title,
		HTML:     html,
		Category: string(category),
		Images:   images,
	}

	if err := s.target.Publish(ctx, post); err != nil {
		tracker.Release(models.CallKindPublish, 1)
		return err
	}
	tracker.Record(models.CallKindPublish, 1)

	s.logger.Info("post published", "slug", post.Slug, "images", len(images))
	return nil
}

// render converts the markdown body to HTML, inserting image figures at
// their placement sections.
func (s *Service) render(draft models.Draft, images []models.GeneratedImage) (string, error) {
	body := draft.Body

	// Insert figure markup after the heading of each image's target section.
	sections := strings.Split(body, "\n## ")
	for _, img := range images {
		idx := img.PlacementIndex
		if idx >= len(sections) {
			idx = len(sections) - 1
		}
		if idx < 0 {
			idx = 0
		}
		figure := fmt.Sprintf("\n\n![%s](%s)\n", img.AltText, img.URL)
		if img.SourceAttribution != "" {
			figure += fmt.Sprintf("*Photo: %s*\n", img.SourceAttribution)
		}
		sections[idx] += figure
	}
	body = strings.Join(sections, "\n## ")

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a title into the idempotency key used at the target.
func Slug(title string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
