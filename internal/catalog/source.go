package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aaronzipp/retroboard/internal/models"
)

// ErrSessionNotFound is returned when the catalog does not know a session
var ErrSessionNotFound = errors.New("session not found")

// Source resolves the metadata a room is bootstrapped from
type Source interface {
	Lookup(ctx context.Context, sessionID string) (models.RoomConfig, error)
}

// TemplateSource accepts every session id and configures it from the
// default template
type TemplateSource struct {
	Templates *Templates
}

func (s TemplateSource) Lookup(_ context.Context, sessionID string) (models.RoomConfig, error) {
	return s.Templates.Config(sessionID, s.Templates.DefaultName()), nil
}

// sessionMetadata is the catalog service's session document
type sessionMetadata struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Template    string         `json:"template"`
	Stages      []models.Stage `json:"stages"`
	VotingLimit int            `json:"votingLimit"`
}

// HTTPSource fetches session metadata from GET {BaseURL}/retros/{id}.
// Columns and icebreaker questions come from the template the session names.
type HTTPSource struct {
	BaseURL   string
	Client    *http.Client
	Templates *Templates
}

// NewHTTPSource creates a catalog client with a bounded request timeout
func NewHTTPSource(baseURL string, templates *Templates, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    &http.Client{Timeout: timeout},
		Templates: templates,
	}
}

func (s *HTTPSource) Lookup(ctx context.Context, sessionID string) (models.RoomConfig, error) {
	endpoint := s.BaseURL + "/retros/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.RoomConfig{}, fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return models.RoomConfig{}, fmt.Errorf("fetching session %s: %w", sessionID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.RoomConfig{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return models.RoomConfig{}, fmt.Errorf("fetching session %s: unexpected status %d", sessionID, resp.StatusCode)
	}

	var meta sessionMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&meta); err != nil {
		return models.RoomConfig{}, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}

	cfg := s.Templates.Config(sessionID, meta.Template)
	if meta.Template != "" {
		cfg.Template = meta.Template
	}
	if meta.Title != "" {
		cfg.Title = meta.Title
	}
	if len(meta.Stages) > 0 {
		cfg.Stages = meta.Stages
	}
	if meta.VotingLimit > 0 {
		cfg.VotingLimit = meta.VotingLimit
	}
	return cfg, nil
}
