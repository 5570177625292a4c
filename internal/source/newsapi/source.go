package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"news_webhook/internal/domain"
)

const SourceID = "newsapi"

// Config holds news API source configuration.
type Config struct {
	BaseURL  string
	Keys     []string
	Limit    int
	Language string
	Timeout  time.Duration
}

// Source fetches the latest articles from the news listing API.
type Source struct {
	httpClient *http.Client
	baseURL    string
	limit      int
	language   string
	ring       *keyRing
	logger     *slog.Logger
}

// New creates a new news API source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  cfg.BaseURL,
		limit:    cfg.Limit,
		language: cfg.Language,
		ring:     newKeyRing(cfg.Keys),
		logger:   logger.With("source", SourceID),
	}
}

// FetchLatest fetches the latest article listing. An empty list is a valid
// result. Non-2xx responses and network failures come back as
// *domain.TransportError; 429 is distinguishable via RateLimited.
func (s *Source) FetchLatest(ctx context.Context) ([]domain.Article, error) {
	reqURL := fmt.Sprintf("%s?limit=%d&language=%s", s.baseURL, s.limit, url.QueryEscape(s.language))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsWebhook/1.0")
	req.Header.Set("X-API-Key", s.ring.next())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: "fetch latest", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.TransportError{Op: "fetch latest", StatusCode: resp.StatusCode}
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return s.transform(apiResp.Results), nil
}

func (s *Source) transform(results []Result) []domain.Article {
	articles := make([]domain.Article, 0, len(results))

	for _, r := range results {
		ts := r.timestamp()
		if ts == 0 {
			s.logger.Warn("skipping record without timestamp", "external_id", r.ID)
			continue
		}

		articles = append(articles, domain.Article{
			ExternalID:   r.ID,
			Title:        r.Title,
			Subtitle:     r.Subtitle,
			Body:         r.Body,
			CanonicalURL: r.URL,
			PublishedAt:  time.Unix(ts, 0).UTC(),
		})
	}

	return articles
}
