package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"news_webhook/internal/domain"
)

// Conversation ids are drawn uniformly from this range. They only
// decorrelate otherwise-identical payloads at the destination and are never
// reused for dedup.
const (
	minConversationID = 1000
	maxConversationID = 999999999
)

type Config struct {
	URL              string
	SourceTag        string
	MaxTextLength    int
	TruncationMarker string
}

// Webhook delivers article notifications to a fixed HTTP destination.
type Webhook struct {
	httpClient *http.Client
	url        string
	sourceTag  string
	maxLen     int
	marker     string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Webhook {
	return &Webhook{
		httpClient: &http.Client{},
		url:        cfg.URL,
		sourceTag:  cfg.SourceTag,
		maxLen:     cfg.MaxTextLength,
		marker:     cfg.TruncationMarker,
		logger:     logger,
	}
}

// Payload is the notification shape the destination accepts.
type Payload struct {
	Timestamp      string `json:"timestamp"`
	XID            string `json:"xId"`
	ConversationID string `json:"conversationId"`
	TweetID        string `json:"tweetId"`
	Text           string `json:"text"`
}

// Send delivers one article notification. The response body is not
// inspected; any non-2xx status is a transport error.
func (w *Webhook) Send(ctx context.Context, article *domain.Article) error {
	payload := Payload{
		Timestamp:      article.PublishedAt.UTC().Format(time.RFC3339),
		XID:            w.sourceTag,
		ConversationID: strconv.Itoa(newConversationID()),
		TweetID:        article.CanonicalURL,
		Text:           w.composeText(article),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "send webhook", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.TransportError{Op: "send webhook", StatusCode: resp.StatusCode}
	}

	w.logger.Debug("webhook accepted", "external_id", article.ExternalID)

	return nil
}

// composeText joins title, optional subtitle and body into the outbound
// text, truncating to the configured width with the marker appended.
func (w *Webhook) composeText(article *domain.Article) string {
	var sb strings.Builder
	sb.WriteString(article.Title)
	if article.Subtitle != nil && *article.Subtitle != "" {
		sb.WriteString(" — ")
		sb.WriteString(*article.Subtitle)
	}
	if article.Body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(article.Body)
	}

	text := sb.String()
	if w.maxLen > 0 && runewidth.StringWidth(text) > w.maxLen {
		text = runewidth.Truncate(text, w.maxLen, "") + w.marker
	}
	return text
}

func newConversationID() int {
	return minConversationID + rand.IntN(maxConversationID-minConversationID+1)
}
