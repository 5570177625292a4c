package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"news_webhook/internal/config"
	"news_webhook/internal/domain"
)

// DispatchService runs one poll cycle: fetch the latest listing, pick out
// articles newer than the watermark, and fire a delivery for each.
//
// The watermark and the primed flag are mutated only from RunCycle, which
// the scheduler calls from a single goroutine; delivery goroutines never
// touch shared state, so no locks are needed.
type DispatchService struct {
	source Source
	sink   Sink
	logger *slog.Logger
	config config.PollConfig

	watermark time.Time
	primed    bool

	// launch starts a fire-and-forget delivery; overridden in tests.
	launch func(fn func())
}

func NewDispatchService(source Source, sink Sink, logger *slog.Logger, cfg config.PollConfig) *DispatchService {
	return &DispatchService{
		source: source,
		sink:   sink,
		logger: logger,
		config: cfg,
		launch: func(fn func()) { go fn() },
	}
}

// Watermark returns the highest timestamp among articles dispatched so far.
func (s *DispatchService) Watermark() time.Time {
	return s.watermark
}

// RunCycle executes one fetch-then-dispatch cycle. It never fails: a fetch
// error aborts only the current cycle, and delivery errors are caught per
// article, so one bad call cannot halt subsequent detection cycles.
func (s *DispatchService) RunCycle(ctx context.Context) *domain.CycleStats {
	startTime := time.Now()
	stats := &domain.CycleStats{}

	articles, err := s.source.FetchLatest(ctx)
	if err != nil {
		var terr *domain.TransportError
		if errors.As(err, &terr) && terr.RateLimited() {
			s.logger.Warn("news api rate limited, consider increasing the poll interval", "error", err)
		} else {
			s.logger.Error("fetch failed", "error", err)
		}
		return stats
	}

	stats.Fetched = len(articles)

	if !s.primed && !s.config.SendOnStartup {
		s.primeWatermark(articles)
		s.primed = true
		stats.Skipped = len(articles)
		stats.Duration = time.Since(startTime)
		s.logger.Info("watermark established, startup send disabled",
			"watermark", s.watermark,
			"skipped", stats.Skipped,
		)
		return stats
	}
	s.primed = true

	// Newest first. Ordering affects delivery order only: every article is
	// compared against the watermark snapshot taken below, not the running
	// value.
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	watermark := s.watermark

	for i := range articles {
		article := articles[i]
		if !article.PublishedAt.After(watermark) {
			// Strict comparison: an article published at exactly the
			// watermark is already-seen.
			stats.Skipped++
			continue
		}

		// Advance at dispatch time, not on delivery success: a delivery
		// that later fails is not retried on the next cycle (at-most-once).
		if article.PublishedAt.After(s.watermark) {
			s.watermark = article.PublishedAt
		}

		s.deliver(ctx, article)
		stats.Dispatched++
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("cycle completed",
		"fetched", stats.Fetched,
		"dispatched", stats.Dispatched,
		"skipped", stats.Skipped,
		"watermark", s.watermark,
		"duration", stats.Duration,
	)

	return stats
}

func (s *DispatchService) primeWatermark(articles []domain.Article) {
	for _, a := range articles {
		if a.PublishedAt.After(s.watermark) {
			s.watermark = a.PublishedAt
		}
	}
}

// deliver fires the webhook without awaiting it. The detached context keeps
// an in-flight post alive past the cycle that spawned it.
func (s *DispatchService) deliver(ctx context.Context, article domain.Article) {
	sendCtx := context.WithoutCancel(ctx)
	s.launch(func() {
		if err := s.sink.Send(sendCtx, &article); err != nil {
			s.logger.Error("webhook delivery failed",
				"external_id", article.ExternalID,
				"error", err,
			)
			return
		}
		s.logger.Info("delivered article",
			"external_id", article.ExternalID,
			"url", article.CanonicalURL,
		)
	})
}
