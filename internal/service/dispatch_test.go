package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"news_webhook/internal/config"
	"news_webhook/internal/domain"
	"news_webhook/internal/service/mocks"
)

type DispatchServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source *mocks.MockSource
	sink   *mocks.MockSink

	service *DispatchService
	cfg     config.PollConfig
	logger  *slog.Logger
}

func (s *DispatchServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.sink = mocks.NewMockSink(s.ctrl)

	s.cfg = config.PollConfig{
		Interval:      config.Duration(time.Minute),
		SendOnStartup: true,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewDispatchService(s.source, s.sink, s.logger, s.cfg)
	// Run deliveries synchronously so expectations are checked on this goroutine.
	s.service.launch = func(fn func()) { fn() }
}

func (s *DispatchServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestDispatchServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DispatchServiceTestSuite))
}

func article(id string, ts int64) domain.Article {
	return domain.Article{
		ExternalID:   id,
		Title:        "Title " + id,
		Body:         "Body " + id,
		CanonicalURL: "https://example.com/" + id,
		PublishedAt:  time.Unix(ts, 0).UTC(),
	}
}

func (s *DispatchServiceTestSuite) TestRunCycle_DeliversNewArticlesNewestFirst() {
	ctx := context.Background()
	articles := []domain.Article{article("a", 100), article("b", 200)}

	s.source.EXPECT().FetchLatest(ctx).Return(articles, nil)

	gomock.InOrder(
		s.sink.EXPECT().Send(gomock.Any(), matchID("b")).Return(nil),
		s.sink.EXPECT().Send(gomock.Any(), matchID("a")).Return(nil),
	)

	stats := s.service.RunCycle(ctx)

	s.Equal(2, stats.Fetched)
	s.Equal(2, stats.Dispatched)
	s.Equal(0, stats.Skipped)
	s.Equal(time.Unix(200, 0).UTC(), s.service.Watermark())
}

func (s *DispatchServiceTestSuite) TestRunCycle_SecondIdenticalFetchDeliversNothing() {
	ctx := context.Background()
	articles := []domain.Article{article("a", 100), article("b", 200)}

	s.source.EXPECT().FetchLatest(ctx).Return(articles, nil).Times(2)
	s.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	s.service.RunCycle(ctx)
	stats := s.service.RunCycle(ctx)

	s.Equal(2, stats.Fetched)
	s.Equal(0, stats.Dispatched)
	s.Equal(2, stats.Skipped)
	s.Equal(time.Unix(200, 0).UTC(), s.service.Watermark())
}

func (s *DispatchServiceTestSuite) TestRunCycle_TimestampTieIsSkipped() {
	ctx := context.Background()

	s.source.EXPECT().FetchLatest(ctx).Return([]domain.Article{article("a", 200)}, nil)
	s.sink.EXPECT().Send(gomock.Any(), matchID("a")).Return(nil)
	s.service.RunCycle(ctx)

	// Same timestamp as the watermark: strictly newer is required.
	s.source.EXPECT().FetchLatest(ctx).Return([]domain.Article{article("b", 200)}, nil)
	stats := s.service.RunCycle(ctx)

	s.Equal(0, stats.Dispatched)
	s.Equal(1, stats.Skipped)
	s.Equal(time.Unix(200, 0).UTC(), s.service.Watermark())
}

func (s *DispatchServiceTestSuite) TestRunCycle_RateLimitedFetchLeavesWatermarkUntouched() {
	ctx := context.Background()

	s.source.EXPECT().FetchLatest(ctx).Return(nil, &domain.TransportError{Op: "fetch latest", StatusCode: 429})

	stats := s.service.RunCycle(ctx)

	s.Equal(0, stats.Fetched)
	s.Equal(0, stats.Dispatched)
	s.True(s.service.Watermark().IsZero())
}

func (s *DispatchServiceTestSuite) TestRunCycle_FetchErrorAbortsOnlyCurrentCycle() {
	ctx := context.Background()

	s.source.EXPECT().FetchLatest(ctx).Return(nil, errors.New("connection refused"))
	stats := s.service.RunCycle(ctx)
	s.Equal(0, stats.Dispatched)

	s.source.EXPECT().FetchLatest(ctx).Return([]domain.Article{article("a", 100)}, nil)
	s.sink.EXPECT().Send(gomock.Any(), matchID("a")).Return(nil)
	stats = s.service.RunCycle(ctx)
	s.Equal(1, stats.Dispatched)
}

func (s *DispatchServiceTestSuite) TestRunCycle_DeliveryFailureDoesNotAffectSiblings() {
	ctx := context.Background()
	articles := []domain.Article{article("a", 100), article("b", 200)}

	s.source.EXPECT().FetchLatest(ctx).Return(articles, nil)

	gomock.InOrder(
		s.sink.EXPECT().Send(gomock.Any(), matchID("b")).Return(&domain.TransportError{Op: "send webhook", StatusCode: 500}),
		s.sink.EXPECT().Send(gomock.Any(), matchID("a")).Return(nil),
	)

	stats := s.service.RunCycle(ctx)

	s.Equal(2, stats.Dispatched)
	// Failed delivery still advanced the watermark: at-most-once, no retry.
	s.Equal(time.Unix(200, 0).UTC(), s.service.Watermark())
}

func (s *DispatchServiceTestSuite) TestRunCycle_StartupPrimingSkipsFirstCycle() {
	ctx := context.Background()
	s.cfg.SendOnStartup = false
	s.service = NewDispatchService(s.source, s.sink, s.logger, s.cfg)
	s.service.launch = func(fn func()) { fn() }

	s.source.EXPECT().FetchLatest(ctx).Return([]domain.Article{article("a", 100), article("b", 200)}, nil)

	stats := s.service.RunCycle(ctx)

	s.Equal(2, stats.Fetched)
	s.Equal(0, stats.Dispatched)
	s.Equal(2, stats.Skipped)
	s.Equal(time.Unix(200, 0).UTC(), s.service.Watermark())

	s.source.EXPECT().FetchLatest(ctx).Return([]domain.Article{article("c", 300)}, nil)
	s.sink.EXPECT().Send(gomock.Any(), matchID("c")).Return(nil)

	stats = s.service.RunCycle(ctx)
	s.Equal(1, stats.Dispatched)
	s.Equal(time.Unix(300, 0).UTC(), s.service.Watermark())
}

func (s *DispatchServiceTestSuite) TestRunCycle_EmptyFetchIsNotAnError() {
	ctx := context.Background()

	s.source.EXPECT().FetchLatest(ctx).Return([]domain.Article{}, nil)

	stats := s.service.RunCycle(ctx)

	s.Equal(0, stats.Fetched)
	s.Equal(0, stats.Dispatched)
	s.True(s.service.Watermark().IsZero())
}

func (s *DispatchServiceTestSuite) TestRunCycle_WatermarkIsMonotonic() {
	ctx := context.Background()

	s.source.EXPECT().FetchLatest(ctx).Return([]domain.Article{article("a", 300)}, nil)
	s.sink.EXPECT().Send(gomock.Any(), matchID("a")).Return(nil)
	s.service.RunCycle(ctx)

	// Older items only: watermark must not go backwards.
	s.source.EXPECT().FetchLatest(ctx).Return([]domain.Article{article("b", 100)}, nil)
	s.service.RunCycle(ctx)

	s.Equal(time.Unix(300, 0).UTC(), s.service.Watermark())
}

// matchID matches a *domain.Article by external id.
func matchID(id string) gomock.Matcher {
	return articleIDMatcher{id: id}
}

type articleIDMatcher struct {
	id string
}

func (m articleIDMatcher) Matches(x any) bool {
	a, ok := x.(*domain.Article)
	return ok && a.ExternalID == m.id
}

func (m articleIDMatcher) String() string {
	return "article with external id " + m.id
}
