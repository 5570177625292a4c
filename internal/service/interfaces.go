package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_webhook/internal/domain"
)

type Source interface {
	FetchLatest(ctx context.Context) ([]domain.Article, error)
}

type Sink interface {
	Send(ctx context.Context, article *domain.Article) error
}
