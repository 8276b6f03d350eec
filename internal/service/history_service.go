// backend-go/internal/service/history_service.go
package service

import (
	"context"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/cache"
	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/andresuchdata/pricetrack/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

type HistoryService struct {
	repo         repository.HistoryRepository
	cache        cache.HistoryCache
	fetchTimeout time.Duration
}

func NewHistoryService(repo repository.HistoryRepository, cacheImpl cache.HistoryCache, fetchTimeout time.Duration) *HistoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopHistoryCache()
	}
	return &HistoryService{repo: repo, cache: cacheImpl, fetchTimeout: fetchTimeout}
}

// GetHistory reads through the cache. Cache failures are logged and never fail the request.
func (s *HistoryService) GetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error) {
	if history, ok, err := s.cache.GetHistory(ctx, productID, rng); err == nil && ok {
		return history, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).Msg("history: cache get failed")
	}

	history, err := s.repo.GetHistory(ctx, productID, rng)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetHistory(ctx, productID, rng, history); err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).Msg("history: cache set failed")
	}

	return history, nil
}

// FetchHistory serves live dashboard sessions, bounding each fetch by the configured timeout.
func (s *HistoryService) FetchHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	return s.GetHistory(ctx, productID, rng)
}

func (s *HistoryService) ListProducts(ctx context.Context, search string, limit int) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, search, limit)
}

func (s *HistoryService) GetProduct(ctx context.Context, productID domain.ID) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, productID)
}

// Invalidate drops every cached history, used after imports change the data.
func (s *HistoryService) Invalidate(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}
