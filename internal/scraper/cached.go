package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/baxromumarov/hh-collector/internal/cache"
)

// CachedEmployerSource is a read-through cache in front of another EmployerSource.
// Cache failures are logged and fall through to the wrapped source.
type CachedEmployerSource struct {
	next   EmployerSource
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedEmployerSource(next EmployerSource, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedEmployerSource {
	return &CachedEmployerSource{next: next, cache: c, ttl: ttl, logger: logger}
}

func employerKey(id int) string {
	return fmt.Sprintf("hh:employer:%d", id)
}

func (s *CachedEmployerSource) Employer(ctx context.Context, id int) (*RawEmployer, error) {
	key := employerKey(id)

	var cached RawEmployer
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		s.logger.Debug("cache hit", zap.Int("employer_id", id))
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		s.logger.Warn("cache error", zap.Int("employer_id", id), zap.Error(err))
	}

	emp, err := s.next.Employer(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, *emp, s.ttl); err != nil {
		s.logger.Warn("failed to cache employer", zap.Int("employer_id", id), zap.Error(err))
	}
	return emp, nil
}
