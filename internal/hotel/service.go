package hotel

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tripdesk/internal/obs"
	"tripdesk/pkg/cache"
	"tripdesk/pkg/logger"
)

// Searcher runs one validated hotel search and returns the ranked union of
// provider results.
type Searcher interface {
	SearchHotels(ctx context.Context, criteria SearchCriteria) ([]SearchResult, SearchStats, error)
}

// Service wraps the search orchestrator with a redis response cache and
// stages every fresh result so its search reference can be confirmed later.
type Service struct {
	searcher Searcher
	results  SearchResultStore
	cache    cache.Cache
	ttl      time.Duration
	metrics  *obs.Metrics
	logger   logger.Client
}

func NewService(searcher Searcher, results SearchResultStore, cache cache.Cache, ttlMinutes int, metrics *obs.Metrics, logger logger.Client) *Service {
	return &Service{
		searcher: searcher,
		results:  results,
		cache:    cache,
		ttl:      time.Duration(ttlMinutes) * time.Minute,
		metrics:  metrics,
		logger:   logger,
	}
}

// generateCacheKey creates a deterministic key from search parameters.
// Providers and preferences are part of the key: two searches differing only
// in provider selection must not share a cache entry.
func (s *Service) generateCacheKey(criteria SearchCriteria) string {
	prefs := ""
	if criteria.Preferences != nil {
		prefs = fmt.Sprintf("%.1f:%.2f:%s",
			criteria.Preferences.MinRating,
			criteria.Preferences.MaxPrice,
			strings.Join(criteria.Preferences.Facilities, ","),
		)
	}
	key := fmt.Sprintf("hotel:%s:%s:%s:%d:%d:%s:%s",
		criteria.CityCode,
		criteria.CheckInDate,
		criteria.CheckOutDate,
		criteria.RoomCount,
		criteria.GuestCount,
		strings.Join(criteria.Providers, ","),
		prefs,
	)

	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("hotel:search:%x", hash[:16])
}

func (s *Service) SearchHotels(ctx context.Context, criteria SearchCriteria) (*SearchResponse, error) {
	s.metrics.IncSearch()
	cacheKey := s.generateCacheKey(criteria)

	cached, err := s.cache.Get(ctx, cacheKey)
	if err == nil && cached != "" {
		var response SearchResponse
		if err := json.Unmarshal([]byte(cached), &response); err == nil {
			s.logger.Info("Cache hit for hotel search", logger.Field{Key: "cache_key", Value: cacheKey})
			s.metrics.IncCacheHit()
			response.Metadata.CacheHit = true
			response.Metadata.CacheKey = cacheKey
			return &response, nil
		}
		s.logger.Error("Failed to unmarshal cached search", logger.Field{Key: "err", Value: err})
	}

	s.logger.Info("Cache miss for hotel search", logger.Field{Key: "cache_key", Value: cacheKey})

	startTime := time.Now()
	hotels, stats, err := s.searcher.SearchHotels(ctx, criteria)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Criteria: criteria,
		Metadata: SearchMetadata{
			TotalResults:       uint32(len(hotels)),
			ProvidersQueried:   uint32(stats.Queried),
			ProvidersSucceeded: uint32(stats.Succeeded),
			ProvidersFailed:    uint32(stats.Failed),
			SearchTimeMs:       uint32(time.Since(startTime).Milliseconds()),
			CacheKey:           cacheKey,
			CacheHit:           false,
		},
		Hotels: hotels,
	}

	if err := s.results.StageResults(ctx, hotels); err != nil {
		s.logger.Error("Failed to stage search results",
			logger.Field{Key: "err", Value: err},
			logger.Field{Key: "cache_key", Value: cacheKey},
		)
		return nil, NewPersistenceError(err)
	}

	responseBytes, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal search response", logger.Field{Key: "err", Value: err})
		return response, nil // Return response even if caching fails
	}
	if err := s.cache.Set(ctx, cacheKey, string(responseBytes), s.ttl); err != nil {
		s.logger.Error("Failed to cache search response", logger.Field{Key: "err", Value: err})
	}

	return response, nil
}

// InvalidateCache manually drops the cached response for one criteria set.
func (s *Service) InvalidateCache(ctx context.Context, criteria SearchCriteria) error {
	cacheKey := s.generateCacheKey(criteria)
	s.logger.Info("Invalidating search cache", logger.Field{Key: "cache_key", Value: cacheKey})
	return s.cache.Del(ctx, cacheKey)
}
