package hotel

import (
	"context"
	"sort"
	"sync"
	"time"

	"tripdesk/internal/obs"
	"tripdesk/pkg/logger"
)

// SearchStats counts provider outcomes for one fan-out.
type SearchStats struct {
	Queried   int
	Succeeded int
	Failed    int
}

// Orchestrator fans a search out to the requested provider adapters
// concurrently and merges their results. One provider failing never fails
// the aggregate search.
type Orchestrator struct {
	registry *Registry
	timeout  time.Duration
	metrics  *obs.Metrics
	logger   logger.Client
	now      func() time.Time
}

func NewOrchestrator(registry *Registry, timeout time.Duration, metrics *obs.Metrics, logger logger.Client) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

func (o *Orchestrator) validate(criteria SearchCriteria) error {
	if criteria.CityCode == "" {
		return NewValidationError("city code is required")
	}
	checkIn, err := time.Parse(DateLayout, criteria.CheckInDate)
	if err != nil {
		return NewValidationError("invalid check-in date")
	}
	checkOut, err := time.Parse(DateLayout, criteria.CheckOutDate)
	if err != nil {
		return NewValidationError("invalid check-out date")
	}
	if !checkIn.Before(checkOut) {
		return NewValidationError("check-in must be before check-out")
	}
	today := o.now().Truncate(24 * time.Hour)
	if checkIn.Before(today) {
		return NewValidationError("check-in date cannot be in the past")
	}
	if criteria.RoomCount < 1 {
		return NewValidationError("room count must be at least 1")
	}
	if criteria.GuestCount < 1 {
		return NewValidationError("guest count must be at least 1")
	}
	return nil
}

type providerOutcome struct {
	provider string
	hotels   []SearchResult
	err      error
}

// SearchHotels validates the criteria, queries every resolved adapter
// concurrently and returns the ranked union of all successful results. An
// empty result list is success, not an error.
func (o *Orchestrator) SearchHotels(ctx context.Context, criteria SearchCriteria) ([]SearchResult, SearchStats, error) {
	if err := o.validate(criteria); err != nil {
		return nil, SearchStats{}, err
	}

	adapters := o.registry.Resolve(criteria.Providers)
	if len(adapters) == 0 {
		return nil, SearchStats{}, NewValidationError("no valid hotel providers specified")
	}

	outcomes := make([]providerOutcome, len(adapters))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			outcomes[i] = o.searchOne(ctx, p, criteria)
		}(i, adapter)
	}
	wg.Wait()

	stats := SearchStats{Queried: len(adapters)}
	var combined []SearchResult
	for _, out := range outcomes {
		if out.err != nil {
			stats.Failed++
			o.logger.Error("provider search failed",
				logger.Field{Key: "provider", Value: out.provider},
				logger.Field{Key: "err", Value: out.err},
			)
			continue
		}
		stats.Succeeded++
		combined = append(combined, out.hotels...)
	}

	// No cross-provider dedup: duplicate hotel/room price points feed the
	// price tier spread downstream.
	combined = filterByMaxPrice(combined, criteria.Preferences)
	rankResults(combined, criteria.Preferences)
	return combined, stats, nil
}

func (o *Orchestrator) searchOne(ctx context.Context, p Provider, criteria SearchCriteria) providerOutcome {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	hotels, err := p.Search(ctx, criteria, criteria.Preferences)
	o.metrics.ObserveProviderLatency(p.Name(), time.Since(start).Seconds())
	if err != nil {
		o.metrics.IncProviderFailure(p.Name())
		return providerOutcome{provider: p.Name(), err: err}
	}
	return providerOutcome{provider: p.Name(), hotels: hotels}
}

// filterByMaxPrice drops offers above the budget cap. Max price is a hard
// constraint; minimum rating only reorders.
func filterByMaxPrice(results []SearchResult, prefs *Preferences) []SearchResult {
	if prefs == nil || prefs.MaxPrice <= 0 {
		return results
	}
	filtered := results[:0]
	for _, r := range results {
		if r.Price <= prefs.MaxPrice {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// rankResults sorts in place: results meeting the minimum-rating preference
// first, then ascending price, then descending rating. The sort is stable
// so identical inputs always rank identically.
func rankResults(results []SearchResult, prefs *Preferences) {
	minRating := 0.0
	if prefs != nil {
		minRating = prefs.MinRating
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if minRating > 0 {
			aMeets, bMeets := a.Rating >= minRating, b.Rating >= minRating
			if aMeets != bMeets {
				return aMeets
			}
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.Rating > b.Rating
	})
}
