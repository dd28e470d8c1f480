package hotel

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tripdesk/internal/obs"
	"tripdesk/pkg/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...logger.Field) {}
func (nopLogger) Info(msg string, fields ...logger.Field)  {}
func (nopLogger) Warn(msg string, fields ...logger.Field)  {}
func (nopLogger) Error(msg string, fields ...logger.Field) {}

func newTestMetrics() *obs.Metrics {
	return obs.NewMetrics(prometheus.NewRegistry())
}

// fakeProvider scripts one adapter's behavior and counts its calls.
type fakeProvider struct {
	name    string
	results []SearchResult
	err     error

	confirmResult *BookingResult
	confirmErr    error
	cancelResult  *CancellationResult
	cancelErr     error

	mu           sync.Mutex
	searchCalls  int
	confirmCalls int
	cancelCalls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, criteria SearchCriteria, prefs *Preferences) ([]SearchResult, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeProvider) ConfirmBooking(ctx context.Context, details BookingDetails) (*BookingResult, error) {
	f.mu.Lock()
	f.confirmCalls++
	f.mu.Unlock()
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return f.confirmResult, nil
}

func (f *fakeProvider) CancelBooking(ctx context.Context, confirmationRef, reason string) (*CancellationResult, error) {
	f.mu.Lock()
	f.cancelCalls++
	f.mu.Unlock()
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.cancelResult, nil
}

func (f *fakeProvider) GetConfirmation(ctx context.Context, confirmationRef string) (*ConfirmationDetails, error) {
	return &ConfirmationDetails{ConfirmationRef: confirmationRef}, nil
}

// memorySearchResultStore is an in-memory SearchResultStore with the same
// consume-once behavior as the SQL store.
type memorySearchResultStore struct {
	mu       sync.Mutex
	staged   map[string]SearchResult
	consumed map[string]bool
	stageErr error
}

func newMemorySearchResultStore() *memorySearchResultStore {
	return &memorySearchResultStore{
		staged:   make(map[string]SearchResult),
		consumed: make(map[string]bool),
	}
}

func (s *memorySearchResultStore) StageResults(ctx context.Context, results []SearchResult) error {
	if s.stageErr != nil {
		return s.stageErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		if _, ok := s.staged[r.SearchReference]; !ok {
			s.staged[r.SearchReference] = r
		}
	}
	return nil
}

func (s *memorySearchResultStore) FindByReference(ctx context.Context, searchReference string) (*SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.staged[searchReference]
	if !ok {
		return nil, ErrReferenceNotFound
	}
	return &r, nil
}

func (s *memorySearchResultStore) consume(reference string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.staged[reference]; !ok || s.consumed[reference] {
		return false
	}
	s.consumed[reference] = true
	return true
}

// memoryConfirmationStore is an in-memory ConfirmationStore backed by the
// search result store's consume flag.
type memoryConfirmationStore struct {
	mu            sync.Mutex
	results       *memorySearchResultStore
	confirmations map[string]*BookingConfirmation
	cancellations []CancellationRecord
	nextID        int64
}

func newMemoryConfirmationStore(results *memorySearchResultStore) *memoryConfirmationStore {
	return &memoryConfirmationStore{
		results:       results,
		confirmations: make(map[string]*BookingConfirmation),
	}
}

func (s *memoryConfirmationStore) CreateWithReferenceConsume(ctx context.Context, confirmation *BookingConfirmation) error {
	if !s.results.consume(confirmation.SearchReference) {
		return ErrReferenceConsumed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	confirmation.ID = s.nextID
	copied := *confirmation
	s.confirmations[confirmation.ConfirmationReference] = &copied
	return nil
}

func (s *memoryConfirmationStore) FindByReference(ctx context.Context, confirmationReference string) (*BookingConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.confirmations[confirmationReference]
	if !ok {
		return nil, ErrConfirmationNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *memoryConfirmationStore) UpdateStatus(ctx context.Context, confirmationReference string, status BookingStatus, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.confirmations[confirmationReference]
	if !ok {
		return ErrConfirmationNotFound
	}
	c.Status = status
	c.PaymentID = paymentID
	return nil
}

func (s *memoryConfirmationStore) FindByRoutes(ctx context.Context, itineraryPlanID int64, routeIDs []int64) ([]BookingConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []BookingConfirmation
	for _, c := range s.confirmations {
		if c.ItineraryPlanID != itineraryPlanID {
			continue
		}
		for _, id := range routeIDs {
			if c.RouteID == id {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (s *memoryConfirmationStore) RecordCancellation(ctx context.Context, record CancellationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancellations = append(s.cancellations, record)
	return nil
}

// memoryCityStore serves a fixed city table.
type memoryCityStore struct {
	cities []CityRef
}

func (s *memoryCityStore) AllCities(ctx context.Context) ([]CityRef, error) {
	return s.cities, nil
}

// memoryCache is an in-memory cache.Cache.
type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]string)}
}

func (c *memoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *memoryCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
	return nil
}

// fakeIDGen returns sequential ids.
type fakeIDGen struct {
	mu   sync.Mutex
	next int64
}

func (g *fakeIDGen) GenerateID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(DateLayout)
}
