package hotel

import (
	"context"
	"strings"
	"sync"

	"tripdesk/pkg/logger"
)

// CityRef maps one destination city to each provider's city code. Codes may
// be empty for providers that do not cover the city.
type CityRef struct {
	ID                int64
	Name              string
	TBOCityCode       string
	ResAvenueCityCode string
	HobseCityCode     string
}

// Code returns this city's code for the given provider id, empty when the
// provider has no mapping.
func (c CityRef) Code(providerID string) string {
	switch providerID {
	case ProviderTBO:
		return c.TBOCityCode
	case ProviderResAvenue:
		return c.ResAvenueCityCode
	case ProviderHobse:
		return c.HobseCityCode
	}
	return ""
}

type CityStore interface {
	AllCities(ctx context.Context) ([]CityRef, error)
}

// CityResolver maps free-text destinations to city reference rows. The city
// table is read-mostly; it is loaded once and shared across searches.
type CityResolver struct {
	store  CityStore
	logger logger.Client

	mu     sync.RWMutex
	loaded bool
	byName map[string]CityRef
	cities []CityRef
}

func NewCityResolver(store CityStore, logger logger.Client) *CityResolver {
	return &CityResolver{store: store, logger: logger}
}

func (r *CityResolver) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	return r.Reload(ctx)
}

// Reload refreshes the in-memory city table, e.g. after a master-data sync.
func (r *CityResolver) Reload(ctx context.Context) error {
	cities, err := r.store.AllCities(ctx)
	if err != nil {
		return err
	}

	byName := make(map[string]CityRef, len(cities))
	for _, c := range cities {
		byName[strings.ToLower(strings.TrimSpace(c.Name))] = c
	}

	r.mu.Lock()
	r.byName = byName
	r.cities = cities
	r.loaded = true
	r.mu.Unlock()

	r.logger.Info("city reference table loaded", logger.Field{Key: "cities", Value: len(cities)})
	return nil
}

// Resolve maps a free-text destination to a city row. Match order: exact
// name, comma-delimited segments, then prefix/contains on the first token.
// A miss returns ok=false, never an error, so callers can skip the night.
func (r *CityResolver) Resolve(ctx context.Context, destination string) (CityRef, bool, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return CityRef{}, false, nil
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return CityRef{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if city, ok := r.byName[strings.ToLower(destination)]; ok {
		return city, true, nil
	}

	if strings.Contains(destination, ",") {
		parts := strings.SplitN(destination, ",", 2)
		before := strings.ToLower(strings.TrimSpace(parts[0]))
		if city, ok := r.byName[before]; ok {
			return city, true, nil
		}
		after := strings.ToLower(strings.TrimSpace(parts[1]))
		if city, ok := r.byName[after]; ok {
			return city, true, nil
		}
	}

	token := strings.ToLower(strings.Fields(destination)[0])
	for _, c := range r.cities {
		name := strings.ToLower(c.Name)
		if strings.HasPrefix(name, token) || strings.Contains(name, token) {
			return c, true, nil
		}
	}

	r.logger.Warn("no city mapping for destination", logger.Field{Key: "destination", Value: destination})
	return CityRef{}, false, nil
}

// ResolveByCode finds a city row by its canonical (TBO) city code. Adapters
// use this to translate the orchestrator's city code into their own.
func (r *CityResolver) ResolveByCode(ctx context.Context, cityCode string) (CityRef, bool, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return CityRef{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.cities {
		if c.TBOCityCode == cityCode {
			return c, true, nil
		}
	}
	return CityRef{}, false, nil
}
