package hotel

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"tripdesk/pkg/logger"
)

// Tier labels, cheapest to priciest.
var tierLabels = [4]string{"Budget Hotels", "Mid-Range Hotels", "Premium Hotels", "Luxury Hotels"}

// PackageRequest describes one itinerary to build hotel packages for.
type PackageRequest struct {
	ItineraryPlanID int64        `json:"itinerary_plan_id"`
	NoOfNights      int          `json:"no_of_nights"`
	Routes          []RouteNight `json:"routes"`
	RoomCount       int          `json:"room_count"`
	GuestCount      int          `json:"guest_count"`
	Providers       []string     `json:"providers,omitempty"`
	Preferences     *Preferences `json:"preferences,omitempty"`
}

// HotelSearcher is the slice of the search service the package builder needs.
type HotelSearcher interface {
	SearchHotels(ctx context.Context, criteria SearchCriteria) (*SearchResponse, error)
}

// DestinationResolver maps route destination text to a city row.
type DestinationResolver interface {
	Resolve(ctx context.Context, destination string) (CityRef, bool, error)
}

// PackageBuilder searches every overnight route of an itinerary concurrently
// and assembles four price-tier packages from the per-night result lists.
type PackageBuilder struct {
	searcher HotelSearcher
	cities   DestinationResolver
	logger   logger.Client
}

func NewPackageBuilder(searcher HotelSearcher, cities DestinationResolver, logger logger.Client) *PackageBuilder {
	return &PackageBuilder{searcher: searcher, cities: cities, logger: logger}
}

type nightResult struct {
	route  RouteNight
	hotels []SearchResult
}

// BuildPackages returns up to four tier packages for the itinerary. A night
// with no availability contributes a placeholder entry; a tier made only of
// placeholders is dropped entirely.
func (b *PackageBuilder) BuildPackages(ctx context.Context, req PackageRequest) ([]PriceTierPackage, error) {
	if len(req.Routes) == 0 {
		return nil, NewValidationError("itinerary has no routes")
	}
	if req.NoOfNights < 1 {
		return nil, NewValidationError("number of nights must be at least 1")
	}

	nights := b.overnightRoutes(req)
	if len(nights) == 0 {
		return nil, NewValidationError("itinerary has no overnight routes")
	}

	results := make([]nightResult, len(nights))
	var wg sync.WaitGroup
	for i, route := range nights {
		wg.Add(1)
		go func(i int, route RouteNight) {
			defer wg.Done()
			results[i] = nightResult{route: route, hotels: b.searchNight(ctx, req, route)}
		}(i, route)
	}
	wg.Wait()

	return b.assembleTiers(results), nil
}

// overnightRoutes drops routes past the night count: the final route of a
// round trip is the departure day and needs no hotel.
func (b *PackageBuilder) overnightRoutes(req PackageRequest) []RouteNight {
	nights := make([]RouteNight, 0, len(req.Routes))
	for i, route := range req.Routes {
		if i >= req.NoOfNights {
			break
		}
		nights = append(nights, route)
	}
	return nights
}

// searchNight runs one night's hotel search. Any failure, including an
// unmapped destination, yields an empty list so the package still builds.
func (b *PackageBuilder) searchNight(ctx context.Context, req PackageRequest, route RouteNight) []SearchResult {
	city, ok, err := b.cities.Resolve(ctx, route.DestinationCity)
	if err != nil {
		b.logger.Error("city resolution failed",
			logger.Field{Key: "destination", Value: route.DestinationCity},
			logger.Field{Key: "err", Value: err},
		)
		return nil
	}
	if !ok {
		return nil
	}

	checkIn, err := nextDay(route.Date, 0)
	if err != nil {
		b.logger.Error("invalid route date",
			logger.Field{Key: "route_id", Value: route.RouteID},
			logger.Field{Key: "date", Value: route.Date},
		)
		return nil
	}
	checkOut, _ := nextDay(route.Date, 1)

	response, err := b.searcher.SearchHotels(ctx, SearchCriteria{
		CityCode:     city.TBOCityCode,
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
		RoomCount:    req.RoomCount,
		GuestCount:   req.GuestCount,
		Providers:    req.Providers,
		Preferences:  req.Preferences,
	})
	if err != nil {
		b.logger.Error("night search failed",
			logger.Field{Key: "route_id", Value: route.RouteID},
			logger.Field{Key: "err", Value: err},
		)
		return nil
	}
	return response.Hotels
}

// assembleTiers builds the four packages. The per-night pick index comes
// from the tier position against the count of globally distinct prices, so
// tier totals never decrease from one tier to the next.
func (b *PackageBuilder) assembleTiers(nights []nightResult) []PriceTierPackage {
	distinctPrices := map[float64]struct{}{}
	for _, night := range nights {
		for _, h := range night.hotels {
			distinctPrices[h.Price] = struct{}{}
		}
	}
	priceCount := len(distinctPrices)

	var packages []PriceTierPackage
	for tier := 0; tier < 4; tier++ {
		pkg := PriceTierPackage{Tier: tier + 1, Label: tierLabels[tier]}
		realHotels := 0

		for _, night := range nights {
			if len(night.hotels) == 0 {
				pkg.Hotels = append(pkg.Hotels, TierHotel{
					RouteID:     night.route.RouteID,
					Hotel:       SearchResult{HotelName: PlaceholderHotelName},
					Placeholder: true,
				})
				continue
			}

			hotels := sortByPrice(night.hotels)
			picked := hotels[pickIndex(tier, priceCount, len(hotels))]
			pkg.Hotels = append(pkg.Hotels, TierHotel{RouteID: night.route.RouteID, Hotel: picked})
			pkg.TotalPrice += picked.Price
			realHotels++
		}

		if realHotels > 0 {
			packages = append(packages, pkg)
		}
	}
	return packages
}

// pickIndex selects which price-sorted hotel a tier takes for one night.
// With one distinct price every tier takes the cheapest; with two, the lower
// tiers take the cheapest and the upper tiers the priciest; otherwise the
// tiers spread evenly across the sorted list.
func pickIndex(tier, priceCount, n int) int {
	switch {
	case priceCount <= 1:
		return 0
	case priceCount == 2:
		if tier < 2 {
			return 0
		}
		return n - 1
	default:
		idx := int(math.Floor(float64(tier) / 3.0 * float64(n-1)))
		if idx < 0 {
			return 0
		}
		if idx > n-1 {
			return n - 1
		}
		return idx
	}
}

func nextDay(date string, days int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, days).Format(DateLayout), nil
}

func sortByPrice(hotels []SearchResult) []SearchResult {
	sorted := make([]SearchResult, len(hotels))
	copy(sorted, hotels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})
	return sorted
}
