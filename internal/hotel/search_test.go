package hotel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testCriteria() SearchCriteria {
	return SearchCriteria{
		CityCode:     "130443",
		CheckInDate:  futureDate(7),
		CheckOutDate: futureDate(9),
		RoomCount:    1,
		GuestCount:   2,
	}
}

func newTestOrchestrator(providers ...Provider) *Orchestrator {
	return NewOrchestrator(NewRegistry(providers...), 5*time.Second, newTestMetrics(), nopLogger{})
}

func TestOrchestrator_Validation(t *testing.T) {
	adapter := &fakeProvider{name: ProviderTBO}
	orchestrator := newTestOrchestrator(adapter)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*SearchCriteria)
	}{
		{"missing city code", func(c *SearchCriteria) { c.CityCode = "" }},
		{"malformed check-in", func(c *SearchCriteria) { c.CheckInDate = "07-09-2026" }},
		{"malformed check-out", func(c *SearchCriteria) { c.CheckOutDate = "soon" }},
		{"check-out before check-in", func(c *SearchCriteria) {
			c.CheckInDate = futureDate(9)
			c.CheckOutDate = futureDate(7)
		}},
		{"check-in equals check-out", func(c *SearchCriteria) { c.CheckOutDate = c.CheckInDate }},
		{"check-in in the past", func(c *SearchCriteria) {
			c.CheckInDate = futureDate(-2)
			c.CheckOutDate = futureDate(1)
		}},
		{"zero rooms", func(c *SearchCriteria) { c.RoomCount = 0 }},
		{"zero guests", func(c *SearchCriteria) { c.GuestCount = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria := testCriteria()
			tt.mutate(&criteria)

			_, _, err := orchestrator.SearchHotels(ctx, criteria)

			var appErr *AppError
			assert.Error(t, err)
			assert.True(t, errors.As(err, &appErr))
			assert.Equal(t, ErrorCodeValidation, appErr.Code)
		})
	}

	// Invalid criteria must never reach an adapter.
	assert.Equal(t, 0, adapter.searchCalls)
}

func TestOrchestrator_UnknownProvidersOnly(t *testing.T) {
	orchestrator := newTestOrchestrator(&fakeProvider{name: ProviderTBO})

	criteria := testCriteria()
	criteria.Providers = []string{"expedia"}

	_, _, err := orchestrator.SearchHotels(context.Background(), criteria)

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrorCodeValidation, appErr.Code)
}

func TestOrchestrator_ProviderFailureIsolation(t *testing.T) {
	healthy := &fakeProvider{name: ProviderTBO, results: []SearchResult{
		{Provider: ProviderTBO, HotelCode: "T1", Price: 120, SearchReference: "ref-t1"},
	}}
	broken := &fakeProvider{name: ProviderResAvenue, err: errors.New("connection refused")}

	orchestrator := newTestOrchestrator(healthy, broken)

	hotels, stats, err := orchestrator.SearchHotels(context.Background(), testCriteria())

	assert.NoError(t, err)
	assert.Len(t, hotels, 1)
	assert.Equal(t, "T1", hotels[0].HotelCode)
	assert.Equal(t, 2, stats.Queried)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
}

func TestOrchestrator_AllProvidersFailIsEmptySuccess(t *testing.T) {
	orchestrator := newTestOrchestrator(
		&fakeProvider{name: ProviderTBO, err: errors.New("timeout")},
		&fakeProvider{name: ProviderHobse, err: errors.New("bad gateway")},
	)

	hotels, stats, err := orchestrator.SearchHotels(context.Background(), testCriteria())

	assert.NoError(t, err)
	assert.Empty(t, hotels)
	assert.Equal(t, 2, stats.Failed)
}

func TestOrchestrator_Ranking(t *testing.T) {
	t.Run("price ascending then rating descending", func(t *testing.T) {
		adapter := &fakeProvider{name: ProviderTBO, results: []SearchResult{
			{HotelCode: "A", Price: 300, Rating: 3},
			{HotelCode: "B", Price: 100, Rating: 2},
			{HotelCode: "C", Price: 100, Rating: 5},
		}}
		orchestrator := newTestOrchestrator(adapter)

		hotels, _, err := orchestrator.SearchHotels(context.Background(), testCriteria())

		assert.NoError(t, err)
		assert.Equal(t, []string{"C", "B", "A"}, hotelCodes(hotels))
	})

	t.Run("min rating matches rank first", func(t *testing.T) {
		adapter := &fakeProvider{name: ProviderTBO, results: []SearchResult{
			{HotelCode: "cheap-low", Price: 50, Rating: 2},
			{HotelCode: "pricey-high", Price: 400, Rating: 4.5},
			{HotelCode: "mid-high", Price: 200, Rating: 4},
		}}
		orchestrator := newTestOrchestrator(adapter)

		criteria := testCriteria()
		criteria.Preferences = &Preferences{MinRating: 4}

		hotels, _, err := orchestrator.SearchHotels(context.Background(), criteria)

		assert.NoError(t, err)
		assert.Equal(t, []string{"mid-high", "pricey-high", "cheap-low"}, hotelCodes(hotels))
	})

	t.Run("max price is a hard filter", func(t *testing.T) {
		adapter := &fakeProvider{name: ProviderTBO, results: []SearchResult{
			{HotelCode: "in-budget", Price: 90},
			{HotelCode: "over-budget", Price: 500},
		}}
		orchestrator := newTestOrchestrator(adapter)

		criteria := testCriteria()
		criteria.Preferences = &Preferences{MaxPrice: 100}

		hotels, _, err := orchestrator.SearchHotels(context.Background(), criteria)

		assert.NoError(t, err)
		assert.Equal(t, []string{"in-budget"}, hotelCodes(hotels))
	})

	t.Run("deterministic across repeated runs", func(t *testing.T) {
		adapterA := &fakeProvider{name: ProviderTBO, results: []SearchResult{
			{Provider: ProviderTBO, HotelCode: "A", Price: 100, Rating: 3},
			{Provider: ProviderTBO, HotelCode: "B", Price: 100, Rating: 3},
		}}
		adapterB := &fakeProvider{name: ProviderResAvenue, results: []SearchResult{
			{Provider: ProviderResAvenue, HotelCode: "C", Price: 100, Rating: 3},
		}}
		orchestrator := newTestOrchestrator(adapterA, adapterB)

		criteria := testCriteria()
		criteria.Providers = []string{ProviderTBO, ProviderResAvenue}

		first, _, err := orchestrator.SearchHotels(context.Background(), criteria)
		assert.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, _, err := orchestrator.SearchHotels(context.Background(), criteria)
			assert.NoError(t, err)
			assert.Equal(t, hotelCodes(first), hotelCodes(again))
		}
	})

	t.Run("deterministic without an explicit provider list", func(t *testing.T) {
		// Ties on price and rating must keep registration order even
		// when the search fans out to every registered provider.
		adapterA := &fakeProvider{name: ProviderTBO, results: []SearchResult{
			{Provider: ProviderTBO, HotelCode: "T1", Price: 100, Rating: 3},
		}}
		adapterB := &fakeProvider{name: ProviderResAvenue, results: []SearchResult{
			{Provider: ProviderResAvenue, HotelCode: "R1", Price: 100, Rating: 3},
		}}
		adapterC := &fakeProvider{name: ProviderHobse, results: []SearchResult{
			{Provider: ProviderHobse, HotelCode: "H1", Price: 100, Rating: 3},
		}}
		orchestrator := newTestOrchestrator(adapterA, adapterB, adapterC)

		for i := 0; i < 50; i++ {
			hotels, _, err := orchestrator.SearchHotels(context.Background(), testCriteria())
			assert.NoError(t, err)
			assert.Equal(t, []string{"T1", "R1", "H1"}, hotelCodes(hotels))
		}
	})
}

func TestRegistry_AllKeepsRegistrationOrder(t *testing.T) {
	registry := NewRegistry(
		&fakeProvider{name: ProviderResAvenue},
		&fakeProvider{name: ProviderTBO},
		&fakeProvider{name: ProviderHobse},
	)

	for i := 0; i < 50; i++ {
		names := make([]string, 0, 3)
		for _, p := range registry.All() {
			names = append(names, p.Name())
		}
		assert.Equal(t, []string{ProviderResAvenue, ProviderTBO, ProviderHobse}, names)
	}
}

func TestOrchestrator_NoCrossProviderDedup(t *testing.T) {
	// The same hotel from two providers stays twice in the result list.
	adapterA := &fakeProvider{name: ProviderTBO, results: []SearchResult{
		{Provider: ProviderTBO, HotelCode: "H1", HotelName: "Grand Plaza", Price: 150},
	}}
	adapterB := &fakeProvider{name: ProviderHobse, results: []SearchResult{
		{Provider: ProviderHobse, HotelCode: "H1", HotelName: "Grand Plaza", Price: 140},
	}}
	orchestrator := newTestOrchestrator(adapterA, adapterB)

	hotels, _, err := orchestrator.SearchHotels(context.Background(), testCriteria())

	assert.NoError(t, err)
	assert.Len(t, hotels, 2)
}

func hotelCodes(hotels []SearchResult) []string {
	codes := make([]string, 0, len(hotels))
	for _, h := range hotels {
		codes = append(codes, h.HotelCode)
	}
	return codes
}
