package hotelclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tripdesk/cfg"
	"tripdesk/internal/hotel"
	"tripdesk/pkg/logger"
)

// CityCodeResolver translates the canonical city code into a provider city
// code. ok=false means the provider does not cover the city.
type CityCodeResolver interface {
	ResolveByCode(ctx context.Context, cityCode string) (hotel.CityRef, bool, error)
}

// ResAvenueClient speaks the supplier's OTA-style request/response envelopes.
// Every request carries a fresh EchoToken the supplier mirrors back.
type ResAvenueClient struct {
	httpClient  *http.Client
	baseURL     string
	requestorID string
	password    string
	cities      CityCodeResolver
	logger      logger.Client
	now         func() time.Time
}

func NewResAvenueClient(httpClient *http.Client, config cfg.ResAvenueClientConfig, cities CityCodeResolver, logger logger.Client) *ResAvenueClient {
	return &ResAvenueClient{
		httpClient:  httpClient,
		baseURL:     config.BaseURL,
		requestorID: config.RequestorID,
		password:    config.Password,
		cities:      cities,
		logger:      logger,
		now:         time.Now,
	}
}

func (r *ResAvenueClient) Name() string {
	return hotel.ProviderResAvenue
}

type otaRequestor struct {
	ID       string `json:"ID"`
	Password string `json:"MessagePassword"`
}

type otaStayDateRange struct {
	Start string `json:"Start"`
	End   string `json:"End"`
}

type otaRoomStayCandidate struct {
	Quantity   int `json:"Quantity"`
	GuestCount int `json:"GuestCount"`
}

type otaAvailRQ struct {
	EchoToken string `json:"EchoToken"`
	Version   string `json:"Version"`
	POS       struct {
		Source struct {
			Requestor otaRequestor `json:"RequestorID"`
		} `json:"Source"`
	} `json:"POS"`
	AvailRequestSegment struct {
		HotelCityCode      string                 `json:"HotelCityCode"`
		StayDateRange      otaStayDateRange       `json:"StayDateRange"`
		RoomStayCandidates []otaRoomStayCandidate `json:"RoomStayCandidates"`
	} `json:"AvailRequestSegment"`
}

type otaError struct {
	Code      string `json:"Code"`
	ShortText string `json:"ShortText"`
}

type otaRoomRate struct {
	RoomTypeCode   string  `json:"RoomTypeCode"`
	RoomTypeName   string  `json:"RoomTypeName"`
	RatePlanCode   string  `json:"RatePlanCode"`
	AmountAfterTax float64 `json:"AmountAfterTax"`
	CurrencyCode   string  `json:"CurrencyCode"`
	CancelPolicy   string  `json:"CancelPenaltyDescription"`
}

type otaRoomStay struct {
	HotelCode   string        `json:"HotelCode"`
	HotelName   string        `json:"HotelName"`
	CityCode    string        `json:"HotelCityCode"`
	Address     string        `json:"Address"`
	AwardRating float64       `json:"AwardRating"`
	RoomRates   []otaRoomRate `json:"RoomRates"`
}

type otaAvailRS struct {
	EchoToken string        `json:"EchoToken"`
	Success   *struct{}     `json:"Success"`
	Errors    []otaError    `json:"Errors"`
	RoomStays []otaRoomStay `json:"RoomStays"`
}

// Search issues an OTA_HotelAvailRQ. An unmapped city is empty results, not
// an error, so the aggregate search proceeds on other providers.
func (r *ResAvenueClient) Search(ctx context.Context, criteria hotel.SearchCriteria, prefs *hotel.Preferences) ([]hotel.SearchResult, error) {
	city, ok, err := r.cities.ResolveByCode(ctx, criteria.CityCode)
	if err != nil {
		return nil, fmt.Errorf("resavenue: city lookup failed: %w", err)
	}
	if !ok || city.ResAvenueCityCode == "" {
		return nil, nil
	}

	req := otaAvailRQ{
		EchoToken: uuid.NewString(),
		Version:   "1.0",
	}
	req.POS.Source.Requestor = otaRequestor{ID: r.requestorID, Password: r.password}
	req.AvailRequestSegment.HotelCityCode = city.ResAvenueCityCode
	req.AvailRequestSegment.StayDateRange = otaStayDateRange{
		Start: criteria.CheckInDate,
		End:   criteria.CheckOutDate,
	}
	req.AvailRequestSegment.RoomStayCandidates = []otaRoomStayCandidate{{
		Quantity:   criteria.RoomCount,
		GuestCount: criteria.GuestCount,
	}}

	var resp otaAvailRS
	if err := postJSON(ctx, r.httpClient, fmt.Sprintf("%s/OTA_HotelAvailRQ", r.baseURL), nil, req, &resp); err != nil {
		return nil, fmt.Errorf("resavenue: search failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("resavenue: search rejected: %s", resp.Errors[0].ShortText)
	}

	expiresAt := r.now().Add(searchReferenceTTL)
	results := make([]hotel.SearchResult, 0, len(resp.RoomStays))
	for _, stay := range resp.RoomStays {
		if len(stay.RoomRates) == 0 {
			continue
		}

		result := hotel.SearchResult{
			Provider:        hotel.ProviderResAvenue,
			HotelCode:       stay.HotelCode,
			HotelName:       stay.HotelName,
			CityCode:        criteria.CityCode,
			Address:         stay.Address,
			Rating:          stay.AwardRating,
			SearchReference: uuid.NewString(),
			ExpiresAt:       expiresAt,
		}

		cheapest := stay.RoomRates[0]
		for _, rate := range stay.RoomRates {
			if rate.AmountAfterTax < cheapest.AmountAfterTax {
				cheapest = rate
			}
			result.RoomTypes = append(result.RoomTypes, hotel.RoomType{
				RoomCode:           rate.RoomTypeCode,
				RoomName:           rate.RoomTypeName,
				Price:              rate.AmountAfterTax,
				Capacity:           2,
				CancellationPolicy: rate.CancelPolicy,
			})
		}
		result.Price = cheapest.AmountAfterTax
		result.Currency = cheapest.CurrencyCode
		result.BookingToken = cheapest.RatePlanCode

		results = append(results, result)
	}
	return results, nil
}

type otaGuest struct {
	GivenName string `json:"GivenName"`
	Surname   string `json:"Surname"`
	Email     string `json:"Email"`
	Phone     string `json:"PhoneNumber"`
}

type otaResNotifRQ struct {
	EchoToken string `json:"EchoToken"`
	Version   string `json:"Version"`
	ResStatus string `json:"ResStatus"`
	POS       struct {
		Source struct {
			Requestor otaRequestor `json:"RequestorID"`
		} `json:"Source"`
	} `json:"POS"`
	HotelReservation struct {
		HotelCode     string           `json:"HotelCode"`
		RatePlanCode  string           `json:"RatePlanCode"`
		StayDateRange otaStayDateRange `json:"StayDateRange"`
		RoomCount     int              `json:"NumberOfUnits"`
		Guests        []otaGuest       `json:"Guests"`
	} `json:"HotelReservation"`
}

type otaResNotifRS struct {
	EchoToken          string     `json:"EchoToken"`
	Success            *struct{}  `json:"Success"`
	Errors             []otaError `json:"Errors"`
	ReservationID      string     `json:"HotelReservationID"`
	TotalAfterTax      float64    `json:"TotalAfterTax"`
	CurrencyCode       string     `json:"CurrencyCode"`
	CancelPolicy       string     `json:"CancelPenaltyDescription"`
}

func (r *ResAvenueClient) ConfirmBooking(ctx context.Context, details hotel.BookingDetails) (*hotel.BookingResult, error) {
	if details.BookingToken == "" {
		return nil, fmt.Errorf("resavenue: rate plan code missing from staged offer")
	}

	req := otaResNotifRQ{
		EchoToken: uuid.NewString(),
		Version:   "1.0",
		ResStatus: "Commit",
	}
	req.POS.Source.Requestor = otaRequestor{ID: r.requestorID, Password: r.password}
	req.HotelReservation.HotelCode = details.HotelCode
	req.HotelReservation.RatePlanCode = details.BookingToken
	req.HotelReservation.StayDateRange = otaStayDateRange{
		Start: details.CheckInDate,
		End:   details.CheckOutDate,
	}
	req.HotelReservation.RoomCount = details.RoomCount
	for _, g := range details.Guests {
		req.HotelReservation.Guests = append(req.HotelReservation.Guests, otaGuest{
			GivenName: g.FirstName,
			Surname:   g.LastName,
			Email:     g.Email,
			Phone:     g.Phone,
		})
	}

	var resp otaResNotifRS
	if err := postJSON(ctx, r.httpClient, fmt.Sprintf("%s/OTA_HotelResNotifRQ", r.baseURL), nil, req, &resp); err != nil {
		return nil, fmt.Errorf("resavenue: booking failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("resavenue: booking rejected: %s", resp.Errors[0].ShortText)
	}

	return &hotel.BookingResult{
		Provider:              hotel.ProviderResAvenue,
		ConfirmationReference: resp.ReservationID,
		HotelCode:             details.HotelCode,
		CheckIn:               details.CheckInDate,
		CheckOut:              details.CheckOutDate,
		RoomCount:             details.RoomCount,
		TotalPrice:            resp.TotalAfterTax,
		Currency:              resp.CurrencyCode,
		CancellationPolicy:    resp.CancelPolicy,
	}, nil
}

type otaCancelRQ struct {
	EchoToken string `json:"EchoToken"`
	Version   string `json:"Version"`
	POS       struct {
		Source struct {
			Requestor otaRequestor `json:"RequestorID"`
		} `json:"Source"`
	} `json:"POS"`
	ReservationID string `json:"HotelReservationID"`
	Reason        string `json:"CancelReason"`
}

type otaCancelRS struct {
	EchoToken    string     `json:"EchoToken"`
	Success      *struct{}  `json:"Success"`
	Errors       []otaError `json:"Errors"`
	CancelID     string     `json:"CancelID"`
	RefundAmount float64    `json:"RefundAmount"`
	CancelCharge float64    `json:"CancelCharge"`
}

func (r *ResAvenueClient) CancelBooking(ctx context.Context, confirmationRef, reason string) (*hotel.CancellationResult, error) {
	req := otaCancelRQ{
		EchoToken:     uuid.NewString(),
		Version:       "1.0",
		ReservationID: confirmationRef,
		Reason:        reason,
	}
	req.POS.Source.Requestor = otaRequestor{ID: r.requestorID, Password: r.password}

	var resp otaCancelRS
	if err := postJSON(ctx, r.httpClient, fmt.Sprintf("%s/OTA_CancelRQ", r.baseURL), nil, req, &resp); err != nil {
		return nil, fmt.Errorf("resavenue: cancel failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("resavenue: cancel rejected: %s", resp.Errors[0].ShortText)
	}

	return &hotel.CancellationResult{
		CancellationRef: resp.CancelID,
		RefundAmount:    resp.RefundAmount,
		Charges:         resp.CancelCharge,
		RefundDays:      10,
	}, nil
}

type otaReadRQ struct {
	EchoToken string `json:"EchoToken"`
	Version   string `json:"Version"`
	POS       struct {
		Source struct {
			Requestor otaRequestor `json:"RequestorID"`
		} `json:"Source"`
	} `json:"POS"`
	ReservationID string `json:"HotelReservationID"`
}

type otaReadRS struct {
	EchoToken     string     `json:"EchoToken"`
	Success       *struct{}  `json:"Success"`
	Errors        []otaError `json:"Errors"`
	HotelName     string     `json:"HotelName"`
	CheckIn       string     `json:"CheckIn"`
	CheckOut      string     `json:"CheckOut"`
	RoomCount     int        `json:"NumberOfUnits"`
	TotalAfterTax float64    `json:"TotalAfterTax"`
	ResStatus     string     `json:"ResStatus"`
	CancelPolicy  string     `json:"CancelPenaltyDescription"`
}

func (r *ResAvenueClient) GetConfirmation(ctx context.Context, confirmationRef string) (*hotel.ConfirmationDetails, error) {
	req := otaReadRQ{
		EchoToken:     uuid.NewString(),
		Version:       "1.0",
		ReservationID: confirmationRef,
	}
	req.POS.Source.Requestor = otaRequestor{ID: r.requestorID, Password: r.password}

	var resp otaReadRS
	if err := postJSON(ctx, r.httpClient, fmt.Sprintf("%s/OTA_ReadRQ", r.baseURL), nil, req, &resp); err != nil {
		return nil, fmt.Errorf("resavenue: read failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("resavenue: read rejected: %s", resp.Errors[0].ShortText)
	}

	return &hotel.ConfirmationDetails{
		ConfirmationRef:    confirmationRef,
		HotelName:          resp.HotelName,
		CheckIn:            resp.CheckIn,
		CheckOut:           resp.CheckOut,
		RoomCount:          resp.RoomCount,
		TotalPrice:         resp.TotalAfterTax,
		Status:             resp.ResStatus,
		CancellationPolicy: resp.CancelPolicy,
	}, nil
}
