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

// HobseClient talks to the HOBSE supplier. Every call needs a session token
// obtained by presenting the client/access/product token triple.
type HobseClient struct {
	httpClient   *http.Client
	baseURL      string
	clientToken  string
	accessToken  string
	productToken string
	cities       CityCodeResolver
	creds        credentialCache
	authTimeout  time.Duration
	logger       logger.Client
	now          func() time.Time
}

func NewHobseClient(httpClient *http.Client, config cfg.HobseClientConfig, authTimeout time.Duration, cities CityCodeResolver, logger logger.Client) *HobseClient {
	return &HobseClient{
		httpClient:   httpClient,
		baseURL:      config.BaseURL,
		clientToken:  config.ClientToken,
		accessToken:  config.AccessToken,
		productToken: config.ProductToken,
		cities:       cities,
		authTimeout:  authTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

func (h *HobseClient) Name() string {
	return hotel.ProviderHobse
}

type hobseLoginResponse struct {
	SessionToken string `json:"sessionToken"`
	ExpiresIn    int    `json:"expiresIn"`
	Message      string `json:"message"`
}

func (h *HobseClient) login(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.authTimeout)
	defer cancel()

	var resp hobseLoginResponse
	err := postJSON(ctx, h.httpClient, fmt.Sprintf("%s/auth/session", h.baseURL), map[string]string{
		"X-Client-Token":  h.clientToken,
		"X-Access-Token":  h.accessToken,
		"X-Product-Token": h.productToken,
	}, struct{}{}, &resp)
	if err != nil {
		return "", fmt.Errorf("hobse: session login failed: %w", err)
	}
	if resp.SessionToken == "" {
		return "", fmt.Errorf("hobse: session rejected: %s", resp.Message)
	}
	return resp.SessionToken, nil
}

// session returns a valid session token. HOBSE reports the lifetime per
// login; one hour is the documented floor, so that is the cache window.
func (h *HobseClient) session(ctx context.Context) (string, error) {
	return h.creds.ensure(ctx, h.now(), time.Hour, h.login)
}

func (h *HobseClient) authHeaders(session string) map[string]string {
	return map[string]string{"X-Session-Token": session}
}

type hobseSearchRequest struct {
	CityID     string `json:"cityId"`
	CheckIn    string `json:"checkIn"`
	CheckOut   string `json:"checkOut"`
	Rooms      int    `json:"rooms"`
	Guests     int    `json:"guests"`
}

type hobseRoom struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	BedType      string  `json:"bedType"`
	MaxOccupancy int     `json:"maxOccupancy"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	CancelPolicy string  `json:"cancellationPolicy"`
	ProductCode  string  `json:"productCode"`
}

type hobseHotel struct {
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	StarRating float64     `json:"starRating"`
	Rooms      []hobseRoom `json:"rooms"`
}

type hobseSearchResponse struct {
	Hotels  []hobseHotel `json:"hotels"`
	Message string       `json:"message"`
}

func (h *HobseClient) Search(ctx context.Context, criteria hotel.SearchCriteria, prefs *hotel.Preferences) ([]hotel.SearchResult, error) {
	city, ok, err := h.cities.ResolveByCode(ctx, criteria.CityCode)
	if err != nil {
		return nil, fmt.Errorf("hobse: city lookup failed: %w", err)
	}
	if !ok || city.HobseCityCode == "" {
		return nil, nil
	}

	session, err := h.session(ctx)
	if err != nil {
		return nil, err
	}

	var resp hobseSearchResponse
	err = postJSON(ctx, h.httpClient, fmt.Sprintf("%s/hotels/search", h.baseURL), h.authHeaders(session), hobseSearchRequest{
		CityID:   city.HobseCityCode,
		CheckIn:  criteria.CheckInDate,
		CheckOut: criteria.CheckOutDate,
		Rooms:    criteria.RoomCount,
		Guests:   criteria.GuestCount,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("hobse: search failed: %w", err)
	}

	expiresAt := h.now().Add(searchReferenceTTL)
	results := make([]hotel.SearchResult, 0, len(resp.Hotels))
	for _, hh := range resp.Hotels {
		if len(hh.Rooms) == 0 {
			continue
		}

		result := hotel.SearchResult{
			Provider:        hotel.ProviderHobse,
			HotelCode:       hh.Code,
			HotelName:       hh.Name,
			CityCode:        criteria.CityCode,
			Address:         hh.Address,
			Rating:          hh.StarRating,
			SearchReference: uuid.NewString(),
			ExpiresAt:       expiresAt,
		}

		cheapest := hh.Rooms[0]
		for _, room := range hh.Rooms {
			if room.Price < cheapest.Price {
				cheapest = room
			}
			result.RoomTypes = append(result.RoomTypes, hotel.RoomType{
				RoomCode:           room.Code,
				RoomName:           room.Name,
				BedType:            room.BedType,
				Capacity:           room.MaxOccupancy,
				Price:              room.Price,
				CancellationPolicy: room.CancelPolicy,
			})
		}
		result.Price = cheapest.Price
		result.Currency = cheapest.Currency
		result.BookingToken = cheapest.ProductCode

		results = append(results, result)
	}
	return results, nil
}

type hobseLockRequest struct {
	ProductCode string `json:"productCode"`
	CheckIn     string `json:"checkIn"`
	CheckOut    string `json:"checkOut"`
	Rooms       int    `json:"rooms"`
}

type hobseLockResponse struct {
	LockID     string  `json:"lockId"`
	TotalPrice float64 `json:"totalPrice"`
	Currency   string  `json:"currency"`
	Message    string  `json:"message"`
}

type hobseBookGuest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type hobseBookRequest struct {
	LockID       string           `json:"lockId"`
	Guests       []hobseBookGuest `json:"guests"`
	ContactEmail string           `json:"contactEmail"`
	ContactPhone string           `json:"contactPhone"`
}

type hobseBookResponse struct {
	BookingRef   string  `json:"bookingRef"`
	HotelName    string  `json:"hotelName"`
	TotalPrice   float64 `json:"totalPrice"`
	Currency     string  `json:"currency"`
	CancelPolicy string  `json:"cancellationPolicy"`
	Message      string  `json:"message"`
}

// ConfirmBooking locks the rate first, then books against the lock. The lock
// pins price and availability for the few seconds between the two calls.
func (h *HobseClient) ConfirmBooking(ctx context.Context, details hotel.BookingDetails) (*hotel.BookingResult, error) {
	if details.BookingToken == "" {
		return nil, fmt.Errorf("hobse: product code missing from staged offer")
	}
	session, err := h.session(ctx)
	if err != nil {
		return nil, err
	}

	var lock hobseLockResponse
	err = postJSON(ctx, h.httpClient, fmt.Sprintf("%s/bookings/lock", h.baseURL), h.authHeaders(session), hobseLockRequest{
		ProductCode: details.BookingToken,
		CheckIn:     details.CheckInDate,
		CheckOut:    details.CheckOutDate,
		Rooms:       details.RoomCount,
	}, &lock)
	if err != nil {
		return nil, fmt.Errorf("hobse: rate lock failed: %w", err)
	}
	if lock.LockID == "" {
		return nil, fmt.Errorf("hobse: rate lock rejected: %s", lock.Message)
	}

	guests := make([]hobseBookGuest, 0, len(details.Guests))
	for _, g := range details.Guests {
		guests = append(guests, hobseBookGuest{
			FirstName: g.FirstName,
			LastName:  g.LastName,
			Email:     g.Email,
			Phone:     g.Phone,
		})
	}

	var book hobseBookResponse
	err = postJSON(ctx, h.httpClient, fmt.Sprintf("%s/bookings", h.baseURL), h.authHeaders(session), hobseBookRequest{
		LockID:       lock.LockID,
		Guests:       guests,
		ContactEmail: details.ContactEmail,
		ContactPhone: details.ContactPhone,
	}, &book)
	if err != nil {
		return nil, fmt.Errorf("hobse: booking failed: %w", err)
	}
	if book.BookingRef == "" {
		return nil, fmt.Errorf("hobse: booking rejected: %s", book.Message)
	}

	return &hotel.BookingResult{
		Provider:              hotel.ProviderHobse,
		ConfirmationReference: book.BookingRef,
		HotelCode:             details.HotelCode,
		HotelName:             book.HotelName,
		CheckIn:               details.CheckInDate,
		CheckOut:              details.CheckOutDate,
		RoomCount:             details.RoomCount,
		TotalPrice:            book.TotalPrice,
		Currency:              book.Currency,
		CancellationPolicy:    book.CancelPolicy,
	}, nil
}

type hobseCancelResponse struct {
	CancelRef    string  `json:"cancelRef"`
	RefundAmount float64 `json:"refundAmount"`
	CancelCharge float64 `json:"cancelCharge"`
	RefundDays   int     `json:"refundDays"`
	Message      string  `json:"message"`
}

func (h *HobseClient) CancelBooking(ctx context.Context, confirmationRef, reason string) (*hotel.CancellationResult, error) {
	session, err := h.session(ctx)
	if err != nil {
		return nil, err
	}

	var resp hobseCancelResponse
	err = postJSON(ctx, h.httpClient, fmt.Sprintf("%s/bookings/%s/cancel", h.baseURL, confirmationRef), h.authHeaders(session), map[string]string{
		"reason": reason,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("hobse: cancel failed: %w", err)
	}
	if resp.CancelRef == "" {
		return nil, fmt.Errorf("hobse: cancel rejected: %s", resp.Message)
	}

	return &hotel.CancellationResult{
		CancellationRef: resp.CancelRef,
		RefundAmount:    resp.RefundAmount,
		Charges:         resp.CancelCharge,
		RefundDays:      resp.RefundDays,
	}, nil
}

type hobseBookingDetailResponse struct {
	BookingRef   string  `json:"bookingRef"`
	HotelName    string  `json:"hotelName"`
	CheckIn      string  `json:"checkIn"`
	CheckOut     string  `json:"checkOut"`
	Rooms        int     `json:"rooms"`
	TotalPrice   float64 `json:"totalPrice"`
	Status       string  `json:"status"`
	CancelPolicy string  `json:"cancellationPolicy"`
}

func (h *HobseClient) GetConfirmation(ctx context.Context, confirmationRef string) (*hotel.ConfirmationDetails, error) {
	session, err := h.session(ctx)
	if err != nil {
		return nil, err
	}

	var resp hobseBookingDetailResponse
	err = getJSON(ctx, h.httpClient, fmt.Sprintf("%s/bookings/%s", h.baseURL, confirmationRef), h.authHeaders(session), &resp)
	if err != nil {
		return nil, fmt.Errorf("hobse: booking detail failed: %w", err)
	}

	return &hotel.ConfirmationDetails{
		ConfirmationRef:    resp.BookingRef,
		HotelName:          resp.HotelName,
		CheckIn:            resp.CheckIn,
		CheckOut:           resp.CheckOut,
		RoomCount:          resp.Rooms,
		TotalPrice:         resp.TotalPrice,
		Status:             resp.Status,
		CancellationPolicy: resp.CancelPolicy,
	}, nil
}
