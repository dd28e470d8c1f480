package hotelclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tripdesk/cfg"
	"tripdesk/internal/hotel"
	"tripdesk/pkg/logger"
)

const (
	// tboTokenTTL matches the supplier's documented token lifetime.
	tboTokenTTL = 12 * time.Hour
	// tboHotelCodeChunk is the supplier's per-request hotel code limit.
	tboHotelCodeChunk = 100

	tboStatusOK      = 200
	tboStatusNoRooms = 201
	tboStatusAuth    = 401
)

// TBOClient talks to the TBO hotel supplier. TBO searches by hotel code, not
// by city, so the client pulls the city's inventory from the hotel master
// table and fans the codes out in chunks.
type TBOClient struct {
	httpClient     *http.Client
	searchBaseURL  string
	bookingBaseURL string
	sharedBaseURL  string
	clientID       string
	username       string
	password       string
	endUserIP      string
	hotels         hotel.HotelMasterStore
	creds          credentialCache
	authTimeout    time.Duration
	logger         logger.Client
	now            func() time.Time
}

func NewTBOClient(httpClient *http.Client, config cfg.TBOClientConfig, authTimeout time.Duration, hotels hotel.HotelMasterStore, logger logger.Client) *TBOClient {
	return &TBOClient{
		httpClient:     httpClient,
		searchBaseURL:  config.SearchBaseURL,
		bookingBaseURL: config.BookingBaseURL,
		sharedBaseURL:  config.SharedBaseURL,
		clientID:       config.ClientID,
		username:       config.Username,
		password:       config.Password,
		endUserIP:      config.EndUserIP,
		hotels:         hotels,
		authTimeout:    authTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

func (t *TBOClient) Name() string {
	return hotel.ProviderTBO
}

type tboStatus struct {
	Code        int    `json:"Code"`
	Description string `json:"Description"`
}

type tboAuthRequest struct {
	ClientID  string `json:"ClientId"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
	EndUserIP string `json:"EndUserIp"`
}

type tboAuthResponse struct {
	Status  int    `json:"Status"`
	TokenID string `json:"TokenId"`
	Error   struct {
		ErrorCode    int    `json:"ErrorCode"`
		ErrorMessage string `json:"ErrorMessage"`
	} `json:"Error"`
}

func (t *TBOClient) authenticate(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.authTimeout)
	defer cancel()
	url := fmt.Sprintf("%s/Authenticate", t.sharedBaseURL)

	var resp tboAuthResponse
	err := postJSON(ctx, t.httpClient, url, nil, tboAuthRequest{
		ClientID:  t.clientID,
		UserName:  t.username,
		Password:  t.password,
		EndUserIP: t.endUserIP,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("tbo: authenticate failed: %w", err)
	}
	if resp.TokenID == "" {
		return "", fmt.Errorf("tbo: authenticate rejected: %s", resp.Error.ErrorMessage)
	}
	return resp.TokenID, nil
}

func (t *TBOClient) token(ctx context.Context) (string, error) {
	return t.creds.ensure(ctx, t.now(), tboTokenTTL, t.authenticate)
}

type tboPaxRoom struct {
	Adults   int `json:"Adults"`
	Children int `json:"Children"`
}

type tboSearchRequest struct {
	TokenID            string       `json:"TokenId"`
	CheckIn            string       `json:"CheckIn"`
	CheckOut           string       `json:"CheckOut"`
	HotelCodes         string       `json:"HotelCodes"`
	GuestNationality   string       `json:"GuestNationality"`
	PaxRooms           []tboPaxRoom `json:"PaxRooms"`
	ResponseTime       float64      `json:"ResponseTime"`
	IsDetailedResponse bool         `json:"IsDetailedResponse"`
}

type tboRoom struct {
	Name         []string `json:"Name"`
	BookingCode  string   `json:"BookingCode"`
	TotalFare    float64  `json:"TotalFare"`
	TotalTax     float64  `json:"TotalTax"`
	MealType     string   `json:"MealType"`
	IsRefundable bool     `json:"IsRefundable"`
}

type tboHotelResult struct {
	HotelCode string    `json:"HotelCode"`
	Currency  string    `json:"Currency"`
	Rooms     []tboRoom `json:"Rooms"`
}

type tboSearchResponse struct {
	Status      tboStatus        `json:"Status"`
	HotelResult []tboHotelResult `json:"HotelResult"`
}

func (t *TBOClient) Search(ctx context.Context, criteria hotel.SearchCriteria, prefs *hotel.Preferences) ([]hotel.SearchResult, error) {
	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}

	codes, err := t.hotels.HotelCodesForCity(ctx, criteria.CityCode)
	if err != nil {
		return nil, fmt.Errorf("tbo: failed to load hotel codes: %w", err)
	}
	if len(codes) == 0 {
		return nil, nil
	}

	var results []hotel.SearchResult
	for start := 0; start < len(codes); start += tboHotelCodeChunk {
		end := start + tboHotelCodeChunk
		if end > len(codes) {
			end = len(codes)
		}
		chunk, err := t.searchChunk(ctx, token, criteria, codes[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}
	return results, nil
}

// buildPaxRooms spreads guests across rooms, leading rooms taking the
// remainder, with at least one adult per room.
func buildPaxRooms(guestCount, roomCount int) []tboPaxRoom {
	if roomCount < 1 {
		roomCount = 1
	}
	perRoom := guestCount / roomCount
	extra := guestCount % roomCount
	paxRooms := make([]tboPaxRoom, roomCount)
	for i := range paxRooms {
		adults := perRoom
		if i < extra {
			adults++
		}
		if adults < 1 {
			adults = 1
		}
		paxRooms[i] = tboPaxRoom{Adults: adults}
	}
	return paxRooms
}

func (t *TBOClient) searchChunk(ctx context.Context, token string, criteria hotel.SearchCriteria, codes []string) ([]hotel.SearchResult, error) {
	url := fmt.Sprintf("%s/Search", t.searchBaseURL)

	paxRooms := buildPaxRooms(criteria.GuestCount, criteria.RoomCount)

	var resp tboSearchResponse
	err := postJSON(ctx, t.httpClient, url, nil, tboSearchRequest{
		TokenID:            token,
		CheckIn:            criteria.CheckInDate,
		CheckOut:           criteria.CheckOutDate,
		HotelCodes:         strings.Join(codes, ","),
		GuestNationality:   "IN",
		PaxRooms:           paxRooms,
		ResponseTime:       23.0,
		IsDetailedResponse: true,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("tbo: search failed: %w", err)
	}

	switch resp.Status.Code {
	case tboStatusOK:
	case tboStatusNoRooms:
		return nil, nil
	case tboStatusAuth:
		t.creds.invalidate()
		return nil, fmt.Errorf("tbo: token rejected: %s", resp.Status.Description)
	default:
		return nil, fmt.Errorf("tbo: search returned status %d: %s", resp.Status.Code, resp.Status.Description)
	}

	expiresAt := t.now().Add(searchReferenceTTL)
	results := make([]hotel.SearchResult, 0, len(resp.HotelResult))
	for _, hr := range resp.HotelResult {
		if len(hr.Rooms) == 0 {
			continue
		}

		master, err := t.hotels.HotelByCode(ctx, hr.HotelCode)
		if err != nil {
			t.logger.Warn("tbo hotel master lookup failed",
				logger.Field{Key: "hotel_code", Value: hr.HotelCode},
				logger.Field{Key: "err", Value: err},
			)
		}

		result := hotel.SearchResult{
			Provider:        hotel.ProviderTBO,
			HotelCode:       hr.HotelCode,
			CityCode:        criteria.CityCode,
			Currency:        hr.Currency,
			SearchReference: uuid.NewString(),
			ExpiresAt:       expiresAt,
		}
		if master != nil {
			result.HotelName = master.HotelName
			result.Address = master.Address
			result.Rating = master.Rating
		}

		cheapest := hr.Rooms[0]
		for _, room := range hr.Rooms {
			if room.TotalFare < cheapest.TotalFare {
				cheapest = room
			}
			roomName := ""
			if len(room.Name) > 0 {
				roomName = room.Name[0]
			}
			policy := "Non-refundable"
			if room.IsRefundable {
				policy = "Refundable"
			}
			result.RoomTypes = append(result.RoomTypes, hotel.RoomType{
				RoomCode:           room.BookingCode,
				RoomName:           roomName,
				Price:              room.TotalFare,
				Capacity:           2,
				CancellationPolicy: policy,
			})
		}
		result.Price = cheapest.TotalFare
		result.BookingToken = cheapest.BookingCode

		results = append(results, result)
	}
	return results, nil
}

type tboPreBookRequest struct {
	TokenID     string `json:"TokenId"`
	BookingCode string `json:"BookingCode"`
	PaymentMode string `json:"PaymentMode"`
}

type tboPreBookResponse struct {
	Status       tboStatus `json:"Status"`
	TotalFare    float64   `json:"TotalFare"`
	HotelName    string    `json:"HotelName"`
	Currency     string    `json:"Currency"`
	CancelPolicy string    `json:"RateConditions"`
}

type tboCustomerName struct {
	Title     string `json:"Title"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Type      string `json:"Type"`
}

type tboCustomerDetail struct {
	CustomerNames []tboCustomerName `json:"CustomerNames"`
}

type tboBookRequest struct {
	TokenID           string              `json:"TokenId"`
	BookingCode       string              `json:"BookingCode"`
	ClientReferenceID string              `json:"ClientReferenceId"`
	CustomerDetails   []tboCustomerDetail `json:"CustomerDetails"`
	EmailID           string              `json:"EmailId"`
	PhoneNumber       string              `json:"PhoneNumber"`
	BookingType       string              `json:"BookingType"`
	PaymentMode       string              `json:"PaymentMode"`
	TotalFare         float64             `json:"TotalFare"`
}

type tboBookResponse struct {
	Status             tboStatus `json:"Status"`
	ConfirmationNumber string    `json:"ConfirmationNumber"`
	TotalFare          float64   `json:"TotalFare"`
	Currency           string    `json:"Currency"`
	HotelName          string    `json:"HotelName"`
}

// ConfirmBooking runs the supplier's two-step PreBook/Book flow. PreBook
// revalidates the rate behind the booking code before money moves.
func (t *TBOClient) ConfirmBooking(ctx context.Context, details hotel.BookingDetails) (*hotel.BookingResult, error) {
	if details.BookingToken == "" {
		return nil, fmt.Errorf("tbo: booking code missing from staged offer")
	}
	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}

	var preBook tboPreBookResponse
	err = postJSON(ctx, t.httpClient, fmt.Sprintf("%s/PreBook", t.bookingBaseURL), nil, tboPreBookRequest{
		TokenID:     token,
		BookingCode: details.BookingToken,
		PaymentMode: "Limit",
	}, &preBook)
	if err != nil {
		return nil, fmt.Errorf("tbo: prebook failed: %w", err)
	}
	if preBook.Status.Code != tboStatusOK {
		return nil, fmt.Errorf("tbo: prebook rejected: %s", preBook.Status.Description)
	}

	customers := make([]tboCustomerName, 0, len(details.Guests))
	for _, g := range details.Guests {
		customers = append(customers, tboCustomerName{
			Title:     "Mr",
			FirstName: g.FirstName,
			LastName:  g.LastName,
			Type:      "Adult",
		})
	}

	var book tboBookResponse
	err = postJSON(ctx, t.httpClient, fmt.Sprintf("%s/Book", t.bookingBaseURL), nil, tboBookRequest{
		TokenID:           token,
		BookingCode:       details.BookingToken,
		ClientReferenceID: details.SearchReference,
		CustomerDetails:   []tboCustomerDetail{{CustomerNames: customers}},
		EmailID:           details.ContactEmail,
		PhoneNumber:       details.ContactPhone,
		BookingType:       "Voucher",
		PaymentMode:       "Limit",
		TotalFare:         preBook.TotalFare,
	}, &book)
	if err != nil {
		return nil, fmt.Errorf("tbo: book failed: %w", err)
	}
	if book.Status.Code != tboStatusOK {
		return nil, fmt.Errorf("tbo: book rejected: %s", book.Status.Description)
	}

	hotelName := book.HotelName
	if hotelName == "" {
		hotelName = preBook.HotelName
	}

	return &hotel.BookingResult{
		Provider:              hotel.ProviderTBO,
		ConfirmationReference: book.ConfirmationNumber,
		HotelCode:             details.HotelCode,
		HotelName:             hotelName,
		CheckIn:               details.CheckInDate,
		CheckOut:              details.CheckOutDate,
		RoomCount:             details.RoomCount,
		TotalPrice:            book.TotalFare,
		Currency:              book.Currency,
		CancellationPolicy:    preBook.CancelPolicy,
	}, nil
}

type tboChangeRequest struct {
	TokenID            string `json:"TokenId"`
	ConfirmationNumber string `json:"ConfirmationNumber"`
	BookingMode        int    `json:"BookingMode"`
	RequestType        int    `json:"RequestType"`
	Remarks            string `json:"Remarks"`
}

type tboChangeResponse struct {
	Status             tboStatus `json:"Status"`
	ChangeRequestID    string    `json:"ChangeRequestId"`
	RefundedAmount     float64   `json:"RefundedAmount"`
	CancellationCharge float64   `json:"CancellationCharge"`
}

// CancelBooking sends the supplier's change request type 4 (full booking
// cancellation).
func (t *TBOClient) CancelBooking(ctx context.Context, confirmationRef, reason string) (*hotel.CancellationResult, error) {
	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}

	var resp tboChangeResponse
	err = postJSON(ctx, t.httpClient, fmt.Sprintf("%s/SendChangeRequest", t.sharedBaseURL), nil, tboChangeRequest{
		TokenID:            token,
		ConfirmationNumber: confirmationRef,
		BookingMode:        5,
		RequestType:        4,
		Remarks:            reason,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("tbo: cancel failed: %w", err)
	}
	if resp.Status.Code != tboStatusOK {
		return nil, fmt.Errorf("tbo: cancel rejected: %s", resp.Status.Description)
	}

	return &hotel.CancellationResult{
		CancellationRef: resp.ChangeRequestID,
		RefundAmount:    resp.RefundedAmount,
		Charges:         resp.CancellationCharge,
		RefundDays:      7,
	}, nil
}

type tboBookingDetailRequest struct {
	TokenID            string `json:"TokenId"`
	ConfirmationNumber string `json:"ConfirmationNumber"`
}

type tboBookingDetailResponse struct {
	Status         tboStatus `json:"Status"`
	HotelName      string    `json:"HotelName"`
	CheckIn        string    `json:"CheckIn"`
	CheckOut       string    `json:"CheckOut"`
	NoOfRooms      int       `json:"NoOfRooms"`
	TotalFare      float64   `json:"TotalFare"`
	BookingStatus  string    `json:"BookingStatus"`
	RateConditions string    `json:"RateConditions"`
}

func (t *TBOClient) GetConfirmation(ctx context.Context, confirmationRef string) (*hotel.ConfirmationDetails, error) {
	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}

	var resp tboBookingDetailResponse
	err = postJSON(ctx, t.httpClient, fmt.Sprintf("%s/GetBookingDetail", t.bookingBaseURL), nil, tboBookingDetailRequest{
		TokenID:            token,
		ConfirmationNumber: confirmationRef,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("tbo: booking detail failed: %w", err)
	}
	if resp.Status.Code != tboStatusOK {
		return nil, fmt.Errorf("tbo: booking detail rejected: %s", resp.Status.Description)
	}

	return &hotel.ConfirmationDetails{
		ConfirmationRef:    confirmationRef,
		HotelName:          resp.HotelName,
		CheckIn:            resp.CheckIn,
		CheckOut:           resp.CheckOut,
		RoomCount:          resp.NoOfRooms,
		TotalPrice:         resp.TotalFare,
		Status:             resp.BookingStatus,
		CancellationPolicy: resp.RateConditions,
	}, nil
}
