package hotel

import "time"

// DateLayout is the wire format for check-in/check-out dates.
const DateLayout = "2006-01-02"

type Preferences struct {
	MinRating  float64  `json:"min_rating,omitempty"`
	MaxPrice   float64  `json:"max_price,omitempty"`
	Facilities []string `json:"facilities,omitempty"`
}

// SearchCriteria is built once per search call and never mutated.
type SearchCriteria struct {
	CityCode     string       `json:"city_code"`
	CheckInDate  string       `json:"check_in_date"`
	CheckOutDate string       `json:"check_out_date"`
	RoomCount    int          `json:"room_count"`
	GuestCount   int          `json:"guest_count"`
	Providers    []string     `json:"providers,omitempty"`
	Preferences  *Preferences `json:"preferences,omitempty"`
}

type RoomType struct {
	RoomCode           string  `json:"room_code"`
	RoomName           string  `json:"room_name"`
	BedType            string  `json:"bed_type"`
	Capacity           int     `json:"capacity"`
	Price              float64 `json:"price"`
	CancellationPolicy string  `json:"cancellation_policy"`
}

// SearchResult is a priced offer normalized from one provider. The
// SearchReference binds it to a later confirm call until ExpiresAt.
type SearchResult struct {
	Provider        string     `json:"provider"`
	HotelCode       string     `json:"hotel_code"`
	HotelName       string     `json:"hotel_name"`
	CityCode        string     `json:"city_code"`
	Address         string     `json:"address,omitempty"`
	Rating          float64    `json:"rating"`
	Price           float64    `json:"price"`
	Currency        string     `json:"currency"`
	RoomTypes       []RoomType `json:"room_types"`
	SearchReference string     `json:"search_reference"`
	BookingToken    string     `json:"-"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

type SearchMetadata struct {
	TotalResults       uint32 `json:"total_results"`
	ProvidersQueried   uint32 `json:"providers_queried"`
	ProvidersSucceeded uint32 `json:"providers_succeeded"`
	ProvidersFailed    uint32 `json:"providers_failed"`
	SearchTimeMs       uint32 `json:"search_time_ms,omitempty"`
	CacheKey           string `json:"cache_key,omitempty"`
	CacheHit           bool   `json:"cache_hit"`
}

type SearchResponse struct {
	Criteria SearchCriteria `json:"search_criteria"`
	Metadata SearchMetadata `json:"metadata"`
	Hotels   []SearchResult `json:"hotels"`
}

// RouteNight is one overnight stop of an itinerary.
type RouteNight struct {
	RouteID         int64  `json:"route_id"`
	Date            string `json:"date"`
	DestinationCity string `json:"destination_city"`
}

// PlaceholderHotelName marks a night with no availability in a tier.
const PlaceholderHotelName = "No Hotels Available"

// TierHotel is one night's entry in a price tier: either a real offer or a
// zero-price placeholder when the night had no availability.
type TierHotel struct {
	RouteID     int64        `json:"route_id"`
	Hotel       SearchResult `json:"hotel"`
	Placeholder bool         `json:"placeholder"`
}

type PriceTierPackage struct {
	Tier       int         `json:"tier"`
	Label      string      `json:"label"`
	Hotels     []TierHotel `json:"hotels"`
	TotalPrice float64     `json:"total_price"`
}

type GuestDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type RoomSelection struct {
	RoomCode   string `json:"room_code"`
	Quantity   int    `json:"quantity"`
	GuestCount int    `json:"guest_count"`
}

// BookingDetails is the confirm-booking request against a still-valid
// search reference.
type BookingDetails struct {
	ItineraryPlanID int64           `json:"itinerary_plan_id"`
	RouteID         int64           `json:"route_id"`
	SearchReference string          `json:"search_reference"`
	BookingToken    string          `json:"-"`
	Provider        string          `json:"-"`
	HotelCode       string          `json:"hotel_code"`
	CheckInDate     string          `json:"check_in_date"`
	CheckOutDate    string          `json:"check_out_date"`
	RoomCount       int             `json:"room_count"`
	Guests          []GuestDetails  `json:"guests"`
	Rooms           []RoomSelection `json:"rooms"`
	ContactName     string          `json:"contact_name"`
	ContactEmail    string          `json:"contact_email"`
	ContactPhone    string          `json:"contact_phone"`
}

// BookingResult is the normalized provider confirmation.
type BookingResult struct {
	Provider              string    `json:"provider"`
	ConfirmationReference string    `json:"confirmation_reference"`
	HotelCode             string    `json:"hotel_code"`
	HotelName             string    `json:"hotel_name"`
	CheckIn               string    `json:"check_in"`
	CheckOut              string    `json:"check_out"`
	RoomCount             int       `json:"room_count"`
	TotalPrice            float64   `json:"total_price"`
	Currency              string    `json:"currency"`
	CancellationPolicy    string    `json:"cancellation_policy"`
	BookingDeadline       time.Time `json:"booking_deadline"`
}

type CancellationResult struct {
	CancellationRef string  `json:"cancellation_ref"`
	RefundAmount    float64 `json:"refund_amount"`
	Charges         float64 `json:"charges"`
	RefundDays      int     `json:"refund_days"`
}

type ConfirmationDetails struct {
	ConfirmationRef    string  `json:"confirmation_ref"`
	HotelName          string  `json:"hotel_name"`
	CheckIn            string  `json:"check_in"`
	CheckOut           string  `json:"check_out"`
	RoomCount          int     `json:"room_count"`
	TotalPrice         float64 `json:"total_price"`
	Status             string  `json:"status"`
	CancellationPolicy string  `json:"cancellation_policy"`
}

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingCancelled      BookingStatus = "cancelled"
)

// BookingConfirmation is the persisted booking record. Status is the only
// field that changes after creation.
type BookingConfirmation struct {
	ID                    int64         `json:"id"`
	ItineraryPlanID       int64         `json:"itinerary_plan_id"`
	RouteID               int64         `json:"route_id"`
	ConfirmationReference string        `json:"confirmation_reference"`
	Provider              string        `json:"provider"`
	HotelCode             string        `json:"hotel_code"`
	HotelName             string        `json:"hotel_name"`
	SearchReference       string        `json:"search_reference"`
	CheckInDate           time.Time     `json:"check_in_date"`
	CheckOutDate          time.Time     `json:"check_out_date"`
	RoomCount             int           `json:"room_count"`
	TotalPrice            float64       `json:"total_price"`
	Currency              string        `json:"currency"`
	Status                BookingStatus `json:"status"`
	BookingDeadline       time.Time     `json:"booking_deadline"`
	PaymentID             string        `json:"payment_id,omitempty"`
}

type CancellationRecord struct {
	ConfirmationReference string  `json:"confirmation_reference"`
	CancellationRef       string  `json:"cancellation_ref"`
	Reason                string  `json:"reason"`
	RefundAmount          float64 `json:"refund_amount"`
	Charges               float64 `json:"charges"`
	RefundDays            int     `json:"refund_days"`
}

// RouteCancellation is the per-booking outcome of a route-scoped cancel.
type RouteCancellation struct {
	ConfirmationReference string  `json:"confirmation_reference"`
	RouteID               int64   `json:"route_id"`
	Provider              string  `json:"provider"`
	Cancelled             bool    `json:"cancelled"`
	RefundAmount          float64 `json:"refund_amount,omitempty"`
	Error                 string  `json:"error,omitempty"`
}

type PaymentOrder struct {
	ConfirmationReference string    `json:"confirmation_reference"`
	Amount                float64   `json:"amount"`
	Currency              string    `json:"currency"`
	HotelName             string    `json:"hotel_name"`
	CheckIn               time.Time `json:"check_in"`
	CheckOut              time.Time `json:"check_out"`
	RoomCount             int       `json:"room_count"`
}
