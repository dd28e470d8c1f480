package hotel

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tripdesk/pkg/db"
)

var (
	// ErrReferenceNotFound means no staged result exists for a search reference.
	ErrReferenceNotFound = errors.New("search reference not found")
	// ErrReferenceConsumed means a search reference was already used to confirm.
	ErrReferenceConsumed = errors.New("search reference already consumed")
	// ErrConfirmationNotFound means no booking exists for a confirmation reference.
	ErrConfirmationNotFound = errors.New("confirmation not found")
)

// SearchResultStore stages provider offers so a confirm call can look the
// offer up again by its search reference.
type SearchResultStore interface {
	StageResults(ctx context.Context, results []SearchResult) error
	FindByReference(ctx context.Context, searchReference string) (*SearchResult, error)
}

// ConfirmationStore persists booking confirmations and their lifecycle.
type ConfirmationStore interface {
	// CreateWithReferenceConsume atomically consumes the search reference
	// and inserts the confirmation. A second call with the same reference
	// returns ErrReferenceConsumed.
	CreateWithReferenceConsume(ctx context.Context, confirmation *BookingConfirmation) error
	FindByReference(ctx context.Context, confirmationReference string) (*BookingConfirmation, error)
	UpdateStatus(ctx context.Context, confirmationReference string, status BookingStatus, paymentID string) error
	FindByRoutes(ctx context.Context, itineraryPlanID int64, routeIDs []int64) ([]BookingConfirmation, error)
	RecordCancellation(ctx context.Context, record CancellationRecord) error
}

// HotelMasterStore serves the static hotel inventory per city.
type HotelMasterStore interface {
	HotelCodesForCity(ctx context.Context, cityCode string) ([]string, error)
	HotelByCode(ctx context.Context, hotelCode string) (*HotelMaster, error)
}

// HotelMaster is one row of the static hotel inventory.
type HotelMaster struct {
	HotelCode string
	HotelName string
	CityCode  string
	Address   string
	Rating    float64
}

type SQLSearchResultStore struct {
	db db.SQLExecutor
}

func NewSQLSearchResultStore(db db.SQLExecutor) *SQLSearchResultStore {
	return &SQLSearchResultStore{db: db}
}

func (s *SQLSearchResultStore) StageResults(ctx context.Context, results []SearchResult) error {
	const query = `
		INSERT INTO hotel_search_results
			(search_reference, provider, hotel_code, hotel_name, city_code,
			 address, rating, price, currency, room_types, booking_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (search_reference) DO NOTHING`

	for _, r := range results {
		roomTypes, err := json.Marshal(r.RoomTypes)
		if err != nil {
			return fmt.Errorf("failed to marshal room types: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query,
			r.SearchReference, r.Provider, r.HotelCode, r.HotelName, r.CityCode,
			r.Address, r.Rating, r.Price, r.Currency, roomTypes, r.BookingToken, r.ExpiresAt,
		); err != nil {
			return fmt.Errorf("failed to stage search result: %w", err)
		}
	}
	return nil
}

func (s *SQLSearchResultStore) FindByReference(ctx context.Context, searchReference string) (*SearchResult, error) {
	const query = `
		SELECT search_reference, provider, hotel_code, hotel_name, city_code,
		       address, rating, price, currency, room_types,
		       COALESCE(booking_token, ''), expires_at
		FROM hotel_search_results
		WHERE search_reference = $1`

	var result SearchResult
	var roomTypes []byte
	err := s.db.QueryRowContext(ctx, query, searchReference).Scan(
		&result.SearchReference, &result.Provider, &result.HotelCode,
		&result.HotelName, &result.CityCode, &result.Address, &result.Rating,
		&result.Price, &result.Currency, &roomTypes, &result.BookingToken,
		&result.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find search result: %w", err)
	}
	if err := json.Unmarshal(roomTypes, &result.RoomTypes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room types: %w", err)
	}
	return &result, nil
}

type SQLConfirmationStore struct {
	db db.SQLExecutor
}

func NewSQLConfirmationStore(db db.SQLExecutor) *SQLConfirmationStore {
	return &SQLConfirmationStore{db: db}
}

func (s *SQLConfirmationStore) CreateWithReferenceConsume(ctx context.Context, confirmation *BookingConfirmation) error {
	return s.db.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE hotel_search_results
			SET consumed = TRUE
			WHERE search_reference = $1 AND consumed = FALSE`,
			confirmation.SearchReference,
		)
		if err != nil {
			return fmt.Errorf("failed to consume search reference: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read consume result: %w", err)
		}
		if affected == 0 {
			return ErrReferenceConsumed
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO hotel_confirmations
				(itinerary_plan_id, route_id, confirmation_reference, provider,
				 hotel_code, hotel_name, search_reference, check_in_date,
				 check_out_date, room_count, total_price, currency, status,
				 booking_deadline)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id`,
			confirmation.ItineraryPlanID, confirmation.RouteID,
			confirmation.ConfirmationReference, confirmation.Provider,
			confirmation.HotelCode, confirmation.HotelName,
			confirmation.SearchReference, confirmation.CheckInDate,
			confirmation.CheckOutDate, confirmation.RoomCount,
			confirmation.TotalPrice, confirmation.Currency,
			confirmation.Status, confirmation.BookingDeadline,
		).Scan(&confirmation.ID)
		if err != nil {
			return fmt.Errorf("failed to insert confirmation: %w", err)
		}
		return nil
	})
}

const confirmationColumns = `
	id, itinerary_plan_id, route_id, confirmation_reference, provider,
	hotel_code, hotel_name, search_reference, check_in_date, check_out_date,
	room_count, total_price, currency, status,
	COALESCE(booking_deadline, 'epoch'::timestamptz), COALESCE(payment_id, '')`

func scanConfirmation(row interface{ Scan(...any) error }) (*BookingConfirmation, error) {
	var c BookingConfirmation
	err := row.Scan(
		&c.ID, &c.ItineraryPlanID, &c.RouteID, &c.ConfirmationReference,
		&c.Provider, &c.HotelCode, &c.HotelName, &c.SearchReference,
		&c.CheckInDate, &c.CheckOutDate, &c.RoomCount, &c.TotalPrice,
		&c.Currency, &c.Status, &c.BookingDeadline, &c.PaymentID,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLConfirmationStore) FindByReference(ctx context.Context, confirmationReference string) (*BookingConfirmation, error) {
	query := `SELECT ` + confirmationColumns + `
		FROM hotel_confirmations
		WHERE confirmation_reference = $1`

	c, err := scanConfirmation(s.db.QueryRowContext(ctx, query, confirmationReference))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfirmationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find confirmation: %w", err)
	}
	return c, nil
}

func (s *SQLConfirmationStore) UpdateStatus(ctx context.Context, confirmationReference string, status BookingStatus, paymentID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE hotel_confirmations
		SET status = $1, payment_id = NULLIF($2, ''), updated_at = NOW()
		WHERE confirmation_reference = $3`,
		status, paymentID, confirmationReference,
	)
	if err != nil {
		return fmt.Errorf("failed to update confirmation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrConfirmationNotFound
	}
	return nil
}

func (s *SQLConfirmationStore) FindByRoutes(ctx context.Context, itineraryPlanID int64, routeIDs []int64) ([]BookingConfirmation, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + confirmationColumns + `
		FROM hotel_confirmations
		WHERE itinerary_plan_id = $1 AND route_id = ANY($2)
		ORDER BY route_id, id`

	rows, err := s.db.QueryContext(ctx, query, itineraryPlanID, int64Array(routeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmations by route: %w", err)
	}
	defer rows.Close()

	var confirmations []BookingConfirmation
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		confirmations = append(confirmations, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate confirmations: %w", err)
	}
	return confirmations, nil
}

func (s *SQLConfirmationStore) RecordCancellation(ctx context.Context, record CancellationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hotel_cancellations
			(confirmation_reference, cancellation_ref, reason, refund_amount,
			 charges, refund_days)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ConfirmationReference, record.CancellationRef, record.Reason,
		record.RefundAmount, record.Charges, record.RefundDays,
	)
	if err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}
	return nil
}

// int64Array renders an int64 slice as a postgres array literal for ANY($n).
func int64Array(ids []int64) string {
	out := "{"
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", id)
	}
	return out + "}"
}

type SQLCityStore struct {
	db db.SQLExecutor
}

func NewSQLCityStore(db db.SQLExecutor) *SQLCityStore {
	return &SQLCityStore{db: db}
}

func (s *SQLCityStore) AllCities(ctx context.Context) ([]CityRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tbo_city_code,
		       COALESCE(resavenue_city_code, ''), COALESCE(hobse_city_code, '')
		FROM cities
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cities: %w", err)
	}
	defer rows.Close()

	var cities []CityRef
	for rows.Next() {
		var c CityRef
		if err := rows.Scan(&c.ID, &c.Name, &c.TBOCityCode, &c.ResAvenueCityCode, &c.HobseCityCode); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cities: %w", err)
	}
	return cities, nil
}

type SQLHotelMasterStore struct {
	db db.SQLExecutor
}

func NewSQLHotelMasterStore(db db.SQLExecutor) *SQLHotelMasterStore {
	return &SQLHotelMasterStore{db: db}
}

func (s *SQLHotelMasterStore) HotelCodesForCity(ctx context.Context, cityCode string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hotel_code FROM hotel_master WHERE city_code = $1 ORDER BY hotel_code`,
		cityCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query hotel codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan hotel code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hotel codes: %w", err)
	}
	return codes, nil
}

func (s *SQLHotelMasterStore) HotelByCode(ctx context.Context, hotelCode string) (*HotelMaster, error) {
	var h HotelMaster
	err := s.db.QueryRowContext(ctx, `
		SELECT hotel_code, hotel_name, city_code, COALESCE(address, ''), COALESCE(rating, 0)
		FROM hotel_master
		WHERE hotel_code = $1`,
		hotelCode).Scan(&h.HotelCode, &h.HotelName, &h.CityCode, &h.Address, &h.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find hotel: %w", err)
	}
	return &h, nil
}
