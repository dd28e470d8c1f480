package hotel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tripdesk/internal/obs"
	"tripdesk/pkg/idgen"
	"tripdesk/pkg/logger"
)

// BookingService drives the confirm/payment/cancel lifecycle of a hotel
// booking against the staged search results and the provider adapters.
type BookingService struct {
	registry      *Registry
	searchResults SearchResultStore
	confirmations ConfirmationStore
	idgen         idgen.Generator
	metrics       *obs.Metrics
	logger        logger.Client
	now           func() time.Time
}

func NewBookingService(registry *Registry, searchResults SearchResultStore, confirmations ConfirmationStore, idgen idgen.Generator, metrics *obs.Metrics, logger logger.Client) *BookingService {
	return &BookingService{
		registry:      registry,
		searchResults: searchResults,
		confirmations: confirmations,
		idgen:         idgen,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// ConfirmHotelBooking books the staged offer behind a search reference. The
// reference is checked before the provider is called: an expired or unknown
// reference never reaches the supplier. Each reference confirms at most once.
func (s *BookingService) ConfirmHotelBooking(ctx context.Context, details BookingDetails) (*BookingConfirmation, error) {
	if details.SearchReference == "" {
		return nil, NewValidationError("search reference is required")
	}
	if len(details.Guests) == 0 {
		return nil, NewValidationError("at least one guest is required")
	}

	staged, err := s.searchResults.FindByReference(ctx, details.SearchReference)
	if errors.Is(err, ErrReferenceNotFound) {
		return nil, NewNotFoundError("search reference not found")
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if s.now().After(staged.ExpiresAt) {
		return nil, NewReferenceExpiredError("search reference expired, search again")
	}

	provider, ok := s.registry.Get(staged.Provider)
	if !ok {
		return nil, NewInternalError(fmt.Sprintf("no adapter registered for provider %s", staged.Provider), nil)
	}

	details.Provider = staged.Provider
	details.BookingToken = staged.BookingToken
	if details.HotelCode == "" {
		details.HotelCode = staged.HotelCode
	}

	result, err := provider.ConfirmBooking(ctx, details)
	if err != nil {
		s.metrics.IncBooking("confirm_failed")
		var appErr *AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, NewProviderFailureError(staged.Provider, err)
	}

	if result.ConfirmationReference == "" {
		result.ConfirmationReference = fmt.Sprintf("TD-%d", s.idgen.GenerateID())
	}

	checkIn, err := time.Parse(DateLayout, result.CheckIn)
	if err != nil {
		checkIn, _ = time.Parse(DateLayout, details.CheckInDate)
	}
	checkOut, err := time.Parse(DateLayout, result.CheckOut)
	if err != nil {
		checkOut, _ = time.Parse(DateLayout, details.CheckOutDate)
	}

	confirmation := &BookingConfirmation{
		ItineraryPlanID:       details.ItineraryPlanID,
		RouteID:               details.RouteID,
		ConfirmationReference: result.ConfirmationReference,
		Provider:              result.Provider,
		HotelCode:             result.HotelCode,
		HotelName:             result.HotelName,
		SearchReference:       details.SearchReference,
		CheckInDate:           checkIn,
		CheckOutDate:          checkOut,
		RoomCount:             result.RoomCount,
		TotalPrice:            result.TotalPrice,
		Currency:              result.Currency,
		Status:                BookingPendingPayment,
		BookingDeadline:       result.BookingDeadline,
	}

	if err := s.confirmations.CreateWithReferenceConsume(ctx, confirmation); err != nil {
		if errors.Is(err, ErrReferenceConsumed) {
			return nil, NewWrongStateError("search reference was already booked")
		}
		// Provider hold exists but the record did not persist; surface the
		// failure so the hold can be released manually.
		s.logger.Error("booking persisted at provider but not locally",
			logger.Field{Key: "confirmation_reference", Value: result.ConfirmationReference},
			logger.Field{Key: "provider", Value: result.Provider},
			logger.Field{Key: "err", Value: err},
		)
		return nil, NewPersistenceError(err)
	}

	s.metrics.IncBooking("confirmed")
	s.logger.Info("hotel booking confirmed",
		logger.Field{Key: "confirmation_reference", Value: confirmation.ConfirmationReference},
		logger.Field{Key: "provider", Value: confirmation.Provider},
		logger.Field{Key: "route_id", Value: confirmation.RouteID},
	)
	return confirmation, nil
}

// InitiatePayment builds the payment order for a pending booking.
func (s *BookingService) InitiatePayment(ctx context.Context, confirmationRef string) (*PaymentOrder, error) {
	confirmation, err := s.findConfirmation(ctx, confirmationRef)
	if err != nil {
		return nil, err
	}
	if confirmation.Status != BookingPendingPayment {
		return nil, NewWrongStateError(fmt.Sprintf("booking is %s, payment can only start while pending", confirmation.Status))
	}
	if !confirmation.BookingDeadline.IsZero() && s.now().After(confirmation.BookingDeadline) {
		return nil, NewWrongStateError("booking deadline has passed")
	}

	return &PaymentOrder{
		ConfirmationReference: confirmation.ConfirmationReference,
		Amount:                confirmation.TotalPrice,
		Currency:              confirmation.Currency,
		HotelName:             confirmation.HotelName,
		CheckIn:               confirmation.CheckInDate,
		CheckOut:              confirmation.CheckOutDate,
		RoomCount:             confirmation.RoomCount,
	}, nil
}

// FinalizePayment moves a pending booking to confirmed. Finalizing an
// already-confirmed booking is a no-op so payment callbacks can retry.
func (s *BookingService) FinalizePayment(ctx context.Context, confirmationRef, paymentID string) (*BookingConfirmation, error) {
	confirmation, err := s.findConfirmation(ctx, confirmationRef)
	if err != nil {
		return nil, err
	}

	switch confirmation.Status {
	case BookingConfirmed:
		return confirmation, nil
	case BookingCancelled:
		return nil, NewWrongStateError("booking is cancelled, payment cannot be finalized")
	}

	if err := s.confirmations.UpdateStatus(ctx, confirmationRef, BookingConfirmed, paymentID); err != nil {
		return nil, NewPersistenceError(err)
	}

	confirmation.Status = BookingConfirmed
	confirmation.PaymentID = paymentID
	s.metrics.IncBooking("paid")
	s.logger.Info("hotel booking payment finalized",
		logger.Field{Key: "confirmation_reference", Value: confirmationRef},
		logger.Field{Key: "payment_id", Value: paymentID},
	)
	return confirmation, nil
}

// GetConfirmation fetches the live booking state from the owning provider,
// falling back to the stored record when the provider call fails.
func (s *BookingService) GetConfirmation(ctx context.Context, confirmationRef string) (*BookingConfirmation, *ConfirmationDetails, error) {
	confirmation, err := s.findConfirmation(ctx, confirmationRef)
	if err != nil {
		return nil, nil, err
	}

	provider, ok := s.registry.Get(confirmation.Provider)
	if !ok {
		return confirmation, nil, nil
	}

	details, err := provider.GetConfirmation(ctx, confirmationRef)
	if err != nil {
		s.logger.Warn("provider confirmation lookup failed, serving stored record",
			logger.Field{Key: "confirmation_reference", Value: confirmationRef},
			logger.Field{Key: "provider", Value: confirmation.Provider},
			logger.Field{Key: "err", Value: err},
		)
		return confirmation, nil, nil
	}
	return confirmation, details, nil
}

// CancelBooking cancels one confirmed booking at its provider and records
// the refund terms. Only confirmed bookings can cancel.
func (s *BookingService) CancelBooking(ctx context.Context, confirmationRef, reason string) (*CancellationResult, error) {
	confirmation, err := s.findConfirmation(ctx, confirmationRef)
	if err != nil {
		return nil, err
	}
	if confirmation.Status != BookingConfirmed {
		return nil, NewWrongStateError(fmt.Sprintf("booking is %s, only confirmed bookings can be cancelled", confirmation.Status))
	}

	provider, ok := s.registry.Get(confirmation.Provider)
	if !ok {
		return nil, NewInternalError(fmt.Sprintf("no adapter registered for provider %s", confirmation.Provider), nil)
	}

	result, err := provider.CancelBooking(ctx, confirmationRef, reason)
	if err != nil {
		s.metrics.IncBooking("cancel_failed")
		var appErr *AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, NewProviderFailureError(confirmation.Provider, err)
	}

	if err := s.confirmations.UpdateStatus(ctx, confirmationRef, BookingCancelled, confirmation.PaymentID); err != nil {
		return nil, NewPersistenceError(err)
	}
	if err := s.confirmations.RecordCancellation(ctx, CancellationRecord{
		ConfirmationReference: confirmationRef,
		CancellationRef:       result.CancellationRef,
		Reason:                reason,
		RefundAmount:          result.RefundAmount,
		Charges:               result.Charges,
		RefundDays:            result.RefundDays,
	}); err != nil {
		s.logger.Error("failed to record cancellation audit row",
			logger.Field{Key: "confirmation_reference", Value: confirmationRef},
			logger.Field{Key: "err", Value: err},
		)
	}

	s.metrics.IncBooking("cancelled")
	s.logger.Info("hotel booking cancelled",
		logger.Field{Key: "confirmation_reference", Value: confirmationRef},
		logger.Field{Key: "cancellation_ref", Value: result.CancellationRef},
	)
	return result, nil
}

// CancelByRoutes cancels every confirmed booking on the given routes of an
// itinerary, concurrently and best-effort: one booking failing to cancel
// never stops the others.
func (s *BookingService) CancelByRoutes(ctx context.Context, itineraryPlanID int64, routeIDs []int64, reason string) ([]RouteCancellation, error) {
	if len(routeIDs) == 0 {
		return nil, NewValidationError("at least one route id is required")
	}

	bookings, err := s.confirmations.FindByRoutes(ctx, itineraryPlanID, routeIDs)
	if err != nil {
		return nil, NewPersistenceError(err)
	}

	outcomes := make([]RouteCancellation, len(bookings))
	var wg sync.WaitGroup
	for i, booking := range bookings {
		wg.Add(1)
		go func(i int, booking BookingConfirmation) {
			defer wg.Done()
			outcomes[i] = s.cancelOne(ctx, booking, reason)
		}(i, booking)
	}
	wg.Wait()

	return outcomes, nil
}

func (s *BookingService) cancelOne(ctx context.Context, booking BookingConfirmation, reason string) RouteCancellation {
	outcome := RouteCancellation{
		ConfirmationReference: booking.ConfirmationReference,
		RouteID:               booking.RouteID,
		Provider:              booking.Provider,
	}

	if booking.Status != BookingConfirmed {
		outcome.Error = fmt.Sprintf("booking is %s, skipped", booking.Status)
		return outcome
	}

	result, err := s.CancelBooking(ctx, booking.ConfirmationReference, reason)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Cancelled = true
	outcome.RefundAmount = result.RefundAmount
	return outcome
}

func (s *BookingService) findConfirmation(ctx context.Context, confirmationRef string) (*BookingConfirmation, error) {
	if confirmationRef == "" {
		return nil, NewValidationError("confirmation reference is required")
	}
	confirmation, err := s.confirmations.FindByReference(ctx, confirmationRef)
	if errors.Is(err, ErrConfirmationNotFound) {
		return nil, NewNotFoundError("booking not found")
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return confirmation, nil
}
