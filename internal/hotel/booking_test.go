package hotel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type bookingFixture struct {
	service       *BookingService
	provider      *fakeProvider
	results       *memorySearchResultStore
	confirmations *memoryConfirmationStore
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	provider := &fakeProvider{
		name: ProviderTBO,
		confirmResult: &BookingResult{
			Provider:              ProviderTBO,
			ConfirmationReference: "TBO-CONF-1",
			HotelCode:             "H1",
			HotelName:             "Grand Plaza",
			CheckIn:               futureDate(7),
			CheckOut:              futureDate(9),
			RoomCount:             1,
			TotalPrice:            250,
			Currency:              "INR",
		},
		cancelResult: &CancellationResult{
			CancellationRef: "CHG-9",
			RefundAmount:    200,
			Charges:         50,
			RefundDays:      7,
		},
	}

	results := newMemorySearchResultStore()
	confirmations := newMemoryConfirmationStore(results)
	service := NewBookingService(NewRegistry(provider), results, confirmations,
		&fakeIDGen{}, newTestMetrics(), nopLogger{})

	return &bookingFixture{
		service:       service,
		provider:      provider,
		results:       results,
		confirmations: confirmations,
	}
}

func (f *bookingFixture) stage(t *testing.T, reference string, expiresAt time.Time) {
	t.Helper()
	err := f.results.StageResults(context.Background(), []SearchResult{{
		Provider:        ProviderTBO,
		HotelCode:       "H1",
		HotelName:       "Grand Plaza",
		Price:           250,
		Currency:        "INR",
		SearchReference: reference,
		BookingToken:    "BC-1",
		ExpiresAt:       expiresAt,
	}})
	assert.NoError(t, err)
}

func validDetails(reference string) BookingDetails {
	return BookingDetails{
		ItineraryPlanID: 42,
		RouteID:         1,
		SearchReference: reference,
		CheckInDate:     futureDate(7),
		CheckOutDate:    futureDate(9),
		RoomCount:       1,
		Guests:          []GuestDetails{{FirstName: "Asha", LastName: "Rao"}},
		ContactEmail:    "asha@example.com",
		ContactPhone:    "9999999999",
	}
}

func TestConfirmHotelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("success creates a pending_payment record", func(t *testing.T) {
		f := newBookingFixture(t)
		f.stage(t, "ref-1", time.Now().Add(10*time.Minute))

		confirmation, err := f.service.ConfirmHotelBooking(ctx, validDetails("ref-1"))

		assert.NoError(t, err)
		assert.Equal(t, BookingPendingPayment, confirmation.Status)
		assert.Equal(t, "TBO-CONF-1", confirmation.ConfirmationReference)
		assert.Equal(t, int64(42), confirmation.ItineraryPlanID)
		assert.Equal(t, 1, f.provider.confirmCalls)

		stored, err := f.confirmations.FindByReference(ctx, "TBO-CONF-1")
		assert.NoError(t, err)
		assert.Equal(t, BookingPendingPayment, stored.Status)
	})

	t.Run("unknown reference is not found", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.service.ConfirmHotelBooking(ctx, validDetails("no-such-ref"))

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeNotFound, appErr.Code)
		assert.Equal(t, 0, f.provider.confirmCalls)
	})

	t.Run("expired reference never reaches the provider", func(t *testing.T) {
		f := newBookingFixture(t)
		f.stage(t, "ref-old", time.Now().Add(-time.Minute))

		_, err := f.service.ConfirmHotelBooking(ctx, validDetails("ref-old"))

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeReferenceExpired, appErr.Code)
		assert.Equal(t, 0, f.provider.confirmCalls)
	})

	t.Run("a reference confirms at most once", func(t *testing.T) {
		f := newBookingFixture(t)
		f.stage(t, "ref-2", time.Now().Add(10*time.Minute))

		_, err := f.service.ConfirmHotelBooking(ctx, validDetails("ref-2"))
		assert.NoError(t, err)

		_, err = f.service.ConfirmHotelBooking(ctx, validDetails("ref-2"))

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeWrongState, appErr.Code)
	})

	t.Run("provider failure surfaces as provider error", func(t *testing.T) {
		f := newBookingFixture(t)
		f.stage(t, "ref-3", time.Now().Add(10*time.Minute))
		f.provider.confirmErr = errors.New("sold out")

		_, err := f.service.ConfirmHotelBooking(ctx, validDetails("ref-3"))

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeProviderFailure, appErr.Code)
	})

	t.Run("missing guests is a validation error", func(t *testing.T) {
		f := newBookingFixture(t)
		details := validDetails("ref-x")
		details.Guests = nil

		_, err := f.service.ConfirmHotelBooking(ctx, details)

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeValidation, appErr.Code)
	})
}

func TestPaymentFlow(t *testing.T) {
	ctx := context.Background()

	confirm := func(t *testing.T, f *bookingFixture, ref string) *BookingConfirmation {
		t.Helper()
		f.stage(t, ref, time.Now().Add(10*time.Minute))
		confirmation, err := f.service.ConfirmHotelBooking(ctx, validDetails(ref))
		assert.NoError(t, err)
		return confirmation
	}

	t.Run("initiate returns the order for a pending booking", func(t *testing.T) {
		f := newBookingFixture(t)
		confirmation := confirm(t, f, "ref-p1")

		order, err := f.service.InitiatePayment(ctx, confirmation.ConfirmationReference)

		assert.NoError(t, err)
		assert.Equal(t, 250.0, order.Amount)
		assert.Equal(t, "INR", order.Currency)
	})

	t.Run("finalize moves pending to confirmed", func(t *testing.T) {
		f := newBookingFixture(t)
		confirmation := confirm(t, f, "ref-p2")

		updated, err := f.service.FinalizePayment(ctx, confirmation.ConfirmationReference, "pay-77")

		assert.NoError(t, err)
		assert.Equal(t, BookingConfirmed, updated.Status)
		assert.Equal(t, "pay-77", updated.PaymentID)
	})

	t.Run("finalize is idempotent once confirmed", func(t *testing.T) {
		f := newBookingFixture(t)
		confirmation := confirm(t, f, "ref-p3")

		first, err := f.service.FinalizePayment(ctx, confirmation.ConfirmationReference, "pay-1")
		assert.NoError(t, err)

		second, err := f.service.FinalizePayment(ctx, confirmation.ConfirmationReference, "pay-2")
		assert.NoError(t, err)
		assert.Equal(t, BookingConfirmed, second.Status)
		assert.Equal(t, first.PaymentID, second.PaymentID)
	})

	t.Run("finalize after cancel is a wrong state", func(t *testing.T) {
		f := newBookingFixture(t)
		confirmation := confirm(t, f, "ref-p4")

		_, err := f.service.FinalizePayment(ctx, confirmation.ConfirmationReference, "pay-1")
		assert.NoError(t, err)
		_, err = f.service.CancelBooking(ctx, confirmation.ConfirmationReference, "plans changed")
		assert.NoError(t, err)

		_, err = f.service.FinalizePayment(ctx, confirmation.ConfirmationReference, "pay-2")

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeWrongState, appErr.Code)
	})

	t.Run("initiate on unknown booking is not found", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.service.InitiatePayment(ctx, "missing")

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeNotFound, appErr.Code)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	setupConfirmed := func(t *testing.T, f *bookingFixture, ref string) *BookingConfirmation {
		t.Helper()
		f.stage(t, ref, time.Now().Add(10*time.Minute))
		confirmation, err := f.service.ConfirmHotelBooking(ctx, validDetails(ref))
		assert.NoError(t, err)
		_, err = f.service.FinalizePayment(ctx, confirmation.ConfirmationReference, "pay-1")
		assert.NoError(t, err)
		return confirmation
	}

	t.Run("cancels a confirmed booking and records the refund", func(t *testing.T) {
		f := newBookingFixture(t)
		confirmation := setupConfirmed(t, f, "ref-c1")

		result, err := f.service.CancelBooking(ctx, confirmation.ConfirmationReference, "trip cancelled")

		assert.NoError(t, err)
		assert.Equal(t, "CHG-9", result.CancellationRef)
		assert.Equal(t, 200.0, result.RefundAmount)

		stored, err := f.confirmations.FindByReference(ctx, confirmation.ConfirmationReference)
		assert.NoError(t, err)
		assert.Equal(t, BookingCancelled, stored.Status)
		assert.Len(t, f.confirmations.cancellations, 1)
		assert.Equal(t, "trip cancelled", f.confirmations.cancellations[0].Reason)
	})

	t.Run("pending booking cannot cancel", func(t *testing.T) {
		f := newBookingFixture(t)
		f.stage(t, "ref-c2", time.Now().Add(10*time.Minute))
		confirmation, err := f.service.ConfirmHotelBooking(ctx, validDetails("ref-c2"))
		assert.NoError(t, err)

		_, err = f.service.CancelBooking(ctx, confirmation.ConfirmationReference, "")

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeWrongState, appErr.Code)
		assert.Equal(t, 0, f.provider.cancelCalls)
	})

	t.Run("cancel is not repeatable", func(t *testing.T) {
		f := newBookingFixture(t)
		confirmation := setupConfirmed(t, f, "ref-c3")

		_, err := f.service.CancelBooking(ctx, confirmation.ConfirmationReference, "")
		assert.NoError(t, err)

		_, err = f.service.CancelBooking(ctx, confirmation.ConfirmationReference, "")

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeWrongState, appErr.Code)
	})
}

func TestCancelByRoutes(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels confirmed bookings per route best-effort", func(t *testing.T) {
		f := newBookingFixture(t)

		// Route 1: confirmed booking. Route 2: still pending payment.
		f.stage(t, "ref-r1", time.Now().Add(10*time.Minute))
		details := validDetails("ref-r1")
		c1, err := f.service.ConfirmHotelBooking(ctx, details)
		assert.NoError(t, err)
		_, err = f.service.FinalizePayment(ctx, c1.ConfirmationReference, "pay-1")
		assert.NoError(t, err)

		f.stage(t, "ref-r2", time.Now().Add(10*time.Minute))
		f.provider.confirmResult = &BookingResult{
			Provider:              ProviderTBO,
			ConfirmationReference: "TBO-CONF-2",
			TotalPrice:            300,
			Currency:              "INR",
			RoomCount:             1,
		}
		details2 := validDetails("ref-r2")
		details2.RouteID = 2
		_, err = f.service.ConfirmHotelBooking(ctx, details2)
		assert.NoError(t, err)

		outcomes, err := f.service.CancelByRoutes(ctx, 42, []int64{1, 2}, "itinerary dropped")

		assert.NoError(t, err)
		assert.Len(t, outcomes, 2)

		byRoute := map[int64]RouteCancellation{}
		for _, o := range outcomes {
			byRoute[o.RouteID] = o
		}
		assert.True(t, byRoute[1].Cancelled)
		assert.False(t, byRoute[2].Cancelled)
		assert.NotEmpty(t, byRoute[2].Error)
	})

	t.Run("empty route list is a validation error", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.service.CancelByRoutes(ctx, 42, nil, "")

		var appErr *AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeValidation, appErr.Code)
	})

	t.Run("routes without bookings yield no outcomes", func(t *testing.T) {
		f := newBookingFixture(t)

		outcomes, err := f.service.CancelByRoutes(ctx, 42, []int64{9}, "")

		assert.NoError(t, err)
		assert.Empty(t, outcomes)
	})
}
