package hotel

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	search   *Service
	packages *PackageBuilder
	bookings *BookingService
}

func NewHandler(search *Service, packages *PackageBuilder, bookings *BookingService) *Handler {
	return &Handler{
		search:   search,
		packages: packages,
		bookings: bookings,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/v1/hotels/search", h.SearchHotelsHandler)
	router.POST("/v1/hotels/search/invalidate", h.InvalidateSearchHandler)
	router.POST("/v1/itineraries/packages", h.BuildPackagesHandler)
	router.POST("/v1/bookings/confirm", h.ConfirmBookingHandler)
	router.POST("/v1/bookings/payment/initiate/:ref", h.InitiatePaymentHandler)
	router.POST("/v1/bookings/payment/finalize/:ref", h.FinalizePaymentHandler)
	router.GET("/v1/bookings/:ref", h.GetBookingHandler)
	router.POST("/v1/bookings/cancel/:ref", h.CancelBookingHandler)
	router.POST("/v1/bookings/cancel-routes", h.CancelRoutesHandler)
}

func (h *Handler) SearchHotelsHandler(c *gin.Context) {
	var criteria SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON body",
			"code":  ErrorCodeValidation,
		})
		return
	}

	response, err := h.search.SearchHotels(c.Request.Context(), criteria)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) InvalidateSearchHandler(c *gin.Context) {
	var criteria SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON body",
			"code":  ErrorCodeValidation,
		})
		return
	}

	if err := h.search.InvalidateCache(c.Request.Context(), criteria); err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invalidated": true})
}

func (h *Handler) BuildPackagesHandler(c *gin.Context) {
	var req PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON body",
			"code":  ErrorCodeValidation,
		})
		return
	}

	packages, err := h.packages.BuildPackages(c.Request.Context(), req)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"itinerary_plan_id": req.ItineraryPlanID,
		"packages":          packages,
	})
}

func (h *Handler) ConfirmBookingHandler(c *gin.Context) {
	var details BookingDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON body",
			"code":  ErrorCodeValidation,
		})
		return
	}

	confirmation, err := h.bookings.ConfirmHotelBooking(c.Request.Context(), details)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusCreated, confirmation)
}

func (h *Handler) InitiatePaymentHandler(c *gin.Context) {
	order, err := h.bookings.InitiatePayment(c.Request.Context(), c.Param("ref"))
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

type finalizePaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
}

func (h *Handler) FinalizePaymentHandler(c *gin.Context) {
	var req finalizePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "payment_id is required",
			"code":  ErrorCodeValidation,
		})
		return
	}

	confirmation, err := h.bookings.FinalizePayment(c.Request.Context(), c.Param("ref"), req.PaymentID)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, confirmation)
}

func (h *Handler) GetBookingHandler(c *gin.Context) {
	confirmation, providerView, err := h.bookings.GetConfirmation(c.Request.Context(), c.Param("ref"))
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking":  confirmation,
		"provider": providerView,
	})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelBookingHandler(c *gin.Context) {
	var req cancelBookingRequest
	// Body is optional; a missing reason still cancels.
	_ = c.ShouldBindJSON(&req)

	result, err := h.bookings.CancelBooking(c.Request.Context(), c.Param("ref"), req.Reason)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type cancelRoutesRequest struct {
	ItineraryPlanID int64   `json:"itinerary_plan_id" binding:"required"`
	RouteIDs        []int64 `json:"route_ids" binding:"required"`
	Reason          string  `json:"reason"`
}

func (h *Handler) CancelRoutesHandler(c *gin.Context) {
	var req cancelRoutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "itinerary_plan_id and route_ids are required",
			"code":  ErrorCodeValidation,
		})
		return
	}

	outcomes, err := h.bookings.CancelByRoutes(c.Request.Context(), req.ItineraryPlanID, req.RouteIDs, req.Reason)
	if err != nil {
		sendError(c, err)
		return
	}

	cancelled := 0
	for _, o := range outcomes {
		if o.Cancelled {
			cancelled++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"itinerary_plan_id": req.ItineraryPlanID,
		"cancelled":         cancelled,
		"results":           outcomes,
	})
}

func sendError(c *gin.Context, err error) {
	var appErr *AppError

	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	// Default to 500 for unknown errors
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal Server Error",
		"code":    ErrorCodeInternalFailure,
		"details": err.Error(),
	})
}
