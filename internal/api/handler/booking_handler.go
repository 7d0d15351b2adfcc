package handler

import (
	"errors"
	"net/http"
	"time"

	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService *service.BookingService
}

func NewBookingHandler(bs *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bs}
}

// GET /api/v1/areas
func (h *BookingHandler) ListAreas(c *gin.Context) {
	areas, err := h.bookingService.ListAreas(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách khu vực"})
		return
	}
	c.JSON(http.StatusOK, areas)
}

// GET /api/v1/spots?floor=&zone=
func (h *BookingHandler) ListSpots(c *gin.Context) {
	floor := c.Query("floor")
	zone := c.Query("zone")

	spots, err := h.bookingService.ListSpots(c.Request.Context(), floor, zone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách chỗ đỗ"})
		return
	}
	c.JSON(http.StatusOK, spots)
}

// POST /api/v1/booking/lock
func (h *BookingHandler) LockSpot(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	var dto domain.LockSpotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.bookingService.LockSpot(c.Request.Context(), userID, dto.SpotID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProfileNotApproved):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAlreadyHoldingLock):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrSpotUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Không thể lock chỗ đỗ", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã lock chỗ đỗ", "spot_id": dto.SpotID})
}

// POST /api/v1/booking/release
// Bỏ dở phiên chọn chỗ: luôn trả 200, kể cả khi không giữ lock nào - release
// là best-effort và idempotent.
func (h *BookingHandler) ReleaseSpot(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	h.bookingService.ReleaseSpot(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "Đã trả lại chỗ đỗ"})
}

// POST /api/v1/booking/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	var dto domain.ConfirmBookingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startTime, err := time.Parse(time.RFC3339, dto.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Giờ bắt đầu không hợp lệ (cần RFC3339)"})
		return
	}
	endTime, err := time.Parse(time.RFC3339, dto.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Giờ kết thúc không hợp lệ (cần RFC3339)"})
		return
	}

	reservation, err := h.bookingService.ConfirmBooking(c.Request.Context(), userID, dto.SpotID, startTime, endTime)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTimeWindow):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrNotLockHolder):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Đặt chỗ thất bại", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// GET /api/v1/booking/time-options?start=
func (h *BookingHandler) TimeOptions(c *gin.Context) {
	resp, err := h.bookingService.TimeOptions(c.Query("start"))
	if err != nil {
		if errors.Is(err, service.ErrNoBookableTime) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/v1/reservations
func (h *BookingHandler) ListReservations(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	reservations, err := h.bookingService.ListReservations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách đặt chỗ"})
		return
	}
	if reservations == nil {
		reservations = []domain.Reservation{}
	}
	c.JSON(http.StatusOK, reservations)
}
