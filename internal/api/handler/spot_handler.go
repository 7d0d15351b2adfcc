package handler

import (
	"errors"
	"net/http"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

// SpotHandler phục vụ các API quản trị chỗ đỗ (admin).
type SpotHandler struct {
	bookingService *service.BookingService
}

func NewSpotHandler(bs *service.BookingService) *SpotHandler {
	return &SpotHandler{bookingService: bs}
}

// POST /api/v1/spots
func (h *SpotHandler) CreateSpot(c *gin.Context) {
	var dto domain.SpotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spot, err := h.bookingService.CreateSpot(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, spot)
}

// GET /api/v1/spots/:id
func (h *SpotHandler) GetSpotByID(c *gin.Context) {
	spot, err := h.bookingService.GetSpotByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy chỗ đỗ"})
		return
	}
	c.JSON(http.StatusOK, spot)
}

// PUT /api/v1/spots/:id
func (h *SpotHandler) UpdateSpot(c *gin.Context) {
	var dto domain.SpotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spot, err := h.bookingService.UpdateSpot(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
		case errors.Is(err, repository.ErrDuplicateEntry):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật chỗ đỗ", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, spot)
}

// DELETE /api/v1/spots/:id
func (h *SpotHandler) DeleteSpot(c *gin.Context) {
	err := h.bookingService.DeleteSpot(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa chỗ đỗ"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã xóa chỗ đỗ"})
}

// POST /api/v1/spots/:id/disable
func (h *SpotHandler) DisableSpot(c *gin.Context) {
	h.setStatus(c, domain.StatusDisabled)
}

// POST /api/v1/spots/:id/enable
func (h *SpotHandler) EnableSpot(c *gin.Context) {
	h.setStatus(c, domain.StatusAvailable)
}

func (h *SpotHandler) setStatus(c *gin.Context, status domain.SpotStatus) {
	err := h.bookingService.SetSpotStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể cập nhật trạng thái chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã cập nhật trạng thái chỗ đỗ", "status": status})
}
