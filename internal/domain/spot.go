package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SpotStatus string

const (
	StatusAvailable SpotStatus = "available"
	StatusLocked    SpotStatus = "locked"
	StatusReserved  SpotStatus = "reserved"
	StatusDisabled  SpotStatus = "disabled"
)

type VehicleClass string

const (
	VehicleNormal VehicleClass = "normal"
	VehicleKei    VehicleClass = "kei" // Chỗ đỗ dành riêng cho xe kei (xe hạng nhẹ)
)

// Spot là một vị trí đỗ xe vật lý. Bất biến quan trọng: LockedBy chỉ có giá trị
// khi và chỉ khi Status = locked; reserved và disabled không bao giờ giữ LockedBy.
type Spot struct {
	ID           string       `json:"id"`
	Floor        string       `json:"floor"`
	Zone         string       `json:"zone"`
	Number       int          `json:"number"` // Thứ tự hiển thị trong zone, tăng dần
	VehicleClass VehicleClass `json:"vehicle_class"`
	Status       SpotStatus   `json:"status"`
	LockedBy     null.String  `json:"locked_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Area là nhóm floor+zone dùng cho màn hình chọn khu vực.
type Area struct {
	ID        string `json:"id"` // "{floor}-{zone}"
	Floor     string `json:"floor"`
	Zone      string `json:"zone"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
}

type SpotDTO struct {
	Floor        string `json:"floor" binding:"required"`
	Zone         string `json:"zone" binding:"required"`
	Number       int    `json:"number" binding:"required,min=1"`
	VehicleClass string `json:"vehicle_class,omitempty"`
}

func ValidSpotStatus(s string) bool {
	switch SpotStatus(s) {
	case StatusAvailable, StatusLocked, StatusReserved, StatusDisabled:
		return true
	}
	return false
}
