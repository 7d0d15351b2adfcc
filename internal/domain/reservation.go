package domain

import "time"

// Reservation là bản ghi đặt chỗ đã hoàn tất. Sau khi tạo thì bất biến,
// core này không hỗ trợ sửa hay hủy.
type Reservation struct {
	ID        string    `json:"id"`
	SpotID    string    `json:"spot_id"`
	UserID    string    `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// DTO cho API lock một chỗ đỗ
type LockSpotDTO struct {
	SpotID string `json:"spot_id" binding:"required"`
}

// DTO cho API xác nhận đặt chỗ (frontend gửi thời gian dạng RFC3339)
type ConfirmBookingDTO struct {
	SpotID    string `json:"spot_id" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

// TimeOption là một lựa chọn thời gian cho dropdown của frontend.
type TimeOption struct {
	Label string `json:"label"` // Hiển thị: "10:30"
	Value string `json:"value"` // Dữ liệu: RFC3339
}

type TimeOptionsResponseDTO struct {
	StartOptions []TimeOption `json:"start_options"`
	EndOptions   []TimeOption `json:"end_options,omitempty"`
}
