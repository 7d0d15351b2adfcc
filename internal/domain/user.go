package domain

import "time"

type ProfileStatus string

const (
	ProfileNone     ProfileStatus = ""        // Chưa đăng ký hồ sơ
	ProfilePending  ProfileStatus = "pending" // Chờ quản trị viên duyệt
	ProfileApproved ProfileStatus = "approved"
	ProfileRejected ProfileStatus = "rejected"
)

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"` // Không bao giờ trả về password hash trong JSON
	Role     string `json:"role"` // "user" hoặc "admin"

	// Hồ sơ người dùng, đăng ký sau khi tạo tài khoản. ProfileApproved là
	// điều kiện bắt buộc để được lock chỗ đỗ.
	FullName      string        `json:"full_name,omitempty"`
	LicensePlate  string        `json:"license_plate,omitempty"`
	VehicleType   VehicleClass  `json:"vehicle_type,omitempty"`
	ProfileStatus ProfileStatus `json:"profile_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterUserDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type LoginUserDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type RegisterProfileDTO struct {
	FullName     string `json:"full_name" binding:"required"`
	LicensePlate string `json:"license_plate" binding:"required"`
	VehicleType  string `json:"vehicle_type" binding:"required,oneof=normal kei"`
}

type UpdateProfileStatusDTO struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}
