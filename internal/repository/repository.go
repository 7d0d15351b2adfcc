package repository

import (
	"context"
	"errors"
	"time"

	"parking_reservation/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")

// ErrSpotUnavailable: lock một chỗ đỗ có status khác available.
var ErrSpotUnavailable = errors.New("chỗ đỗ này hiện không khả dụng")

// ErrNotLockHolder: xác nhận đặt chỗ khi lock đã mất hoặc thuộc về người khác.
var ErrNotLockHolder = errors.New("không có quyền đặt chỗ đỗ này")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// SaveProfile ghi hồ sơ đăng ký của người dùng và đặt status = pending.
	SaveProfile(ctx context.Context, userID string, fullName, licensePlate string, vehicleType domain.VehicleClass) (*domain.User, error)
	UpdateProfileStatus(ctx context.Context, userID string, status domain.ProfileStatus) error
}

type SpotRepository interface {
	Create(ctx context.Context, spot *domain.Spot) (*domain.Spot, error)
	FindByID(ctx context.Context, id string) (*domain.Spot, error)
	FindAll(ctx context.Context) ([]domain.Spot, error)
	FindByArea(ctx context.Context, floor, zone string) ([]domain.Spot, error)
	Update(ctx context.Context, spot *domain.Spot) (*domain.Spot, error)
	Delete(ctx context.Context, id string) error

	// Lock chuyển chỗ đỗ từ available sang locked cho userID trong MỘT giao dịch
	// serialize trên bản ghi chỗ đỗ. Nếu status hiện tại khác available thì trả
	// về ErrSpotUnavailable và không ghi gì cả. Đây là cơ chế duy nhất ngăn hai
	// người cùng lock một chỗ.
	Lock(ctx context.Context, spotID, userID string) error

	// Unlock là best-effort và idempotent: chỉ khi status = locked VÀ locked_by =
	// userID thì mới trả chỗ về available; mọi trường hợp khác là no-op để không
	// ghi đè lên trạng thái hợp lệ mới hơn (ví dụ chỗ vừa được reserved).
	Unlock(ctx context.Context, spotID, userID string) error

	// SetStatus dùng cho admin bật/tắt chỗ đỗ (disabled <-> available).
	SetStatus(ctx context.Context, spotID string, status domain.SpotStatus) error
}

type ReservationRepository interface {
	// CreateForLockedSpot thực hiện giao dịch đặt chỗ: đọc lại chỗ đỗ, nếu
	// status khác locked hoặc locked_by khác userID thì trả ErrNotLockHolder;
	// ngược lại chuyển chỗ sang reserved (xóa locked_by) và chèn bản ghi
	// Reservation mới. Hai thao tác ghi commit cùng nhau hoặc không gì cả.
	// Lưu ý: khi thất bại, hàm này KHÔNG tự unlock - đó là trách nhiệm của
	// đường catch phía caller.
	CreateForLockedSpot(ctx context.Context, spotID, userID string, startTime, endTime time.Time) (*domain.Reservation, error)

	FindByID(ctx context.Context, id string) (*domain.Reservation, error)
	FindByUserID(ctx context.Context, userID string) ([]domain.Reservation, error)
	FindBySpotID(ctx context.Context, spotID string) ([]domain.Reservation, error)
}
