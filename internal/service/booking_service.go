package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ErrProfileNotApproved = errors.New("hồ sơ của bạn chưa được quản trị viên phê duyệt")
var ErrAlreadyHoldingLock = errors.New("mỗi lần chỉ được chọn một chỗ đỗ")

var (
	lockAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_lock_attempts_total",
		Help: "Số lần thử lock chỗ đỗ, phân theo kết quả.",
	}, []string{"result"})
	reservationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_reservations_created_total",
		Help: "Số reservation đã tạo thành công.",
	})
	locksReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_locks_released_total",
		Help: "Số lần release lock (kể cả best-effort).",
	})
)

// SnapshotBroadcaster đẩy snapshot bảng chỗ đỗ tới mọi client đang kết nối.
// Không được block caller.
type SnapshotBroadcaster interface {
	BroadcastSpotSnapshot(spots []domain.Spot)
}

// BookingService điều phối toàn bộ phiên đặt chỗ: chọn chỗ -> lock -> chọn giờ
// -> xác nhận hoặc bỏ dở -> unlock khi bỏ dở/thất bại. Trạng thái phiên
// (heldSpots) chỉ sống trong process; nguồn sự thật về trạng thái chỗ đỗ luôn
// là store.
type BookingService struct {
	spotRepo        repository.SpotRepository
	reservationRepo repository.ReservationRepository
	userRepo        repository.UserRepository
	broadcaster     SnapshotBroadcaster

	mu        sync.Mutex
	heldSpots map[string]string // userID -> spotID đang giữ lock

	now func() time.Time // Cho phép test điều khiển thời gian
}

func NewBookingService(
	spotRepo repository.SpotRepository,
	reservationRepo repository.ReservationRepository,
	userRepo repository.UserRepository,
	broadcaster SnapshotBroadcaster,
) *BookingService {
	return &BookingService{
		spotRepo:        spotRepo,
		reservationRepo: reservationRepo,
		userRepo:        userRepo,
		broadcaster:     broadcaster,
		heldSpots:       make(map[string]string),
		now:             time.Now,
	}
}

// --- Khu vực & danh sách chỗ đỗ ---

// ListAreas gom các chỗ đỗ theo cặp floor+zone kèm số chỗ còn trống.
func (s *BookingService) ListAreas(ctx context.Context) ([]domain.Area, error) {
	spots, err := s.spotRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi lấy danh sách chỗ đỗ: %w", err)
	}

	areaIndex := make(map[string]int)
	var areas []domain.Area
	for _, spot := range spots {
		areaID := spot.Floor + "-" + spot.Zone
		idx, ok := areaIndex[areaID]
		if !ok {
			idx = len(areas)
			areaIndex[areaID] = idx
			areas = append(areas, domain.Area{ID: areaID, Floor: spot.Floor, Zone: spot.Zone})
		}
		areas[idx].Total++
		if spot.Status == domain.StatusAvailable {
			areas[idx].Available++
		}
	}
	return areas, nil
}

func (s *BookingService) ListSpots(ctx context.Context, floor, zone string) ([]domain.Spot, error) {
	if floor == "" && zone == "" {
		return s.spotRepo.FindAll(ctx)
	}
	return s.spotRepo.FindByArea(ctx, floor, zone)
}

// --- Lock Manager ---

// LockSpot thử giữ độc quyền một chỗ đỗ cho userID. Tiền điều kiện: hồ sơ đã
// được duyệt và phiên này chưa giữ lock nào khác. Thành công thì ghi nhận
// heldSpots và broadcast snapshot mới; thất bại thì không có gì thay đổi.
func (s *BookingService) LockSpot(ctx context.Context, userID, spotID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lỗi khi tìm người dùng: %w", err)
	}
	if user.ProfileStatus != domain.ProfileApproved {
		lockAttempts.WithLabelValues("not_approved").Inc()
		return ErrProfileNotApproved
	}

	// Đăng ký ý định lock trước khi chạm store để chặn chính phiên này
	// gửi hai lock song song.
	s.mu.Lock()
	if held, ok := s.heldSpots[userID]; ok {
		s.mu.Unlock()
		lockAttempts.WithLabelValues("already_holding").Inc()
		log.Printf("Người dùng %s đã giữ lock trên chỗ %s, từ chối lock %s", userID, held, spotID)
		return ErrAlreadyHoldingLock
	}
	s.heldSpots[userID] = spotID
	s.mu.Unlock()

	if err := s.spotRepo.Lock(ctx, spotID, userID); err != nil {
		s.mu.Lock()
		delete(s.heldSpots, userID)
		s.mu.Unlock()
		if errors.Is(err, repository.ErrSpotUnavailable) || errors.Is(err, repository.ErrNotFound) {
			lockAttempts.WithLabelValues("conflict").Inc()
			return err
		}
		lockAttempts.WithLabelValues("store_error").Inc()
		return fmt.Errorf("lỗi khi lock chỗ đỗ %s: %w", spotID, err)
	}

	lockAttempts.WithLabelValues("success").Inc()
	log.Printf("Người dùng %s đã lock chỗ đỗ %s", userID, spotID)
	s.broadcastSnapshot(ctx)
	return nil
}

// ReleaseSpot trả lại chỗ đang giữ. Best-effort: lỗi store chỉ được ghi log,
// không trả về caller, và heldSpots luôn được xóa - ý định của phiên là bỏ dở
// vô điều kiện. Nếu trạng thái trên store lệch tạm thời thì snapshot kế tiếp
// sẽ tự đồng bộ lại.
func (s *BookingService) ReleaseSpot(ctx context.Context, userID string) {
	s.mu.Lock()
	spotID, ok := s.heldSpots[userID]
	delete(s.heldSpots, userID)
	s.mu.Unlock()
	if !ok {
		return
	}

	locksReleased.Inc()
	if err := s.spotRepo.Unlock(ctx, spotID, userID); err != nil {
		log.Printf("Release chỗ đỗ %s cho người dùng %s không hoàn tất: %v", spotID, userID, err)
		return
	}
	log.Printf("Người dùng %s đã trả lại chỗ đỗ %s", userID, spotID)
	s.broadcastSnapshot(ctx)
}

// HeldSpot trả về chỗ đỗ phiên này đang giữ, nếu có.
func (s *BookingService) HeldSpot(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spotID, ok := s.heldSpots[userID]
	return spotID, ok
}

// --- Booking Transactor ---

// ConfirmBooking chuyển lock đang giữ thành reservation bền vững. Kiểm tra
// khung giờ chạy trước và không bao giờ chạm store khi thất bại. Mọi thất bại
// sau đó đi qua đường catch: release lock rồi mới trả lỗi về caller - người
// dùng quay về trạng thái duyệt chỗ, không có lock nào bị treo.
func (s *BookingService) ConfirmBooking(ctx context.Context, userID, spotID string, startTime, endTime time.Time) (*domain.Reservation, error) {
	if err := ValidateWindow(s.now(), startTime, endTime); err != nil {
		return nil, err
	}

	s.mu.Lock()
	held, ok := s.heldSpots[userID]
	s.mu.Unlock()
	if !ok || held != spotID {
		return nil, repository.ErrNotLockHolder
	}

	res, err := s.reservationRepo.CreateForLockedSpot(ctx, spotID, userID, startTime, endTime)
	if err != nil {
		log.Printf("Xác nhận đặt chỗ %s của người dùng %s thất bại: %v", spotID, userID, err)
		s.ReleaseSpot(ctx, userID)
		if errors.Is(err, repository.ErrNotLockHolder) || errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lỗi giao dịch đặt chỗ: %w", err)
	}

	s.mu.Lock()
	delete(s.heldSpots, userID)
	s.mu.Unlock()

	reservationsCreated.Inc()
	log.Printf("Đã tạo reservation %s: chỗ %s, người dùng %s, %s - %s",
		res.ID, res.SpotID, res.UserID, res.StartTime.Format(time.RFC3339), res.EndTime.Format(time.RFC3339))
	s.broadcastSnapshot(ctx)
	return res, nil
}

// --- Time options cho frontend ---

// TimeOptions sinh danh sách giờ bắt đầu (và giờ kết thúc nếu đã chọn giờ bắt
// đầu) cho dialog đặt chỗ.
func (s *BookingService) TimeOptions(start string) (*domain.TimeOptionsResponseDTO, error) {
	startOptions := StartTimeOptions(s.now())
	if len(startOptions) == 0 {
		return nil, ErrNoBookableTime
	}
	resp := &domain.TimeOptionsResponseDTO{StartOptions: startOptions}

	if start != "" {
		startTime, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, ErrInvalidTimeWindow
		}
		resp.EndOptions = EndTimeOptions(startTime)
	}
	return resp, nil
}

func (s *BookingService) ListReservations(ctx context.Context, userID string) ([]domain.Reservation, error) {
	return s.reservationRepo.FindByUserID(ctx, userID)
}

func (s *BookingService) broadcastSnapshot(ctx context.Context) {
	if s.broadcaster == nil {
		return
	}
	spots, err := s.spotRepo.FindAll(ctx)
	if err != nil {
		log.Printf("Lỗi khi đọc snapshot chỗ đỗ để broadcast: %v", err)
		return
	}
	s.broadcaster.BroadcastSpotSnapshot(spots)
}

// CurrentSnapshot dùng cho client websocket mới kết nối.
func (s *BookingService) CurrentSnapshot(ctx context.Context) ([]domain.Spot, error) {
	return s.spotRepo.FindAll(ctx)
}
