// Package memory cung cấp các repository lưu trong bộ nhớ, dùng cho test và
// chạy local không cần PostgreSQL. Một mutex cho toàn bộ store đóng vai trò
// giao dịch serialize: không writer nào quan sát được trạng thái dở dang.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

type SpotStore struct {
	mu    sync.Mutex
	spots map[string]*domain.Spot
}

func NewSpotStore() *SpotStore {
	return &SpotStore{spots: make(map[string]*domain.Spot)}
}

func (s *SpotStore) Create(_ context.Context, spot *domain.Spot) (*domain.Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spot.ID == "" {
		spot.ID = uuid.New().String()
	}
	if spot.Status == "" {
		spot.Status = domain.StatusAvailable
	}
	for _, existing := range s.spots {
		if existing.Floor == spot.Floor && existing.Zone == spot.Zone && existing.Number == spot.Number {
			return nil, fmt.Errorf("%w: chỗ đỗ số %d đã tồn tại trong khu %s-%s", repository.ErrDuplicateEntry, spot.Number, spot.Floor, spot.Zone)
		}
	}
	now := time.Now().UTC()
	spot.CreatedAt = now
	spot.UpdatedAt = now
	cp := *spot
	s.spots[spot.ID] = &cp
	return spot, nil
}

func (s *SpotStore) FindByID(_ context.Context, id string) (*domain.Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spot, ok := s.spots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *spot
	return &cp, nil
}

func (s *SpotStore) FindAll(_ context.Context) ([]domain.Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spots := make([]domain.Spot, 0, len(s.spots))
	for _, spot := range s.spots {
		spots = append(spots, *spot)
	}
	sort.Slice(spots, func(i, j int) bool {
		if spots[i].Floor != spots[j].Floor {
			return spots[i].Floor < spots[j].Floor
		}
		if spots[i].Zone != spots[j].Zone {
			return spots[i].Zone < spots[j].Zone
		}
		return spots[i].Number < spots[j].Number
	})
	return spots, nil
}

func (s *SpotStore) FindByArea(_ context.Context, floor, zone string) ([]domain.Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var spots []domain.Spot
	for _, spot := range s.spots {
		if spot.Floor == floor && spot.Zone == zone {
			spots = append(spots, *spot)
		}
	}
	sort.Slice(spots, func(i, j int) bool { return spots[i].Number < spots[j].Number })
	return spots, nil
}

func (s *SpotStore) Update(_ context.Context, spot *domain.Spot) (*domain.Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.spots[spot.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	existing.Floor = spot.Floor
	existing.Zone = spot.Zone
	existing.Number = spot.Number
	existing.VehicleClass = spot.VehicleClass
	existing.UpdatedAt = time.Now().UTC()
	cp := *existing
	return &cp, nil
}

func (s *SpotStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.spots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.spots, id)
	return nil
}

func (s *SpotStore) Lock(_ context.Context, spotID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spot, ok := s.spots[spotID]
	if !ok {
		return repository.ErrNotFound
	}
	if spot.Status != domain.StatusAvailable {
		return repository.ErrSpotUnavailable
	}
	spot.Status = domain.StatusLocked
	spot.LockedBy = null.StringFrom(userID)
	spot.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *SpotStore) Unlock(_ context.Context, spotID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spot, ok := s.spots[spotID]
	if !ok {
		return nil // best-effort: chỗ không tồn tại thì coi như đã xong
	}
	if spot.Status != domain.StatusLocked || !spot.LockedBy.Valid || spot.LockedBy.String != userID {
		return nil
	}
	spot.Status = domain.StatusAvailable
	spot.LockedBy = null.String{}
	spot.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *SpotStore) SetStatus(_ context.Context, spotID string, status domain.SpotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spot, ok := s.spots[spotID]
	if !ok {
		return repository.ErrNotFound
	}
	spot.Status = status
	spot.LockedBy = null.String{}
	spot.UpdatedAt = time.Now().UTC()
	return nil
}

// reserveForUser được ReservationStore gọi để thực hiện phần ghi chỗ đỗ của
// giao dịch đặt chỗ dưới cùng một mutex.
func (s *SpotStore) reserveForUser(spotID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spot, ok := s.spots[spotID]
	if !ok {
		return repository.ErrNotFound
	}
	if spot.Status != domain.StatusLocked || !spot.LockedBy.Valid || spot.LockedBy.String != userID {
		return repository.ErrNotLockHolder
	}
	spot.Status = domain.StatusReserved
	spot.LockedBy = null.String{}
	spot.UpdatedAt = time.Now().UTC()
	return nil
}

type ReservationStore struct {
	mu           sync.Mutex
	spots        *SpotStore
	reservations map[string]*domain.Reservation
}

func NewReservationStore(spots *SpotStore) *ReservationStore {
	return &ReservationStore{
		spots:        spots,
		reservations: make(map[string]*domain.Reservation),
	}
}

func (s *ReservationStore) CreateForLockedSpot(_ context.Context, spotID, userID string, startTime, endTime time.Time) (*domain.Reservation, error) {
	// Kiểm tra và chuyển trạng thái chỗ đỗ trước; nếu bước này abort thì chưa
	// có gì được ghi, đúng ngữ nghĩa "cả hai hoặc không gì cả".
	if err := s.spots.reserveForUser(spotID, userID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := &domain.Reservation{
		ID:        uuid.New().String(),
		SpotID:    spotID,
		UserID:    userID,
		StartTime: startTime.UTC(),
		EndTime:   endTime.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	cp := *res
	s.reservations[res.ID] = &cp
	return res, nil
}

func (s *ReservationStore) FindByID(_ context.Context, id string) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (s *ReservationStore) FindByUserID(_ context.Context, userID string) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Reservation
	for _, res := range s.reservations {
		if res.UserID == userID {
			out = append(out, *res)
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *ReservationStore) FindBySpotID(_ context.Context, spotID string) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Reservation
	for _, res := range s.reservations {
		if res.SpotID == spotID {
			out = append(out, *res)
		}
	}
	sortReservations(out)
	return out, nil
}

func sortReservations(reservations []domain.Reservation) {
	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].StartTime.After(reservations[j].StartTime)
	})
}

type UserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

func (s *UserStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return nil, fmt.Errorf("%w: email '%s' đã được sử dụng", repository.ErrDuplicateEntry, user.Email)
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.users[user.ID] = &cp
	return user, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *UserStore) SaveProfile(_ context.Context, userID string, fullName, licensePlate string, vehicleType domain.VehicleClass) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user.FullName = fullName
	user.LicensePlate = licensePlate
	user.VehicleType = vehicleType
	user.ProfileStatus = domain.ProfilePending
	user.UpdatedAt = time.Now().UTC()
	cp := *user
	return &cp, nil
}

func (s *UserStore) UpdateProfileStatus(_ context.Context, userID string, status domain.ProfileStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.ProfileStatus = status
	user.UpdatedAt = time.Now().UTC()
	return nil
}
