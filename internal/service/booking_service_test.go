package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
	"parking_reservation/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	svc          *BookingService
	spots        *memory.SpotStore
	reservations *memory.ReservationStore
	users        *memory.UserStore
	now          time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	spots := memory.NewSpotStore()
	reservations := memory.NewReservationStore(spots)
	users := memory.NewUserStore()

	svc := NewBookingService(spots, reservations, users, nil)
	now := time.Date(2025, 6, 13, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &bookingFixture{svc: svc, spots: spots, reservations: reservations, users: users, now: now}
}

func (f *bookingFixture) addApprovedUser(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.users.Create(ctx, &domain.User{ID: id, Email: id + "@example.com", Role: "user"})
	require.NoError(t, err)
	_, err = f.users.SaveProfile(ctx, id, "Tester "+id, "品川 500 あ 1234", domain.VehicleNormal)
	require.NoError(t, err)
	require.NoError(t, f.users.UpdateProfileStatus(ctx, id, domain.ProfileApproved))
}

func (f *bookingFixture) addSpot(t *testing.T, id string, number int) {
	t.Helper()
	_, err := f.spots.Create(context.Background(), &domain.Spot{
		ID: id, Floor: "1F", Zone: "A", Number: number,
		VehicleClass: domain.VehicleNormal, Status: domain.StatusAvailable,
	})
	require.NoError(t, err)
}

func (f *bookingFixture) spotState(t *testing.T, id string) *domain.Spot {
	t.Helper()
	spot, err := f.spots.FindByID(context.Background(), id)
	require.NoError(t, err)
	return spot
}

// Kịch bản đầy đủ: alice lock P1, bob bị từ chối, alice xác nhận đặt chỗ,
// bob vẫn không lock được vì chỗ đã reserved.
func TestLockConfirmScenario(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addApprovedUser(t, "alice")
	f.addApprovedUser(t, "bob")
	f.addSpot(t, "P1", 1)

	require.NoError(t, f.svc.LockSpot(ctx, "alice", "P1"))

	spot := f.spotState(t, "P1")
	assert.Equal(t, domain.StatusLocked, spot.Status)
	assert.Equal(t, "alice", spot.LockedBy.String)

	err := f.svc.LockSpot(ctx, "bob", "P1")
	assert.ErrorIs(t, err, repository.ErrSpotUnavailable)

	start := f.now.Add(30 * time.Minute)
	end := f.now.Add(90 * time.Minute)
	res, err := f.svc.ConfirmBooking(ctx, "alice", "P1", start, end)
	require.NoError(t, err)
	assert.Equal(t, "P1", res.SpotID)
	assert.Equal(t, "alice", res.UserID)
	assert.True(t, res.StartTime.Equal(start))
	assert.True(t, res.EndTime.Equal(end))

	spot = f.spotState(t, "P1")
	assert.Equal(t, domain.StatusReserved, spot.Status)
	assert.False(t, spot.LockedBy.Valid, "reserved không được giữ locked_by")

	// Chỗ đã reserved thì vẫn không lock được
	err = f.svc.LockSpot(ctx, "bob", "P1")
	assert.ErrorIs(t, err, repository.ErrSpotUnavailable)

	// Đúng một reservation được tạo
	all, err := f.reservations.FindBySpotID(ctx, "P1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// Kịch bản release: carol lock P2 rồi trả lại, dave lock được ngay sau đó.
func TestReleaseScenario(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addApprovedUser(t, "carol")
	f.addApprovedUser(t, "dave")
	f.addSpot(t, "P2", 2)

	require.NoError(t, f.svc.LockSpot(ctx, "carol", "P2"))
	f.svc.ReleaseSpot(ctx, "carol")

	spot := f.spotState(t, "P2")
	assert.Equal(t, domain.StatusAvailable, spot.Status)
	assert.False(t, spot.LockedBy.Valid)

	require.NoError(t, f.svc.LockSpot(ctx, "dave", "P2"))
}

// Loại trừ lẫn nhau: nhiều phiên cùng lock một chỗ, đúng một phiên thành công.
func TestConcurrentLockMutualExclusion(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addSpot(t, "P1", 1)

	const sessions = 32
	for i := 0; i < sessions; i++ {
		f.addApprovedUser(t, userName(i))
	}

	var wg sync.WaitGroup
	errs := make([]error, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.LockSpot(ctx, userName(i), "P1")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, repository.ErrSpotUnavailable)
		}
	}
	assert.Equal(t, 1, successes, "đúng một phiên phải lock được")

	spot := f.spotState(t, "P1")
	assert.Equal(t, domain.StatusLocked, spot.Status)
	assert.True(t, spot.LockedBy.Valid)
}

func userName(i int) string {
	return string(rune('a'+i%26)) + "-user-" + string(rune('0'+i/26))
}

// Mỗi phiên chỉ giữ được một lock
func TestLockSecondSpotRejected(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addApprovedUser(t, "alice")
	f.addSpot(t, "P1", 1)
	f.addSpot(t, "P2", 2)

	require.NoError(t, f.svc.LockSpot(ctx, "alice", "P1"))
	err := f.svc.LockSpot(ctx, "alice", "P2")
	assert.ErrorIs(t, err, ErrAlreadyHoldingLock)

	// P2 không bị đụng tới
	assert.Equal(t, domain.StatusAvailable, f.spotState(t, "P2").Status)
}

func TestLockRequiresApprovedProfile(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addSpot(t, "P1", 1)

	// Hồ sơ đang pending
	_, err := f.users.Create(ctx, &domain.User{ID: "eve", Email: "eve@example.com", Role: "user"})
	require.NoError(t, err)
	_, err = f.users.SaveProfile(ctx, "eve", "Eve", "横浜 300 い 5678", domain.VehicleKei)
	require.NoError(t, err)

	err = f.svc.LockSpot(ctx, "eve", "P1")
	assert.ErrorIs(t, err, ErrProfileNotApproved)
	assert.Equal(t, domain.StatusAvailable, f.spotState(t, "P1").Status)

	// Hồ sơ bị từ chối cũng vậy
	require.NoError(t, f.users.UpdateProfileStatus(ctx, "eve", domain.ProfileRejected))
	err = f.svc.LockSpot(ctx, "eve", "P1")
	assert.ErrorIs(t, err, ErrProfileNotApproved)
}

// Release idempotent: gọi hai lần liên tiếp, hoặc sau khi chỗ đã reserved,
// không đổi trạng thái và không lỗi.
func TestReleaseIdempotent(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addApprovedUser(t, "alice")
	f.addSpot(t, "P1", 1)

	require.NoError(t, f.svc.LockSpot(ctx, "alice", "P1"))
	f.svc.ReleaseSpot(ctx, "alice")
	f.svc.ReleaseSpot(ctx, "alice") // lần hai: phiên không còn giữ gì, no-op
	assert.Equal(t, domain.StatusAvailable, f.spotState(t, "P1").Status)

	// Unlock thẳng store sau khi chỗ đã reserved không được clobber
	require.NoError(t, f.svc.LockSpot(ctx, "alice", "P1"))
	_, err := f.svc.ConfirmBooking(ctx, "alice", "P1", f.now.Add(30*time.Minute), f.now.Add(60*time.Minute))
	require.NoError(t, err)
	require.NoError(t, f.spots.Unlock(ctx, "P1", "alice"))
	assert.Equal(t, domain.StatusReserved, f.spotState(t, "P1").Status)
}

// Khung giờ sai bị chặn trước khi chạm store và đi qua đường catch:
// lock được trả lại, không có reservation nào được tạo.
func TestConfirmInvalidWindowNeverReachesStore(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addApprovedUser(t, "alice")
	f.addSpot(t, "P1", 1)

	require.NoError(t, f.svc.LockSpot(ctx, "alice", "P1"))

	// end <= start
	_, err := f.svc.ConfirmBooking(ctx, "alice", "P1", f.now.Add(time.Hour), f.now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)

	// Validation fail không tự release - người dùng có thể thử khung giờ khác
	spot := f.spotState(t, "P1")
	assert.Equal(t, domain.StatusLocked, spot.Status)
	assert.Equal(t, "alice", spot.LockedBy.String)

	all, err := f.reservations.FindBySpotID(ctx, "P1")
	require.NoError(t, err)
	assert.Empty(t, all, "không được có reservation mồ côi")
}

// Lock bị mất giữa chừng (ví dụ store bất thường): confirm thất bại với
// ErrNotLockHolder, không có reservation, và phiên quay về trạng thái duyệt chỗ.
func TestConfirmStolenLock(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addApprovedUser(t, "alice")
	f.addApprovedUser(t, "mallory")
	f.addSpot(t, "P1", 1)

	require.NoError(t, f.svc.LockSpot(ctx, "alice", "P1"))

	// Giả lập lock bị chiếm: trả chỗ về available rồi để mallory lock
	require.NoError(t, f.spots.Unlock(ctx, "P1", "alice"))
	require.NoError(t, f.spots.Lock(ctx, "P1", "mallory"))

	_, err := f.svc.ConfirmBooking(ctx, "alice", "P1", f.now.Add(30*time.Minute), f.now.Add(60*time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotLockHolder)

	// Đường catch đã chạy: phiên của alice không còn giữ gì
	_, held := f.svc.HeldSpot("alice")
	assert.False(t, held)

	// Lock của mallory không bị release best-effort của alice clobber
	spot := f.spotState(t, "P1")
	assert.Equal(t, domain.StatusLocked, spot.Status)
	assert.Equal(t, "mallory", spot.LockedBy.String)

	all, err := f.reservations.FindBySpotID(ctx, "P1")
	require.NoError(t, err)
	assert.Empty(t, all)
}

// Confirm một chỗ không trùng với chỗ đang giữ bị từ chối ngay từ phiên.
func TestConfirmWrongSpot(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addApprovedUser(t, "alice")
	f.addSpot(t, "P1", 1)
	f.addSpot(t, "P2", 2)

	require.NoError(t, f.svc.LockSpot(ctx, "alice", "P1"))
	_, err := f.svc.ConfirmBooking(ctx, "alice", "P2", f.now.Add(30*time.Minute), f.now.Add(60*time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotLockHolder)
}

func TestListAreas(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.addApprovedUser(t, "alice")

	_, err := f.spots.Create(ctx, &domain.Spot{ID: "A1", Floor: "1F", Zone: "A", Number: 1, VehicleClass: domain.VehicleNormal, Status: domain.StatusAvailable})
	require.NoError(t, err)
	_, err = f.spots.Create(ctx, &domain.Spot{ID: "A2", Floor: "1F", Zone: "A", Number: 2, VehicleClass: domain.VehicleKei, Status: domain.StatusDisabled})
	require.NoError(t, err)
	_, err = f.spots.Create(ctx, &domain.Spot{ID: "B1", Floor: "2F", Zone: "B", Number: 1, VehicleClass: domain.VehicleNormal, Status: domain.StatusAvailable})
	require.NoError(t, err)

	areas, err := f.svc.ListAreas(ctx)
	require.NoError(t, err)
	require.Len(t, areas, 2)

	byID := make(map[string]domain.Area)
	for _, area := range areas {
		byID[area.ID] = area
	}
	assert.Equal(t, 2, byID["1F-A"].Total)
	assert.Equal(t, 1, byID["1F-A"].Available)
	assert.Equal(t, 1, byID["2F-B"].Total)
	assert.Equal(t, 1, byID["2F-B"].Available)

	// Lock một chỗ thì availability của khu vực giảm theo
	require.NoError(t, f.svc.LockSpot(ctx, "alice", "A1"))
	areas, err = f.svc.ListAreas(ctx)
	require.NoError(t, err)
	for _, area := range areas {
		if area.ID == "1F-A" {
			assert.Equal(t, 0, area.Available)
		}
	}
}

func TestTimeOptions(t *testing.T) {
	f := newBookingFixture(t)

	resp, err := f.svc.TimeOptions("")
	require.NoError(t, err)
	require.Len(t, resp.StartOptions, 33)
	assert.Empty(t, resp.EndOptions)

	resp, err = f.svc.TimeOptions(resp.StartOptions[0].Value)
	require.NoError(t, err)
	require.Len(t, resp.EndOptions, 20)

	_, err = f.svc.TimeOptions("không-phải-thời-gian")
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)
}
