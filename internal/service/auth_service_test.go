package service

import (
	"context"
	"testing"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService() (*AuthService, *memory.UserStore) {
	users := memory.NewUserStore()
	return NewAuthService(users, "test-secret", 24*time.Hour), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterUserDTO{Email: "tanaka@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "tanaka@example.com", user.Email)
	assert.Equal(t, "user", user.Role)
	assert.Empty(t, user.Password, "không được trả về password hash")

	// Email trùng
	_, err = svc.Register(ctx, domain.RegisterUserDTO{Email: "tanaka@example.com", Password: "khac123"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	resp, err := svc.Login(ctx, domain.LoginUserDTO{Email: "tanaka@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.UserID)

	// Token hợp lệ và mang đúng claims
	_, claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["sub"])
	assert.Equal(t, "user", claims["role"])
	assert.Equal(t, "tanaka@example.com", claims["email"])

	// Sai mật khẩu
	_, err = svc.Login(ctx, domain.LoginUserDTO{Email: "tanaka@example.com", Password: "saimatkhau"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Email không tồn tại
	_, err = svc.Login(ctx, domain.LoginUserDTO{Email: "khongcoai@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthService()

	_, _, err := svc.ValidateToken("không-phải-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestProfileWorkflow(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterUserDTO{Email: "suzuki@example.com", Password: "secret123"})
	require.NoError(t, err)

	// Chưa đăng ký hồ sơ
	profile, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileNone, profile.ProfileStatus)

	// Đăng ký hồ sơ -> pending
	profile, err = svc.RegisterProfile(ctx, user.ID, domain.RegisterProfileDTO{
		FullName:     "鈴木 一郎",
		LicensePlate: "品川 500 あ 1234",
		VehicleType:  "kei",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProfilePending, profile.ProfileStatus)
	assert.Equal(t, domain.VehicleKei, profile.VehicleType)

	// Admin duyệt
	require.NoError(t, svc.UpdateProfileStatus(ctx, user.ID, domain.ProfileApproved))
	profile, err = svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileApproved, profile.ProfileStatus)

	// Trạng thái không hợp lệ bị từ chối
	err = svc.UpdateProfileStatus(ctx, user.ID, domain.ProfilePending)
	assert.Error(t, err)
}
