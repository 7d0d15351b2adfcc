package service

import (
	"context"
	"fmt"
	"log"

	"parking_reservation/internal/domain"
)

// --- Quản trị chỗ đỗ (admin) ---
// Chỗ đỗ được cấp phát ngoài luồng đặt chỗ (seed data / admin); core đặt chỗ
// chỉ thay đổi status và locked_by.

func (s *BookingService) CreateSpot(ctx context.Context, dto domain.SpotDTO) (*domain.Spot, error) {
	vehicleClass := domain.VehicleNormal
	if dto.VehicleClass != "" {
		if dto.VehicleClass != string(domain.VehicleNormal) && dto.VehicleClass != string(domain.VehicleKei) {
			return nil, fmt.Errorf("loại chỗ đỗ không hợp lệ: %s", dto.VehicleClass)
		}
		vehicleClass = domain.VehicleClass(dto.VehicleClass)
	}

	spot := &domain.Spot{
		Floor:        dto.Floor,
		Zone:         dto.Zone,
		Number:       dto.Number,
		VehicleClass: vehicleClass,
		Status:       domain.StatusAvailable, // Mặc định
	}
	created, err := s.spotRepo.Create(ctx, spot)
	if err != nil {
		return nil, err
	}
	s.broadcastSnapshot(ctx)
	return created, nil
}

func (s *BookingService) GetSpotByID(ctx context.Context, spotID string) (*domain.Spot, error) {
	return s.spotRepo.FindByID(ctx, spotID)
}

func (s *BookingService) UpdateSpot(ctx context.Context, spotID string, dto domain.SpotDTO) (*domain.Spot, error) {
	spot, err := s.spotRepo.FindByID(ctx, spotID)
	if err != nil {
		return nil, err
	}

	if dto.Floor != "" {
		spot.Floor = dto.Floor
	}
	if dto.Zone != "" {
		spot.Zone = dto.Zone
	}
	if dto.Number != 0 {
		spot.Number = dto.Number
	}
	if dto.VehicleClass != "" {
		if dto.VehicleClass != string(domain.VehicleNormal) && dto.VehicleClass != string(domain.VehicleKei) {
			return nil, fmt.Errorf("loại chỗ đỗ không hợp lệ: %s", dto.VehicleClass)
		}
		spot.VehicleClass = domain.VehicleClass(dto.VehicleClass)
	}

	updated, err := s.spotRepo.Update(ctx, spot)
	if err != nil {
		return nil, err
	}
	s.broadcastSnapshot(ctx)
	return updated, nil
}

func (s *BookingService) DeleteSpot(ctx context.Context, spotID string) error {
	if err := s.spotRepo.Delete(ctx, spotID); err != nil {
		return err
	}
	s.broadcastSnapshot(ctx)
	return nil
}

// SetSpotStatus bật/tắt chỗ đỗ. Chỉ chấp nhận available và disabled - locked
// và reserved chỉ được thay đổi qua giao dịch lock/đặt chỗ, ghi thẳng sẽ mở
// lại đúng race mà thiết kế này tồn tại để ngăn chặn.
func (s *BookingService) SetSpotStatus(ctx context.Context, spotID string, status domain.SpotStatus) error {
	if status != domain.StatusAvailable && status != domain.StatusDisabled {
		return fmt.Errorf("không thể đặt trạng thái '%s' trực tiếp", status)
	}
	if err := s.spotRepo.SetStatus(ctx, spotID, status); err != nil {
		return err
	}
	log.Printf("Admin đã đặt trạng thái chỗ đỗ %s thành %s", spotID, status)
	s.broadcastSnapshot(ctx)
	return nil
}
