package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"github.com/google/uuid"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

// CreateForLockedSpot: một giao dịch duy nhất gồm (1) kiểm tra lock còn thuộc về
// userID, (2) chuyển chỗ sang reserved, (3) chèn bản ghi reservation. Abort ở
// bất kỳ bước nào thì không có reservation và trạng thái chỗ đỗ giữ nguyên.
func (r *pgReservationRepository) CreateForLockedSpot(ctx context.Context, spotID, userID string, startTime, endTime time.Time) (*domain.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.CreateForLockedSpot (begin tx): %w", err)
	}
	defer tx.Rollback()

	var status domain.SpotStatus
	var lockedBy sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT status, locked_by FROM parking_spots WHERE id = $1 FOR UPDATE`, spotID,
	).Scan(&status, &lockedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.CreateForLockedSpot (select for update): %w", err)
	}
	// Lock có thể đã bị mất giữa lúc chọn trên UI và lúc xác nhận
	if status != domain.StatusLocked || !lockedBy.Valid || lockedBy.String != userID {
		return nil, repository.ErrNotLockHolder
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE parking_spots SET status = $1, locked_by = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		domain.StatusReserved, spotID)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.CreateForLockedSpot (update spot): %w", err)
	}

	res := &domain.Reservation{
		ID:        uuid.New().String(),
		SpotID:    spotID,
		UserID:    userID,
		StartTime: startTime.UTC(),
		EndTime:   endTime.UTC(),
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO reservations (id, spot_id, user_id, start_time, end_time, created_at)
		  VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		  RETURNING created_at`,
		res.ID, res.SpotID, res.UserID, res.StartTime, res.EndTime,
	).Scan(&res.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.CreateForLockedSpot (insert): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.CreateForLockedSpot (commit): %w", err)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	query := `SELECT id, spot_id, user_id, start_time, end_time, created_at FROM reservations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&res.ID, &res.SpotID, &res.UserID, &res.StartTime, &res.EndTime, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	normalizeReservation(res)
	return res, nil
}

func (r *pgReservationRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Reservation, error) {
	query := `SELECT id, spot_id, user_id, start_time, end_time, created_at
	           FROM reservations WHERE user_id = $1 ORDER BY start_time DESC`
	return r.queryReservations(ctx, "ReservationRepository.FindByUserID", query, userID)
}

func (r *pgReservationRepository) FindBySpotID(ctx context.Context, spotID string) ([]domain.Reservation, error) {
	query := `SELECT id, spot_id, user_id, start_time, end_time, created_at
	           FROM reservations WHERE spot_id = $1 ORDER BY start_time DESC`
	return r.queryReservations(ctx, "ReservationRepository.FindBySpotID", query, spotID)
}

func (r *pgReservationRepository) queryReservations(ctx context.Context, op string, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.SpotID, &res.UserID, &res.StartTime, &res.EndTime, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s (scanning row): %w", op, err)
		}
		normalizeReservation(&res)
		reservations = append(reservations, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows error): %w", op, err)
	}
	return reservations, nil
}

func normalizeReservation(res *domain.Reservation) {
	res.StartTime = res.StartTime.In(time.UTC)
	res.EndTime = res.EndTime.In(time.UTC)
	res.CreatedAt = res.CreatedAt.In(time.UTC)
}
