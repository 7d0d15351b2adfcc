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
	"github.com/lib/pq"
	"gopkg.in/guregu/null.v4"
)

type pgSpotRepository struct {
	db *sql.DB
}

func NewPgSpotRepository(db *sql.DB) repository.SpotRepository {
	return &pgSpotRepository{db: db}
}

const spotColumns = `id, floor, zone, number, vehicle_class, status, locked_by, created_at, updated_at`

func scanSpot(row interface{ Scan(...any) error }) (*domain.Spot, error) {
	spot := &domain.Spot{}
	var lockedBy sql.NullString
	err := row.Scan(
		&spot.ID, &spot.Floor, &spot.Zone, &spot.Number, &spot.VehicleClass,
		&spot.Status, &lockedBy, &spot.CreatedAt, &spot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lockedBy.Valid {
		spot.LockedBy = null.StringFrom(lockedBy.String)
	}
	spot.CreatedAt = spot.CreatedAt.In(time.UTC)
	spot.UpdatedAt = spot.UpdatedAt.In(time.UTC)
	return spot, nil
}

func (r *pgSpotRepository) Create(ctx context.Context, spot *domain.Spot) (*domain.Spot, error) {
	if spot.ID == "" {
		spot.ID = uuid.New().String()
	}
	if spot.Status == "" {
		spot.Status = domain.StatusAvailable // Mặc định
	}
	query := `INSERT INTO parking_spots (id, floor, zone, number, vehicle_class, status, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		spot.ID, spot.Floor, spot.Zone, spot.Number, spot.VehicleClass, spot.Status,
	).Scan(&spot.CreatedAt, &spot.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				// UNIQUE (floor, zone, number): mỗi vị trí trong một zone chỉ có một chỗ
				if pqErr.Constraint == "parking_spots_floor_zone_number_key" {
					return nil, fmt.Errorf("%w: chỗ đỗ số %d đã tồn tại trong khu %s-%s", repository.ErrDuplicateEntry, spot.Number, spot.Floor, spot.Zone)
				}
				return nil, fmt.Errorf("%w: chỗ đỗ đã tồn tại", repository.ErrDuplicateEntry)
			}
		}
		return nil, fmt.Errorf("SpotRepository.Create: %w", err)
	}
	spot.CreatedAt = spot.CreatedAt.In(time.UTC)
	spot.UpdatedAt = spot.UpdatedAt.In(time.UTC)
	return spot, nil
}

func (r *pgSpotRepository) FindByID(ctx context.Context, id string) (*domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE id = $1`
	spot, err := scanSpot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SpotRepository.FindByID: %w", err)
	}
	return spot, nil
}

func (r *pgSpotRepository) FindAll(ctx context.Context) ([]domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots ORDER BY floor, zone, number`
	return r.querySpots(ctx, "SpotRepository.FindAll", query)
}

func (r *pgSpotRepository) FindByArea(ctx context.Context, floor, zone string) ([]domain.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE floor = $1 AND zone = $2 ORDER BY number ASC`
	return r.querySpots(ctx, "SpotRepository.FindByArea", query, floor, zone)
}

func (r *pgSpotRepository) querySpots(ctx context.Context, op string, query string, args ...any) ([]domain.Spot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var spots []domain.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("%s (scanning row): %w", op, err)
		}
		spots = append(spots, *spot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows error): %w", op, err)
	}
	return spots, nil
}

func (r *pgSpotRepository) Update(ctx context.Context, spot *domain.Spot) (*domain.Spot, error) {
	query := `UPDATE parking_spots
	           SET floor = $1, zone = $2, number = $3, vehicle_class = $4, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $5
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		spot.Floor, spot.Zone, spot.Number, spot.VehicleClass, spot.ID,
	).Scan(&spot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: chỗ đỗ số %d đã tồn tại trong khu %s-%s", repository.ErrDuplicateEntry, spot.Number, spot.Floor, spot.Zone)
			}
		}
		return nil, fmt.Errorf("SpotRepository.Update: %w", err)
	}
	spot.UpdatedAt = spot.UpdatedAt.In(time.UTC)
	return spot, nil
}

func (r *pgSpotRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM parking_spots WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("SpotRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("SpotRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Lock: toàn bộ read-check-write nằm trong một giao dịch, SELECT ... FOR UPDATE
// serialize các writer trên cùng một bản ghi. Nếu hai phiên cùng lock một chỗ,
// đúng một phiên thành công, phiên còn lại thấy status != available.
func (r *pgSpotRepository) Lock(ctx context.Context, spotID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SpotRepository.Lock (begin tx): %w", err)
	}
	defer tx.Rollback()

	var status domain.SpotStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM parking_spots WHERE id = $1 FOR UPDATE`, spotID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("SpotRepository.Lock (select for update): %w", err)
	}
	if status != domain.StatusAvailable {
		return repository.ErrSpotUnavailable
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE parking_spots SET status = $1, locked_by = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`,
		domain.StatusLocked, userID, spotID)
	if err != nil {
		return fmt.Errorf("SpotRepository.Lock (update): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SpotRepository.Lock (commit): %w", err)
	}
	return nil
}

// Unlock: điều kiện nằm ngay trong câu UPDATE nên không cần SELECT trước;
// 0 hàng bị ảnh hưởng nghĩa là chỗ đã chuyển sang trạng thái khác và ta
// không được đụng vào - không phải lỗi.
func (r *pgSpotRepository) Unlock(ctx context.Context, spotID, userID string) error {
	query := `UPDATE parking_spots
	           SET status = $1, locked_by = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $2 AND status = $3 AND locked_by = $4`
	_, err := r.db.ExecContext(ctx, query, domain.StatusAvailable, spotID, domain.StatusLocked, userID)
	if err != nil {
		return fmt.Errorf("SpotRepository.Unlock: %w", err)
	}
	return nil
}

func (r *pgSpotRepository) SetStatus(ctx context.Context, spotID string, status domain.SpotStatus) error {
	query := `UPDATE parking_spots
	           SET status = $1, locked_by = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, spotID)
	if err != nil {
		return fmt.Errorf("SpotRepository.SetStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("SpotRepository.SetStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
