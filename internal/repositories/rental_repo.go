package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rental-platform/backend/internal/models"
)

var (
	ErrRentalNotFound = errors.New("rental agreement not found")
	ErrRentalExists   = errors.New("rental agreement already exists for property")
	ErrRentalNotOpen  = errors.New("rental agreement is not open")
)

type RentalRepo struct {
	pool *pgxpool.Pool
}

func NewRentalRepo(pool *pgxpool.Pool) *RentalRepo {
	return &RentalRepo{pool: pool}
}

func (r *RentalRepo) Create(ctx context.Context, rental *models.Rental) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO rentals (property_id, owner_account, renter_account, amount, duration_seconds, start_time, active, completed)
		VALUES ($1, $2, $3, $4, $5, $6, true, false)
		ON CONFLICT (property_id) DO NOTHING
	`, rental.PropertyID, rental.Owner, rental.Renter, rental.Amount, rental.DurationSeconds, rental.StartTime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRentalExists
	}
	return nil
}

func (r *RentalRepo) Get(ctx context.Context, propertyID string) (*models.Rental, error) {
	var rental models.Rental
	err := r.pool.QueryRow(ctx, `
		SELECT property_id, owner_account, renter_account, amount, duration_seconds,
		       start_time, active, completed, created_at, updated_at
		FROM rentals WHERE property_id = $1
	`, propertyID).Scan(&rental.PropertyID, &rental.Owner, &rental.Renter, &rental.Amount,
		&rental.DurationSeconds, &rental.StartTime, &rental.Active, &rental.Completed,
		&rental.CreatedAt, &rental.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRentalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rental, nil
}

// Complete marks an open agreement completed. The status check and the write
// are one statement so two resolutions cannot both succeed.
func (r *RentalRepo) Complete(ctx context.Context, propertyID string) error {
	return r.close(ctx, propertyID, `
		UPDATE rentals SET completed = true, active = false, updated_at = now()
		WHERE property_id = $1 AND active = true AND completed = false
	`)
}

// Cancel deactivates an open agreement without completing it.
func (r *RentalRepo) Cancel(ctx context.Context, propertyID string) error {
	return r.close(ctx, propertyID, `
		UPDATE rentals SET active = false, updated_at = now()
		WHERE property_id = $1 AND active = true AND completed = false
	`)
}

func (r *RentalRepo) close(ctx context.Context, propertyID, query string) error {
	tag, err := r.pool.Exec(ctx, query, propertyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rentals WHERE property_id = $1)`, propertyID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrRentalNotFound
		}
		return ErrRentalNotOpen
	}
	return nil
}
