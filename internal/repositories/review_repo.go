package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rental-platform/backend/internal/models"
)

var ErrReviewNotFound = errors.New("review not found")

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

func (r *ReviewRepo) Insert(ctx context.Context, review *models.Review) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO reviews (property_id, author_account, rating, comment, verified)
		VALUES ($1, $2, $3, $4, false)
		RETURNING id, created_at
	`, review.PropertyID, review.Author, review.Rating, review.Comment).Scan(&review.ID, &review.CreatedAt)
}

func (r *ReviewRepo) ListByProperty(ctx context.Context, propertyID string) ([]models.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, property_id, author_account, rating, comment, verified, created_at
		FROM reviews WHERE property_id = $1
		ORDER BY created_at ASC
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(&rev.ID, &rev.PropertyID, &rev.Author, &rev.Rating, &rev.Comment, &rev.Verified, &rev.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

func (r *ReviewRepo) Verify(ctx context.Context, propertyID string, reviewID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reviews SET verified = true WHERE id = $1 AND property_id = $2
	`, reviewID, propertyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}
