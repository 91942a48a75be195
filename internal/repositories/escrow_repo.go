package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rental-platform/backend/internal/escrow"
)

// EscrowRepo is the Postgres escrow.Store. Mutual exclusion per payment id
// comes from a row lock held for the duration of the transaction; the fund
// and guard callbacks run inside that transaction via the tx context, so a
// failed transfer rolls the status change back with it.
type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

var _ escrow.Store = (*EscrowRepo)(nil)

func (r *EscrowRepo) Create(ctx context.Context, rec *escrow.Record, fund func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO escrow_records (payment_id, sender, recipient, amount, deadline, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (payment_id) DO NOTHING
	`, rec.PaymentID, rec.Sender, rec.Recipient, rec.Amount, rec.Deadline, rec.Status, rec.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return escrow.ErrDuplicatePaymentID
	}

	if err := fund(withTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *EscrowRepo) Get(ctx context.Context, paymentID string) (*escrow.Record, error) {
	return scanRecord(querierFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT payment_id, sender, recipient, amount, deadline, status, created_at, resolved_at
		FROM escrow_records WHERE payment_id = $1
	`, paymentID))
}

func (r *EscrowRepo) Resolve(ctx context.Context, paymentID, to string, resolvedAt time.Time, guard func(ctx context.Context, rec *escrow.Record) error) (*escrow.Record, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rec, err := scanRecord(tx.QueryRow(ctx, `
		SELECT payment_id, sender, recipient, amount, deadline, status, created_at, resolved_at
		FROM escrow_records WHERE payment_id = $1
		FOR UPDATE
	`, paymentID))
	if err != nil {
		return nil, err
	}
	if rec.Status != escrow.StatusPending {
		return nil, escrow.ErrAlreadyResolved
	}

	if err := guard(withTx(ctx, tx), rec); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE escrow_records SET status = $1, resolved_at = $2 WHERE payment_id = $3
	`, to, resolvedAt, paymentID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	rec.Status = to
	rec.ResolvedAt = &resolvedAt
	return rec, nil
}

// ListDueForNotice returns pending records whose deadline has passed and not
// yet been announced. The flag is flipped separately via MarkNotified, after
// the notice actually went out, so a record stays eligible until then.
func (r *EscrowRepo) ListDueForNotice(ctx context.Context, now time.Time, limit int) ([]escrow.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT payment_id, sender, recipient, amount, deadline, status, created_at, resolved_at
		FROM escrow_records
		WHERE status = $1 AND deadline <= $2 AND deadline_notified = false
		ORDER BY deadline LIMIT $3
	`, escrow.StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []escrow.Record
	for rows.Next() {
		rec, err := scanRecordValues(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *EscrowRepo) MarkNotified(ctx context.Context, paymentID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE escrow_records SET deadline_notified = true WHERE payment_id = $1
	`, paymentID)
	return err
}

func scanRecord(row pgx.Row) (*escrow.Record, error) {
	rec, err := scanRecordValues(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, escrow.ErrRecordNotFound
	}
	return rec, err
}

func scanRecordValues(row pgx.Row) (*escrow.Record, error) {
	var rec escrow.Record
	err := row.Scan(&rec.PaymentID, &rec.Sender, &rec.Recipient, &rec.Amount,
		&rec.Deadline, &rec.Status, &rec.CreatedAt, &rec.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
