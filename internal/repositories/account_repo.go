package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rental-platform/backend/internal/escrow"
)

// CustodyAccount holds all value currently escrowed by the platform.
const CustodyAccount = "platform:custody"

// AccountRepo keeps account balances and implements escrow.Treasury over the
// accounts table. Transfers picked up inside an escrow store transaction
// (via the tx context) commit and roll back with the status change.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

var _ escrow.Treasury = (*AccountRepo)(nil)

func (r *AccountRepo) TransferIn(ctx context.Context, from string, amount int64) error {
	return r.move(ctx, from, CustodyAccount, amount)
}

func (r *AccountRepo) TransferOut(ctx context.Context, to string, amount int64) error {
	return r.move(ctx, CustodyAccount, to, amount)
}

func (r *AccountRepo) move(ctx context.Context, from, to string, amount int64) error {
	q := querierFrom(ctx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE accounts SET balance = balance - $1, updated_at = now()
		WHERE account = $2 AND balance >= $1
	`, amount, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insufficient funds in account %s", from)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO accounts (account, balance) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = accounts.balance + $2, updated_at = now()
	`, to, amount)
	return err
}

// Credit adds value to an account outside of escrow flow (operator top-up).
func (r *AccountRepo) Credit(ctx context.Context, account string, amount int64) error {
	_, err := querierFrom(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (account, balance) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = accounts.balance + $2, updated_at = now()
	`, account, amount)
	return err
}

func (r *AccountRepo) Balance(ctx context.Context, account string) (int64, error) {
	var balance int64
	err := querierFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE((SELECT balance FROM accounts WHERE account = $1), 0)
	`, account).Scan(&balance)
	return balance, err
}
