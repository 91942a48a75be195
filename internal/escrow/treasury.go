package escrow

import (
	"context"
	"fmt"
	"sync"
)

// Treasury moves value between caller accounts and ledger custody. TransferIn
// takes funds from an account into custody at deposit; TransferOut pays funds
// out of custody at release or refund. Implementations that share a backend
// with the Store are expected to join its transaction so a failed transfer
// never leaves a committed status behind.
type Treasury interface {
	TransferIn(ctx context.Context, from string, amount int64) error
	TransferOut(ctx context.Context, to string, amount int64) error
}

// MemTreasury keeps account balances in memory. Reference Treasury used by
// the ledger tests.
type MemTreasury struct {
	mu       sync.Mutex
	balances map[string]int64
	custody  int64
}

func NewMemTreasury(initial map[string]int64) *MemTreasury {
	balances := make(map[string]int64, len(initial))
	for account, amount := range initial {
		balances[account] = amount
	}
	return &MemTreasury{balances: balances}
}

func (t *MemTreasury) TransferIn(ctx context.Context, from string, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balances[from] < amount {
		return fmt.Errorf("insufficient funds: account %s has %d, need %d", from, t.balances[from], amount)
	}
	t.balances[from] -= amount
	t.custody += amount
	return nil
}

func (t *MemTreasury) TransferOut(ctx context.Context, to string, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.custody < amount {
		return fmt.Errorf("custody underflow: holding %d, need %d", t.custody, amount)
	}
	t.custody -= amount
	t.balances[to] += amount
	return nil
}

func (t *MemTreasury) Balance(account string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// Custody returns the total value currently held by the ledger.
func (t *MemTreasury) Custody() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.custody
}
