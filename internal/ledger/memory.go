package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

// InMemoryLedger keeps token balances in process. Used in development and
// tests when no ledger gateway is configured. Transaction ids follow the
// account@seconds.nanos convention of the production ledger.
type InMemoryLedger struct {
	mu       sync.Mutex
	token    TokenInfo
	treasury id.AccountID
	balances map[id.AccountID]int64
	seq      int64
}

var _ Service = (*InMemoryLedger)(nil)

// NewInMemory creates an in-process ledger with an empty treasury.
func NewInMemory(tokenID string, treasury id.AccountID) *InMemoryLedger {
	return &InMemoryLedger{
		token: TokenInfo{
			TokenID:  tokenID,
			Name:     "GreenHop Token",
			Symbol:   "GREEN",
			Decimals: 0,
		},
		treasury: treasury,
		balances: make(map[id.AccountID]int64),
	}
}

// Mint adds tokens to the treasury and grows total supply.
func (l *InMemoryLedger) Mint(_ context.Context, amount int64, _ string) (id.TransactionID, error) {
	if amount <= 0 {
		return "", dErrors.New(dErrors.CodeMintFailed, "mint amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.token.TotalSupply += amount
	l.balances[l.treasury] += amount
	return l.nextTxID(), nil
}

// Transfer moves tokens from the treasury to the destination account.
func (l *InMemoryLedger) Transfer(_ context.Context, to id.AccountID, amount int64) (id.TransactionID, error) {
	if amount <= 0 {
		return "", dErrors.New(dErrors.CodeTransferFailed, "transfer amount must be positive")
	}
	if to.IsNil() {
		return "", dErrors.New(dErrors.CodeTransferFailed, "transfer destination cannot be the zero account")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[l.treasury] < amount {
		return "", dErrors.New(dErrors.CodeTransferFailed, "treasury balance insufficient for transfer")
	}
	l.balances[l.treasury] -= amount
	l.balances[to] += amount
	return l.nextTxID(), nil
}

// Balance returns the token balance of an account. Unknown accounts hold zero.
func (l *InMemoryLedger) Balance(_ context.Context, account id.AccountID) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// TokenInfo returns the token descriptor including current total supply.
func (l *InMemoryLedger) TokenInfo(_ context.Context) (*TokenInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info := l.token
	return &info, nil
}

// nextTxID fabricates a unique transaction id. Caller holds the lock.
func (l *InMemoryLedger) nextTxID() id.TransactionID {
	l.seq++
	now := time.Now()
	return id.TransactionID(fmt.Sprintf("%s@%d.%09d", l.treasury, now.Unix(), l.seq))
}
