// Package ledger abstracts the token ledger the reward pipeline mints and
// transfers GREEN tokens on.
package ledger

import (
	"context"

	id "greenhop/pkg/domain"
)

// TokenInfo describes the reward token.
type TokenInfo struct {
	TokenID     string `json:"token_id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply int64  `json:"total_supply"`
}

// Service is the ledger contract the reward issuer depends on. Mint adds
// tokens to the treasury; Transfer moves them from the treasury to a user
// account. Both return the ledger transaction id.
type Service interface {
	Mint(ctx context.Context, amount int64, memo string) (id.TransactionID, error)
	Transfer(ctx context.Context, to id.AccountID, amount int64) (id.TransactionID, error)
	Balance(ctx context.Context, account id.AccountID) (int64, error)
	TokenInfo(ctx context.Context) (*TokenInfo, error)
}
