// Package token exposes operator endpoints over the GREEN token ledger:
// token info, balances, and manual mint/transfer.
package token

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"greenhop/internal/ledger"
	"greenhop/internal/platform/middleware"
	id "greenhop/pkg/domain"
	"greenhop/pkg/platform/httputil"
	"greenhop/pkg/validation"
)

// Handler wires token endpoints to the ledger service.
type Handler struct {
	ledger ledger.Service
	logger *slog.Logger
}

// New constructs a token handler.
func New(ledgerSvc ledger.Service, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledgerSvc, logger: logger}
}

// Register mounts token endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/info", h.HandleInfo)
	r.Get("/balance/{accountID}", h.HandleBalance)
	r.Post("/mint", h.HandleMint)
	r.Post("/transfer", h.HandleTransfer)
}

// HandleInfo handles GET /api/tokens/info requests.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.ledger.TokenInfo(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load token info",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

// BalanceResponse is the response body for balance queries.
type BalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   int64  `json:"balance"`
}

// HandleBalance handles GET /api/tokens/balance/{accountID} requests.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	balance, err := h.ledger.Balance(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load token balance",
			"request_id", middleware.GetRequestID(ctx),
			"account", account.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{AccountID: account.String(), Balance: balance})
}

// MintRequest is the request body for manual mints.
type MintRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Memo   string `json:"memo" validate:"max=100"`
}

// Validate validates the mint request.
func (r *MintRequest) Validate() error {
	return validation.Validate(r)
}

// TxResponse is the response body for mint and transfer operations.
type TxResponse struct {
	TransactionID string `json:"transactionId"`
}

// HandleMint handles POST /api/tokens/mint requests.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	txID, err := h.ledger.Mint(ctx, req.Amount, req.Memo)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual mint failed",
			"request_id", requestID,
			"amount", req.Amount,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TxResponse{TransactionID: txID.String()})
}

// TransferRequest is the request body for manual transfers.
type TransferRequest struct {
	To     string `json:"to" validate:"required,notblank"`
	Amount int64  `json:"amount" validate:"required,gt=0"`

	parsedTo id.AccountID
}

// Validate validates the transfer request and parses the destination.
func (r *TransferRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	to, err := id.ParseAccountID(r.To)
	if err != nil {
		return err
	}
	r.parsedTo = to
	return nil
}

// ParsedTo returns the validated destination account.
func (r *TransferRequest) ParsedTo() id.AccountID {
	return r.parsedTo
}

// HandleTransfer handles POST /api/tokens/transfer requests.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	txID, err := h.ledger.Transfer(ctx, req.ParsedTo(), req.Amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual transfer failed",
			"request_id", requestID,
			"to", req.To,
			"amount", req.Amount,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TxResponse{TransactionID: txID.String()})
}
