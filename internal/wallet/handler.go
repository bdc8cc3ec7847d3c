package wallet

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"greenhop/internal/platform/middleware"
	id "greenhop/pkg/domain"
	"greenhop/pkg/platform/httputil"
	s "greenhop/pkg/string"
)

// Handler wires wallet session endpoints to the service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts wallet endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/connect", h.HandleConnect)
	r.Post("/disconnect", h.HandleDisconnect)
	r.Get("/status/{accountID}", h.HandleStatus)
	r.Get("/connected", h.HandleConnected)
}

// ConnectRequest is the request body for wallet connect and disconnect.
type ConnectRequest struct {
	AccountID string `json:"accountId"`

	parsedAccount id.AccountID
}

// Sanitize trims surrounding whitespace from the account id.
func (r *ConnectRequest) Sanitize() {
	s.TrimStrings(&r.AccountID)
}

// Validate validates the account id format.
func (r *ConnectRequest) Validate() error {
	account, err := id.ParseAccountID(r.AccountID)
	if err != nil {
		return err
	}
	r.parsedAccount = account
	return nil
}

// ParsedAccount returns the validated account id.
func (r *ConnectRequest) ParsedAccount() id.AccountID {
	return r.parsedAccount
}

// ConnectResponse is the response body for wallet connect.
type ConnectResponse struct {
	Success      bool      `json:"success"`
	AccountID    string    `json:"accountId"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// HandleConnect handles POST /api/auth/connect requests.
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConnectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.Connect(ctx, req.ParsedAccount())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to connect wallet",
			"request_id", requestID,
			"account", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ConnectResponse{
		Success:      true,
		AccountID:    session.Account.String(),
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt.UTC(),
	})
}

// HandleDisconnect handles POST /api/auth/disconnect requests.
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConnectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Disconnect(ctx, req.ParsedAccount()); err != nil {
		h.logger.ErrorContext(ctx, "failed to disconnect wallet",
			"request_id", requestID,
			"account", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"accountId": req.AccountID,
	})
}

// StatusResponse is the response body for wallet status queries.
type StatusResponse struct {
	AccountID string `json:"accountId"`
	Connected bool   `json:"connected"`
}

// HandleStatus handles GET /api/auth/status/{accountID} requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	connected, err := h.service.Connected(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to query wallet status",
			"request_id", middleware.GetRequestID(ctx),
			"account", account.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, StatusResponse{AccountID: account.String(), Connected: connected})
}

// ConnectedResponse is the response body for the connected-wallets query.
type ConnectedResponse struct {
	Accounts []string `json:"accounts"`
	Count    int      `json:"count"`
}

// HandleConnected handles GET /api/auth/connected requests.
func (h *Handler) HandleConnected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := h.service.ConnectedAccounts(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list connected wallets",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]string, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, account.String())
	}
	httputil.WriteJSON(w, http.StatusOK, ConnectedResponse{Accounts: out, Count: len(out)})
}
