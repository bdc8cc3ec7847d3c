package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
	"greenhop/pkg/platform/circuit"
)

// HTTPClient implements Service against the ledger gateway's HTTP API.
// A circuit breaker fails calls fast while the gateway is down instead of
// holding reward issuance on a full timeout per call.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	tokenID    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

var _ Service = (*HTTPClient)(nil)

// HTTPClientOption configures the HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *circuit.Breaker) HTTPClientOption {
	return func(c *HTTPClient) {
		if b != nil {
			c.breaker = b
		}
	}
}

// WithLogger sets the logger for circuit state transitions.
func WithLogger(logger *slog.Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHTTPClient creates an HTTP-based ledger client for one token.
func NewHTTPClient(baseURL, apiKey, tokenID string, timeout time.Duration, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		tokenID: tokenID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: circuit.New("ledger-gateway"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type mintRequest struct {
	TokenID string `json:"token_id"`
	Amount  int64  `json:"amount"`
	Memo    string `json:"memo,omitempty"`
}

type transferRequest struct {
	TokenID string `json:"token_id"`
	To      string `json:"to"`
	Amount  int64  `json:"amount"`
}

type txResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type balanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Mint mints tokens to the treasury account behind the gateway.
func (c *HTTPClient) Mint(ctx context.Context, amount int64, memo string) (id.TransactionID, error) {
	var out txResponse
	err := c.post(ctx, "/api/v1/tokens/mint", mintRequest{TokenID: c.tokenID, Amount: amount, Memo: memo}, &out, dErrors.CodeMintFailed)
	if err != nil {
		return "", err
	}
	return id.TransactionID(out.TransactionID), nil
}

// Transfer moves tokens from the treasury to the destination account.
func (c *HTTPClient) Transfer(ctx context.Context, to id.AccountID, amount int64) (id.TransactionID, error) {
	var out txResponse
	err := c.post(ctx, "/api/v1/tokens/transfer", transferRequest{TokenID: c.tokenID, To: to.String(), Amount: amount}, &out, dErrors.CodeTransferFailed)
	if err != nil {
		return "", err
	}
	return id.TransactionID(out.TransactionID), nil
}

// Balance returns the token balance of an account.
func (c *HTTPClient) Balance(ctx context.Context, account id.AccountID) (int64, error) {
	var out balanceResponse
	path := fmt.Sprintf("/api/v1/tokens/%s/balance/%s", c.tokenID, account)
	if err := c.get(ctx, path, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// TokenInfo returns the token descriptor from the gateway.
func (c *HTTPClient) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	var out TokenInfo
	if err := c.get(ctx, fmt.Sprintf("/api/v1/tokens/%s", c.tokenID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out any, failCode dErrors.Code) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(err, failCode, "failed to marshal ledger request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return dErrors.Wrap(err, failCode, "failed to create ledger request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	return c.do(req, out, failCode)
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ledger request")
	}
	req.Header.Set("X-API-Key", c.apiKey)
	return c.do(req, out, dErrors.CodeInternal)
}

func (c *HTTPClient) do(req *http.Request, out any, failCode dErrors.Code) error {
	if !c.breaker.Allow() {
		return dErrors.New(failCode, "ledger gateway unavailable: circuit open")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		if req.Context().Err() == context.DeadlineExceeded {
			return dErrors.Wrap(err, failCode, "ledger gateway request timed out")
		}
		return dErrors.Wrap(err, failCode, "ledger gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure()
	} else {
		c.recordSuccess()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dErrors.Wrap(err, failCode, "failed to read ledger response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errResp errorResponse
		msg := fmt.Sprintf("ledger gateway returned status %d", resp.StatusCode)
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, errResp.Message)
		}
		return dErrors.New(failCode, msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return dErrors.Wrap(err, failCode, "failed to parse ledger response")
	}
	return nil
}

func (c *HTTPClient) recordFailure() {
	if change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Error("circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *HTTPClient) recordSuccess() {
	if change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("circuit closed", "breaker", c.breaker.Name())
	}
}
