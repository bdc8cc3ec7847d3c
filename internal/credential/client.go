package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

// HTTPClient implements Issuer against the credential authority's HTTP API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	policyID   string
	httpClient *http.Client
}

var _ Issuer = (*HTTPClient)(nil)

// HTTPClientOption configures the HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// NewHTTPClient creates an HTTP-based credential issuer.
func NewHTTPClient(baseURL, apiKey, policyID string, timeout time.Duration, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		policyID: policyID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type issueRequest struct {
	PolicyID string `json:"policy_id"`
	Claim    Claim  `json:"claim"`
}

type issueResponse struct {
	CredentialID string `json:"credential_id"`
	PolicyID     string `json:"policy_id"`
	Status       string `json:"status"`
	IssuedAt     string `json:"issued_at"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Issue submits the claim to the authority and returns the issued credential.
func (c *HTTPClient) Issue(ctx context.Context, claim Claim) (*Credential, error) {
	reqBody, err := json.Marshal(issueRequest{PolicyID: c.policyID, Claim: claim})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialIssuance, "failed to marshal credential claim")
	}

	url := fmt.Sprintf("%s/api/v1/credentials/issue", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialIssuance, "failed to create credential request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, dErrors.Wrap(err, dErrors.CodeCredentialIssuance, "credential authority request timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialIssuance, "credential authority unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialIssuance, "failed to read credential response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errResp errorResponse
		msg := fmt.Sprintf("credential authority returned status %d", resp.StatusCode)
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, errResp.Message)
		}
		return nil, dErrors.New(dErrors.CodeCredentialIssuance, msg)
	}

	var out issueResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialIssuance, "failed to parse credential response")
	}
	credID, err := id.ParseCredentialID(out.CredentialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialIssuance, "credential authority returned empty credential id")
	}

	issuedAt, err := time.Parse(time.RFC3339, out.IssuedAt)
	if err != nil {
		issuedAt = time.Now()
	}
	return &Credential{
		ID:       credID,
		PolicyID: out.PolicyID,
		Status:   Status(out.Status),
		IssuedAt: issuedAt,
	}, nil
}
