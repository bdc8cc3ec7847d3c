package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort      = "8082"
	defaultAPIKey    = "ledger-gateway-secret-key"
	defaultTokenID   = "0.0.55555"
	defaultTreasury  = "0.0.777"
	defaultLatencyMs = "100"
)

type MintRequest struct {
	TokenID string `json:"token_id"`
	Amount  int64  `json:"amount"`
	Memo    string `json:"memo,omitempty"`
}

type TransferRequest struct {
	TokenID string `json:"token_id"`
	To      string `json:"to"`
	Amount  int64  `json:"amount"`
}

type TxResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

type TokenInfoResponse struct {
	TokenID     string `json:"token_id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply int64  `json:"total_supply"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	tokenID   = getEnv("TOKEN_ID", defaultTokenID)
	treasury  = getEnv("TREASURY_ACCOUNT", defaultTreasury)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

	mu          sync.Mutex
	balances    = map[string]int64{}
	totalSupply int64
	txSeq       int64
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/api/v1/tokens/mint", handleMint)
	http.HandleFunc("/api/v1/tokens/transfer", handleTransfer)
	http.HandleFunc("/api/v1/tokens/", handleTokenReads)

	log.Printf("🪙  Mock Ledger Gateway starting on port %s", port)
	log.Printf("📝 API Key: %s", apiKey)
	log.Printf("🏦 Token %s, treasury %s", tokenID, treasury)
	log.Printf("⏱️  Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "ledger-gateway",
		"version": "1.0.0",
	})
}

func handleMint(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("📥 Incoming request: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !checkAPIKey(w, r) {
		return
	}

	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.TokenID != tokenID {
		sendError(w, "Unknown token: "+req.TokenID, http.StatusNotFound)
		return
	}
	if req.Amount <= 0 {
		sendError(w, "amount must be positive", http.StatusUnprocessableEntity)
		return
	}

	mu.Lock()
	balances[treasury] += req.Amount
	totalSupply += req.Amount
	txID := nextTxID()
	mu.Unlock()

	sendJSON(w, http.StatusOK, TxResponse{TransactionID: txID, Status: "SUCCESS"})
	log.Printf("✅ Minted %d to treasury (memo=%q, tx=%s)", req.Amount, req.Memo, txID)
}

func handleTransfer(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("📥 Incoming request: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !checkAPIKey(w, r) {
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.TokenID != tokenID {
		sendError(w, "Unknown token: "+req.TokenID, http.StatusNotFound)
		return
	}
	if req.Amount <= 0 {
		sendError(w, "amount must be positive", http.StatusUnprocessableEntity)
		return
	}
	if req.To == "" {
		sendError(w, "to account is required", http.StatusBadRequest)
		return
	}

	mu.Lock()
	if balances[treasury] < req.Amount {
		mu.Unlock()
		sendError(w, "insufficient treasury balance", http.StatusUnprocessableEntity)
		return
	}
	balances[treasury] -= req.Amount
	balances[req.To] += req.Amount
	txID := nextTxID()
	mu.Unlock()

	sendJSON(w, http.StatusOK, TxResponse{TransactionID: txID, Status: "SUCCESS"})
	log.Printf("✅ Transferred %d to %s (tx=%s)", req.Amount, req.To, txID)
}

// handleTokenReads serves GET /api/v1/tokens/{id} and
// GET /api/v1/tokens/{id}/balance/{account}.
func handleTokenReads(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	if r.Method != http.MethodGet {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !checkAPIKey(w, r) {
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/tokens/"), "/")
	if parts[0] != tokenID {
		sendError(w, "Unknown token: "+parts[0], http.StatusNotFound)
		return
	}

	mu.Lock()
	defer mu.Unlock()

	switch {
	case len(parts) == 1:
		sendJSON(w, http.StatusOK, TokenInfoResponse{
			TokenID:     tokenID,
			Name:        "GreenHop Token",
			Symbol:      "GREEN",
			Decimals:    0,
			TotalSupply: totalSupply,
		})
	case len(parts) == 3 && parts[1] == "balance":
		sendJSON(w, http.StatusOK, BalanceResponse{AccountID: parts[2], Balance: balances[parts[2]]})
	default:
		sendError(w, "Not found", http.StatusNotFound)
	}
}

func nextTxID() string {
	txSeq++
	return fmt.Sprintf("%s@%d.%09d", treasury, time.Now().Unix(), txSeq)
}

func checkAPIKey(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
		return false
	}
	if key != apiKey {
		sendError(w, "Invalid API key", http.StatusUnauthorized)
		return false
	}
	return true
}

func sendJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func sendError(w http.ResponseWriter, message string, code int) {
	sendJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
	log.Printf("❌ Error response: %d - %s", code, message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️  Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
