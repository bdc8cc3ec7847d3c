package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort      = "8083"
	defaultAPIKey    = "credential-authority-secret-key"
	defaultLatencyMs = "100"
)

type Claim struct {
	TripID         string  `json:"trip_id"`
	Account        string  `json:"account"`
	TripType       string  `json:"trip_type"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationMin    float64 `json:"duration_minutes"`
	CO2SavedGrams  int64   `json:"co2_saved_grams"`
	CompletedAt    int64   `json:"completed_at"`
}

type IssueRequest struct {
	PolicyID string `json:"policy_id"`
	Claim    Claim  `json:"claim"`
}

type IssueResponse struct {
	CredentialID string `json:"credential_id"`
	PolicyID     string `json:"policy_id"`
	Status       string `json:"status"`
	IssuedAt     string `json:"issued_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/api/v1/credentials/issue", handleIssue)

	log.Printf("📜 Mock Credential Authority starting on port %s", port)
	log.Printf("📝 API Key: %s", apiKey)
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
		"service": "credential-authority",
		"version": "1.0.0",
	})
}

// magicTrips let e2e tests force specific authority behavior by trip id.
var magicTrips = map[string]struct {
	status int
	msg    string
}{
	"trip_reject-policy":  {http.StatusUnprocessableEntity, "claim does not satisfy policy"},
	"trip_authority-down": {http.StatusServiceUnavailable, "authority temporarily unavailable"},
}

func handleIssue(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("📥 Incoming request: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.Header.Get("X-API-Key")
	if key == "" {
		sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
		return
	}
	if key != apiKey {
		sendError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.PolicyID == "" {
		sendError(w, "policy_id is required", http.StatusBadRequest)
		return
	}
	if req.Claim.TripID == "" || req.Claim.Account == "" {
		sendError(w, "claim requires trip_id and account", http.StatusBadRequest)
		return
	}

	if magic, ok := magicTrips[req.Claim.TripID]; ok {
		sendError(w, magic.msg, magic.status)
		log.Printf("🧪 Magic trip id %s -> %d", req.Claim.TripID, magic.status)
		return
	}

	// Credential ids are deterministic per trip so retries are observable.
	hash := sha256.Sum256([]byte(req.PolicyID + "|" + req.Claim.TripID))
	resp := IssueResponse{
		CredentialID: fmt.Sprintf("urn:credential:%s", hex.EncodeToString(hash[:16])),
		PolicyID:     req.PolicyID,
		Status:       "verified",
		IssuedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)

	log.Printf("✅ Issued credential %s for %s (%s)", resp.CredentialID, req.Claim.TripID, req.Claim.TripType)
}

func sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
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
