// Package handler exposes the trip submission and query endpoints.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"greenhop/internal/geo"
	"greenhop/internal/platform/middleware"
	"greenhop/internal/trip/models"
	"greenhop/internal/trip/stats"
	"greenhop/internal/trip/store"
	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
	"greenhop/pkg/platform/httputil"
)

// Pipeline defines the submission operations used by the handler.
type Pipeline interface {
	Submit(ctx context.Context, sub models.Submission) (*models.SubmitResult, error)
	Get(ctx context.Context, tripID id.TripID) (*models.Record, error)
}

// Stats defines the read-side aggregation operations used by the handler.
type Stats interface {
	UserStats(ctx context.Context, account id.AccountID) (*stats.UserStats, error)
	GlobalStats(ctx context.Context) (*stats.GlobalStats, error)
	Overview(ctx context.Context, account id.AccountID) (*stats.Overview, error)
}

// Handler wires trip endpoints to the pipeline and stats services.
type Handler struct {
	pipeline Pipeline
	stats    Stats
	logger   *slog.Logger
}

// New constructs a trip handler with its dependencies.
func New(pipeline Pipeline, statsSvc Stats, logger *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, stats: statsSvc, logger: logger}
}

// Register mounts trip endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/submit", h.HandleSubmit)
	r.Get("/stats/global", h.HandleGlobalStats)
	r.Get("/stats/overview/{accountID}", h.HandleOverview)
	r.Get("/user/{accountID}", h.HandleUserTrips)
	r.Get("/{tripID}", h.HandleGetTrip)
}

// CoordinateBody is one GPS sample in a submission body.
type CoordinateBody struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Timestamp *int64   `json:"timestamp"`
}

// SubmitRequest is the request body for trip submission. Numeric fields are
// pointers so a missing field is distinguishable from a zero value; no
// record is created for a malformed body.
type SubmitRequest struct {
	UserAccountID string           `json:"userAccountId"`
	StartTime     *int64           `json:"startTime"`
	EndTime       *int64           `json:"endTime"`
	Distance      *float64         `json:"distance"`
	AvgSpeed      *float64         `json:"avgSpeed"`
	Coordinates   []CoordinateBody `json:"coordinates"`
	TripType      string           `json:"tripType"`

	parsed models.Submission
}

// Validate checks all seven fields are present and well formed, and parses
// the submission.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	required := []struct {
		name    string
		missing bool
	}{
		{"userAccountId", r.UserAccountID == ""},
		{"startTime", r.StartTime == nil},
		{"endTime", r.EndTime == nil},
		{"distance", r.Distance == nil},
		{"avgSpeed", r.AvgSpeed == nil},
		{"coordinates", r.Coordinates == nil},
		{"tripType", r.TripType == ""},
	}
	for _, f := range required {
		if f.missing {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Missing required field: %s", f.name))
		}
	}

	account, err := id.ParseAccountID(r.UserAccountID)
	if err != nil {
		return err
	}
	tripType, err := models.ParseTripType(r.TripType)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	if *r.EndTime < *r.StartTime {
		return dErrors.New(dErrors.CodeValidation, "endTime must not precede startTime")
	}
	if len(r.Coordinates) == 0 {
		return dErrors.New(dErrors.CodeValidation, "coordinates must not be empty")
	}
	if *r.Distance < 0 {
		return dErrors.New(dErrors.CodeValidation, "distance must not be negative")
	}
	if *r.AvgSpeed < 0 {
		return dErrors.New(dErrors.CodeValidation, "avgSpeed must not be negative")
	}

	coords := make([]geo.Coordinate, 0, len(r.Coordinates))
	for i, c := range r.Coordinates {
		if c.Lat == nil || c.Lng == nil || c.Timestamp == nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("coordinate %d is missing lat, lng or timestamp", i))
		}
		coord := geo.Coordinate{Lat: *c.Lat, Lng: *c.Lng, Timestamp: *c.Timestamp}
		if err := coord.Validate(); err != nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("coordinate %d: %s", i, err))
		}
		coords = append(coords, coord)
	}

	r.parsed = models.Submission{
		Account:        account,
		StartTime:      *r.StartTime,
		EndTime:        *r.EndTime,
		DistanceMeters: *r.Distance,
		AvgSpeedKmh:    *r.AvgSpeed,
		Coordinates:    coords,
		Type:           tripType,
	}
	return nil
}

// Parsed returns the validated submission.
func (r *SubmitRequest) Parsed() models.Submission {
	return r.parsed
}

// SubmitResponse is the response body for trip submission.
type SubmitResponse struct {
	Success      bool   `json:"success"`
	TripID       string `json:"tripId"`
	TokensEarned int64  `json:"tokensEarned,omitempty"`
	TxID         string `json:"txId,omitempty"`
	VcID         string `json:"vcId,omitempty"`
	Message      string `json:"message"`
}

// HandleSubmit handles POST /api/trips/submit requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.pipeline.Submit(ctx, req.Parsed())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to process trip submission",
			"request_id", requestID,
			"account", req.UserAccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	response := SubmitResponse{
		Success:      result.Success,
		TripID:       result.TripID.String(),
		TokensEarned: result.RewardAmount,
		TxID:         result.TransactionID.String(),
		VcID:         result.CredentialID.String(),
		Message:      result.Message,
	}
	if !result.Success {
		// Verification rejections return the persisted trip id and the
		// human-readable reason.
		httputil.WriteJSON(w, http.StatusBadRequest, response)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// TripResponse is the JSON view of one persisted trip record.
type TripResponse struct {
	TripID       string           `json:"tripId"`
	AccountID    string           `json:"accountId"`
	StartTime    int64            `json:"startTime"`
	EndTime      int64            `json:"endTime"`
	Distance     float64          `json:"distance"`
	AvgSpeed     float64          `json:"avgSpeed"`
	Coordinates  []geo.Coordinate `json:"coordinates"`
	TripType     string           `json:"tripType"`
	Status       string           `json:"status"`
	TokensEarned int64            `json:"tokensEarned"`
	TxID         string           `json:"txId,omitempty"`
	MintTxID     string           `json:"mintTxId,omitempty"`
	VcID         string           `json:"vcId,omitempty"`
	Duration     int64            `json:"duration"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func tripResponse(record *models.Record) TripResponse {
	return TripResponse{
		TripID:       record.ID.String(),
		AccountID:    record.Account.String(),
		StartTime:    record.StartTime,
		EndTime:      record.EndTime,
		Distance:     record.DistanceMeters,
		AvgSpeed:     record.AvgSpeedKmh,
		Coordinates:  record.Coordinates,
		TripType:     record.Type.String(),
		Status:       string(record.Status),
		TokensEarned: record.RewardAmount,
		TxID:         record.TransactionID.String(),
		MintTxID:     record.MintTxID.String(),
		VcID:         record.CredentialID.String(),
		Duration:     record.DurationMinutes(),
		CreatedAt:    record.CreatedAt.UTC(),
	}
}

// HandleGetTrip handles GET /api/trips/{tripID} requests.
func (h *Handler) HandleGetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tripID, err := id.ParseTripID(chi.URLParam(r, "tripID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.pipeline.Get(ctx, tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "trip not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load trip",
			"request_id", middleware.GetRequestID(ctx),
			"trip_id", tripID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tripResponse(record))
}

// HandleUserTrips handles GET /api/trips/user/{accountID} requests.
func (h *Handler) HandleUserTrips(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	userStats, err := h.stats.UserStats(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to aggregate user stats",
			"request_id", middleware.GetRequestID(ctx),
			"account", account.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userStats)
}

// HandleGlobalStats handles GET /api/trips/stats/global requests.
func (h *Handler) HandleGlobalStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	globalStats, err := h.stats.GlobalStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to aggregate global stats",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, globalStats)
}

// HandleOverview handles GET /api/trips/stats/overview/{accountID} requests.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	overview, err := h.stats.Overview(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to aggregate stats overview",
			"request_id", middleware.GetRequestID(ctx),
			"account", account.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, overview)
}
