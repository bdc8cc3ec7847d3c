// Package service implements the trip submission pipeline: verify the
// claimed trip, issue the reward, persist exactly one record per processed
// submission, and keep read-side caches coherent.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"greenhop/internal/events"
	"greenhop/internal/geo"
	"greenhop/internal/platform/tracer"
	"greenhop/internal/reward"
	"greenhop/internal/trip/metrics"
	"greenhop/internal/trip/models"
	"greenhop/internal/trip/store"
	"greenhop/internal/trip/validator"
	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

// gpsDeviationThreshold is the relative difference between the claimed
// distance and the GPS-derived distance above which a submission is flagged.
// Flagged trips are still processed; the flag feeds fraud analysis.
const gpsDeviationThreshold = 0.20

// RewardIssuer runs the credential-mint-transfer sequence for a verified trip.
type RewardIssuer interface {
	Issue(ctx context.Context, req reward.Request) (*reward.Receipt, error)
}

// StatsInvalidator drops cached aggregates affected by a new record.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, account id.AccountID)
}

// Service is the trip submission pipeline.
type Service struct {
	store     store.Store
	rewards   RewardIssuer
	stats     StatsInvalidator
	publisher events.Publisher
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer sets a tracer for pipeline spans.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithMetrics sets the pipeline metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher sets the trip event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithStatsInvalidator sets the stats cache invalidator.
func WithStatsInvalidator(inv StatsInvalidator) Option {
	return func(s *Service) {
		s.stats = inv
	}
}

// WithClock sets the time source. Test helper.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates the submission pipeline.
func New(st store.Store, rewards RewardIssuer, opts ...Option) *Service {
	s := &Service{
		store:     st,
		rewards:   rewards,
		publisher: events.NoopPublisher{},
		tracer:    tracer.NewNoop(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit processes one trip submission end to end. Shape validation happens
// at the transport boundary; by the time a submission reaches here its seven
// fields are present and the account id is well formed.
//
// Exactly one record is persisted per submission, for verification
// rejections and issuance failures as well as successes. A rejection returns
// a result with Success=false and a nil error; infrastructure failures
// return a coded error.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*models.SubmitResult, error) {
	tripID := id.NewTripID()
	ctx, span := s.tracer.Start(ctx, tracer.SpanTripSubmit,
		tracer.String(tracer.AttrTripID, tripID.String()),
		tracer.String(tracer.AttrAccountID, sub.Account.String()),
		tracer.String(tracer.AttrTripType, sub.Type.String()),
		tracer.Float64(tracer.AttrDistanceMeters, sub.DistanceMeters),
	)

	s.crossCheckGPS(span, tripID, sub)

	outcome := s.verify(ctx, sub)
	span.SetAttributes(tracer.Bool(tracer.AttrValid, outcome.Valid))

	if !outcome.Valid {
		if err := s.persist(ctx, tripID, sub, outcome, nil); err != nil {
			span.End(err)
			return nil, err
		}
		s.recordOutcome(ctx, tripID, sub, events.TypeTripRejected, 0, nil, outcome)
		span.End(nil)
		return &models.SubmitResult{
			TripID:  tripID,
			Message: outcome.Reason,
		}, nil
	}

	receipt, issueErr := s.rewards.Issue(ctx, reward.Request{
		TripID:          tripID,
		Account:         sub.Account,
		TripType:        sub.Type.String(),
		DistanceMeters:  sub.DistanceMeters,
		DurationMinutes: sub.DurationMinutes(),
		CO2SavedGrams:   validator.EstimatedCO2SavedGrams(sub.DistanceMeters),
		Amount:          outcome.RewardAmount,
		CompletedAt:     sub.EndTime,
		IdempotencyKey:  sub.IdempotencyKey(),
	})
	if issueErr != nil {
		// A partial receipt after a transfer failure still carries the
		// credential and mint transaction; persist them for reconciliation.
		if err := s.persist(ctx, tripID, sub, outcome, receipt); err != nil {
			s.logger.Error("failed to persist trip after issuance failure",
				"error", err, "trip_id", tripID, "issuance_error", issueErr)
			span.End(err)
			return nil, err
		}
		s.recordOutcome(ctx, tripID, sub, events.TypeTripFailed, 0, receipt, outcome)
		span.End(issueErr)
		return nil, issueErr
	}

	if err := s.persist(ctx, tripID, sub, outcome, receipt); err != nil {
		// The reward is already on the ledger; never drop that silently.
		s.logger.Error("failed to persist trip after successful issuance",
			"error", err, "trip_id", tripID,
			"transfer_tx_id", receipt.TransferTxID, "mint_tx_id", receipt.MintTxID)
		span.End(err)
		return nil, err
	}

	s.recordOutcome(ctx, tripID, sub, events.TypeTripCompleted, outcome.RewardAmount, receipt, outcome)
	span.End(nil)
	return &models.SubmitResult{
		Success:       true,
		TripID:        tripID,
		RewardAmount:  outcome.RewardAmount,
		TransactionID: receipt.TransferTxID,
		CredentialID:  receipt.CredentialID,
		Message:       fmt.Sprintf("Successfully rewarded %d GREEN tokens for %s trip", outcome.RewardAmount, sub.Type),
	}, nil
}

// Get returns one persisted trip record.
func (s *Service) Get(ctx context.Context, tripID id.TripID) (*models.Record, error) {
	return s.store.FindByID(ctx, tripID)
}

// ListByAccount returns all records for the account, oldest first.
func (s *Service) ListByAccount(ctx context.Context, account id.AccountID) ([]*models.Record, error) {
	return s.store.ListByAccount(ctx, account)
}

func (s *Service) verify(ctx context.Context, sub models.Submission) models.VerificationOutcome {
	_, span := s.tracer.Start(ctx, tracer.SpanTripVerify)
	outcome := validator.Verify(sub)
	span.SetAttributes(
		tracer.Bool(tracer.AttrValid, outcome.Valid),
		tracer.Int64(tracer.AttrRewardAmount, outcome.RewardAmount),
	)
	span.End(nil)
	return outcome
}

// crossCheckGPS recomputes the distance from the coordinate trace and flags
// submissions whose claimed distance deviates from it by more than the
// threshold. Verification still runs on the claimed figures.
func (s *Service) crossCheckGPS(span tracer.Span, tripID id.TripID, sub models.Submission) {
	computed := geo.Aggregate(sub.Coordinates)
	if computed.DistanceMeters <= 0 {
		return
	}
	deviation := math.Abs(sub.DistanceMeters-computed.DistanceMeters) / computed.DistanceMeters
	if deviation > gpsDeviationThreshold {
		s.logger.Warn("claimed distance deviates from GPS trace",
			"trip_id", tripID,
			"account", sub.Account.String(),
			"claimed_meters", sub.DistanceMeters,
			"computed_meters", computed.DistanceMeters,
			"deviation", deviation,
		)
		span.AddEvent("gps_deviation",
			tracer.Float64("claimed_meters", sub.DistanceMeters),
			tracer.Float64("computed_meters", computed.DistanceMeters),
		)
	}
}

func (s *Service) persist(ctx context.Context, tripID id.TripID, sub models.Submission, outcome models.VerificationOutcome, receipt *reward.Receipt) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanTripPersist)

	record := &models.Record{
		ID:             tripID,
		Account:        sub.Account,
		StartTime:      sub.StartTime,
		EndTime:        sub.EndTime,
		DistanceMeters: sub.DistanceMeters,
		AvgSpeedKmh:    sub.AvgSpeedKmh,
		Coordinates:    sub.Coordinates,
		Type:           sub.Type,
		Status:         models.StatusFailed,
		IdempotencyKey: sub.IdempotencyKey(),
		CreatedAt:      s.now(),
	}
	if receipt != nil {
		record.CredentialID = receipt.CredentialID
		record.MintTxID = receipt.MintTxID
		if !receipt.TransferTxID.IsNil() || receipt.Amount == 0 {
			record.TransactionID = receipt.TransferTxID
			record.Status = models.StatusCompleted
			record.RewardAmount = outcome.RewardAmount
		}
	}

	if err := s.store.Create(ctx, record); err != nil {
		span.End(err)
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to persist trip record")
	}
	span.End(nil)
	return nil
}

func (s *Service) recordOutcome(ctx context.Context, tripID id.TripID, sub models.Submission, eventType string, rewardAmount int64, receipt *reward.Receipt, outcome models.VerificationOutcome) {
	status := string(models.StatusFailed)
	if eventType == events.TypeTripCompleted {
		status = string(models.StatusCompleted)
	}
	if s.metrics != nil {
		s.metrics.RecordSubmission(status)
		if outcome.Rule != "" {
			s.metrics.RecordRejection(outcome.Rule)
		}
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, sub.Account)
	}

	event := events.Event{
		Type:           eventType,
		TripID:         tripID,
		Account:        sub.Account.String(),
		TripType:       sub.Type.String(),
		RewardAmount:   rewardAmount,
		Reason:         outcome.Reason,
		IdempotencyKey: sub.IdempotencyKey(),
	}
	if receipt != nil {
		event.TransactionID = receipt.TransferTxID
		event.MintTxID = receipt.MintTxID
		event.CredentialID = receipt.CredentialID
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.Error("failed to emit trip event", "error", err, "trip_id", tripID, "type", eventType)
	}
}
