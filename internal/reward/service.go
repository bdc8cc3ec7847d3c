// Package reward orchestrates token issuance for verified trips: credential
// first, then mint to treasury, then transfer to the rider.
package reward

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"greenhop/internal/credential"
	"greenhop/internal/events"
	"greenhop/internal/ledger"
	"greenhop/internal/platform/tracer"
	"greenhop/internal/trip/metrics"
	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

// Request carries the verified trip facts the issuance sequence needs.
type Request struct {
	TripID          id.TripID
	Account         id.AccountID
	TripType        string
	DistanceMeters  float64
	DurationMinutes float64
	CO2SavedGrams   int64
	Amount          int64
	CompletedAt     int64 // unix milliseconds
	IdempotencyKey  string
}

// Receipt records what the issuance sequence achieved. On a transfer failure
// after a successful mint the receipt is returned partially filled alongside
// the error, so the caller can persist the credential and mint transaction
// for reconciliation.
type Receipt struct {
	CredentialID  id.CredentialID
	MintTxID      id.TransactionID
	TransferTxID  id.TransactionID
	Amount        int64
	CO2SavedGrams int64
}

// Service runs the issuance sequence against the credential authority and
// the token ledger.
type Service struct {
	credentials credential.Issuer
	ledger      ledger.Service
	publisher   events.Publisher
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	logger      *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer sets a tracer for issuance spans.
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

// New creates a reward issuance service.
func New(credentials credential.Issuer, ledgerSvc ledger.Service, opts ...Option) *Service {
	s := &Service{
		credentials: credentials,
		ledger:      ledgerSvc,
		publisher:   events.NoopPublisher{},
		tracer:      tracer.NewNoop(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue runs the issuance sequence in strict order: credential, mint,
// transfer. The credential attests the trip before any tokens exist; a mint
// failure aborts before the transfer; a transfer failure after a successful
// mint strands tokens in the treasury and returns the partial receipt with
// the error so the mint is never silently lost.
func (s *Service) Issue(ctx context.Context, req Request) (*Receipt, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanRewardIssue,
		tracer.String(tracer.AttrTripID, req.TripID.String()),
		tracer.String(tracer.AttrAccountID, req.Account.String()),
		tracer.Int64(tracer.AttrRewardAmount, req.Amount),
	)

	receipt := &Receipt{Amount: req.Amount, CO2SavedGrams: req.CO2SavedGrams}

	cred, err := s.issueCredential(ctx, req)
	if err != nil {
		span.End(err)
		return nil, err
	}
	receipt.CredentialID = cred.ID

	// Sub-kilometer trips verify and earn a credential but no tokens.
	if req.Amount == 0 {
		span.End(nil)
		if s.metrics != nil {
			s.metrics.RecordReward(0, time.Since(started).Seconds())
		}
		return receipt, nil
	}

	mintTx, err := s.mint(ctx, req)
	if err != nil {
		span.End(err)
		return nil, err
	}
	receipt.MintTxID = mintTx

	transferTx, err := s.transfer(ctx, req)
	if err != nil {
		s.strandedMint(ctx, req, receipt)
		span.End(err)
		return receipt, err
	}
	receipt.TransferTxID = transferTx

	span.End(nil)
	if s.metrics != nil {
		s.metrics.RecordReward(req.Amount, time.Since(started).Seconds())
	}
	return receipt, nil
}

func (s *Service) issueCredential(ctx context.Context, req Request) (*credential.Credential, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialCall)
	cred, err := s.credentials.Issue(ctx, credential.Claim{
		TripID:         req.TripID,
		Account:        req.Account.String(),
		TripType:       req.TripType,
		DistanceMeters: req.DistanceMeters,
		DurationMin:    req.DurationMinutes,
		CO2SavedGrams:  req.CO2SavedGrams,
		CompletedAt:    req.CompletedAt,
	})
	if err != nil {
		span.End(err)
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialIssuance, "credential issuance failed")
	}
	if cred.Status != credential.StatusVerified {
		err := dErrors.New(dErrors.CodeCredentialIssuance, fmt.Sprintf("credential issued with status %q, expected verified", cred.Status))
		span.End(err)
		return nil, err
	}
	span.End(nil)
	return cred, nil
}

func (s *Service) mint(ctx context.Context, req Request) (id.TransactionID, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerMint,
		tracer.Int64(tracer.AttrRewardAmount, req.Amount),
	)
	memo := fmt.Sprintf("reward for %s", req.TripID)
	mintTx, err := s.ledger.Mint(ctx, req.Amount, memo)
	if err != nil {
		span.End(err)
		return "", dErrors.Wrap(err, dErrors.CodeMintFailed, "token mint failed")
	}
	span.End(nil)
	return mintTx, nil
}

func (s *Service) transfer(ctx context.Context, req Request) (id.TransactionID, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerTransfer,
		tracer.String(tracer.AttrAccountID, req.Account.String()),
	)
	transferTx, err := s.ledger.Transfer(ctx, req.Account, req.Amount)
	if err != nil {
		span.End(err)
		return "", dErrors.Wrap(err, dErrors.CodeTransferFailed, "token transfer failed")
	}
	span.End(nil)
	return transferTx, nil
}

// strandedMint records a mint whose transfer failed. The tokens sit in the
// treasury until an operator reconciles them against the emitted event.
func (s *Service) strandedMint(ctx context.Context, req Request, receipt *Receipt) {
	s.logger.Error("transfer failed after successful mint, reconciliation required",
		"trip_id", req.TripID,
		"account", req.Account.String(),
		"amount", req.Amount,
		"mint_tx_id", receipt.MintTxID,
	)
	if s.metrics != nil {
		s.metrics.RecordStrandedMint()
	}
	event := events.Event{
		Type:           events.TypeReconciliationRequired,
		TripID:         req.TripID,
		Account:        req.Account.String(),
		TripType:       req.TripType,
		RewardAmount:   req.Amount,
		MintTxID:       receipt.MintTxID,
		CredentialID:   receipt.CredentialID,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.Error("failed to emit reconciliation event", "error", err, "trip_id", req.TripID)
	}
}
