// Package stats computes per-user and global aggregates over persisted trip
// records. Aggregations are pure projections; an optional Redis cache sits in
// front of them and is invalidated on every record write.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"greenhop/internal/platform/redis"
	"greenhop/internal/trip/metrics"
	"greenhop/internal/trip/models"
	"greenhop/internal/trip/store"
	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

const co2GramsPerKm = 0.12 * 1000

// TripView is the per-trip projection returned inside user stats.
type TripView struct {
	TripID          id.TripID         `json:"tripId"`
	Type            models.TripType   `json:"type"`
	Status          models.TripStatus `json:"status"`
	DistanceMeters  float64           `json:"distance"`
	DurationMinutes int64             `json:"duration"`
	RewardAmount    int64             `json:"reward"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// UserStats aggregates one account's trips, most recent first.
type UserStats struct {
	Account             string     `json:"accountId"`
	TotalTrips          int        `json:"totalTrips"`
	TotalDistanceMeters float64    `json:"totalDistance"`
	TotalTokens         int64      `json:"totalTokensEarned"`
	CO2SavedGrams       int64      `json:"co2Saved"`
	Trips               []TripView `json:"trips"`
}

// TripTypeBreakdown counts completed trips per mode.
type TripTypeBreakdown struct {
	Walking int `json:"walking"`
	Cycling int `json:"cycling"`
}

// GlobalStats aggregates completed trips across all accounts.
type GlobalStats struct {
	TotalTrips            int               `json:"totalTrips"`
	TotalDistanceMeters   float64           `json:"totalDistance"`
	TotalTokens           int64             `json:"totalTokensIssued"`
	CO2SavedGrams         int64             `json:"totalCo2Saved"`
	AverageDistanceMeters float64           `json:"avgTripDistance"`
	Breakdown             TripTypeBreakdown `json:"tripTypeBreakdown"`
}

// Overview bundles the user and global aggregates for dashboard reads.
type Overview struct {
	User   *UserStats   `json:"user"`
	Global *GlobalStats `json:"global"`
}

// Service serves stats queries over the trip store.
type Service struct {
	store    store.Store
	cache    *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithCache enables Redis caching of computed stats.
func WithCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = client
		s.cacheTTL = ttl
	}
}

// WithMetrics sets the pipeline metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a stats service over the given trip store.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		cacheTTL: 5 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func userCacheKey(account id.AccountID) string {
	return fmt.Sprintf("stats:user:%s", account)
}

const globalCacheKey = "stats:global"

// UserStats aggregates all of the account's trips, failed ones included.
// Failed trips carry reward 0 so they never inflate token totals.
func (s *Service) UserStats(ctx context.Context, account id.AccountID) (*UserStats, error) {
	if cached, ok := s.cacheGet(ctx, userCacheKey(account), "user", &UserStats{}); ok {
		return cached.(*UserStats), nil
	}

	records, err := s.store.ListByAccount(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load trips for account")
	}

	out := &UserStats{Account: account.String(), Trips: make([]TripView, 0, len(records))}
	for _, r := range records {
		out.TotalTrips++
		out.TotalDistanceMeters += r.DistanceMeters
		out.TotalTokens += r.RewardAmount
		out.Trips = append(out.Trips, TripView{
			TripID:          r.ID,
			Type:            r.Type,
			Status:          r.Status,
			DistanceMeters:  r.DistanceMeters,
			DurationMinutes: r.DurationMinutes(),
			RewardAmount:    r.RewardAmount,
			CreatedAt:       r.CreatedAt,
		})
	}
	out.CO2SavedGrams = co2Saved(out.TotalDistanceMeters)
	sortByRecency(out.Trips)

	s.cacheSet(ctx, userCacheKey(account), out)
	return out, nil
}

// GlobalStats aggregates completed trips only, with a type breakdown and a
// zero-guarded average distance.
func (s *Service) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	if cached, ok := s.cacheGet(ctx, globalCacheKey, "global", &GlobalStats{}); ok {
		return cached.(*GlobalStats), nil
	}

	records, err := s.store.ListCompleted(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load completed trips")
	}

	out := &GlobalStats{}
	for _, r := range records {
		out.TotalTrips++
		out.TotalDistanceMeters += r.DistanceMeters
		out.TotalTokens += r.RewardAmount
		switch r.Type {
		case models.TripTypeWalking:
			out.Breakdown.Walking++
		case models.TripTypeCycling:
			out.Breakdown.Cycling++
		}
	}
	out.CO2SavedGrams = co2Saved(out.TotalDistanceMeters)
	if out.TotalTrips > 0 {
		out.AverageDistanceMeters = math.Round(out.TotalDistanceMeters / float64(out.TotalTrips))
	}

	s.cacheSet(ctx, globalCacheKey, out)
	return out, nil
}

// Overview fetches user and global stats concurrently.
func (s *Service) Overview(ctx context.Context, account id.AccountID) (*Overview, error) {
	out := &Overview{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := s.UserStats(ctx, account)
		out.User = user
		return err
	})
	g.Go(func() error {
		global, err := s.GlobalStats(ctx)
		out.Global = global
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops cached stats affected by a new record for the account.
// Called by the pipeline after every record write.
func (s *Service) Invalidate(ctx context.Context, account id.AccountID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, userCacheKey(account), globalCacheKey).Err(); err != nil {
		s.logger.Warn("failed to invalidate stats cache", "error", err, "account", account.String())
	}
}

func (s *Service) cacheGet(ctx context.Context, key, scope string, out any) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordStatsCacheMiss(scope)
		}
		return nil, false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("failed to decode cached stats", "error", err, "key", key)
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.RecordStatsCacheHit(scope)
	}
	return out, true
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache stats", "error", err, "key", key)
	}
}

func co2Saved(distanceMeters float64) int64 {
	return int64(math.Round(distanceMeters / 1000 * co2GramsPerKm))
}

func sortByRecency(trips []TripView) {
	sort.Slice(trips, func(i, j int) bool {
		return trips[i].CreatedAt.After(trips[j].CreatedAt)
	})
}
