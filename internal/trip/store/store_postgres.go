package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"greenhop/internal/geo"
	"greenhop/internal/trip/models"
	id "greenhop/pkg/domain"
)

// PostgresStore persists trip records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed trip store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new trip record. Records are insert-only; a duplicate id
// is a pipeline bug and surfaces as ErrDuplicateID.
func (s *PostgresStore) Create(ctx context.Context, record *models.Record) error {
	coordsBytes, err := json.Marshal(record.Coordinates)
	if err != nil {
		return fmt.Errorf("marshal trip coordinates: %w", err)
	}
	query := `
		INSERT INTO trips (
			id, account_id, start_time, end_time, distance_meters, avg_speed_kmh,
			coordinates, trip_type, status, reward_amount,
			transaction_id, mint_tx_id, credential_id, idempotency_key, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		record.ID.String(),
		record.Account.String(),
		record.StartTime,
		record.EndTime,
		record.DistanceMeters,
		record.AvgSpeedKmh,
		coordsBytes,
		string(record.Type),
		string(record.Status),
		record.RewardAmount,
		nullable(record.TransactionID.String()),
		nullable(record.MintTxID.String()),
		nullable(record.CredentialID.String()),
		record.IdempotencyKey,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create trip record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateID
	}
	return nil
}

// FindByID retrieves a trip record by id or returns ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, tripID id.TripID) (*models.Record, error) {
	record, err := scanTrip(s.db.QueryRowContext(ctx, selectTrips+` WHERE id = $1`, tripID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find trip by id: %w", err)
	}
	return record, nil
}

// ListByAccount returns all records for the account, oldest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, account id.AccountID) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectTrips+` WHERE account_id = $1 ORDER BY created_at ASC`, account.String())
	if err != nil {
		return nil, fmt.Errorf("list trips by account: %w", err)
	}
	defer rows.Close()
	return collectTrips(rows)
}

// ListCompleted returns all completed records, oldest first.
func (s *PostgresStore) ListCompleted(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectTrips+` WHERE status = $1 ORDER BY created_at ASC`, string(models.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("list completed trips: %w", err)
	}
	defer rows.Close()
	return collectTrips(rows)
}

const selectTrips = `
	SELECT id, account_id, start_time, end_time, distance_meters, avg_speed_kmh,
		coordinates, trip_type, status, reward_amount,
		transaction_id, mint_tx_id, credential_id, idempotency_key, created_at
	FROM trips`

type tripRow interface {
	Scan(dest ...any) error
}

func scanTrip(row tripRow) (*models.Record, error) {
	var record models.Record
	var tripID, accountID, tripType, status string
	var coordsBytes []byte
	var txID, mintTxID, credID sql.NullString
	if err := row.Scan(
		&tripID, &accountID, &record.StartTime, &record.EndTime,
		&record.DistanceMeters, &record.AvgSpeedKmh,
		&coordsBytes, &tripType, &status, &record.RewardAmount,
		&txID, &mintTxID, &credID, &record.IdempotencyKey, &record.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsedID, err := id.ParseTripID(tripID)
	if err != nil {
		return nil, fmt.Errorf("parse trip id: %w", err)
	}
	record.ID = parsedID

	parsedAccount, err := id.ParseAccountID(accountID)
	if err != nil {
		return nil, fmt.Errorf("parse trip account: %w", err)
	}
	record.Account = parsedAccount

	var coords []geo.Coordinate
	if len(coordsBytes) > 0 {
		if err := json.Unmarshal(coordsBytes, &coords); err != nil {
			return nil, fmt.Errorf("unmarshal trip coordinates: %w", err)
		}
	}
	record.Coordinates = coords
	record.Type = models.TripType(tripType)
	record.Status = models.TripStatus(status)
	if txID.Valid {
		record.TransactionID = id.TransactionID(txID.String)
	}
	if mintTxID.Valid {
		record.MintTxID = id.TransactionID(mintTxID.String)
	}
	if credID.Valid {
		record.CredentialID = id.CredentialID(credID.String)
	}
	return &record, nil
}

func collectTrips(rows *sql.Rows) ([]*models.Record, error) {
	var out []*models.Record
	for rows.Next() {
		record, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip rows: %w", err)
	}
	return out, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
