package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"suumo-traveltime/internal/util"
	"suumo-traveltime/models"
)

// SQLiteCoordinateRepository implements the CoordinateRepository interface for SQLite
type SQLiteCoordinateRepository struct {
	db *sql.DB
}

// NewSQLiteCoordinateRepository creates a new SQLiteCoordinateRepository
func NewSQLiteCoordinateRepository(db *sql.DB) *SQLiteCoordinateRepository {
	return &SQLiteCoordinateRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteCoordinateRepository) Close() error {
	return r.db.Close()
}

// FindByAddress looks up cached coordinates for an address
func (r *SQLiteCoordinateRepository) FindByAddress(ctx context.Context, address string) (*models.Coordinate, error) {
	query := `SELECT address, lng, lat FROM coordinates WHERE address = ?`
	row := r.db.QueryRowContext(ctx, query, address)

	var coord models.Coordinate
	err := row.Scan(&coord.Address, &coord.Lng, &coord.Lat)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning coordinate: %w", err)
	}

	return &coord, nil
}

// SaveIfAbsent stores coordinates for an address unless one is already cached.
// Concurrent writers for the same address are safe: the first value wins and
// later writes are no-ops.
func (r *SQLiteCoordinateRepository) SaveIfAbsent(ctx context.Context, coord *models.Coordinate) error {
	query := `INSERT INTO coordinates (address, lng, lat) VALUES (?, ?, ?) ON CONFLICT (address) DO NOTHING`
	err := util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query, coord.Address, coord.Lng, coord.Lat)
		return err
	})
	if err != nil {
		return fmt.Errorf("error saving coordinate for %q: %w", coord.Address, err)
	}
	return nil
}

// SQLiteDurationRepository implements the DurationRepository interface for SQLite
type SQLiteDurationRepository struct {
	db *sql.DB
}

// NewSQLiteDurationRepository creates a new SQLiteDurationRepository
func NewSQLiteDurationRepository(db *sql.DB) *SQLiteDurationRepository {
	return &SQLiteDurationRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteDurationRepository) Close() error {
	return r.db.Close()
}

// Find looks up a cached travel duration for a route
func (r *SQLiteDurationRepository) Find(ctx context.Context, origin, destination string, mode models.TransportationMode) (int, error) {
	query := `SELECT seconds FROM durations WHERE origin = ? AND destination = ? AND mode = ?`
	row := r.db.QueryRowContext(ctx, query, origin, destination, string(mode))

	var seconds int
	err := row.Scan(&seconds)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("error scanning duration: %w", err)
	}

	return seconds, nil
}

// SaveIfAbsent stores a travel duration unless the route is already cached.
// First value wins.
func (r *SQLiteDurationRepository) SaveIfAbsent(ctx context.Context, origin, destination string, mode models.TransportationMode, seconds int) error {
	query := `INSERT INTO durations (origin, destination, mode, seconds) VALUES (?, ?, ?, ?)
		ON CONFLICT (origin, destination, mode) DO NOTHING`
	err := util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query, origin, destination, string(mode), seconds)
		return err
	})
	if err != nil {
		return fmt.Errorf("error saving duration %s -> %s (%s): %w", origin, destination, mode, err)
	}
	return nil
}

// SQLiteCriterionRepository implements the CriterionRepository interface for SQLite
type SQLiteCriterionRepository struct {
	db *sql.DB
}

// NewSQLiteCriterionRepository creates a new SQLiteCriterionRepository
func NewSQLiteCriterionRepository(db *sql.DB) *SQLiteCriterionRepository {
	return &SQLiteCriterionRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteCriterionRepository) Close() error {
	return r.db.Close()
}

// FindAll returns all criteria in the order the user created them. This order
// drives resolution, but verdicts are keyed by criterion ID, so reordering is
// harmless.
func (r *SQLiteCriterionRepository) FindAll(ctx context.Context) ([]*models.Criterion, error) {
	query := `SELECT id, mode, address, time_minutes, color FROM criteria ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying criteria: %w", err)
	}
	defer rows.Close()

	var criteria []*models.Criterion
	for rows.Next() {
		criterion, err := scanCriterion(rows.Scan)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, criterion)
	}
	return criteria, rows.Err()
}

// FindByID finds a criterion by ID
func (r *SQLiteCriterionRepository) FindByID(ctx context.Context, id string) (*models.Criterion, error) {
	query := `SELECT id, mode, address, time_minutes, color FROM criteria WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	criterion, err := scanCriterion(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return criterion, nil
}

func scanCriterion(scan func(dest ...any) error) (*models.Criterion, error) {
	var criterion models.Criterion
	var mode string
	if err := scan(&criterion.ID, &mode, &criterion.Address, &criterion.TimeMinutes, &criterion.Color); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning criterion: %w", err)
	}
	parsed, err := models.ParseTransportationMode(mode)
	if err != nil {
		return nil, fmt.Errorf("error scanning criterion: %w", err)
	}
	criterion.Mode = parsed
	return &criterion, nil
}

// Create inserts a new criterion
func (r *SQLiteCriterionRepository) Create(ctx context.Context, criterion *models.Criterion) error {
	query := `INSERT INTO criteria (id, mode, address, time_minutes, color, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	err := util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query,
			criterion.ID, string(criterion.Mode), criterion.Address, criterion.TimeMinutes, criterion.Color, time.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("error creating criterion: %w", err)
	}
	return nil
}

// Update replaces an existing criterion's fields
func (r *SQLiteCriterionRepository) Update(ctx context.Context, criterion *models.Criterion) error {
	query := `UPDATE criteria SET mode = ?, address = ?, time_minutes = ?, color = ? WHERE id = ?`
	result, err := util.RetryOnLockWithResult(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, query,
			string(criterion.Mode), criterion.Address, criterion.TimeMinutes, criterion.Color, criterion.ID)
	})
	if err != nil {
		return fmt.Errorf("error updating criterion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating criterion: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID deletes a criterion by ID
func (r *SQLiteCriterionRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM criteria WHERE id = ?`
	result, err := util.RetryOnLockWithResult(func() (sql.Result, error) {
		return r.db.ExecContext(ctx, query, id)
	})
	if err != nil {
		return fmt.Errorf("error deleting criterion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deleting criterion: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SQLiteCredentialsRepository implements the CredentialsRepository interface for SQLite
type SQLiteCredentialsRepository struct {
	db *sql.DB
}

// NewSQLiteCredentialsRepository creates a new SQLiteCredentialsRepository
func NewSQLiteCredentialsRepository(db *sql.DB) *SQLiteCredentialsRepository {
	return &SQLiteCredentialsRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteCredentialsRepository) Close() error {
	return r.db.Close()
}

// Get returns the stored provider credentials, or ErrNotFound when none have
// been saved yet.
func (r *SQLiteCredentialsRepository) Get(ctx context.Context) (*models.Credentials, error) {
	query := `SELECT app_id, api_key FROM credentials LIMIT 1`
	row := r.db.QueryRowContext(ctx, query)

	var creds models.Credentials
	err := row.Scan(&creds.AppID, &creds.APIKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning credentials: %w", err)
	}
	return &creds, nil
}

// Save replaces the stored credentials
func (r *SQLiteCredentialsRepository) Save(ctx context.Context, creds *models.Credentials) error {
	err := util.RetryOnLock(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO credentials (app_id, api_key) VALUES (?, ?)`, creds.AppID, creds.APIKey); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("error saving credentials: %w", err)
	}
	return nil
}
