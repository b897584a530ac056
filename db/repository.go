package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"suumo-traveltime/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repository defines a common interface for all repositories
type Repository interface {
	Close() error
}

// CoordinateRepository is the persistent address → coordinates cache.
// A cache miss is reported as ErrNotFound, never as a failure.
type CoordinateRepository interface {
	Repository
	FindByAddress(ctx context.Context, address string) (*models.Coordinate, error)
	// SaveIfAbsent writes the coordinates unless the address already has an
	// entry. Existing entries are never overwritten: first value wins.
	SaveIfAbsent(ctx context.Context, coord *models.Coordinate) error
}

// DurationRepository is the persistent (origin, destination, mode) → travel
// seconds cache.
type DurationRepository interface {
	Repository
	Find(ctx context.Context, origin, destination string, mode models.TransportationMode) (int, error)
	// SaveIfAbsent writes the duration unless the route already has an entry.
	SaveIfAbsent(ctx context.Context, origin, destination string, mode models.TransportationMode, seconds int) error
}

// CriterionRepository persists the user's reachability criteria. Resolved
// locations are not stored; criteria are re-geocoded on every run.
type CriterionRepository interface {
	Repository
	FindAll(ctx context.Context) ([]*models.Criterion, error)
	FindByID(ctx context.Context, id string) (*models.Criterion, error)
	Create(ctx context.Context, criterion *models.Criterion) error
	Update(ctx context.Context, criterion *models.Criterion) error
	DeleteByID(ctx context.Context, id string) error
}

// CredentialsRepository stores the provider credentials. There is at most one
// credentials row; Save replaces it.
type CredentialsRepository interface {
	Repository
	Get(ctx context.Context) (*models.Credentials, error)
	Save(ctx context.Context, creds *models.Credentials) error
}

// RepositoryFactory creates SQLite-backed repositories
type RepositoryFactory struct {
	SQLiteDB *sql.DB
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(sqliteDB *sql.DB) *RepositoryFactory {
	return &RepositoryFactory{SQLiteDB: sqliteDB}
}

// NewCoordinateRepository creates a new coordinate cache repository
func (f *RepositoryFactory) NewCoordinateRepository() CoordinateRepository {
	return NewSQLiteCoordinateRepository(f.SQLiteDB)
}

// NewDurationRepository creates a new duration cache repository
func (f *RepositoryFactory) NewDurationRepository() DurationRepository {
	return NewSQLiteDurationRepository(f.SQLiteDB)
}

// NewCriterionRepository creates a new criterion repository
func (f *RepositoryFactory) NewCriterionRepository() CriterionRepository {
	return NewSQLiteCriterionRepository(f.SQLiteDB)
}

// NewCredentialsRepository creates a new credentials repository
func (f *RepositoryFactory) NewCredentialsRepository() CredentialsRepository {
	return NewSQLiteCredentialsRepository(f.SQLiteDB)
}

// GenerateID generates a unique ID for a record
func GenerateID() string {
	return uuid.New().String()
}
