package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/cheyenne-cl/firegeo/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrInsufficientCredits is returned when a deduction exceeds the
// user's remaining balance.
var ErrInsufficientCredits = eris.New("store: insufficient credits")

// Pool is the subset of pgxpool.Pool the postgres store uses. Tests
// substitute a pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// RunFilter specifies criteria for listing analysis runs.
type RunFilter struct {
	UserID     string          `json:"user_id,omitempty"`
	Status     model.RunStatus `json:"status,omitempty"`
	CompanyURL string          `json:"company_url,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines persistence for analysis runs and credit balances.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, userID string, company model.Company) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	SetRunError(ctx context.Context, runID string, message string) error
	UpdateRunResult(ctx context.Context, runID string, result *model.AnalysisResult, creditsUsed int) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Credits. Balances are seeded lazily with initial on first touch.
	CreditBalance(ctx context.Context, userID string, initial int) (int, error)
	DeductCredits(ctx context.Context, userID string, amount, initial int) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs a Store for the configured driver. Defaults to a
// local SQLite database when no driver is set.
func Open(ctx context.Context, driver, databaseURL, path string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, databaseURL, nil)
	case "sqlite", "":
		if path == "" {
			path = "firegeo.db"
		}
		return NewSQLite(path)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
