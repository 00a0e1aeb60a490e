package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheyenne-cl/firegeo/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "user-1", model.Company{Name: "Acme", URL: "https://acme.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "user-1", run.UserID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("analyzing", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateRunStatus(context.Background(), "run-1", model.RunStatusAnalyzing))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("analyzing", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusAnalyzing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresSetRunError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE runs SET status .+ error`).
		WithArgs("failed", "all provider calls failed", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.SetRunError(context.Background(), "run-1", "all provider calls failed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunResult(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE runs SET result`).
		WithArgs(pgxmock.AnyArg(), "complete", 10, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	result := &model.AnalysisResult{Scores: model.BrandScores{OverallScore: 52}}
	require.NoError(t, s.UpdateRunResult(context.Background(), "run-1", result, 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	s, mock := newMockStore(t)

	company, _ := json.Marshal(model.Company{Name: "Acme", URL: "https://acme.com"})
	result, _ := json.Marshal(model.AnalysisResult{Scores: model.BrandScores{OverallScore: 52}})
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "user_id", "company", "status", "credits_used", "result", "error", "created_at", "updated_at"}).
		AddRow("run-1", "user-1", company, model.RunStatus("complete"), 10, &result, (*string)(nil), now, now)

	mock.ExpectQuery(`SELECT .+ FROM runs WHERE id`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", run.Company.Name)
	assert.Equal(t, 10, run.CreditsUsed)
	require.NotNil(t, run.Result)
	assert.Equal(t, 52.0, run.Result.Scores.OverallScore)
	assert.Empty(t, run.Error)
}

func TestPostgresGetRun_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM runs WHERE id`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresListRuns(t *testing.T) {
	s, mock := newMockStore(t)

	company, _ := json.Marshal(model.Company{Name: "Acme"})
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "user_id", "company", "status", "credits_used", "result", "error", "created_at", "updated_at"}).
		AddRow("run-1", "user-1", company, model.RunStatus("complete"), 10, (*[]byte)(nil), (*string)(nil), now, now)

	mock.ExpectQuery(`SELECT .+ FROM runs WHERE true AND user_id .+ AND status .+ ORDER BY created_at DESC LIMIT`).
		WithArgs("user-1", "complete", 20).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{UserID: "user-1", Status: model.RunStatusComplete, Limit: 20})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Nil(t, runs[0].Result)
}

func TestPostgresCreditBalance(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO credit_balances`).
		WithArgs("user-1", 100).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(100))

	balance, err := s.CreditBalance(context.Background(), "user-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}

func TestPostgresDeductCredits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO credit_balances`).
		WithArgs("user-1", 100).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(100))
	mock.ExpectQuery(`UPDATE credit_balances SET balance`).
		WithArgs(10, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(90))

	remaining, err := s.DeductCredits(context.Background(), "user-1", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 90, remaining)
}

func TestPostgresDeductCredits_Insufficient(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO credit_balances`).
		WithArgs("user-1", 100).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(5))
	mock.ExpectQuery(`UPDATE credit_balances SET balance`).
		WithArgs(10, "user-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.DeductCredits(context.Background(), "user-1", 10, 100)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
}
