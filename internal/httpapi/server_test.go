package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheyenne-cl/firegeo/internal/credits"
	"github.com/cheyenne-cl/firegeo/internal/llm"
	"github.com/cheyenne-cl/firegeo/internal/model"
	"github.com/cheyenne-cl/firegeo/internal/pipeline"
	"github.com/cheyenne-cl/firegeo/internal/store"
	"github.com/cheyenne-cl/firegeo/internal/stream"
)

type fakeScraper struct {
	company *model.Company
	err     error
}

func (f *fakeScraper) Scrape(context.Context, string) (*model.Company, error) {
	return f.company, f.err
}

type fakeAnalyzer struct {
	result      *model.AnalysisResult
	err         error
	competitors []model.Competitor
	store       store.Store
	notReady    bool
}

func (f *fakeAnalyzer) Ready() bool { return !f.notReady }

func (f *fakeAnalyzer) Run(ctx context.Context, input pipeline.RunInput, progress *stream.Progress) (*model.AnalysisResult, error) {
	if err := progress.Begin(); err != nil {
		return nil, err
	}
	if err := progress.Advance(stream.StageAnalyzing, stream.StageData{Total: 1}); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.store != nil {
		if err := f.store.UpdateRunResult(ctx, input.RunID, f.result, 10); err != nil {
			return nil, err
		}
	}
	return f.result, nil
}

func (f *fakeAnalyzer) IdentifyCompetitors(context.Context, model.Company, pipeline.IdentifyOptions, func(pipeline.CompetitorFound)) []model.Competitor {
	return f.competitors
}

type testEnv struct {
	server  *Server
	store   store.Store
	handler http.Handler
}

func newTestEnv(t *testing.T, scraper *fakeScraper, analyzer *fakeAnalyzer, initialCredits int) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	registry, err := llm.NewRegistry(llm.Credentials{})
	require.NoError(t, err)

	analyzer.store = st
	srv := NewServer(scraper, analyzer, st, credits.NewLedger(st, initialCredits, 10), registry)
	return &testEnv{server: srv, store: st, handler: srv.Router()}
}

func doJSON(t *testing.T, handler http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)
	rec := doJSON(t, env.handler, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequireUser(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)
	rec := doJSON(t, env.handler, http.MethodGet, "/api/credits", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestProviders(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)
	rec := doJSON(t, env.handler, http.MethodGet, "/api/providers", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Providers []struct {
			ID         string `json:"id"`
			Configured bool   `json:"configured"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Providers, 3)
	for _, p := range body.Providers {
		assert.False(t, p.Configured)
	}
}

func TestCredits(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)
	rec := doJSON(t, env.handler, http.MethodGet, "/api/credits", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance":100}`, rec.Body.String())
}

func TestScrape(t *testing.T) {
	scraper := &fakeScraper{company: &model.Company{Name: "Acme", URL: "https://acme.com"}}
	env := newTestEnv(t, scraper, &fakeAnalyzer{}, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/scrape", "user-1", `{"url":"acme.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Acme"`)
}

func TestScrape_InvalidURL(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)
	rec := doJSON(t, env.handler, http.MethodPost, "/api/scrape", "user-1", `{"url":"not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestScrape_UpstreamError(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{err: eris.New("fetch failed")}, &fakeAnalyzer{}, 100)
	rec := doJSON(t, env.handler, http.MethodPost, "/api/scrape", "user-1", `{"url":"acme.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "fetch failed")
}

func TestIdentifyCompetitors(t *testing.T) {
	analyzer := &fakeAnalyzer{competitors: []model.Competitor{{Name: "Beta", URL: "beta.com"}}}
	env := newTestEnv(t, &fakeScraper{}, analyzer, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/identify-competitors", "user-1", `{"company":{"name":"Acme"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Beta"`)
}

func TestGeneratePrompts(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/generate-prompts", "user-1",
		`{"company":{"name":"Acme"},"competitors":["Beta","Gamma"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Prompts []model.BrandPrompt `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Prompts, 14)
}

func sseEvents(t *testing.T, body string) []stream.Event {
	t.Helper()
	var events []stream.Event
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		payload := strings.TrimPrefix(frame, "data: ")
		var ev stream.Event
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		events = append(events, ev)
	}
	return events
}

func TestAnalyze_StreamsToCompletion(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &model.AnalysisResult{
		Company: model.Company{Name: "Acme"},
		Scores:  model.BrandScores{OverallScore: 52},
	}}
	env := newTestEnv(t, &fakeScraper{}, analyzer, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/analyze", "user-1",
		`{"company":{"name":"Acme","url":"https://acme.com"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := sseEvents(t, rec.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, stream.EventCredits, events[0].Type)
	assert.Equal(t, stream.EventStart, events[1].Type)
	assert.Equal(t, stream.EventComplete, events[len(events)-1].Type)

	// One analysis charged.
	balance, err := env.store.CreditBalance(context.Background(), "user-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 90, balance)

	// Run persisted with the result.
	runs, err := env.store.ListRuns(context.Background(), store.RunFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
}

func TestAnalyze_InsufficientCredits(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 5)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/analyze", "user-1",
		`{"company":{"name":"Acme","url":"https://acme.com"}}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_CREDITS")
}

func TestAnalyze_FailureEmitsErrorAndRefunds(t *testing.T) {
	analyzer := &fakeAnalyzer{err: eris.New("all provider calls failed")}
	env := newTestEnv(t, &fakeScraper{}, analyzer, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/analyze", "user-1",
		`{"company":{"name":"Acme","url":"https://acme.com"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := sseEvents(t, rec.Body.String())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, stream.EventError, last.Type)

	balance, err := env.store.CreditBalance(context.Background(), "user-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)

	runs, err := env.store.ListRuns(context.Background(), store.RunFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "provider calls failed")
}

func TestAnalyze_NoProvidersConfigured(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{notReady: true}, 100)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/analyze", "user-1",
		`{"company":{"name":"Acme","url":"https://acme.com"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIGURATION_ERROR")

	// No credits are charged when the request is rejected up front.
	balance, err := env.store.CreditBalance(context.Background(), "user-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}

func TestAnalyze_InvalidCompany(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)
	rec := doJSON(t, env.handler, http.MethodPost, "/api/analyze", "user-1", `{"company":{"name":"Acme"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)
	run, err := env.store.CreateRun(context.Background(), "user-1", model.Company{Name: "Acme"})
	require.NoError(t, err)

	rec := doJSON(t, env.handler, http.MethodGet, "/api/runs/"+run.ID, "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), run.ID)

	// Other users cannot see the run.
	rec = doJSON(t, env.handler, http.MethodGet, "/api/runs/"+run.ID, "user-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, env.handler, http.MethodGet, "/api/runs/missing", "user-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns_ScopedToUser(t *testing.T) {
	env := newTestEnv(t, &fakeScraper{}, &fakeAnalyzer{}, 100)
	_, err := env.store.CreateRun(context.Background(), "user-1", model.Company{Name: "Acme"})
	require.NoError(t, err)
	_, err = env.store.CreateRun(context.Background(), "user-2", model.Company{Name: "Beta"})
	require.NoError(t, err)

	rec := doJSON(t, env.handler, http.MethodGet, "/api/runs", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []model.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "user-1", body.Runs[0].UserID)
}
