// Package httpapi exposes the analysis pipeline over REST and SSE.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cheyenne-cl/firegeo/internal/credits"
	"github.com/cheyenne-cl/firegeo/internal/llm"
	"github.com/cheyenne-cl/firegeo/internal/model"
	"github.com/cheyenne-cl/firegeo/internal/pipeline"
	"github.com/cheyenne-cl/firegeo/internal/scrape"
	"github.com/cheyenne-cl/firegeo/internal/store"
	"github.com/cheyenne-cl/firegeo/internal/stream"
)

// userHeader carries the caller identity. Upstream auth middleware is
// expected to set it; requests without it are rejected.
const userHeader = "X-User-ID"

// Analyzer is the pipeline surface the server drives.
type Analyzer interface {
	Ready() bool
	Run(ctx context.Context, input pipeline.RunInput, progress *stream.Progress) (*model.AnalysisResult, error)
	IdentifyCompetitors(ctx context.Context, company model.Company, opts pipeline.IdentifyOptions, onFound func(pipeline.CompetitorFound)) []model.Competitor
}

// Server wires the HTTP surface to the pipeline and its dependencies.
type Server struct {
	scraper  scrape.Scraper
	analyzer Analyzer
	store    store.Store
	ledger   credits.Ledger
	registry *llm.Registry
}

// NewServer builds a Server. Any dependency may be nil in tests as
// long as the exercised routes do not need it.
func NewServer(scraper scrape.Scraper, analyzer Analyzer, st store.Store, ledger credits.Ledger, registry *llm.Registry) *Server {
	return &Server{
		scraper:  scraper,
		analyzer: analyzer,
		store:    st,
		ledger:   ledger,
		registry: registry,
	}
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", userHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/providers", s.handleProviders)
		r.Get("/credits", s.handleCredits)
		r.Post("/scrape", s.handleScrape)
		r.Post("/identify-competitors", s.handleIdentifyCompetitors)
		r.Post("/generate-prompts", s.handleGeneratePrompts)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	return r
}

// requireUser rejects requests missing the identity header.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(userHeader) == "" {
			writeError(w, unauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	type providerInfo struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Model      string `json:"model"`
		Configured bool   `json:"configured"`
	}
	var out []providerInfo
	for _, p := range s.registry.Enabled() {
		out = append(out, providerInfo{
			ID:         p.ID,
			Name:       p.Name,
			Model:      p.DefaultModel,
			Configured: s.registry.IsConfigured(p.ID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.Balance(r.Context(), r.Header.Get(userHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}
