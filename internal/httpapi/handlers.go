package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cheyenne-cl/firegeo/internal/model"
	"github.com/cheyenne-cl/firegeo/internal/pipeline"
	"github.com/cheyenne-cl/firegeo/internal/scrape"
	"github.com/cheyenne-cl/firegeo/internal/store"
	"github.com/cheyenne-cl/firegeo/internal/stream"
)

type scrapeRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("invalid request body"))
		return
	}
	if !scrape.ValidateURL(req.URL) {
		writeError(w, validationError("a valid company URL is required"))
		return
	}

	company, err := s.scraper.Scrape(r.Context(), req.URL)
	if err != nil {
		writeError(w, internalError("failed to scrape company website"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company": company})
}

type identifyRequest struct {
	Company model.Company `json:"company"`
	Size    string        `json:"size,omitempty"`
	Region  string        `json:"region,omitempty"`
	Segment string        `json:"segment,omitempty"`
}

func (s *Server) handleIdentifyCompetitors(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("invalid request body"))
		return
	}
	if req.Company.Name == "" {
		writeError(w, validationError("company name is required"))
		return
	}

	opts := pipeline.IdentifyOptions{
		TargetSize:       pipeline.CompanySize(req.Size),
		GeographicRegion: req.Region,
		MarketSegment:    req.Segment,
	}
	competitors := s.analyzer.IdentifyCompetitors(r.Context(), req.Company, opts, nil)
	writeJSON(w, http.StatusOK, map[string]any{"competitors": competitors})
}

type promptsRequest struct {
	Company     model.Company `json:"company"`
	Competitors []string      `json:"competitors"`
}

func (s *Server) handleGeneratePrompts(w http.ResponseWriter, r *http.Request) {
	var req promptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("invalid request body"))
		return
	}
	if req.Company.Name == "" {
		writeError(w, validationError("company name is required"))
		return
	}

	prompts := pipeline.GeneratePrompts(req.Company, req.Competitors)
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

type analyzeRequest struct {
	Company     model.Company      `json:"company"`
	Competitors []model.Competitor `json:"competitors,omitempty"`
}

// handleAnalyze runs the full pipeline over an SSE stream. Validation
// and credit failures are reported before streaming begins; anything
// after the first frame arrives as an error event.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("invalid request body"))
		return
	}
	if req.Company.Name == "" || !scrape.ValidateURL(req.Company.URL) {
		writeError(w, validationFieldError("company name and a valid URL are required", map[string]string{
			"company.name": "required",
			"company.url":  "must be a valid URL",
		}))
		return
	}
	if !s.analyzer.Ready() {
		writeError(w, configurationError("no AI provider is configured"))
		return
	}

	remaining, cost, err := s.ledger.Charge(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			writeError(w, insufficientCreditsError())
			return
		}
		writeError(w, err)
		return
	}

	run, err := s.store.CreateRun(r.Context(), userID, req.Company)
	if err != nil {
		writeError(w, err)
		return
	}

	sse, err := stream.NewSSEWriter(w)
	if err != nil {
		writeError(w, configurationError("streaming is not supported by this connection"))
		return
	}
	progress := stream.NewProgress(sse.Send)

	if err := progress.Credits(stream.CreditsData{Remaining: remaining, Cost: cost}); err != nil {
		zap.L().Warn("credits event dropped", zap.Error(err))
	}

	input := pipeline.RunInput{
		RunID:       run.ID,
		UserID:      userID,
		Company:     req.Company,
		Competitors: req.Competitors,
	}
	result, err := s.analyzer.Run(r.Context(), input, progress)
	if err != nil {
		zap.L().Error("analysis failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
		if storeErr := s.store.SetRunError(r.Context(), run.ID, err.Error()); storeErr != nil {
			zap.L().Warn("run error persistence failed", zap.Error(storeErr))
		}
		if refundErr := s.ledger.Refund(r.Context(), userID); refundErr != nil {
			zap.L().Warn("credit refund failed", zap.Error(refundErr))
		}
		if failErr := progress.Fail(stream.ErrorData{Message: "analysis failed", Code: "ANALYSIS_FAILED"}); failErr != nil {
			zap.L().Warn("error event dropped", zap.Error(failErr))
		}
		return
	}

	if err := progress.Complete(stream.CompleteData{Analysis: result}); err != nil {
		zap.L().Warn("complete event dropped", zap.Error(err))
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		UserID:     r.Header.Get(userHeader),
		Status:     model.RunStatus(q.Get("status")),
		CompanyURL: q.Get("url"),
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, notFoundError("run not found"))
			return
		}
		writeError(w, err)
		return
	}
	if run.UserID != r.Header.Get(userHeader) {
		writeError(w, notFoundError("run not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}
