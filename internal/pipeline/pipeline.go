package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cheyenne-cl/firegeo/internal/detect"
	"github.com/cheyenne-cl/firegeo/internal/llm"
	"github.com/cheyenne-cl/firegeo/internal/model"
	"github.com/cheyenne-cl/firegeo/internal/stream"
)

var errNoProviders = eris.New("pipeline: no AI provider configured")

// RunStore receives run status and result updates as the pipeline
// progresses. Updates are best-effort: a failing store never fails
// the run.
type RunStore interface {
	UpdateRunStatus(ctx context.Context, id string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, id string, result *model.AnalysisResult, creditsUsed int) error
}

// Pipeline runs the full brand analysis: identify competitors,
// generate prompts, fan out across providers, aggregate scores.
type Pipeline struct {
	registry       *llm.Registry
	store          RunStore
	maxConcurrent  int
	maxCompetitors int
	mock           bool
	mockDelay      time.Duration
	detectOpts     detect.Options
	now            func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore attaches a store for run status and result persistence.
func WithStore(s RunStore) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithMaxConcurrent bounds concurrent provider calls during analysis.
func WithMaxConcurrent(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxConcurrent = n
		}
	}
}

// WithMaxCompetitors caps how many AI-identified competitors are kept.
func WithMaxCompetitors(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxCompetitors = n
		}
	}
}

// WithMockMode replaces provider calls with simulated responses,
// sleeping between delay and 2*delay per call.
func WithMockMode(delay time.Duration) Option {
	return func(p *Pipeline) {
		p.mock = true
		p.mockDelay = delay
	}
}

// WithDetectOptions overrides the mention detection options.
func WithDetectOptions(opts detect.Options) Option {
	return func(p *Pipeline) { p.detectOpts = opts }
}

// New builds a Pipeline backed by the given provider registry.
func New(registry *llm.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry:       registry,
		maxConcurrent:  4,
		maxCompetitors: maxIdentifiedCompetitors,
		detectOpts:     detect.DefaultOptions(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunInput describes one analysis run. Competitors and Prompts are
// optional: when empty the pipeline identifies and generates its own.
type RunInput struct {
	RunID       string
	UserID      string
	Company     model.Company
	Competitors []model.Competitor
	Prompts     []model.BrandPrompt
	Identify    IdentifyOptions
}

// Run executes the pipeline end to end, emitting progress events as
// it goes. The caller owns the terminal complete or error event.
func (p *Pipeline) Run(ctx context.Context, input RunInput, progress *stream.Progress) (*model.AnalysisResult, error) {
	log := zap.L().With(
		zap.String("run_id", input.RunID),
		zap.String("company", input.Company.Name),
	)

	if err := progress.Begin(); err != nil {
		return nil, err
	}

	// Identify
	p.setStatus(ctx, log, input.RunID, model.RunStatusIdentifying)
	if err := progress.Advance(stream.StageIdentifying, stream.StageData{Message: "Identifying competitors"}); err != nil {
		return nil, err
	}
	competitors := input.Competitors
	if len(competitors) == 0 {
		competitors = p.IdentifyCompetitors(ctx, input.Company, input.Identify, func(found CompetitorFound) {
			if err := progress.CompetitorFound(found); err != nil {
				log.Warn("competitor event dropped", zap.Error(err))
			}
		})
	}
	names := make([]string, 0, len(competitors))
	for _, c := range competitors {
		names = append(names, c.Name)
	}
	log.Info("competitors resolved", zap.Int("count", len(names)))

	// Prompts
	p.setStatus(ctx, log, input.RunID, model.RunStatusGenerating)
	if err := progress.Advance(stream.StageGenerating, stream.StageData{Message: "Generating analysis prompts"}); err != nil {
		return nil, err
	}
	prompts := input.Prompts
	if len(prompts) == 0 {
		prompts = GeneratePrompts(input.Company, names)
	}

	// Analyze
	providers := p.analysisProviders()
	if len(providers) == 0 {
		return nil, errNoProviders
	}
	total := len(prompts) * len(providers)

	p.setStatus(ctx, log, input.RunID, model.RunStatusAnalyzing)
	if err := progress.Advance(stream.StageAnalyzing, stream.StageData{
		Message: fmt.Sprintf("Running %d analyses across %d providers", total, len(providers)),
		Total:   total,
	}); err != nil {
		return nil, err
	}

	responses := p.fanOut(ctx, providers, prompts, input.Company.Name, names, progress, log)
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "pipeline: analysis canceled")
	}
	if len(responses) == 0 {
		return nil, eris.New("pipeline: all provider calls failed")
	}

	// Finalize
	p.setStatus(ctx, log, input.RunID, model.RunStatusFinalizing)
	if err := progress.Advance(stream.StageFinalizing, stream.StageData{Message: "Calculating scores"}); err != nil {
		return nil, err
	}

	displayNames := make([]string, 0, len(providers))
	for _, id := range providers {
		displayNames = append(displayNames, p.registry.DisplayName(id))
	}

	rankings := AggregateCompetitors(input.Company, responses, names)
	providerRankings, comparison := AggregateByProvider(input.Company, responses, names, displayNames)
	scores := CalculateBrandScores(responses, rankings)

	result := &model.AnalysisResult{
		Company:            input.Company,
		KnownCompetitors:   competitors,
		Prompts:            prompts,
		Responses:          responses,
		Competitors:        rankings,
		ProviderRankings:   providerRankings,
		ProviderComparison: comparison,
		Scores:             scores,
	}

	if p.store != nil && input.RunID != "" {
		if err := p.store.UpdateRunResult(ctx, input.RunID, result, 0); err != nil {
			log.Warn("result persistence failed", zap.Error(err))
		}
	}

	log.Info("analysis complete",
		zap.Int("responses", len(responses)),
		zap.Float64("overall_score", scores.OverallScore),
	)
	return result, nil
}

// fanOut runs every prompt against every provider with bounded
// concurrency. Individual call failures are logged and skipped; only
// context cancellation aborts the whole fan-out.
func (p *Pipeline) fanOut(ctx context.Context, providers []string, prompts []model.BrandPrompt, brand string, competitors []string, progress *stream.Progress, log *zap.Logger) []model.AIResponse {
	var (
		mu        sync.Mutex
		responses []model.AIResponse
		completed int
	)
	total := len(prompts) * len(providers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)
	for _, providerID := range providers {
		for _, prompt := range prompts {
			providerID, prompt := providerID, prompt
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				response, err := p.AnalyzePrompt(gctx, providerID, prompt.Prompt, brand, competitors)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					log.Warn("provider call failed",
						zap.String("provider", providerID),
						zap.String("prompt_id", prompt.ID),
						zap.Error(err),
					)
				}

				mu.Lock()
				defer mu.Unlock()
				completed++
				if response != nil {
					responses = append(responses, *response)
				}
				if err := progress.Step(stream.StageData{
					Message:   fmt.Sprintf("Analyzed %d of %d", completed, total),
					Completed: completed,
					Total:     total,
				}); err != nil {
					log.Warn("progress event dropped", zap.Error(err))
				}
				return nil
			})
		}
	}
	g.Wait() //nolint:errcheck // per-call failures already handled

	return responses
}

// Ready reports whether at least one provider can serve analysis
// calls. Mock mode is always ready.
func (p *Pipeline) Ready() bool {
	return len(p.analysisProviders()) > 0
}

// analysisProviders is the configured provider set, or every enabled
// catalog provider when running in mock mode without keys.
func (p *Pipeline) analysisProviders() []string {
	configured := p.registry.Configured()
	providers := make([]string, 0, len(configured))
	for _, pr := range configured {
		providers = append(providers, pr.ID)
	}
	if len(providers) == 0 && p.mock {
		for _, pr := range p.registry.Enabled() {
			providers = append(providers, pr.ID)
		}
	}
	return providers
}

func (p *Pipeline) setStatus(ctx context.Context, log *zap.Logger, runID string, status model.RunStatus) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		log.Warn("status update failed", zap.String("status", string(status)), zap.Error(err))
	}
}
