package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cheyenne-cl/firegeo/internal/detect"
	"github.com/cheyenne-cl/firegeo/internal/llm"
	"github.com/cheyenne-cl/firegeo/internal/model"
)

const analysisSystemPrompt = `You are an AI assistant analyzing brand visibility and rankings.
When responding to prompts about tools, platforms, or services:
1. Provide rankings with specific positions (1st, 2nd, etc.)
2. Focus on the companies mentioned in the prompt
3. Be objective and factual
4. Explain briefly why each tool is ranked where it is
5. If you don't have enough information about a specific company, you can mention that`

type rankingEntry struct {
	Position  int    `json:"position" jsonschema_description:"Position/ranking (1, 2, 3, etc.)"`
	Company   string `json:"company" jsonschema_description:"Company name"`
	Reason    string `json:"reason" jsonschema_description:"Brief reason for this ranking"`
	Sentiment string `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative" jsonschema_description:"Sentiment about this company"`
}

type responseAnalysis struct {
	Analysis struct {
		BrandMentioned       bool           `json:"brandMentioned" jsonschema_description:"Whether the brand is mentioned in the response"`
		BrandPosition        *int           `json:"brandPosition" jsonschema_description:"The brand's position/ranking (1-10, or null if not ranked)"`
		OverallSentiment     string         `json:"overallSentiment" jsonschema:"enum=positive,enum=neutral,enum=negative" jsonschema_description:"Overall sentiment about the brand"`
		Confidence           float64        `json:"confidence" jsonschema:"minimum=0,maximum=1" jsonschema_description:"Confidence in the analysis (0-1)"`
		Rankings             []rankingEntry `json:"rankings" jsonschema_description:"Rankings of companies mentioned in the response"`
		CompetitorsMentioned []string       `json:"competitors_mentioned" jsonschema_description:"List of competitor names mentioned in the response"`
	} `json:"analysis"`
}

var analysisSchema = llm.SchemaFor[responseAnalysis]()

// AnalyzePrompt runs one prompt against one provider and extracts a
// structured mention analysis from the free-text response. Returns
// (nil, nil) when the provider is not configured so callers can skip
// it without failing the run.
func (p *Pipeline) AnalyzePrompt(ctx context.Context, providerID, prompt, brand string, competitors []string) (*model.AIResponse, error) {
	if p.mock {
		return p.mockAnalysis(providerID, prompt, brand, competitors), nil
	}

	m := p.registry.Model(providerID, "")
	if m == nil {
		return nil, nil
	}

	text, err := m.GenerateText(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: %s response generation", providerID)
	}

	var structured responseAnalysis
	if err := m.GenerateObject(ctx, analysisPrompt(brand, competitors, text), analysisSchema, &structured); err != nil {
		return nil, eris.Wrapf(err, "pipeline: %s response analysis", providerID)
	}
	analysis := structured.Analysis

	brandResult := detect.Detect(text, brand, p.detectOpts)
	competitorResults := detect.DetectMultiple(text, competitors, p.detectOpts)

	brandMentioned := analysis.BrandMentioned || brandResult.Mentioned
	var relevantCompetitors []string
	for _, c := range competitors {
		if r, ok := competitorResults[c]; ok && r.Mentioned {
			relevantCompetitors = append(relevantCompetitors, c)
		}
	}

	rankings := make([]model.Ranking, 0, len(analysis.Rankings))
	for _, r := range analysis.Rankings {
		rankings = append(rankings, model.Ranking{
			Position:  r.Position,
			Company:   r.Company,
			Reason:    r.Reason,
			Sentiment: model.Sentiment(r.Sentiment),
		})
	}
	if len(rankings) == 0 {
		rankings = fallbackRankings(text, brand, competitors, p.detectOpts)
	}

	sentiment := model.Sentiment(analysis.OverallSentiment)
	if sentiment == "" {
		sentiment = model.SentimentNeutral
	}

	return &model.AIResponse{
		Provider:       p.registry.DisplayName(providerID),
		Prompt:         prompt,
		Response:       text,
		Rankings:       rankings,
		Competitors:    relevantCompetitors,
		BrandMentioned: brandMentioned,
		BrandPosition:  analysis.BrandPosition,
		Sentiment:      sentiment,
		Confidence:     analysis.Confidence,
		Timestamp:      p.now(),
		Detection:      detectionDetails(brandResult, competitorResults),
	}, nil
}

func analysisPrompt(brand string, competitors []string, text string) string {
	return fmt.Sprintf(`Analyze this AI response about %[1]s and competitors %[2]s:

"%[3]s"

Return a structured analysis including:
1. Whether %[1]s is mentioned
2. %[1]s's position/ranking if mentioned
3. Overall sentiment about %[1]s
4. Confidence in the analysis
5. Rankings of all companies mentioned
6. List of competitors mentioned

Be objective and factual.`, brand, strings.Join(competitors, ", "), text)
}

// fallbackRankings orders mentioned companies brand-first when the
// structured output came back without rankings.
func fallbackRankings(text, brand string, competitors []string, opts detect.Options) []model.Ranking {
	var rankings []model.Ranking
	for _, company := range append([]string{brand}, competitors...) {
		if !detect.Detect(text, company, opts).Mentioned {
			continue
		}
		rankings = append(rankings, model.Ranking{
			Position:  len(rankings) + 1,
			Company:   company,
			Reason:    company + " was mentioned in the analysis",
			Sentiment: model.SentimentNeutral,
		})
		if len(rankings) == 5 {
			break
		}
	}
	return rankings
}

func detectionDetails(brand detect.Result, competitors map[string]detect.Result) *model.DetectionDetails {
	details := &model.DetectionDetails{
		BrandMatches:      toBrandMatches(brand.Matches),
		CompetitorMatches: map[string][]model.BrandMatch{},
	}
	for name, r := range competitors {
		if r.Mentioned {
			details.CompetitorMatches[name] = toBrandMatches(r.Matches)
		}
	}
	return details
}

func toBrandMatches(matches []detect.Match) []model.BrandMatch {
	out := make([]model.BrandMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, model.BrandMatch{Text: m.Text, Index: m.Index, Confidence: m.Confidence})
	}
	return out
}

// mockAnalysis fabricates a plausible response so the full pipeline
// can run without provider keys.
func (p *Pipeline) mockAnalysis(providerID, prompt, brand string, competitors []string) *model.AIResponse {
	if p.mockDelay > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(p.mockDelay))) + p.mockDelay)
	}

	mentioned := firstN(competitors, 3)
	rankings := []model.Ranking{{
		Position:  1,
		Company:   brand,
		Reason:    "Primary brand being analyzed",
		Sentiment: model.SentimentNeutral,
	}}
	for i, c := range mentioned {
		rankings = append(rankings, model.Ranking{
			Position:  i + 2,
			Company:   c,
			Reason:    "Competitor identified in analysis",
			Sentiment: model.SentimentNeutral,
		})
	}

	position := 1
	return &model.AIResponse{
		Provider: p.registry.DisplayName(providerID),
		Prompt:   prompt,
		Response: fmt.Sprintf("[MOCK] Analysis of %s and competitors: %s. This is a simulated response for testing purposes.",
			brand, strings.Join(competitors, ", ")),
		Rankings:       rankings,
		Competitors:    mentioned,
		BrandMentioned: true,
		BrandPosition:  &position,
		Sentiment:      model.SentimentNeutral,
		Confidence:     0.8,
		Timestamp:      p.now(),
		Detection: &model.DetectionDetails{
			CompetitorMatches: map[string][]model.BrandMatch{},
		},
	}
}
