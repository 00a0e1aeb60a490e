package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheyenne-cl/firegeo/internal/model"
)

func intPtr(v int) *int { return &v }

func sampleResponses() []model.AIResponse {
	return []model.AIResponse{
		{
			Provider:       "OpenAI",
			Rankings:       []model.Ranking{{Position: 1, Company: "Acme", Sentiment: model.SentimentPositive}, {Position: 2, Company: "Beta", Sentiment: model.SentimentNeutral}},
			BrandMentioned: true,
		},
		{
			Provider:       "OpenAI",
			Rankings:       []model.Ranking{{Position: 1, Company: "Beta", Sentiment: model.SentimentPositive}, {Position: 3, Company: "Acme", Sentiment: model.SentimentNegative}},
			BrandMentioned: true,
		},
		{
			Provider:       "Anthropic",
			Rankings:       []model.Ranking{{Position: 2, Company: "Beta", Sentiment: model.SentimentNeutral}},
			BrandMentioned: true,
			BrandPosition:  intPtr(2),
			Sentiment:      model.SentimentPositive,
		},
		{
			Provider: "Anthropic",
		},
	}
}

func TestAggregateCompetitors(t *testing.T) {
	company := model.Company{Name: "Acme"}
	rankings := AggregateCompetitors(company, sampleResponses(), []string{"Beta", "Gamma"})
	require.Len(t, rankings, 3)

	byName := map[string]model.CompetitorRanking{}
	for _, r := range rankings {
		byName[r.Name] = r
	}

	acme := byName["Acme"]
	assert.True(t, acme.IsOwn)
	assert.Equal(t, 3, acme.Mentions)
	assert.Equal(t, 2.0, acme.AveragePosition)
	assert.Equal(t, model.SentimentPositive, acme.Sentiment)
	assert.Equal(t, 67, acme.SentimentScore)
	// Raw 75% discounted by the other-mention factor (3/4, capped at 0.8).
	assert.Equal(t, 18.8, acme.VisibilityScore)
	assert.Equal(t, 50.0, acme.ShareOfVoice)

	beta := byName["Beta"]
	assert.False(t, beta.IsOwn)
	assert.Equal(t, 3, beta.Mentions)
	assert.Equal(t, 1.7, beta.AveragePosition)
	assert.Equal(t, model.SentimentNeutral, beta.Sentiment)
	assert.Equal(t, 75.0, beta.VisibilityScore)
	assert.Equal(t, 50.0, beta.ShareOfVoice)

	gamma := byName["Gamma"]
	assert.Equal(t, 0, gamma.Mentions)
	assert.Equal(t, 99.0, gamma.AveragePosition)
	assert.Equal(t, 50, gamma.SentimentScore)
	assert.Equal(t, model.SentimentNeutral, gamma.Sentiment)
	assert.Equal(t, 0.0, gamma.VisibilityScore)
	assert.Equal(t, 0.0, gamma.ShareOfVoice)

	// Sorted by visibility.
	assert.Equal(t, "Beta", rankings[0].Name)
	assert.Equal(t, "Acme", rankings[1].Name)
	assert.Equal(t, "Gamma", rankings[2].Name)

	total := 0.0
	for _, r := range rankings {
		total += r.ShareOfVoice
	}
	assert.InDelta(t, 100.0, total, 0.01)
}

func TestAggregateCompetitors_Idempotent(t *testing.T) {
	company := model.Company{Name: "Acme"}
	first := AggregateCompetitors(company, sampleResponses(), []string{"Beta", "Gamma"})
	second := AggregateCompetitors(company, sampleResponses(), []string{"Beta", "Gamma"})
	assert.Equal(t, first, second)
}

func TestAggregateCompetitors_SubjectOnlyDiscount(t *testing.T) {
	company := model.Company{Name: "Acme"}
	responses := []model.AIResponse{
		{BrandMentioned: true, Sentiment: model.SentimentNeutral},
		{BrandMentioned: true, Sentiment: model.SentimentNeutral},
	}
	rankings := AggregateCompetitors(company, responses, []string{"Beta"})

	acme := rankings[0]
	require.Equal(t, "Acme", acme.Name)
	// No other company ever mentioned, flat 0.6 factor applies.
	assert.Equal(t, 60.0, acme.VisibilityScore)
	assert.Equal(t, 100.0, acme.ShareOfVoice)
}

func TestAggregateCompetitors_OneMentionPerResponse(t *testing.T) {
	company := model.Company{Name: "Acme"}
	responses := []model.AIResponse{
		{
			Rankings: []model.Ranking{
				{Position: 1, Company: "Acme", Sentiment: model.SentimentNeutral},
				{Position: 3, Company: "Acme", Sentiment: model.SentimentNeutral},
			},
			BrandMentioned: true,
			BrandPosition:  intPtr(5),
		},
	}
	rankings := AggregateCompetitors(company, responses, nil)

	acme := rankings[0]
	assert.Equal(t, 1, acme.Mentions)
	// Both ranking positions count toward the average, the top-level
	// brand position does not since the brand was already ranked.
	assert.Equal(t, 2.0, acme.AveragePosition)
}

func TestAggregateCompetitors_Empty(t *testing.T) {
	rankings := AggregateCompetitors(model.Company{Name: "Acme"}, nil, []string{"Beta"})
	require.Len(t, rankings, 2)
	for _, r := range rankings {
		assert.Equal(t, 0, r.Mentions)
		assert.Equal(t, 0.0, r.VisibilityScore)
		assert.Equal(t, 0.0, r.ShareOfVoice)
	}
}

func TestAggregateByProvider(t *testing.T) {
	company := model.Company{Name: "Acme"}
	providers := []string{"OpenAI", "Anthropic", "Perplexity"}

	rankings, comparison := AggregateByProvider(company, sampleResponses(), []string{"Beta", "Gamma"}, providers)

	// Perplexity produced no responses and is skipped.
	require.Len(t, rankings, 2)
	assert.Equal(t, "OpenAI", rankings[0].Provider)
	assert.Equal(t, "Anthropic", rankings[1].Provider)
	require.Len(t, rankings[0].Competitors, 3)

	// OpenAI scope: both responses rank Acme and Beta.
	openai := map[string]model.CompetitorRanking{}
	for _, c := range rankings[0].Competitors {
		openai[c.Name] = c
	}
	assert.Equal(t, 2, openai["Acme"].Mentions)
	assert.Equal(t, 2, openai["Beta"].Mentions)
	assert.Equal(t, 100.0, openai["Beta"].VisibilityScore)

	require.Len(t, comparison, 3)
	for _, row := range comparison {
		assert.Len(t, row.Providers, 2)
	}
	// Beta leads on mean visibility across providers.
	assert.Equal(t, "Beta", comparison[0].Competitor)
	assert.False(t, comparison[0].IsOwn)

	beta := comparison[0].Providers["OpenAI"]
	assert.Equal(t, 2, beta.Mentions)
	assert.Equal(t, 1.5, beta.Position)
}

func TestCalculateBrandScores(t *testing.T) {
	responses := sampleResponses()
	rankings := AggregateCompetitors(model.Company{Name: "Acme"}, responses, []string{"Beta", "Gamma"})

	scores := CalculateBrandScores(responses, rankings)
	assert.Equal(t, 18.8, scores.VisibilityScore)
	assert.Equal(t, 67.0, scores.SentimentScore)
	assert.Equal(t, 50.0, scores.ShareOfVoice)
	assert.Equal(t, 2.0, scores.AveragePosition)
	// 18.8*0.3 + 67*0.2 + 50*0.3 + 90*0.2
	assert.Equal(t, 52.0, scores.OverallScore)
}

func TestCalculateBrandScores_Zeroes(t *testing.T) {
	assert.Equal(t, model.BrandScores{}, CalculateBrandScores(nil, []model.CompetitorRanking{{Name: "Acme", IsOwn: true}}))

	responses := []model.AIResponse{{Provider: "OpenAI"}}
	assert.Equal(t, model.BrandScores{}, CalculateBrandScores(responses, []model.CompetitorRanking{{Name: "Beta"}}))
}

func TestCalculateBrandScores_DeepPositionPenalty(t *testing.T) {
	responses := []model.AIResponse{{Provider: "OpenAI"}}
	rankings := []model.CompetitorRanking{{
		Name:            "Acme",
		IsOwn:           true,
		AveragePosition: 99,
		SentimentScore:  50,
	}}
	scores := CalculateBrandScores(responses, rankings)
	// Position 99 zeroes out the position component.
	assert.Equal(t, 10.0, scores.OverallScore)
}
