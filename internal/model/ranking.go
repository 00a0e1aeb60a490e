package model

// CompetitorRanking is the aggregated standing of one tracked company.
type CompetitorRanking struct {
	Name            string    `json:"name"`
	Mentions        int       `json:"mentions"`
	AveragePosition float64   `json:"average_position"`
	Sentiment       Sentiment `json:"sentiment"`
	SentimentScore  int       `json:"sentiment_score"`
	ShareOfVoice    float64   `json:"share_of_voice"`
	VisibilityScore float64   `json:"visibility_score"`
	WeeklyChange    *float64  `json:"weekly_change,omitempty"`
	IsOwn           bool      `json:"is_own"`
}

// ProviderRanking scopes competitor rankings to one provider's responses.
type ProviderRanking struct {
	Provider    string              `json:"provider"`
	Competitors []CompetitorRanking `json:"competitors"`
}

// ProviderMetrics is one cell of the provider comparison matrix.
type ProviderMetrics struct {
	VisibilityScore float64   `json:"visibility_score"`
	Position        float64   `json:"position"`
	Mentions        int       `json:"mentions"`
	Sentiment       Sentiment `json:"sentiment"`
}

// ProviderComparison is one company's row across all providers.
type ProviderComparison struct {
	Competitor string                     `json:"competitor"`
	Providers  map[string]ProviderMetrics `json:"providers"`
	IsOwn      bool                       `json:"is_own"`
}

// BrandScores is the composite scorecard for the subject brand.
type BrandScores struct {
	VisibilityScore float64 `json:"visibility_score"`
	SentimentScore  float64 `json:"sentiment_score"`
	ShareOfVoice    float64 `json:"share_of_voice"`
	OverallScore    float64 `json:"overall_score"`
	AveragePosition float64 `json:"average_position"`
}

// AnalysisResult is the final output of an analysis run.
type AnalysisResult struct {
	Company            Company              `json:"company"`
	KnownCompetitors   []Competitor         `json:"known_competitors"`
	Prompts            []BrandPrompt        `json:"prompts"`
	Responses          []AIResponse         `json:"responses"`
	Competitors        []CompetitorRanking  `json:"competitors"`
	ProviderRankings   []ProviderRanking    `json:"provider_rankings,omitempty"`
	ProviderComparison []ProviderComparison `json:"provider_comparison,omitempty"`
	Scores             BrandScores          `json:"scores"`
}
