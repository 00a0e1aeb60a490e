package model

// PromptCategory classifies what a generated prompt asks for.
type PromptCategory string

const (
	CategoryRanking         PromptCategory = "ranking"
	CategoryComparison      PromptCategory = "comparison"
	CategoryAlternatives    PromptCategory = "alternatives"
	CategoryRecommendations PromptCategory = "recommendations"
)

// BrandPrompt is a single question sent to every configured provider.
type BrandPrompt struct {
	ID       string         `json:"id"`
	Prompt   string         `json:"prompt"`
	Category PromptCategory `json:"category"`
}
