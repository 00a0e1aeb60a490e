package model

import "time"

// Sentiment is the tone of a brand's treatment in a response.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Ranking is one entry of an ordered competitor list inside a response.
type Ranking struct {
	Position  int       `json:"position"`
	Company   string    `json:"company"`
	Reason    string    `json:"reason,omitempty"`
	Sentiment Sentiment `json:"sentiment"`
}

// BrandMatch records one detected occurrence of a tracked name.
type BrandMatch struct {
	Text       string  `json:"text"`
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// DetectionDetails carries the text-level evidence behind mention flags.
type DetectionDetails struct {
	BrandMatches      []BrandMatch            `json:"brand_matches,omitempty"`
	CompetitorMatches map[string][]BrandMatch `json:"competitor_matches,omitempty"`
}

// AIResponse is the analyzed output of one prompt against one provider.
type AIResponse struct {
	Provider       string            `json:"provider"`
	Prompt         string            `json:"prompt"`
	Response       string            `json:"response"`
	Rankings       []Ranking         `json:"rankings,omitempty"`
	Competitors    []string          `json:"competitors,omitempty"`
	BrandMentioned bool              `json:"brand_mentioned"`
	BrandPosition  *int              `json:"brand_position,omitempty"`
	Sentiment      Sentiment         `json:"sentiment"`
	Confidence     float64           `json:"confidence"`
	Timestamp      time.Time         `json:"timestamp"`
	Detection      *DetectionDetails `json:"detection,omitempty"`
}
