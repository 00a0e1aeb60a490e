package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusIdentifying RunStatus = "identifying"
	RunStatusGenerating  RunStatus = "generating_prompts"
	RunStatusAnalyzing   RunStatus = "analyzing"
	RunStatusFinalizing  RunStatus = "finalizing"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// ScrapedData holds the structured fields extracted from a company's website.
type ScrapedData struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords,omitempty"`
	MainProducts []string `json:"main_products,omitempty"`
	Competitors  []string `json:"competitors,omitempty"`
	MainContent  string   `json:"main_content,omitempty"`
}

// Company is the subject of a brand analysis.
type Company struct {
	Name        string       `json:"name"`
	URL         string       `json:"url"`
	Industry    string       `json:"industry,omitempty"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
	Scraped     *ScrapedData `json:"scraped,omitempty"`
}

// Competitor is a tracked competitor with an optional guessed homepage.
type Competitor struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Run represents a single analysis run for a company.
type Run struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Company     Company         `json:"company"`
	Status      RunStatus       `json:"status"`
	CreditsUsed int             `json:"credits_used"`
	Result      *AnalysisResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
