// Package scrape turns a company URL into a structured Company record:
// a Firecrawl scrape of the homepage followed by a structured extraction
// call against the first configured provider that succeeds.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cheyenne-cl/firegeo/internal/llm"
	"github.com/cheyenne-cl/firegeo/internal/model"
	"github.com/cheyenne-cl/firegeo/pkg/firecrawl"
)

// Scraped pages are cached server-side for about a week.
const scrapeMaxAgeMillis = 7 * 24 * 60 * 60 * 1000

// extraction prompts cap page content to keep token usage predictable.
const maxContentChars = 4000

// Scraper fetches and extracts company information from a URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*model.Company, error)
}

type scraper struct {
	fc       firecrawl.Client
	registry *llm.Registry
}

// New creates a Scraper backed by Firecrawl and the provider registry.
func New(fc firecrawl.Client, registry *llm.Registry) Scraper {
	return &scraper{fc: fc, registry: registry}
}

// companyExtraction is the structured output of the extraction call.
type companyExtraction struct {
	Name         string   `json:"name" jsonschema_description:"Exact company name as written on the page, preserving spelling and casing"`
	Industry     string   `json:"industry" jsonschema_description:"Primary industry of the company"`
	Description  string   `json:"description" jsonschema_description:"One or two sentence description of what the company does"`
	Location     string   `json:"location,omitempty" jsonschema_description:"Headquarters city and state or country if stated"`
	Keywords     []string `json:"keywords,omitempty" jsonschema_description:"Up to ten keywords describing the business"`
	MainProducts []string `json:"main_products,omitempty" jsonschema_description:"Main products or services offered"`
	Competitors  []string `json:"competitors,omitempty" jsonschema_description:"Competitor companies named on the page"`
}

var companySchema = llm.SchemaFor[companyExtraction]()

func (s *scraper) Scrape(ctx context.Context, url string) (*model.Company, error) {
	url = NormalizeURL(url)

	resp, err := s.fc.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
		MaxAge:  scrapeMaxAgeMillis,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch %s", url)
	}
	if !resp.Success {
		return nil, eris.Errorf("scrape: firecrawl reported failure for %s", url)
	}

	page := resp.Data
	extracted, err := s.extract(ctx, url, page)
	if err != nil {
		return nil, err
	}

	company := &model.Company{
		Name:        extracted.Name,
		URL:         url,
		Industry:    extracted.Industry,
		Description: extracted.Description,
		Location:    extracted.Location,
		Scraped: &model.ScrapedData{
			Title:        page.Metadata.Title,
			Description:  page.Metadata.Description,
			Keywords:     extracted.Keywords,
			MainProducts: extracted.MainProducts,
			Competitors:  extracted.Competitors,
			MainContent:  truncate(page.Markdown, maxContentChars),
		},
	}
	if company.Name == "" {
		company.Name = page.Metadata.Title
	}
	return company, nil
}

// extract runs the structured extraction against each configured
// provider in catalog order until one succeeds.
func (s *scraper) extract(ctx context.Context, url string, page firecrawl.PageData) (*companyExtraction, error) {
	providers := s.registry.Configured()
	if len(providers) == 0 {
		return nil, eris.New("scrape: no AI provider configured for extraction")
	}

	prompt := extractionPrompt(url, page)

	var lastErr error
	for _, p := range providers {
		m := s.registry.Model(p.ID, "")
		if m == nil {
			continue
		}
		var out companyExtraction
		if err := m.GenerateObject(ctx, prompt, companySchema, &out); err != nil {
			zap.L().Warn("company extraction failed, trying next provider",
				zap.String("provider", p.ID),
				zap.String("url", url),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		return &out, nil
	}
	return nil, eris.Wrap(lastErr, "scrape: extraction failed on all providers")
}

func extractionPrompt(url string, page firecrawl.PageData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract company information from this website content.\n")
	fmt.Fprintf(&b, "Preserve the exact company name spelling and casing as it appears on the page.\n\n")
	fmt.Fprintf(&b, "URL: %s\n", url)
	if page.Metadata.Title != "" {
		fmt.Fprintf(&b, "Page title: %s\n", page.Metadata.Title)
	}
	if page.Metadata.Description != "" {
		fmt.Fprintf(&b, "Meta description: %s\n", page.Metadata.Description)
	}
	fmt.Fprintf(&b, "\nContent:\n%s\n", truncate(page.Markdown, maxContentChars))
	return b.String()
}

// NormalizeURL prepends https:// when no scheme is present.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return url
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "https://" + url
	}
	return url
}

// ValidateURL reports whether the input looks like a real web address:
// a registrable domain with an alphabetic TLD of at least two letters.
func ValidateURL(raw string) bool {
	u, err := url.Parse(NormalizeURL(raw))
	if err != nil || u.Host == "" {
		return false
	}

	host := u.Hostname()
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return false
	}

	tld := parts[len(parts)-1]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !unicode.IsLetter(r) {
			return false
		}
	}

	for _, part := range parts {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
		for _, r := range part {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' {
				return false
			}
		}
	}
	return true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
