package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cheyenne-cl/firegeo/internal/llm"
	"github.com/cheyenne-cl/firegeo/internal/model"
)

// maxIdentifiedCompetitors caps how many AI-identified competitors are
// kept before scraped competitors are appended.
const maxIdentifiedCompetitors = 9

// CompanySize buckets used to steer competitor identification.
type CompanySize string

const (
	SizeStartup    CompanySize = "startup"
	SizeSmall      CompanySize = "small"
	SizeMedium     CompanySize = "medium"
	SizeLarge      CompanySize = "large"
	SizeEnterprise CompanySize = "enterprise"
)

// IdentifyOptions lets callers override the detected company profile.
type IdentifyOptions struct {
	TargetSize       CompanySize
	GeographicRegion string
	MarketSegment    string
}

// CompetitorFound is the payload emitted for each identified competitor.
type CompetitorFound struct {
	Competitor string `json:"competitor"`
	Index      int    `json:"index"`
	Total      int    `json:"total"`
}

// identifiedCompetitor is one structured-output entry.
type identifiedCompetitor struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	IsDirectCompetitor bool   `json:"isDirectCompetitor"`
	MarketOverlap      string `json:"marketOverlap" jsonschema:"enum=high,enum=medium,enum=low"`
	BusinessModel      string `json:"businessModel" jsonschema_description:"e.g. DTC brand, SaaS, API service, marketplace"`
	CompetitorType     string `json:"competitorType" jsonschema:"enum=direct,enum=indirect,enum=retailer,enum=platform" jsonschema_description:"direct = same products, indirect = adjacent products, retailer = sells products, platform = aggregates"`
}

type competitorList struct {
	Competitors []identifiedCompetitor `json:"competitors"`
}

var competitorSchema = llm.SchemaFor[competitorList]()

// IdentifyCompetitors asks the first configured provider for real
// competitors matched to the company's size, region and segment, then
// appends competitors named on the company's own site. Identification
// failure degrades to the scraped competitor list.
func (p *Pipeline) IdentifyCompetitors(ctx context.Context, company model.Company, opts IdentifyOptions, onFound func(CompetitorFound)) []model.Competitor {
	names, err := p.identifyNames(ctx, company, opts)
	if err != nil {
		zap.L().Warn("competitor identification failed, falling back to scraped competitors",
			zap.String("company", company.Name),
			zap.Error(err),
		)
		names = scrapedCompetitors(company)
	}

	competitors := make([]model.Competitor, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		key := NormalizeCompetitorName(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		competitors = append(competitors, model.Competitor{Name: name, URL: CompetitorURL(name)})
	}

	if onFound != nil {
		for i, c := range competitors {
			onFound(CompetitorFound{Competitor: c.Name, Index: i + 1, Total: len(competitors)})
		}
	}
	return competitors
}

func (p *Pipeline) identifyNames(ctx context.Context, company model.Company, opts IdentifyOptions) ([]string, error) {
	providers := p.registry.Configured()
	if len(providers) == 0 {
		return nil, errNoProviders
	}

	m := p.registry.Model(providers[0].ID, "")
	if m == nil {
		return nil, errNoProviders
	}

	size := opts.TargetSize
	if size == "" {
		size = detectCompanySize(company)
	}
	region := opts.GeographicRegion
	if region == "" {
		region = detectGeographicFocus(company)
	}
	segment := opts.MarketSegment
	if segment == "" {
		segment = detectMarketSegment(company)
	}

	var out competitorList
	if err := m.GenerateObject(ctx, identifyPrompt(company, size, region, segment), competitorSchema, &out); err != nil {
		return nil, err
	}

	names := filterCompetitors(company, out.Competitors)
	if len(names) > p.maxCompetitors {
		names = names[:p.maxCompetitors]
	}

	// Competitors named on the company's own site are kept regardless
	// of the filter policy.
	for _, scraped := range scrapedCompetitors(company) {
		if !containsFold(names, scraped) {
			names = append(names, scraped)
		}
	}
	return names, nil
}

// filterCompetitors applies the relevance policy to structured output:
// direct high-overlap entries always pass; retailers and platforms are
// dropped unless the subject itself is one; the rest pass when direct,
// or indirect with high overlap.
func filterCompetitors(company model.Company, candidates []identifiedCompetitor) []string {
	industry := strings.ToLower(company.Industry)
	isRetailOrPlatform := strings.Contains(industry, "marketplace") ||
		strings.Contains(industry, "platform") ||
		strings.Contains(industry, "retailer")

	var names []string
	for _, c := range candidates {
		switch {
		case c.IsDirectCompetitor && c.MarketOverlap == "high":
			names = append(names, c.Name)
		case !isRetailOrPlatform && (c.CompetitorType == "retailer" || c.CompetitorType == "platform"):
			continue
		case c.CompetitorType == "direct",
			c.CompetitorType == "indirect" && c.MarketOverlap == "high":
			names = append(names, c.Name)
		}
	}
	return names
}

func scrapedCompetitors(company model.Company) []string {
	if company.Scraped == nil {
		return nil
	}
	return company.Scraped.Competitors
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func identifyPrompt(company model.Company, size CompanySize, region, segment string) string {
	var b strings.Builder
	industry := company.Industry
	if industry == "" {
		industry = "technology"
	}

	fmt.Fprintf(&b, "Identify 6-9 real, established competitors of %s in the %s industry.\n\n", company.Name, industry)
	fmt.Fprintf(&b, "Company: %s\n", company.Name)
	fmt.Fprintf(&b, "Industry: %s\n", company.Industry)
	fmt.Fprintf(&b, "Description: %s\n", company.Description)
	if company.Scraped != nil && len(company.Scraped.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(company.Scraped.Keywords, ", "))
	}
	if scraped := scrapedCompetitors(company); len(scraped) > 0 {
		fmt.Fprintf(&b, "Known competitors: %s\n", strings.Join(scraped, ", "))
	}

	fmt.Fprintf(&b, "\nCOMPANY PROFILE:\n")
	fmt.Fprintf(&b, "- Size: %s (%s)\n", size, sizeDescription(size))
	fmt.Fprintf(&b, "- Geographic Focus: %s\n", region)
	fmt.Fprintf(&b, "- Market Segment: %s\n", segment)

	fmt.Fprintf(&b, `
Based on this company's specific profile, identify competitors that:
1. Are SIMILAR IN SIZE (%[1]s companies, not global giants)
2. Target the SAME GEOGRAPHIC REGION (%[2]s)
3. Serve the SAME MARKET SEGMENT (%[3]s)
4. Offer SIMILAR products/services
5. Have a SIMILAR business model

IMPORTANT:
- Only include companies you are confident actually exist
- Focus on TRUE competitors with similar market positioning
- Exclude global giants unless the company itself is large or enterprise
- Aim for 6-9 competitors total
- Prioritize companies of similar size and geographic focus
`, size, region, segment)

	return b.String()
}

// keyword lists that hint at company size.
var (
	startupKeywords    = []string{"startup", "new", "emerging", "founded", "launched", "innovative", "disruptive"}
	smallKeywords      = []string{"small", "local", "boutique", "specialized", "niche", "family-owned"}
	enterpriseKeywords = []string{"enterprise", "global", "fortune 500", "multinational", "corporate", "large-scale"}
)

func detectCompanySize(company model.Company) CompanySize {
	description := strings.ToLower(company.Description)
	name := strings.ToLower(company.Name)
	industry := strings.ToLower(company.Industry)

	contains := func(keywords []string) bool {
		for _, k := range keywords {
			if strings.Contains(description, k) || strings.Contains(name, k) {
				return true
			}
		}
		return false
	}

	switch {
	case contains(enterpriseKeywords):
		return SizeEnterprise
	case contains(startupKeywords):
		return SizeStartup
	case contains(smallKeywords):
		return SizeSmall
	case strings.Contains(industry, "saas") || strings.Contains(industry, "tech"):
		return SizeMedium
	default:
		return SizeSmall
	}
}

func detectGeographicFocus(company model.Company) string {
	description := strings.ToLower(company.Description)
	location := strings.ToLower(company.Location)

	switch {
	case strings.Contains(location, "minneapolis"), strings.Contains(location, "mn"),
		strings.Contains(description, "minneapolis"):
		return "Minneapolis/St. Paul area"
	case strings.Contains(location, "san francisco"), strings.Contains(location, "sf"),
		strings.Contains(description, "bay area"):
		return "San Francisco Bay Area"
	case strings.Contains(location, "new york"), strings.Contains(location, "nyc"),
		strings.Contains(description, "manhattan"):
		return "New York City area"
	case strings.Contains(location, "austin"), strings.Contains(description, "texas"):
		return "Austin/Texas area"
	case strings.Contains(location, "seattle"), strings.Contains(description, "pacific northwest"):
		return "Seattle/Pacific Northwest"
	case strings.Contains(location, "boston"), strings.Contains(description, "massachusetts"):
		return "Boston/New England"
	case strings.Contains(description, "local"), strings.Contains(description, "regional"):
		return "Local/Regional market"
	case strings.Contains(description, "national"), strings.Contains(description, "usa"):
		return "National (USA)"
	case strings.Contains(description, "global"), strings.Contains(description, "international"):
		return "Global market"
	default:
		return "National (USA)"
	}
}

func detectMarketSegment(company model.Company) string {
	description := strings.ToLower(company.Description)
	focus := detectGeographicFocus(company)

	switch {
	case strings.Contains(focus, "Local"), strings.Contains(focus, "Regional"):
		return "local"
	case strings.Contains(focus, "National"):
		return "national"
	case strings.Contains(focus, "Global"):
		return "global"
	case strings.Contains(description, "local"), strings.Contains(description, "regional"):
		return "local"
	case strings.Contains(description, "national"):
		return "national"
	case strings.Contains(description, "global"), strings.Contains(description, "international"):
		return "global"
	default:
		return "national"
	}
}

func sizeDescription(size CompanySize) string {
	switch size {
	case SizeStartup:
		return "Early-stage companies, typically <50 employees"
	case SizeMedium:
		return "Mid-sized companies, typically 100-1000 employees"
	case SizeLarge:
		return "Large companies, typically 1000-10000 employees"
	case SizeEnterprise:
		return "Enterprise companies, typically 10000+ employees"
	default:
		return "Small businesses, typically 10-100 employees"
	}
}
