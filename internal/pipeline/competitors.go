package pipeline

import (
	"regexp"
	"strings"
)

// canonical spellings for competitor names that models write many ways.
var nameNormalizations = map[string]string{
	"amazon web services":         "aws",
	"amazon web services (aws)":   "aws",
	"amazon aws":                  "aws",
	"microsoft azure":             "azure",
	"google cloud platform":       "google cloud",
	"google cloud platform (gcp)": "google cloud",
	"gcp":                         "google cloud",
	"digital ocean":               "digitalocean",
	"beautiful soup":              "beautifulsoup",
	"bright data":                 "brightdata",
}

// NormalizeCompetitorName lowercases a competitor name and folds known
// aliases to one canonical spelling.
func NormalizeCompetitorName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := nameNormalizations[normalized]; ok {
		return canonical
	}
	return normalized
}

var urlCleanRe = regexp.MustCompile(`[^a-z0-9\s]`)
var leadingArticleRe = regexp.MustCompile(`^(the|a|an)\s+`)

// CompetitorURL guesses a homepage for a competitor name. Returns ""
// when the cleaned name is too short to guess from.
func CompetitorURL(name string) string {
	cleaned := strings.ToLower(strings.TrimSpace(name))
	cleaned = leadingArticleRe.ReplaceAllString(cleaned, "")
	cleaned = urlCleanRe.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if len(cleaned) < 3 {
		return ""
	}
	return cleaned + ".com"
}
