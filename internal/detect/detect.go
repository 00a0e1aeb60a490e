// Package detect locates brand and competitor mentions in free-form AI
// responses. Matching is variation-aware: punctuation, spacing, corporate
// suffixes and domain endings are folded into alternate spellings with
// reduced confidence.
package detect

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options controls how names are matched.
type Options struct {
	CaseSensitive bool
	WholeWords    bool
	Variations    bool
}

// DefaultOptions matches case-insensitively on whole words with
// variation expansion enabled.
func DefaultOptions() Options {
	return Options{WholeWords: true, Variations: true}
}

// Match records one located occurrence of a name.
type Match struct {
	Text       string  `json:"text"`
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of searching one name in one text.
type Result struct {
	Mentioned bool    `json:"mentioned"`
	Matches   []Match `json:"matches,omitempty"`
}

type variant struct {
	text       string
	confidence float64
}

// corporate suffixes stripped for the reduced-confidence variant.
var companySuffixes = []string{
	" incorporated", " corporation", " company", " limited",
	" inc.", " inc", " llc", " ltd.", " ltd", " corp.", " corp", " co.", " co",
}

// domain endings stripped for the reduced-confidence variant.
var domainSuffixes = []string{".com", ".io", ".ai", ".dev", ".co", ".app", ".net", ".org"}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldAccents(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return out
}

// Detect searches text for name and its variations.
func Detect(text, name string, opts Options) Result {
	name = strings.TrimSpace(name)
	if name == "" || text == "" {
		return Result{}
	}

	haystack := foldAccents(text)

	byIndex := map[int]Match{}
	for _, v := range expand(name, opts.Variations) {
		re, err := compile(v.text, opts)
		if err != nil {
			continue
		}
		// Scan manually, resuming at the captured group's end rather
		// than the full match end: the consumed trailing boundary must
		// stay available as the next match's leading boundary, or
		// "Acme Acme" counts as one mention.
		offset := 0
		for offset <= len(haystack) {
			loc := re.FindStringSubmatchIndex(haystack[offset:])
			if loc == nil || loc[2] < 0 {
				break
			}
			// Group 1 is the name itself, excluding boundary characters.
			start, end := offset+loc[2], offset+loc[3]
			if prev, ok := byIndex[start]; !ok || v.confidence > prev.Confidence {
				byIndex[start] = Match{Text: haystack[start:end], Index: start, Confidence: v.confidence}
			}
			offset = end
		}
	}

	matches := make([]Match, 0, len(byIndex))
	for _, m := range byIndex {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Index < matches[j].Index })

	return Result{Mentioned: len(matches) > 0, Matches: matches}
}

// DetectMultiple runs Detect for each name independently. A span of text
// may count toward more than one name.
func DetectMultiple(text string, names []string, opts Options) map[string]Result {
	results := make(map[string]Result, len(names))
	for _, name := range names {
		results[name] = Detect(text, name, opts)
	}
	return results
}

func compile(name string, opts Options) (*regexp.Regexp, error) {
	pattern := regexp.QuoteMeta(name)
	if opts.WholeWords {
		pattern = `(?:^|[^\p{L}\p{N}])(` + pattern + `)(?:[^\p{L}\p{N}]|$)`
	} else {
		pattern = `(` + pattern + `)`
	}
	if !opts.CaseSensitive {
		pattern = `(?i)` + pattern
	}
	return regexp.Compile(pattern)
}

// expand produces the canonical name plus alternate spellings, each with
// the confidence assigned to matches found through it.
func expand(name string, variations bool) []variant {
	canonical := foldAccents(name)

	out := []variant{{canonical, 1.0}}
	if !variations {
		return out
	}

	add := func(text string, confidence float64) {
		text = strings.TrimSpace(text)
		if len(text) < 2 {
			return
		}
		for _, v := range out {
			if strings.EqualFold(v.text, text) {
				return
			}
		}
		out = append(out, variant{text, confidence})
	}

	// Punctuation and spacing.
	add(stripPunctuation(canonical), 0.9)
	add(collapseSpaces(canonical), 0.9)
	add(strings.ReplaceAll(canonical, "-", " "), 0.85)
	add(strings.ReplaceAll(canonical, " ", "-"), 0.85)
	add(strings.ReplaceAll(canonical, "&", "and"), 0.85)
	add(strings.ReplaceAll(canonical, " and ", " & "), 0.85)

	// Corporate suffixes.
	lower := strings.ToLower(canonical)
	for _, suffix := range companySuffixes {
		if strings.HasSuffix(lower, suffix) {
			add(canonical[:len(canonical)-len(suffix)], 0.8)
			break
		}
	}

	// Domain endings.
	for _, suffix := range domainSuffixes {
		if strings.HasSuffix(lower, suffix) {
			add(canonical[:len(canonical)-len(suffix)], 0.8)
			break
		}
	}

	return out
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return ' '
	}, s)), "")
}
