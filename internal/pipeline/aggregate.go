package pipeline

import (
	"math"
	"sort"

	"github.com/cheyenne-cl/firegeo/internal/model"
)

// unrankedPosition stands in for companies that were mentioned but
// never given a ranking position.
const unrankedPosition = 99

type mentionStats struct {
	mentions   int
	positions  []int
	sentiments []model.Sentiment
}

// trackedCompanies is the subject brand followed by its competitors,
// deduplicated, in a stable order.
func trackedCompanies(brand string, competitors []string) []string {
	tracked := []string{brand}
	seen := map[string]bool{brand: true}
	for _, c := range competitors {
		if !seen[c] {
			seen[c] = true
			tracked = append(tracked, c)
		}
	}
	return tracked
}

// accumulate tallies mentions, positions and sentiments per tracked
// company. Each company is credited at most once per response, and a
// top-level brand mention only counts when the brand is absent from
// that response's rankings.
func accumulate(brand string, tracked []string, responses []model.AIResponse) map[string]*mentionStats {
	stats := make(map[string]*mentionStats, len(tracked))
	for _, name := range tracked {
		stats[name] = &mentionStats{}
	}

	for _, response := range responses {
		credited := map[string]bool{}
		for _, ranking := range response.Rankings {
			data, ok := stats[ranking.Company]
			if !ok {
				continue
			}
			if !credited[ranking.Company] {
				data.mentions++
				credited[ranking.Company] = true
			}
			data.positions = append(data.positions, ranking.Position)
			if ranking.Sentiment != "" {
				data.sentiments = append(data.sentiments, ranking.Sentiment)
			}
		}

		if response.BrandMentioned && !credited[brand] {
			data := stats[brand]
			data.mentions++
			if response.BrandPosition != nil && *response.BrandPosition > 0 {
				data.positions = append(data.positions, *response.BrandPosition)
			}
			data.sentiments = append(data.sentiments, response.Sentiment)
		}
	}
	return stats
}

// scoreCompetitors converts raw tallies into per-company rankings.
// The subject's visibility is discounted so a run that only ever
// names the subject cannot report 100%.
func scoreCompetitors(brand string, tracked []string, stats map[string]*mentionStats, totalResponses int) []model.CompetitorRanking {
	otherMentions := 0
	for name, data := range stats {
		if name != brand {
			otherMentions += data.mentions
		}
	}

	competitors := make([]model.CompetitorRanking, 0, len(tracked))
	for _, name := range tracked {
		data := stats[name]

		avgPosition := float64(unrankedPosition)
		if len(data.positions) > 0 {
			sum := 0
			for _, p := range data.positions {
				sum += p
			}
			avgPosition = float64(sum) / float64(len(data.positions))
		}

		visibility := 0.0
		if totalResponses > 0 {
			visibility = float64(data.mentions) / float64(totalResponses) * 100
		}
		if name == brand {
			if otherMentions > 0 {
				discount := math.Min(0.8, float64(otherMentions)/float64(totalResponses))
				visibility *= 1 - discount
			} else {
				visibility *= 0.6
			}
		}

		competitors = append(competitors, model.CompetitorRanking{
			Name:            name,
			Mentions:        data.mentions,
			AveragePosition: round1(avgPosition),
			Sentiment:       dominantSentiment(data.sentiments),
			SentimentScore:  sentimentScore(data.sentiments),
			VisibilityScore: round1(visibility),
			IsOwn:           name == brand,
		})
	}

	totalMentions := 0
	for _, c := range competitors {
		totalMentions += c.Mentions
	}
	for i := range competitors {
		if totalMentions > 0 {
			competitors[i].ShareOfVoice = round1(float64(competitors[i].Mentions) / float64(totalMentions) * 100)
		}
	}

	sort.SliceStable(competitors, func(i, j int) bool {
		return competitors[i].VisibilityScore > competitors[j].VisibilityScore
	})
	return competitors
}

// AggregateCompetitors scores the subject and its competitors across
// all responses, sorted by visibility.
func AggregateCompetitors(company model.Company, responses []model.AIResponse, knownCompetitors []string) []model.CompetitorRanking {
	tracked := trackedCompanies(company.Name, knownCompetitors)
	stats := accumulate(company.Name, tracked, responses)
	return scoreCompetitors(company.Name, tracked, stats, len(responses))
}

// AggregateByProvider repeats the scoring per provider and builds a
// cross-provider comparison matrix. Providers with no responses are
// skipped entirely.
func AggregateByProvider(company model.Company, responses []model.AIResponse, knownCompetitors, providers []string) ([]model.ProviderRanking, []model.ProviderComparison) {
	tracked := trackedCompanies(company.Name, knownCompetitors)

	var rankings []model.ProviderRanking
	for _, provider := range providers {
		var scoped []model.AIResponse
		for _, r := range responses {
			if r.Provider == provider {
				scoped = append(scoped, r)
			}
		}
		if len(scoped) == 0 {
			continue
		}
		stats := accumulate(company.Name, tracked, scoped)
		rankings = append(rankings, model.ProviderRanking{
			Provider:    provider,
			Competitors: scoreCompetitors(company.Name, tracked, stats, len(scoped)),
		})
	}

	comparison := make([]model.ProviderComparison, 0, len(tracked))
	for _, name := range tracked {
		row := model.ProviderComparison{
			Competitor: name,
			Providers:  map[string]model.ProviderMetrics{},
			IsOwn:      name == company.Name,
		}
		for _, pr := range rankings {
			for _, c := range pr.Competitors {
				if c.Name == name {
					row.Providers[pr.Provider] = model.ProviderMetrics{
						VisibilityScore: c.VisibilityScore,
						Position:        c.AveragePosition,
						Mentions:        c.Mentions,
						Sentiment:       c.Sentiment,
					}
					break
				}
			}
		}
		comparison = append(comparison, row)
	}

	meanVisibility := func(row model.ProviderComparison) float64 {
		if len(row.Providers) == 0 {
			return 0
		}
		sum := 0.0
		for _, m := range row.Providers {
			sum += m.VisibilityScore
		}
		return sum / float64(len(row.Providers))
	}
	sort.SliceStable(comparison, func(i, j int) bool {
		return meanVisibility(comparison[i]) > meanVisibility(comparison[j])
	})

	return rankings, comparison
}

// CalculateBrandScores summarizes the subject's standing into one set
// of weighted scores. Zero scores when nothing was analyzed or the
// subject never appears.
func CalculateBrandScores(responses []model.AIResponse, competitors []model.CompetitorRanking) model.BrandScores {
	if len(responses) == 0 {
		return model.BrandScores{}
	}

	var brand *model.CompetitorRanking
	for i := range competitors {
		if competitors[i].IsOwn {
			brand = &competitors[i]
			break
		}
	}
	if brand == nil {
		return model.BrandScores{}
	}

	positionScore := math.Max(0, 100-brand.AveragePosition*2)
	if brand.AveragePosition <= 10 {
		positionScore = (11 - brand.AveragePosition) * 10
	}

	overall := brand.VisibilityScore*0.3 +
		float64(brand.SentimentScore)*0.2 +
		brand.ShareOfVoice*0.3 +
		positionScore*0.2

	return model.BrandScores{
		VisibilityScore: round1(brand.VisibilityScore),
		SentimentScore:  round1(float64(brand.SentimentScore)),
		ShareOfVoice:    round1(brand.ShareOfVoice),
		OverallScore:    round1(overall),
		AveragePosition: round1(brand.AveragePosition),
	}
}

func sentimentScore(sentiments []model.Sentiment) int {
	if len(sentiments) == 0 {
		return 50
	}
	sum := 0
	for _, s := range sentiments {
		switch s {
		case model.SentimentPositive:
			sum += 100
		case model.SentimentNeutral:
			sum += 50
		}
	}
	return int(math.Round(float64(sum) / float64(len(sentiments))))
}

func dominantSentiment(sentiments []model.Sentiment) model.Sentiment {
	if len(sentiments) == 0 {
		return model.SentimentNeutral
	}
	var positive, neutral, negative int
	for _, s := range sentiments {
		switch s {
		case model.SentimentPositive:
			positive++
		case model.SentimentNegative:
			negative++
		default:
			neutral++
		}
	}
	switch {
	case positive > negative && positive > neutral:
		return model.SentimentPositive
	case negative > positive && negative > neutral:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
