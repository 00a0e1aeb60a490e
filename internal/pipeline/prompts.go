package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cheyenne-cl/firegeo/internal/model"
)

// promptContext is the product and category wording derived from what
// we know about the company. It drives every generated prompt.
type promptContext struct {
	Product  string
	Category string
}

// GeneratePrompts builds the deterministic prompt set for one analysis
// run. Same company and competitor list, same prompts.
func GeneratePrompts(company model.Company, competitors []string) []model.BrandPrompt {
	brand := company.Name
	var keywords, mainProducts []string
	description := company.Description
	if company.Scraped != nil {
		keywords = company.Scraped.Keywords
		mainProducts = company.Scraped.MainProducts
		if company.Scraped.Description != "" {
			description = company.Scraped.Description
		}
	}

	pc := deriveContext(company, keywords, mainProducts, description)

	all := strings.Join(competitors, ", ")
	top := strings.Join(firstN(competitors, 3), ", ")
	topVersus := strings.Join(firstN(competitors, 3), " vs ")

	comparisonThird := fmt.Sprintf("%s compared to %s", brand, top)
	if len(competitors) > 0 && len(mainProducts) > 0 {
		comparisonThird = fmt.Sprintf("%s or %s which has better %s", competitors[0], brand, mainProducts[0])
	}

	recommendationFirst := fmt.Sprintf("Is %s worth it for %s compared to %s?", brand, pc.Product, top)
	if len(mainProducts) > 0 {
		recommendationFirst = fmt.Sprintf("Is %s %s worth buying compared to %s?", brand, mainProducts[0], top)
	}

	byCategory := []struct {
		category model.PromptCategory
		prompts  []string
	}{
		{model.CategoryRanking, []string{
			fmt.Sprintf("Compare %s and %s for %s", all, brand, pc.Product),
			fmt.Sprintf("Rank %s and %s by their %s capabilities", all, brand, pc.Product),
			fmt.Sprintf("Which is better for %s: %s vs %s?", pc.Product, topVersus, brand),
			fmt.Sprintf("Top %s including %s and %s", pc.Category, all, brand),
		}},
		{model.CategoryComparison, []string{
			fmt.Sprintf("%s vs %s for %s", brand, topVersus, pc.Product),
			fmt.Sprintf("How does %s compare to %s?", brand, all),
			comparisonThird,
		}},
		{model.CategoryAlternatives, []string{
			fmt.Sprintf("Alternatives to %s: %s", brand, all),
			fmt.Sprintf("%s similar to %s: %s", pc.Category, brand, all),
			fmt.Sprintf("Competitors of %s in %s market: %s", brand, firstWord(pc.Product), all),
		}},
		{model.CategoryRecommendations, []string{
			recommendationFirst,
			fmt.Sprintf("%s %s reviews vs %s", brand, pc.Product, top),
			fmt.Sprintf("Should I buy %s or %s for %s?", brand, top, pc.Product),
			fmt.Sprintf("Best %s among %s and %s", pc.Product, brand, all),
		}},
	}

	var prompts []model.BrandPrompt
	id := 0
	for _, group := range byCategory {
		for _, p := range group.prompts {
			id++
			prompts = append(prompts, model.BrandPrompt{
				ID:       strconv.Itoa(id),
				Prompt:   p,
				Category: group.category,
			})
		}
	}
	return prompts
}

func deriveContext(company model.Company, keywords, mainProducts []string, description string) promptContext {
	var pc promptContext

	if len(mainProducts) > 0 {
		pc.Product = strings.Join(firstN(mainProducts, 2), " and ")
		productsLower := strings.ToLower(strings.Join(mainProducts, " "))
		switch {
		case strings.Contains(productsLower, "cooler") || strings.Contains(productsLower, "drinkware"):
			pc.Category = "outdoor gear brands"
		case strings.Contains(productsLower, "software") || strings.Contains(productsLower, "api"):
			pc.Category = "software companies"
		default:
			pc.Category = mainProducts[0] + " brands"
		}
	}

	allContext := strings.ToLower(strings.Join(keywords, " ") + " " + description + " " + strings.Join(mainProducts, " "))

	if pc.Product == "" {
		industry := strings.ToLower(company.Industry)
		has := func(terms ...string) bool {
			for _, t := range terms {
				if strings.Contains(allContext, t) {
					return true
				}
			}
			return false
		}

		switch {
		case industry == "outdoor gear" || has("cooler", "drinkware", "tumbler", "outdoor"):
			pc = promptContext{"coolers and drinkware", "outdoor gear brands"}
		case industry == "web scraping" || has("web scraping", "data extraction", "crawler"):
			pc = promptContext{"web scraping tools", "data extraction services"}
		case has("ai", "artificial intelligence", "machine learning"):
			pc = promptContext{"AI tools", "artificial intelligence platforms"}
		case has("software", "saas", "application"):
			pc = promptContext{"software solutions", "SaaS platforms"}
		case has("clothing", "apparel", "fashion"):
			pc = promptContext{"clothing and apparel", "fashion brands"}
		case has("furniture", "home", "decor"):
			pc = promptContext{"furniture and home goods", "home furnishing brands"}
		default:
			pc.Product = strings.Join(firstN(keywords, 3), " and ")
			if pc.Product == "" {
				pc.Product = "products"
			}
			pc.Category = company.Industry
			if pc.Category == "" {
				pc.Category = "companies"
			}
		}
	}

	// Cooler makers get misread as beverage companies from their
	// drinkware keywords. Correct the category when that happens.
	if strings.Contains(pc.Product, "beverage") &&
		(strings.ToLower(company.Name) == "yeti" || strings.Contains(allContext, "cooler")) {
		pc = promptContext{"coolers and outdoor gear", "outdoor equipment brands"}
	}

	return pc
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
