package spoonacular

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultMaxResults = 10
	descriptionLimit  = 200
	noDescription     = "No description available."
	recipePageBase    = "https://spoonacular.com/recipes/"
)

// Recipe is one normalized search hit.
type Recipe struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Ingredients    []string `json:"ingredients"`
	ProteinContent string   `json:"protein_content"`
	Description    string   `json:"description"`
}

// SearchRequest carries the filters of a recipe search. Empty optional
// filters are left out of the upstream request.
type SearchRequest struct {
	Query        string
	Diet         string
	Intolerances []string
	Cuisine      string
	// MaxResults caps the result count. Zero or negative means
	// DefaultMaxResults; a request for no results cannot be expressed.
	MaxResults int
}

func (r SearchRequest) limit() int {
	if r.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return r.MaxResults
}

func (r SearchRequest) values() url.Values {
	v := url.Values{}
	v.Set("query", r.Query)
	v.Set("number", strconv.Itoa(r.limit()))
	v.Set("addRecipeNutrition", "true")
	if d := strings.TrimSpace(r.Diet); d != "" {
		v.Set("diet", d)
	}
	if in := joinNonEmpty(r.Intolerances); in != "" {
		v.Set("intolerances", in)
	}
	if c := strings.TrimSpace(r.Cuisine); c != "" {
		v.Set("cuisine", c)
	}
	return v
}

type nutrient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

type searchResponse struct {
	Results []struct {
		ID        int     `json:"id"`
		Title     string  `json:"title"`
		Summary   *string `json:"summary"`
		Nutrition struct {
			Nutrients   []nutrient `json:"nutrients"`
			Ingredients []struct {
				Name string `json:"name"`
			} `json:"ingredients"`
		} `json:"nutrition"`
	} `json:"results"`
}

// SearchRecipes runs a complex search. It never returns more than
// req.MaxResults recipes and returns an empty slice on any failure.
func (c *Client) SearchRecipes(ctx context.Context, req SearchRequest) []Recipe {
	var data searchResponse
	if res := c.call(ctx, "search_recipes", "/recipes/complexSearch", req.values(), &data); res != nil {
		return []Recipe{}
	}

	limit := req.limit()
	recipes := make([]Recipe, 0, min(len(data.Results), limit))
	for _, r := range data.Results {
		if len(recipes) == limit {
			break
		}

		ingredients := make([]string, 0, len(r.Nutrition.Ingredients))
		for _, ing := range r.Nutrition.Ingredients {
			ingredients = append(ingredients, ing.Name)
		}

		desc := noDescription
		if r.Summary != nil {
			desc = truncate(*r.Summary, descriptionLimit)
		}

		recipes = append(recipes, Recipe{
			ID:             r.ID,
			Title:          r.Title,
			URL:            fmt.Sprintf("%s%d", recipePageBase, r.ID),
			Ingredients:    ingredients,
			ProteinContent: proteinContent(r.Nutrition.Nutrients),
			Description:    desc,
		})
	}
	return recipes
}

func proteinContent(nutrients []nutrient) string {
	for _, n := range nutrients {
		if n.Name == "Protein" {
			return formatAmount(n.Amount) + "g"
		}
	}
	return "0g"
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func joinNonEmpty(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return strings.Join(out, ",")
}
