package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ccastromar/aos-diet-planner/internal/logx"
)

const DefaultSuggestions = 3

// SuggestRequest mirrors the search filters.
type SuggestRequest struct {
	Query        string
	Diet         string
	Intolerances []string
	Cuisine      string
	MaxResults   int
}

type SuggestedRecipe struct {
	RecipeName         string   `json:"recipe_name"`
	Summary            string   `json:"summary"`
	IngredientsPreview []string `json:"ingredients_preview"`
}

var ErrNoRecipeList = errors.New("llm reply contains no recipe list")

type RecipeSuggester struct {
	client LLMClient
}

func NewRecipeSuggester(client LLMClient) *RecipeSuggester {
	return &RecipeSuggester{client: client}
}

func suggestPrompt(req SuggestRequest, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find exactly %d distinct recipes for %q.", n, req.Query)

	var constraints []string
	if c := strings.TrimSpace(req.Cuisine); c != "" {
		constraints = append(constraints, fmt.Sprintf("Cuisine style must be %s.", c))
	}
	if d := strings.TrimSpace(req.Diet); d != "" {
		constraints = append(constraints, fmt.Sprintf("Must be compliant with a %s diet.", d))
	}
	if len(req.Intolerances) > 0 {
		constraints = append(constraints, fmt.Sprintf("Must NOT contain ingredients: %s.", strings.Join(req.Intolerances, ", ")))
	}
	if len(constraints) > 0 {
		b.WriteString(" Strictly follow these constraints: ")
		b.WriteString(strings.Join(constraints, " "))
	}

	b.WriteString(`

Output requirements:
- A JSON array and nothing else.
- Each element: {"recipe_name": string, "summary": one short sentence, "ingredients_preview": 3 to 5 main ingredients}.
- NO markdown.
- NO explanation.`)
	return b.String()
}

// SuggestRecipes asks the model for up to MaxResults recipes (default 3).
func (s *RecipeSuggester) SuggestRecipes(ctx context.Context, req SuggestRequest) ([]SuggestedRecipe, error) {
	n := req.MaxResults
	if n <= 0 {
		n = DefaultSuggestions
	}

	tm := logx.Start("", "LLM", "suggest_recipes")
	raw, err := s.client.Chat(ctx, suggestPrompt(req, n))
	tm.End()
	if err != nil {
		return nil, fmt.Errorf("llm chat: %w", err)
	}
	logx.Debug("LLM", "raw suggestion output: %s", raw)

	recipes, err := decodeRecipeList(raw)
	if err != nil {
		return nil, err
	}

	out := make([]SuggestedRecipe, 0, min(len(recipes), n))
	for _, r := range recipes {
		if len(out) == n {
			break
		}
		if strings.TrimSpace(r.RecipeName) == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// smartQuotes turns typographic quotes into ASCII ones. Applied only when the
// reply does not parse as is, since it also rewrites quotes inside values.
var smartQuotes = strings.NewReplacer("“", "\"", "”", "\"", "‘", "'", "’", "'")

// decodeRecipeList parses the array in reply. Some models delimit JSON with
// typographic quotes; those are normalized as a second attempt.
func decodeRecipeList(reply string) ([]SuggestedRecipe, error) {
	clean, ok := extractJSONArray(reply)
	if !ok {
		return nil, ErrNoRecipeList
	}

	var recipes []SuggestedRecipe
	err := json.Unmarshal([]byte(clean), &recipes)
	if err == nil {
		return recipes, nil
	}
	if normalized := smartQuotes.Replace(clean); normalized != clean {
		recipes = nil
		if json.Unmarshal([]byte(normalized), &recipes) == nil {
			return recipes, nil
		}
	}
	return nil, fmt.Errorf("parsing recipe list: %w", err)
}

// extractJSONArray strips code fences and returns the text between the
// first '[' and the last ']'.
func extractJSONArray(s string) (string, bool) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) > 1 {
			lines = lines[1:]
			if last := strings.TrimSpace(lines[len(lines)-1]); strings.HasPrefix(last, "```") {
				lines = lines[:len(lines)-1]
			}
			s = strings.Join(lines, "\n")
		}
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
