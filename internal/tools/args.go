package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ccastromar/aos-diet-planner/internal/guard"
)

// searchFilters is the structured form of a search.
type searchFilters struct {
	Query        string   `json:"query" validate:"max=256"`
	Diet         string   `json:"diet" validate:"max=64"`
	Intolerances []string `json:"intolerances" validate:"omitempty,max=12,dive,intolerance"`
	Cuisine      string   `json:"cuisine" validate:"max=64"`
}

// searchArgs is tagged: exactly one of text or filters. The text form is
// always a plain query and is never parsed for structure.
type searchArgs struct {
	Text       *string        `json:"text" validate:"required_without=Filters,excluded_with=Filters"`
	Filters    *searchFilters `json:"filters" validate:"omitempty"`
	MaxResults int            `json:"max_results" validate:"omitempty,min=1,max=100"`
}

func (a searchArgs) filters() searchFilters {
	if a.Filters != nil {
		return *a.Filters
	}
	return searchFilters{Query: *a.Text}
}

// recipeID accepts 716429 as well as "716429".
type recipeID int

func (id *recipeID) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*id = recipeID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("recipe_id must be a number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("recipe_id %q is not numeric", s)
	}
	*id = recipeID(n)
	return nil
}

type nutritionArgs struct {
	RecipeID recipeID `json:"recipe_id" validate:"gt=0"`
}

type mealPlanArgs struct {
	TimeFrame      string   `json:"time_frame" validate:"timeframe"`
	TargetCalories int      `json:"target_calories" validate:"gte=0,lte=20000"`
	Diet           string   `json:"diet" validate:"max=64"`
	Exclude        []string `json:"exclude" validate:"omitempty,max=50,dive,max=64"`
}

type suggestArgs struct {
	Query        string   `json:"query" validate:"required,max=256"`
	Diet         string   `json:"diet" validate:"max=64"`
	Intolerances []string `json:"intolerances" validate:"omitempty,max=12,dive,intolerance"`
	Cuisine      string   `json:"cuisine" validate:"max=64"`
	MaxResults   int      `json:"max_results" validate:"omitempty,min=1,max=10"`
}

// decodeArgs strictly decodes raw into out and validates it. An empty body
// is treated as an empty object.
func decodeArgs(raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after arguments", ErrInvalidArgs)
	}
	if err := guard.Validate(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}
