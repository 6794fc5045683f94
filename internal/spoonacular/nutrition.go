package spoonacular

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// NutritionInfo summarizes one recipe. Values are display strings such as
// "12g". Error is set, and every other field empty, when the lookup failed.
type NutritionInfo struct {
	Calories string `json:"calories,omitempty"`
	Protein  string `json:"protein,omitempty"`
	Sugar    string `json:"sugar,omitempty"`
	Carbs    string `json:"carbs,omitempty"`
	Fat      string `json:"fat,omitempty"`

	Error    string   `json:"error,omitempty"`
	Category Category `json:"-"`
}

func (n NutritionInfo) Failed() bool { return n.Error != "" }

// displayValue accepts either a JSON string or a number.
type displayValue string

func (d *displayValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = displayValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("display value %s: %w", b, err)
	}
	*d = displayValue(formatAmount(f))
	return nil
}

type nutritionResponse struct {
	Calories  displayValue `json:"calories"`
	Protein   displayValue `json:"protein"`
	Sugar     displayValue `json:"sugar"`
	Carbs     displayValue `json:"carbs"`
	Fat       displayValue `json:"fat"`
	Nutrients []nutrient   `json:"nutrients"`
}

// NutritionInfo fetches the nutrition widget of a recipe.
func (c *Client) NutritionInfo(ctx context.Context, recipeID int) NutritionInfo {
	var data nutritionResponse
	path := fmt.Sprintf("/recipes/%d/nutritionWidget.json", recipeID)
	if res := c.call(ctx, "nutrition_info", path, nil, &data); res != nil {
		return NutritionInfo{Error: res.Message, Category: res.Category}
	}

	return NutritionInfo{
		Calories: pick(data.Calories, data.Nutrients, "Calories", false, "0"),
		Protein:  pick(data.Protein, data.Nutrients, "Protein", true, "0g"),
		Sugar:    pick(data.Sugar, data.Nutrients, "Sugar", true, "0g"),
		Carbs:    pick(data.Carbs, data.Nutrients, "Carbohydrates", true, "0g"),
		Fat:      pick(data.Fat, data.Nutrients, "Fat", true, "0g"),
	}
}

// pick prefers the top-level widget field, then the matching entry of the
// nutrients breakdown, then def.
func pick(v displayValue, nutrients []nutrient, name string, withUnit bool, def string) string {
	if s := strings.TrimSpace(string(v)); s != "" {
		return s
	}
	for _, n := range nutrients {
		if !strings.EqualFold(n.Name, name) {
			continue
		}
		if withUnit {
			return formatAmount(n.Amount) + n.Unit
		}
		return formatAmount(n.Amount)
	}
	return def
}
