package spoonacular

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

const (
	TimeFrameDay  = "day"
	TimeFrameWeek = "week"
)

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// MealPlanRequest describes the plan to generate. Zero values are omitted
// from the upstream request; an empty TimeFrame means a single day.
type MealPlanRequest struct {
	TimeFrame      string
	TargetCalories int
	Diet           string
	Exclude        []string
}

func (r MealPlanRequest) values() url.Values {
	v := url.Values{}
	tf := strings.TrimSpace(r.TimeFrame)
	if tf == "" {
		tf = TimeFrameDay
	}
	v.Set("timeFrame", tf)
	if r.TargetCalories > 0 {
		v.Set("targetCalories", strconv.Itoa(r.TargetCalories))
	}
	if d := strings.TrimSpace(r.Diet); d != "" {
		v.Set("diet", d)
	}
	if ex := joinNonEmpty(r.Exclude); ex != "" {
		v.Set("exclude", ex)
	}
	return v
}

// MealPlan is the planner response passed through as decoded JSON, or an
// error record.
type MealPlan struct {
	Data     map[string]any
	Error    string
	Category Category
}

func (p MealPlan) Failed() bool { return p.Error != "" }

func (p MealPlan) MarshalJSON() ([]byte, error) {
	if p.Error != "" {
		return json.Marshal(map[string]string{"error": p.Error})
	}
	if p.Data == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Data)
}

func (p *MealPlan) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if msg, ok := m["error"].(string); ok && len(m) == 1 {
		*p = MealPlan{Error: msg}
		return nil
	}
	*p = MealPlan{Data: m}
	return nil
}

// PlannedMeal is one meal of a plan. Day is empty for single-day plans.
type PlannedMeal struct {
	Day            string `json:"day,omitempty"`
	ID             int    `json:"id"`
	Title          string `json:"title"`
	ReadyInMinutes int    `json:"readyInMinutes"`
	Servings       int    `json:"servings"`
	SourceURL      string `json:"sourceUrl"`
}

type planMeals struct {
	Meals []PlannedMeal `json:"meals"`
}

// Meals flattens a day or week plan in calendar order.
func (p MealPlan) Meals() []PlannedMeal {
	if p.Failed() || p.Data == nil {
		return nil
	}
	raw, err := json.Marshal(p.Data)
	if err != nil {
		return nil
	}
	var shaped struct {
		planMeals
		Week map[string]planMeals `json:"week"`
	}
	if err := json.Unmarshal(raw, &shaped); err != nil {
		return nil
	}

	out := append([]PlannedMeal(nil), shaped.Meals...)
	for _, day := range weekdays {
		for _, m := range shaped.Week[day].Meals {
			m.Day = day
			out = append(out, m)
		}
	}
	return out
}

// GenerateMealPlan asks the upstream planner for a day or week plan.
func (c *Client) GenerateMealPlan(ctx context.Context, req MealPlanRequest) MealPlan {
	var data map[string]any
	if res := c.call(ctx, "meal_plan", "/mealplanner/generate", req.values(), &data); res != nil {
		return MealPlan{Error: res.Message, Category: res.Category}
	}
	if data == nil {
		data = map[string]any{}
	}
	return MealPlan{Data: data}
}
