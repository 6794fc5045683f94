// Package spoonacular serves canned Spoonacular responses for local runs and
// end-to-end tests. Only the three endpoints the planner calls are mocked.
package spoonacular

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ccastromar/aos-diet-planner/internal/logx"
)

// APIKeyParam is the query parameter Spoonacular authenticates with.
const APIKeyParam = "apiKey"

type mockRecipe struct {
	ID          int
	Title       string
	Summary     string
	Cuisine     string
	Diets       []string
	Ingredients []string
	Protein     float64
}

var recipes = []mockRecipe{
	{
		ID:          716429,
		Title:       "Pasta with Garlic, Scallions, Cauliflower & Breadcrumbs",
		Summary:     "A quick weeknight pasta with roasted cauliflower.",
		Cuisine:     "italian",
		Diets:       []string{"vegetarian"},
		Ingredients: []string{"pasta", "garlic", "scallions", "cauliflower", "breadcrumbs"},
		Protein:     19.3,
	},
	{
		ID:          715538,
		Title:       "Bruschetta Style Pork & Pasta",
		Summary:     "Pork tenderloin with tomato bruschetta over pasta.",
		Cuisine:     "italian",
		Ingredients: []string{"pork tenderloin", "pasta", "tomato", "basil"},
		Protein:     45,
	},
	{
		ID:          782601,
		Title:       "Red Kidney Bean Jambalaya",
		Summary:     "A vegan take on the Creole classic.",
		Cuisine:     "cajun",
		Diets:       []string{"vegetarian", "vegan"},
		Ingredients: []string{"kidney beans", "rice", "celery", "bell pepper"},
		Protein:     18,
	},
	{
		ID:          640941,
		Title:       "Crunchy Brussels Sprouts Side Dish",
		Cuisine:     "american",
		Diets:       []string{"vegetarian", "vegan", "gluten free"},
		Ingredients: []string{"brussels sprouts", "olive oil", "sea salt"},
		Protein:     4,
	},
}

// RegisterHandlers mounts the mock endpoints. Requests without a non-empty
// apiKey are rejected with 401 like the real API does.
func RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("GET /recipes/complexSearch", requireKey(http.HandlerFunc(complexSearch)))
	mux.Handle("GET /recipes/{id}/nutritionWidget.json", requireKey(http.HandlerFunc(nutritionWidget)))
	mux.Handle("GET /mealplanner/generate", requireKey(http.HandlerFunc(generateMealPlan)))
}

func requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logx.Debug("Mock", "%s %s", r.Method, r.URL.Path)
		if strings.TrimSpace(r.URL.Query().Get(APIKeyParam)) == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"status":  "failure",
				"code":    401,
				"message": "You are not authorized. Please read https://spoonacular.com/food-api/docs#Authentication",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func complexSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.ToLower(strings.TrimSpace(q.Get("query")))
	diet := strings.ToLower(strings.TrimSpace(q.Get("diet")))
	cuisine := strings.ToLower(strings.TrimSpace(q.Get("cuisine")))
	number, err := strconv.Atoi(q.Get("number"))
	if err != nil || number <= 0 {
		number = 10
	}

	results := []map[string]any{}
	for _, rec := range recipes {
		if len(results) == number {
			break
		}
		if query != "" && !matchesQuery(rec, query) {
			continue
		}
		if diet != "" && !contains(rec.Diets, diet) {
			continue
		}
		if cuisine != "" && rec.Cuisine != cuisine {
			continue
		}
		results = append(results, searchHit(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":      results,
		"offset":       0,
		"number":       number,
		"totalResults": len(results),
	})
}

func matchesQuery(rec mockRecipe, query string) bool {
	if strings.Contains(strings.ToLower(rec.Title), query) {
		return true
	}
	for _, ing := range rec.Ingredients {
		if strings.Contains(ing, query) {
			return true
		}
	}
	return false
}

func searchHit(rec mockRecipe) map[string]any {
	ings := make([]map[string]any, 0, len(rec.Ingredients))
	for _, name := range rec.Ingredients {
		ings = append(ings, map[string]any{"name": name})
	}
	hit := map[string]any{
		"id":    rec.ID,
		"title": rec.Title,
		"nutrition": map[string]any{
			"nutrients": []map[string]any{
				{"name": "Calories", "amount": 520, "unit": "kcal"},
				{"name": "Protein", "amount": rec.Protein, "unit": "g"},
			},
			"ingredients": ings,
		},
	}
	if rec.Summary != "" {
		hit["summary"] = rec.Summary
	}
	return hit
}

func nutritionWidget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "failure", "code": 400, "message": "invalid id"})
		return
	}
	for _, rec := range recipes {
		if rec.ID != id {
			continue
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"calories": "520",
			"protein":  strconv.FormatFloat(rec.Protein, 'f', -1, 64) + "g",
			"carbs":    "68g",
			"fat":      "14g",
			"nutrients": []map[string]any{
				{"name": "Sugar", "amount": 6.2, "unit": "g"},
			},
		})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]any{
		"status":  "failure",
		"code":    404,
		"message": "A recipe with the id " + strconv.Itoa(id) + " does not exist.",
	})
}

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func generateMealPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, _ := strconv.Atoi(q.Get("targetCalories"))
	if target <= 0 {
		target = 2000
	}

	day := dayPlan(target)
	if q.Get("timeFrame") != "week" {
		writeJSON(w, http.StatusOK, day)
		return
	}
	week := make(map[string]any, len(weekdays))
	for _, d := range weekdays {
		week[d] = dayPlan(target)
	}
	writeJSON(w, http.StatusOK, map[string]any{"week": week})
}

func dayPlan(target int) map[string]any {
	meals := make([]map[string]any, 0, 3)
	for _, rec := range recipes[:3] {
		meals = append(meals, map[string]any{
			"id":             rec.ID,
			"title":          rec.Title,
			"readyInMinutes": 30,
			"servings":       2,
			"sourceUrl":      "https://spoonacular.com/recipes/" + strconv.Itoa(rec.ID),
		})
	}
	return map[string]any{
		"meals": meals,
		"nutrients": map[string]any{
			"calories":      target,
			"protein":       float64(target) * 0.05,
			"fat":           float64(target) * 0.03,
			"carbohydrates": float64(target) * 0.12,
		},
	}
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
