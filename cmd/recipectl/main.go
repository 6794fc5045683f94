// Command recipectl calls the Spoonacular client directly, without the HTTP
// service in front of it.
//
//	recipectl search -query pasta -diet vegetarian -max 3
//	recipectl nutrition -id 716429
//	recipectl mealplan -timeframe week -calories 1800 -exclude shellfish,olives
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ccastromar/aos-diet-planner/internal/spoonacular"
)

// recipeAPI is what the subcommands need from the client.
type recipeAPI interface {
	SearchRecipes(ctx context.Context, req spoonacular.SearchRequest) []spoonacular.Recipe
	NutritionInfo(ctx context.Context, recipeID int) spoonacular.NutritionInfo
	GenerateMealPlan(ctx context.Context, req spoonacular.MealPlanRequest) spoonacular.MealPlan
}

// newClient is swapped in tests.
var newClient = func(baseURL string, timeout time.Duration) (recipeAPI, error) {
	return spoonacular.New(spoonacular.NewEnvKey(),
		spoonacular.WithBaseURL(baseURL),
		spoonacular.WithTimeout(timeout),
	)
}

var errUsage = errors.New("usage: recipectl <search|nutrition|mealplan> [flags]")

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	baseURL := fs.String("base-url", os.Getenv("SPOONACULAR_BASE_URL"), "Spoonacular API base URL")
	timeout := fs.Duration("timeout", spoonacular.DefaultTimeout, "per-call timeout")

	var do func(recipeAPI) any
	switch cmd {
	case "search":
		query := fs.String("query", "", "free-text query")
		diet := fs.String("diet", "", "diet, e.g. vegetarian")
		intol := fs.String("intolerances", "", "comma-separated intolerances")
		cuisine := fs.String("cuisine", "", "cuisine, e.g. italian")
		maxResults := fs.Int("max", spoonacular.DefaultMaxResults, "maximum results")
		do = func(c recipeAPI) any {
			return c.SearchRecipes(ctx, spoonacular.SearchRequest{
				Query:        *query,
				Diet:         *diet,
				Intolerances: splitList(*intol),
				Cuisine:      *cuisine,
				MaxResults:   *maxResults,
			})
		}
	case "nutrition":
		id := fs.Int("id", 0, "recipe id")
		do = func(c recipeAPI) any { return c.NutritionInfo(ctx, *id) }
	case "mealplan":
		tf := fs.String("timeframe", spoonacular.TimeFrameDay, "day or week")
		cal := fs.Int("calories", 0, "target calories per day")
		diet := fs.String("diet", "", "diet")
		exclude := fs.String("exclude", "", "comma-separated ingredients to exclude")
		do = func(c recipeAPI) any {
			return c.GenerateMealPlan(ctx, spoonacular.MealPlanRequest{
				TimeFrame:      *tf,
				TargetCalories: *cal,
				Diet:           *diet,
				Exclude:        splitList(*exclude),
			})
		}
	default:
		return errUsage
	}

	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}

	client, err := newClient(*baseURL, *timeout)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(do(client))
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
