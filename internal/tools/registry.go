// Package tools exposes the recipe operations as named tools declared in the
// YAML catalog, and records what each call produced in session state.
package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ccastromar/aos-diet-planner/internal/config"
	"github.com/ccastromar/aos-diet-planner/internal/guard"
	"github.com/ccastromar/aos-diet-planner/internal/llm"
	"github.com/ccastromar/aos-diet-planner/internal/logx"
	"github.com/ccastromar/aos-diet-planner/internal/metrics"
	"github.com/ccastromar/aos-diet-planner/internal/session"
	"github.com/ccastromar/aos-diet-planner/internal/spoonacular"
)

const NoRecipesMessage = "No recipes found matching your criteria."

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrInvalidArgs = errors.New("invalid arguments")
)

// RecipeAPI is the subset of the Spoonacular client the tools call.
type RecipeAPI interface {
	SearchRecipes(ctx context.Context, req spoonacular.SearchRequest) []spoonacular.Recipe
	NutritionInfo(ctx context.Context, recipeID int) spoonacular.NutritionInfo
	GenerateMealPlan(ctx context.Context, req spoonacular.MealPlanRequest) spoonacular.MealPlan
}

type Suggester interface {
	SuggestRecipes(ctx context.Context, req llm.SuggestRequest) ([]llm.SuggestedRecipe, error)
}

// HealthError records a failed nutrition lookup.
type HealthError struct {
	RecipeID int    `json:"recipe_id"`
	Error    string `json:"error"`
}

type Registry struct {
	tools     map[string]config.Tool
	recipes   RecipeAPI
	suggester Suggester
	store     session.Store
}

// NewRegistry binds the catalog to its back ends. suggest_recipes tools are
// left out when suggester is nil.
func NewRegistry(cfg *config.Config, recipes RecipeAPI, suggester Suggester, store session.Store) (*Registry, error) {
	if cfg == nil || recipes == nil || store == nil {
		return nil, errors.New("tools: config, recipe client and session store are required")
	}
	r := &Registry{
		tools:     make(map[string]config.Tool, len(cfg.Tools)),
		recipes:   recipes,
		suggester: suggester,
		store:     store,
	}
	for name, t := range cfg.Tools {
		if err := guard.ValidateToolMode(t); err != nil {
			return nil, err
		}
		if t.Operation == config.OpSuggestRecipes && suggester == nil {
			logx.Info("Tools", "skipping %s: no LLM provider configured", name)
			continue
		}
		r.tools[name] = t
	}
	return r, nil
}

// Catalog returns the exposed tools sorted by name.
func (r *Registry) Catalog() []config.Tool {
	c := config.Config{Tools: r.tools}
	return c.SortedTools()
}

// Execute runs tool name with JSON arguments raw. State is recorded under
// sessionID when it is non-empty. Upstream failures are not errors: they come
// back as the operation's failure record.
func (r *Registry) Execute(ctx context.Context, sessionID, name string, raw []byte) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		metrics.ToolCalls.WithLabelValues("unknown", "invalid").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if t.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	tm := logx.Start(sessionID, "Tools", name)
	var (
		out    any
		status string
		err    error
	)
	switch t.Operation {
	case config.OpSearchRecipes:
		out, status, err = r.search(ctx, sessionID, raw)
	case config.OpNutritionInfo:
		out, status, err = r.nutrition(ctx, sessionID, raw)
	case config.OpMealPlan:
		out, status, err = r.mealPlan(ctx, sessionID, raw)
	case config.OpSuggestRecipes:
		out, status, err = r.suggest(ctx, sessionID, raw)
	default:
		err = fmt.Errorf("tool %s: unsupported operation %q", name, t.Operation)
		status = "error"
	}
	elapsed := tm.End()

	metrics.ToolCalls.WithLabelValues(name, status).Inc()
	ev := session.Event{Tool: name, Kind: status, Duration: elapsed.String()}
	if err != nil {
		ev.Message = err.Error()
	}
	r.record(ctx, sessionID, func(ctx context.Context) error {
		return r.store.AddEvent(ctx, sessionID, ev)
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// record writes session state. Storage failures are logged and do not fail
// the tool call.
func (r *Registry) record(ctx context.Context, sessionID string, write func(context.Context) error) {
	if sessionID == "" {
		return
	}
	// the tool deadline may already be spent
	ctx = context.WithoutCancel(ctx)
	if err := write(ctx); err != nil {
		logx.Warn("Tools", "session %s: state write failed: %v", sessionID, err)
	}
}

func (r *Registry) set(ctx context.Context, sessionID, key string, value any) {
	r.record(ctx, sessionID, func(ctx context.Context) error {
		return r.store.Set(ctx, sessionID, key, value)
	})
}

func (r *Registry) search(ctx context.Context, sessionID string, raw []byte) (any, string, error) {
	var args searchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "invalid", err
	}
	f := args.filters()

	recipes := r.recipes.SearchRecipes(ctx, spoonacular.SearchRequest{
		Query:        f.Query,
		Diet:         f.Diet,
		Intolerances: f.Intolerances,
		Cuisine:      f.Cuisine,
		MaxResults:   args.MaxResults,
	})
	r.set(ctx, sessionID, session.KeyRecipes, recipes)
	if len(recipes) == 0 {
		r.set(ctx, sessionID, session.KeyFinderError, NoRecipesMessage)
		return recipes, "soft_error", nil
	}
	return recipes, "ok", nil
}

func (r *Registry) nutrition(ctx context.Context, sessionID string, raw []byte) (any, string, error) {
	var args nutritionArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "invalid", err
	}
	id := int(args.RecipeID)

	info := r.recipes.NutritionInfo(ctx, id)
	r.set(ctx, sessionID, session.NutritionKey(id), info)
	if !info.Failed() {
		return info, "ok", nil
	}

	r.record(ctx, sessionID, func(ctx context.Context) error {
		return r.store.Append(ctx, sessionID, session.KeyHealthErrors, HealthError{RecipeID: id, Error: info.Error})
	})
	return info, "soft_error", nil
}

func (r *Registry) mealPlan(ctx context.Context, sessionID string, raw []byte) (any, string, error) {
	var args mealPlanArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "invalid", err
	}

	plan := r.recipes.GenerateMealPlan(ctx, spoonacular.MealPlanRequest{
		TimeFrame:      args.TimeFrame,
		TargetCalories: args.TargetCalories,
		Diet:           args.Diet,
		Exclude:        args.Exclude,
	})
	r.set(ctx, sessionID, session.KeyMealPlan, plan)
	if plan.Failed() {
		r.set(ctx, sessionID, session.KeyFinderError, plan.Error)
		return plan, "soft_error", nil
	}
	return plan, "ok", nil
}

func (r *Registry) suggest(ctx context.Context, sessionID string, raw []byte) (any, string, error) {
	var args suggestArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "invalid", err
	}

	recipes, err := r.suggester.SuggestRecipes(ctx, llm.SuggestRequest{
		Query:        args.Query,
		Diet:         args.Diet,
		Intolerances: args.Intolerances,
		Cuisine:      args.Cuisine,
		MaxResults:   args.MaxResults,
	})
	if err != nil {
		logx.Error("Tools", "suggest_recipes: %v", err)
		return nil, "error", fmt.Errorf("recipe suggestions unavailable: %w", err)
	}
	r.set(ctx, sessionID, session.KeySuggestedRecipes, recipes)
	if len(recipes) == 0 {
		r.set(ctx, sessionID, session.KeyFinderError, NoRecipesMessage)
		return recipes, "soft_error", nil
	}
	return recipes, "ok", nil
}
