// Package session keeps per-session tool state: named values written by tool
// executions (found recipes, nutrition records, the meal plan) and a timeline
// of executed tools.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// State keys written by the tool registry.
const (
	KeyRecipes          = "recipes"
	KeyHealthErrors     = "health_errors"
	KeyMealPlan         = "meal_plan"
	KeyFinderError      = "finder_error"
	KeySuggestedRecipes = "suggested_recipes"
)

// NutritionKey is the state key of the nutrition record of one recipe.
func NutritionKey(recipeID int) string {
	return fmt.Sprintf("nutrition:%d", recipeID)
}

var ErrNotFound = errors.New("session not found")

type Event struct {
	Time     time.Time `json:"time"`
	Tool     string    `json:"tool"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message,omitempty"`
	Duration string    `json:"duration,omitempty"`
}

// State is a point-in-time copy of one session.
type State struct {
	ID     string                     `json:"id"`
	Values map[string]json.RawMessage `json:"values"`
	Events []Event                    `json:"events"`
}

// Store persists session state. Values are stored JSON-encoded, so Get
// decodes into out the same way regardless of the back end.
type Store interface {
	Set(ctx context.Context, id, key string, value any) error
	// Get reports false when the session or key is absent.
	Get(ctx context.Context, id, key string, out any) (bool, error)
	// Append adds item to the JSON array stored under key, creating it when
	// absent. Concurrent appends to the same key are never lost.
	Append(ctx context.Context, id, key string, item any) error
	AddEvent(ctx context.Context, id string, ev Event) error
	// Snapshot returns ErrNotFound for unknown sessions.
	Snapshot(ctx context.Context, id string) (State, error)
	Close() error
}

func encode(value any) (json.RawMessage, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding session value: %w", err)
	}
	return b, nil
}

func decode(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding session value: %w", err)
	}
	return nil
}

// appendItem returns list with item added. An empty list starts a new array.
func appendItem(list []byte, item json.RawMessage) (json.RawMessage, error) {
	var items []json.RawMessage
	if len(list) > 0 {
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, fmt.Errorf("session value is not a list: %w", err)
		}
	}
	return json.Marshal(append(items, item))
}

func stamp(ev Event) Event {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	return ev
}

func checkID(id string) error {
	if id == "" {
		return errors.New("empty session id")
	}
	return nil
}
