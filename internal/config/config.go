package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operations a tool may bind to.
const (
	OpSearchRecipes  = "search_recipes"
	OpNutritionInfo  = "nutrition_info"
	OpMealPlan       = "meal_plan"
	OpSuggestRecipes = "suggest_recipes"
)

var knownOps = map[string]bool{
	OpSearchRecipes:  true,
	OpNutritionInfo:  true,
	OpMealPlan:       true,
	OpSuggestRecipes: true,
}

type Param struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"` // string, integer, array, object
	Description string `yaml:"description" json:"description,omitempty"`
	Required    bool   `yaml:"required" json:"required,omitempty"`
}

type Tool struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Operation   string  `yaml:"operation" json:"operation"`
	Mode        string  `yaml:"mode" json:"mode"` // read only for now
	TimeoutMs   int     `yaml:"timeout" json:"timeout_ms,omitempty"`
	Params      []Param `yaml:"params" json:"params,omitempty"`
}

type Config struct {
	Tools map[string]Tool
}

// SortedTools returns the catalog ordered by name.
func (c *Config) SortedTools() []Tool {
	out := make([]Tool, 0, len(c.Tools))
	for _, t := range c.Tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func LoadFromDir(base string) (*Config, error) {
	cfg := &Config{
		Tools: make(map[string]Tool),
	}
	if err := loadToolsDir(filepath.Join(base, "tools"), cfg); err != nil {
		return nil, err
	}
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("no tools declared under %s", base)
	}
	return cfg, nil
}

func loadToolsDir(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading tools dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var raw struct {
			Tools []Tool `yaml:"tools"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		for _, t := range raw.Tools {
			if err := t.check(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if _, dup := cfg.Tools[t.Name]; dup {
				return fmt.Errorf("%s: duplicate tool %q", path, t.Name)
			}
			cfg.Tools[t.Name] = t
		}
	}
	return nil
}

func (t Tool) check() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tool without name")
	}
	if !knownOps[t.Operation] {
		return fmt.Errorf("tool %q: unknown operation %q", t.Name, t.Operation)
	}
	return nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
