package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdirToRepoRoot ensures relative paths like "definitions/..." resolve during tests
func chdirToRepoRoot(t *testing.T) {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	// internal/config/config_test.go -> repo root is two levels up
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "../.."))
	wd, _ := os.Getwd()
	if err := os.Chdir(root); err != nil {
		t.Fatalf("chdir to repo root: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeTools(t *testing.T, body string) string {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "tools"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "tools", "x.yaml"), []byte(body), 0o644))
	return base
}

func TestLoadFromDir_Success(t *testing.T) {
	chdirToRepoRoot(t)
	cfg, err := LoadFromDir("definitions")
	if err != nil {
		t.Fatalf("LoadFromDir returned error: %v", err)
	}

	search, ok := cfg.Tools["recipes.search"]
	if !ok {
		t.Fatalf("expected tool recipes.search to be loaded")
	}
	if search.Operation != OpSearchRecipes || search.Mode != "read" || search.TimeoutMs != 10000 {
		t.Fatalf("unexpected tool fields: %+v", search)
	}

	nut := cfg.Tools["recipes.nutrition"]
	require.Len(t, nut.Params, 1)
	require.Equal(t, "recipe_id", nut.Params[0].Name)
	require.True(t, nut.Params[0].Required)

	ops := map[string]bool{}
	for _, tool := range cfg.Tools {
		ops[tool.Operation] = true
	}
	for op := range knownOps {
		require.True(t, ops[op], "operation %s has no tool", op)
	}
}

func TestLoadFromDir_NotFound(t *testing.T) {
	chdirToRepoRoot(t)
	if _, err := LoadFromDir("non-existent-dir-12345"); err == nil {
		t.Fatalf("expected error when loading from non-existent dir")
	}
}

func TestLoadFromDir_RejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"unknown operation": "tools:\n  - name: a\n    operation: launch_rockets\n",
		"missing name":      "tools:\n  - operation: meal_plan\n",
		"duplicate":         "tools:\n  - name: a\n    operation: meal_plan\n  - name: a\n    operation: nutrition_info\n",
		"bad yaml":          "tools: [",
		"empty":             "tools: []\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromDir(writeTools(t, body))
			require.Error(t, err)
		})
	}
}

func TestSortedTools(t *testing.T) {
	cfg, err := LoadFromDir(writeTools(t, "tools:\n  - name: b\n    operation: meal_plan\n  - name: a\n    operation: nutrition_info\n"))
	require.NoError(t, err)
	sorted := cfg.SortedTools()
	require.Equal(t, "a", sorted[0].Name)
	require.Equal(t, "b", sorted[1].Name)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SPOONACULAR_API_KEY", "k")
	t.Setenv("LLM_PROVIDER", "")

	env, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "k", env.SpoonacularAPIKey)
	require.Equal(t, "https://api.spoonacular.com", env.SpoonacularBaseURL)
	require.Equal(t, "10s", env.SpoonacularTimeout.String())
	require.Equal(t, "none", env.LLMProvider)
	require.Equal(t, "memory", env.SessionBackend)
	require.Equal(t, 8080, env.Port)
}

func TestLoadEnv_RequiresSpoonacularKey(t *testing.T) {
	t.Setenv("SPOONACULAR_API_KEY", "")
	_, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "SPOONACULAR_API_KEY")
}

func TestLoadEnv_DotEnvFile(t *testing.T) {
	t.Setenv("SPOONACULAR_API_KEY", "")
	os.Unsetenv("SPOONACULAR_API_KEY")
	t.Setenv("SESSION_BACKEND", "bolt")

	f := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(f, []byte("SPOONACULAR_API_KEY=from-file\nSESSION_BACKEND=redis\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SPOONACULAR_API_KEY") })

	env, err := LoadEnv(f)
	require.NoError(t, err)
	require.Equal(t, "from-file", env.SpoonacularAPIKey)
	require.Equal(t, "bolt", env.SessionBackend, "process env wins over .env")
}

func TestLoadEnv_Validation(t *testing.T) {
	t.Setenv("SPOONACULAR_API_KEY", "k")
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "")
	_, err := LoadEnv(missing)
	require.ErrorContains(t, err, "LLM_API_KEY")

	t.Setenv("LLM_PROVIDER", "carrier-pigeon")
	_, err = LoadEnv(missing)
	require.ErrorContains(t, err, "LLM_PROVIDER")

	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("SESSION_BACKEND", "etcd")
	_, err = LoadEnv(missing)
	require.ErrorContains(t, err, "SESSION_BACKEND")

	t.Setenv("SESSION_BACKEND", "memory")
	env, err := LoadEnv(missing)
	require.NoError(t, err)
	require.Equal(t, "ollama", env.LLMProvider)
}
