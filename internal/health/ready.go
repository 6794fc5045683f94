package health

import (
	"net/http"

	"github.com/ccastromar/aos-diet-planner/internal/logx"
	"github.com/ccastromar/aos-diet-planner/internal/runtime"
)

// ReadyHandler reports 503 until the catalog and recipe client are wired,
// and while a configured LLM provider is unreachable. Spoonacular itself is
// not probed: every call spends quota.
func ReadyHandler(rt *runtime.Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rt.CatalogLoaded {
			http.Error(w, "tool catalog not loaded", http.StatusServiceUnavailable)
			return
		}
		if !rt.RecipesReady {
			http.Error(w, "recipe client not ready", http.StatusServiceUnavailable)
			return
		}
		if rt.HasLLM() {
			if err := rt.LLMClient.Ping(r.Context()); err != nil {
				logx.Warn("Health", "llm ping failed: %v", err)
				http.Error(w, "llm unreachable", http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
