package runtime

import (
	"github.com/ccastromar/aos-diet-planner/internal/llm"
)

// Runtime is the readiness view of the wired service. LLMClient is nil when
// no provider is configured.
type Runtime struct {
	CatalogLoaded bool
	RecipesReady  bool
	LLMClient     llm.LLMClient
}

func (rt *Runtime) HasLLM() bool {
	return rt != nil && rt.LLMClient != nil
}
