// Package app wires the recipe client, tool registry, session store and HTTP
// surface into one process.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ccastromar/aos-diet-planner/internal/config"
	"github.com/ccastromar/aos-diet-planner/internal/llm"
	"github.com/ccastromar/aos-diet-planner/internal/logx"
	"github.com/ccastromar/aos-diet-planner/internal/runtime"
	"github.com/ccastromar/aos-diet-planner/internal/session"
	"github.com/ccastromar/aos-diet-planner/internal/spoonacular"
	"github.com/ccastromar/aos-diet-planner/internal/tools"
)

const version = "0.3.0"

type App struct {
	cfg     *config.Config
	recipes *spoonacular.Client
	llm     llm.LLMClient
	store   session.Store
	tools   *tools.Registry
	rt      *runtime.Runtime
	http    *HTTPServer
}

func New(env *config.EnvVars) (*App, error) {
	cfg, err := config.LoadFromDir(env.DefinitionsDir)
	if err != nil {
		return nil, err
	}

	recipes, err := spoonacular.New(
		spoonacular.StaticKey(env.SpoonacularAPIKey),
		spoonacular.WithBaseURL(env.SpoonacularBaseURL),
		spoonacular.WithTimeout(env.SpoonacularTimeout),
	)
	if err != nil {
		return nil, err
	}

	llmClient, err := newLLMClient(env)
	if err != nil {
		return nil, err
	}

	store, err := newSessionStore(env)
	if err != nil {
		return nil, err
	}

	var suggester tools.Suggester
	if llmClient != nil {
		suggester = llm.NewRecipeSuggester(llmClient)
	}
	registry, err := tools.NewRegistry(cfg, recipes, suggester, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rt := &runtime.Runtime{
		CatalogLoaded: true,
		RecipesReady:  true,
		LLMClient:     llmClient,
	}

	api := NewToolAPI(registry, store, env.APIKey, newClientLimiter(env.RateLimitRPS, env.RateLimitBurst))
	httpServer := NewHTTPServer(api, rt, ServerOptions{
		Port:         env.Port,
		ReadTimeout:  env.ReadTimeout,
		WriteTimeout: env.WriteTimeout,
	})

	return &App{
		cfg:     cfg,
		recipes: recipes,
		llm:     llmClient,
		store:   store,
		tools:   registry,
		rt:      rt,
		http:    httpServer,
	}, nil
}

// newLLMClient returns nil when no provider is configured.
func newLLMClient(env *config.EnvVars) (llm.LLMClient, error) {
	switch env.LLMProvider {
	case "", "none":
		return nil, nil
	case "openai":
		c := llm.NewOpenAIClient(env.LLMBaseURL, env.LLMApiKey, env.LLMModel)
		if env.LLMTimeout > 0 {
			c.Timeout = env.LLMTimeout
			c.HTTP.Timeout = env.LLMTimeout
		}
		return c, nil
	case "ollama":
		c := llm.NewOllamaClient(env.OllamaBaseURL, env.OllamaModel)
		if env.LLMTimeout > 0 {
			c.Timeout = env.LLMTimeout
			c.HTTPClient.Timeout = env.LLMTimeout
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", env.LLMProvider)
	}
}

func newSessionStore(env *config.EnvVars) (session.Store, error) {
	switch env.SessionBackend {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "bolt":
		return session.NewBoltStore(env.SessionBoltPath)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return session.NewRedisStore(ctx, &redis.Options{Addr: env.RedisAddr}, env.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", env.SessionBackend)
	}
}

// Handler returns the fully wrapped HTTP handler without binding a port.
func (a *App) Handler() http.Handler {
	return a.http.srv.Handler
}

// Close releases the session store. Run does this on its own when it returns.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.http.Start(gctx)
	})

	if a.rt.HasLLM() {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, 10*time.Second)
			defer cancel()
			if err := a.llm.Ping(pctx); err != nil {
				logx.Warn("App", "LLM provider not reachable yet: %v", err)
			}
			return nil
		})
	}

	if a.tools != nil {
		logx.Info("App", "diet planner v%s started (%d tools)", version, len(a.tools.Catalog()))
	}

	err := g.Wait()
	if cerr := a.Close(); cerr != nil {
		logx.Warn("App", "closing session store: %v", cerr)
	}
	return err
}
