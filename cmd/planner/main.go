package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ccastromar/aos-diet-planner/internal/app"
	"github.com/ccastromar/aos-diet-planner/internal/config"
	"github.com/ccastromar/aos-diet-planner/internal/logx"
)

// runner is the minimal interface our app must satisfy for running.
type runner interface{ Run(context.Context) error }

// appCtor is a constructor indirection to enable testing without launching the real app.
var appCtor = func(env *config.EnvVars) (runner, error) { return app.New(env) }

// loadEnv is swapped in tests so they do not depend on the process environment.
var loadEnv = config.LoadEnv

// fatalf indirection allows testing fatal paths without exiting the test process.
var fatalf = log.Fatalf

func run(ctx context.Context, envFile string, port int) {
	env, err := loadEnv(envFile)
	if err != nil {
		fatalf("error loading configuration: %v", err)
		return
	}
	if port > 0 {
		env.Port = port
	}

	if err := logx.Init(logx.Config{Level: env.LogLevel, Format: env.LogFormat}); err != nil {
		fatalf("error initializing logger: %v", err)
		return
	}
	defer logx.Sync()

	a, err := appCtor(env)
	if err != nil {
		fatalf("error initializing app: %v", err)
		return
	}
	if err := a.Run(ctx); err != nil {
		fatalf("error running app: %v", err)
		return
	}
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides PORT)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	run(ctx, *envFile, *port)
}
