package main

import (
	"flag"
	"net/http"

	"github.com/ccastromar/aos-diet-planner/internal/logx"
	mockSpoonacular "github.com/ccastromar/aos-diet-planner/internal/mocks/spoonacular"
)

var listenAndServe = http.ListenAndServe

func buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mockSpoonacular.RegisterHandlers(mux)
	return mux
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	logx.Info("Mock", "spoonacular mock listening on %s", *addr)
	if err := listenAndServe(*addr, buildMux()); err != nil {
		logx.Error("Mock", "server stopped: %v", err)
	}
}
