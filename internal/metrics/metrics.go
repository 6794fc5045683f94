package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global metrics we care about
var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_http_request_seconds",
		Help:    "HTTP request duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// outcome=ok|timeout|http_error|connection_error|unexpected
	UpstreamCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_spoonacular_calls_total",
		Help: "Spoonacular API calls by operation and outcome",
	}, []string{"operation", "outcome"})
	UpstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_spoonacular_call_seconds",
		Help:    "Spoonacular API call duration seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	ToolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_tool_calls_total",
		Help: "Tool invocations by tool and status",
	}, []string{"tool", "status"}) // status=ok|soft_error|invalid|error

	LLMPings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_llm_pings_total",
		Help: "LLM Ping calls",
	}, []string{"provider", "outcome"})
	LLMChats = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_llm_chats_total",
		Help: "LLM Chat calls",
	}, []string{"provider", "outcome"})
	LLMChatDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_llm_chat_seconds",
		Help:    "LLM Chat duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests, HTTPDuration,
		UpstreamCalls, UpstreamDuration,
		ToolCalls,
		LLMPings, LLMChats, LLMChatDur,
	)
}

// Handler exposes all metrics in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
