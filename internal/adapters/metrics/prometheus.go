package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptloop_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptloop_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptloop_messages_total",
		Help: "Total messages persisted to the conversation ledger",
	}, []string{"role"})

	ChatRepliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptloop_chat_replies_total",
		Help: "Chat turns by outcome",
	}, []string{"outcome"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptloop_llm_requests_total",
		Help: "Total LLM requests",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptloop_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"model"})

	LLMRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptloop_llm_retries_total",
		Help: "LLM request retries",
	}, []string{"model"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "promptloop_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half open)",
	}, []string{"name"})

	EvolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptloop_evolutions_total",
		Help: "Evolution runs by trigger and outcome",
	}, []string{"triggered_by", "outcome"})

	EvolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promptloop_evolution_duration_seconds",
		Help:    "Evolution run duration",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120},
	})

	EvolutionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "promptloop_evolutions_in_flight",
		Help: "Detached evolution runs currently executing",
	})

	ValidationRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptloop_validation_rejections_total",
		Help: "Candidate prompts rejected by the policy gate",
	}, []string{"rule"})

	PayloadTruncationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptloop_payload_truncations_total",
		Help: "LLM input fields cut by the payload guard",
	}, []string{"field"})

	ActivePromptVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "promptloop_active_prompt_version",
		Help: "Version number of the active system prompt",
	})
)
