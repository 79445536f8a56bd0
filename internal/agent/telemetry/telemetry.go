package telemetry

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/novachat/nova/config"
)

// Telemetry records plan, step and model-call metrics. A disabled instance
// keeps all methods callable as no-ops.
type Telemetry struct {
	enabled bool
	logger  *log.Logger

	planRuns        *prometheus.CounterVec
	stepExecutions  *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	llmCalls        *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
	streamFragments prometheus.Counter
}

// NewTelemetry creates a telemetry instance registered on the default
// prometheus registry.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		enabled: cfg.Enabled,
		logger:  log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
	}
	if !cfg.Enabled {
		return t
	}

	t.planRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "plan_runs_total",
		Help:      "Plan runs by final state.",
	}, []string{"state"})
	t.stepExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "step_executions_total",
		Help:      "Executed plan steps by tool and status.",
	}, []string{"tool", "status"})
	t.stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nova",
		Name:      "step_duration_seconds",
		Help:      "Tool step execution time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})
	t.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "llm_calls_total",
		Help:      "Model calls by purpose and outcome.",
	}, []string{"purpose", "outcome"})
	t.llmDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nova",
		Name:      "llm_call_duration_seconds",
		Help:      "Model call latency.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"purpose"})
	t.streamFragments = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nova",
		Name:      "stream_fragments_total",
		Help:      "Fragments emitted to clients.",
	})

	for _, c := range []prometheus.Collector{
		t.planRuns, t.stepExecutions, t.stepDuration, t.llmCalls, t.llmDuration, t.streamFragments,
	} {
		if err := prometheus.Register(c); err != nil {
			// duplicate registration happens in tests that build several instances
			t.logger.Printf("metric registration skipped: %v", err)
		}
	}
	return t
}

// RecordPlanRun records the final state of one plan run.
func (t *Telemetry) RecordPlanRun(state string) {
	if !t.enabled || t.planRuns == nil {
		return
	}
	t.planRuns.WithLabelValues(state).Inc()
}

// RecordStepExecution records one executed step.
func (t *Telemetry) RecordStepExecution(tool, status string, elapsed time.Duration) {
	if !t.enabled || t.stepExecutions == nil {
		return
	}
	t.stepExecutions.WithLabelValues(tool, status).Inc()
	t.stepDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordLLMCall records one model call.
func (t *Telemetry) RecordLLMCall(purpose, outcome string, elapsed time.Duration) {
	if !t.enabled || t.llmCalls == nil {
		return
	}
	t.llmCalls.WithLabelValues(purpose, outcome).Inc()
	t.llmDuration.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

// RecordStreamFragment counts one fragment sent to a client.
func (t *Telemetry) RecordStreamFragment() {
	if !t.enabled || t.streamFragments == nil {
		return
	}
	t.streamFragments.Inc()
}
