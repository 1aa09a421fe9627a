package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments one bridge instance. The env label distinguishes
// multiple environments registered on the same Registerer.
type Metrics struct {
	Steps          prometheus.Counter
	Episodes       prometheus.Counter
	StepTimeouts   prometheus.Counter
	DecodeFailures prometheus.Counter
	WaitSeconds    prometheus.Histogram
}

// NewMetrics registers and returns bridge metrics on reg
func NewMetrics(reg prometheus.Registerer, env string) *Metrics {
	labels := prometheus.Labels{"environment": env}
	factory := promauto.With(reg)

	return &Metrics{
		Steps: factory.NewCounter(prometheus.CounterOpts{
			Name:        "roboenv_steps_total",
			Help:        "Completed environment steps.",
			ConstLabels: labels,
		}),
		Episodes: factory.NewCounter(prometheus.CounterOpts{
			Name:        "roboenv_episodes_total",
			Help:        "Episodes begun by reset.",
			ConstLabels: labels,
		}),
		StepTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name:        "roboenv_step_timeouts_total",
			Help:        "Steps that timed out waiting for an observation.",
			ConstLabels: labels,
		}),
		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name:        "roboenv_decode_failures_total",
			Help:        "Inbound messages dropped because they failed to decode.",
			ConstLabels: labels,
		}),
		WaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "roboenv_observation_wait_seconds",
			Help:        "Time spent blocked waiting for a fresh observation.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}
