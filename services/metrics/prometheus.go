package metricsvc

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/academia/core/access"
)

const namespace = "academia"

// Recorder counts access state transitions and security check results.
type Recorder struct {
	transitions *prometheus.CounterVec
	checks      *prometheus.CounterVec
}

var _ access.Observer = (*Recorder)(nil)

// NewRecorder registers the access metrics on `reg`.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "transitions_total",
			Help:      "Access attempt state transitions, by target state and trigger.",
		}, []string{"to", "trigger"}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "checks_total",
			Help:      "Security check results, by check.",
		}, []string{"check", "passed"}),
	}
}

func (r *Recorder) StateChanged(_, to access.State, trigger string) {
	r.transitions.WithLabelValues(string(to), trigger).Inc()
}

func (r *Recorder) CheckEvaluated(check access.Check, passed bool) {
	r.checks.WithLabelValues(string(check), strconv.FormatBool(passed)).Inc()
}

// RegisterLiveAttempts exposes the number of live access attempts as reported by `count`.
func RegisterLiveAttempts(reg prometheus.Registerer, count func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "access",
		Name:      "live_attempts",
		Help:      "Access attempts currently tracked.",
	}, func() float64 { return float64(count()) })
}
