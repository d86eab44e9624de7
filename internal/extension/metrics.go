package extension

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

// MetricsExtension exports action counts and reduction latency.
type MetricsExtension struct {
	base
	actions  *prometheus.CounterVec
	duration prometheus.Histogram
	features prometheus.Gauge
}

// Metrics creates the metrics extension and registers its collectors with reg.
func Metrics(reg prometheus.Registerer) *MetricsExtension {
	f := promauto.With(reg)
	return &MetricsExtension{
		base: newBase(MetricsID, engine.SortOrderDefault),
		// Labels: "user", "init", "destroy", "set-state", "undo"
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signalstore_actions_total",
			Help: "Total reduced actions by kind",
		}, []string{"kind"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalstore_reduce_duration_seconds",
			Help:    "Duration of one pass through the reducer pipeline",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		features: f.NewGauge(prometheus.GaugeOpts{
			Name: "signalstore_features",
			Help: "Number of feature slices in the current state",
		}),
	}
}

// Middleware returns the instrumenting middleware.
func (e *MetricsExtension) Middleware() engine.Middleware {
	return engine.MiddlewareFunc(func(state engine.AppState, a ir.Action, next engine.RootReducer) engine.AppState {
		start := time.Now()
		out := next(state, a)
		e.duration.Observe(time.Since(start).Seconds())
		e.actions.WithLabelValues(a.Meta.Kind.String()).Inc()
		e.features.Set(float64(len(out)))
		return out
	})
}
