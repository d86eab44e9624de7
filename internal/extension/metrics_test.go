package extension

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signalstore/internal/engine"
)

func TestMetrics_CountsActionsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := setupStore(t, Metrics(reg))
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(1)))
	dispatch(t, s, setState(2))
	dispatch(t, s, setState(3))

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	var observed uint64
	var features float64
	for _, mf := range families {
		switch mf.GetName() {
		case "signalstore_actions_total":
			for _, m := range mf.GetMetric() {
				counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
			}
		case "signalstore_reduce_duration_seconds":
			observed = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		case "signalstore_features":
			features = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}

	assert.Equal(t, map[string]float64{"init": 1, "set-state": 2}, counts)
	assert.Equal(t, uint64(3), observed)
	assert.Equal(t, float64(1), features)
}
