package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegister_ReusesExisting(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := Register(reg, NewNotifyRetriesTotal())
	require.NoError(t, err)
	first.Inc()

	second, err := Register(reg, NewNotifyRetriesTotal())
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(second))
}

func TestRegister_VecReusesExisting(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := Register(reg, NewSweepOutcomesTotal())
	require.NoError(t, err)
	first.WithLabelValues("awarded").Inc()

	second, err := Register(reg, NewSweepOutcomesTotal())
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(second.WithLabelValues("awarded")))
}

func TestRegister_ConflictingDescriptor(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := Register(reg, NewAutoBidsTotal())
	require.NoError(t, err)

	clash := prometheus.NewCounter(prometheus.CounterOpts{Name: "auto_bids_placed_total", Help: "different help"})
	_, err = Register(reg, clash)
	require.Error(t, err)
}
