package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	assert.NotPanics(t, func() {
		Register()
		Register()
	})

	ObserveHTTP("GET /bookings/{bookingId}", 200, 15*time.Millisecond)
	ObserveHTTP("GET /bookings/{bookingId}", 200, 5*time.Millisecond)
	assert.Equal(t, 2.0, counterValue(t, httpRequests.WithLabelValues("GET /bookings/{bookingId}", "200")))

	before := counterValue(t, bookingTransitions.WithLabelValues("APPROVED"))
	IncBookingTransition("APPROVED")
	assert.Equal(t, before+1, counterValue(t, bookingTransitions.WithLabelValues("APPROVED")))

	beforeComments := counterValue(t, commentsCreated)
	IncComments()
	assert.Equal(t, beforeComments+1, counterValue(t, commentsCreated))
}
