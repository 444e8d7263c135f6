package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/gas-service-portal/internal/domain"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/service-requests", "POST", 201, 10*time.Millisecond)
	m.RecordRequest("/service-requests", "POST", 201, 20*time.Millisecond)
	m.RecordError("/service-requests/all", "GET", "FORBIDDEN")
	m.RequestCreated(domain.RequestTypeGasLeak, domain.RequestPriorityUrgent)
	m.StatusChanged(domain.RequestStatusResolved)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/service-requests", "POST", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpErrors.WithLabelValues("/service-requests/all", "GET", "FORBIDDEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsCreated.WithLabelValues("gas_leak", "urgent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("resolved")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RequestCreated(domain.RequestTypeOther, domain.RequestPriorityLow)
		m.StatusChanged(domain.RequestStatusNew)
	})
}
