package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/orders", "GET", 200, time.Millisecond)
	m.RecordRequest("/api/orders", "GET", 200, time.Millisecond)
	m.RecordError("/api/orders", "POST", "VALIDATION_FAILED")
	m.RecordDecision("/admin", "deny")
	m.RecordPush("delivered")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap["requests"]["/api/orders|GET|200"])
	assert.Equal(t, int64(1), snap["errors"]["/api/orders|POST|VALIDATION_FAILED"])
	assert.Equal(t, int64(1), snap["decisions"]["/admin|deny"])
	assert.Equal(t, int64(1), snap["push"]["delivered"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordDecision("/", "allow")
	assert.Nil(t, m.Snapshot())
}
