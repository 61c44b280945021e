package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/stats"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.ObserveCreate(time.Millisecond, nil)
	m.ObserveCreate(time.Millisecond, nil)
	m.ObserveCreate(time.Millisecond, errors.Wrap(customerrors.ErrClockRegression, "next id"))
	m.ObserveResolve(time.Millisecond, true, nil)
	m.ObserveResolve(time.Millisecond, false, nil)
	m.ObserveResolve(time.Millisecond, false, nil)
	m.ObserveResolve(time.Millisecond, false, customerrors.ErrNotFound)
	m.CacheError("get")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queried.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queried.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("clock_regression", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("not_found", "resolve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("cache_unavailable", "get")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.createDuration))
}

func TestMetricsRecordSample(t *testing.T) {
	m := NewMetrics()
	var sink stats.Sink = m

	sink.Record(stats.Sample{CreateQPS: 1.5, ResolveQPS: 12, Links: 40})
	assert.Equal(t, 1.5, testutil.ToFloat64(m.createQPS))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.resolveQPS))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.links))

	// an unknown link count leaves the gauge alone
	sink.Record(stats.Sample{Links: -1})
	assert.Equal(t, 40.0, testutil.ToFloat64(m.links))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveCreate(time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "shorturl_created_total 1"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
