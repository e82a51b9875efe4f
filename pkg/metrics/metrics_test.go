package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.JobEnqueued("send-email-confirmation")
	m.JobEnqueued("send-email-confirmation")
	m.JobProcessed("send-email-confirmation", "completed")
	m.Confirmation(ConfirmationConfirmed)
	m.ConfirmationsPurged(3)
	m.ConfirmationsPurged(0)
	m.RateLimited()
	m.ObserveHTTP("GET", "/health", 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobsEnqueued.WithLabelValues("send-email-confirmation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsProcessed.WithLabelValues("send-email-confirmation", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmations.WithLabelValues("confirmed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.confirmationsGone))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/health", "200")))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.JobEnqueued("q")
		m.JobProcessed("q", "failed")
		m.Confirmation(ConfirmationInvalid)
		m.ConfirmationsPurged(1)
		m.RateLimited()
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
	assert.NotNil(t, m.Handler())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.JobEnqueued("purge-email-confirmations")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `hacker_tracker_jobs_enqueued_total{queue="purge-email-confirmations"} 1`)
}
