package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrument_CountsStatus(t *testing.T) {
	h := Instrument("/api/v1/test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/v1/test", http.MethodGet, "403"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/test", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/v1/test", http.MethodGet, "403")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	InforEAMCalls.WithLabelValues("read_equipment", "ok").Inc()

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "irrad_infoream_calls_total"))
}
