package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(MigrationFallbacksTotal.WithLabelValues("rebuild"))
	MigrationFallbacksTotal.WithLabelValues("rebuild").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(MigrationFallbacksTotal.WithLabelValues("rebuild")))
}

func TestHandlerServesNamespacedMetrics(t *testing.T) {
	SalesOrdersCreatedTotal.Add(0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "pos_sales_orders_created_total"))
}
