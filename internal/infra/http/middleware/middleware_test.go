package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

type staticSession struct{ s *entity.Session }

func (f staticSession) Current() *entity.Session { return f.s }

func TestRequireSession(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	RequireSession(staticSession{})(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_AUTHENTICATED")

	rec = httptest.NewRecorder()
	RequireSession(staticSession{&entity.Session{AccessToken: "a"}})(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/leads/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	before := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/leads/{id}", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/leads/abc", nil))
	after := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/leads/{id}", "418"))

	assert.Equal(t, before+1, after)
}

func TestPrometheusRecorder(t *testing.T) {
	rec := PrometheusRecorder{}

	before := counterValue(t, importRows.WithLabelValues("success"))
	rec.RecordImportBatch("success", 10)
	assert.Equal(t, before+10, counterValue(t, importRows.WithLabelValues("success")))

	rollbacks := counterValue(t, optimisticRollbacks.WithLabelValues("leads", "delete lead"))
	rec.RecordRollback("leads", "delete lead")
	assert.Equal(t, rollbacks+1, counterValue(t, optimisticRollbacks.WithLabelValues("leads", "delete lead")))
}
