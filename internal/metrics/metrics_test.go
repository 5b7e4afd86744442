package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRunCounters(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues("error"))
	RunFailed()
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues("error")))

	RunSucceeded(5, 2, 3)
	assert.Equal(t, 5.0, testutil.ToFloat64(eventsSelected.WithLabelValues("total")))
	assert.Equal(t, 2.0, testutil.ToFloat64(eventsSelected.WithLabelValues("weekly")))
	assert.Equal(t, 3.0, testutil.ToFloat64(eventsSelected.WithLabelValues("other")))
	assert.Greater(t, testutil.ToFloat64(lastSuccess), 0.0)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/7", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
