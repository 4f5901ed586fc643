package metrics

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	result "github.com/cloud-bulldozer/graph-crudperf/pkg/results"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/sample"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResults() result.ScenarioResults {
	now := time.Now()
	ok := result.NewData("memory", "read-nodes", "read-nodes", 2, sample.Series{1, 3}, now, now)
	failed := result.NewData("memory", "delete-nodes", "delete-nodes", 2, nil, now, now)
	failed.Aborted = true
	return result.ScenarioResults{Results: []result.Data{ok, failed}}
}

func TestObserve(t *testing.T) {
	c := NewCollectors()
	c.Observe(testResults())

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Latency.WithLabelValues("memory", "read-nodes", "read-nodes", "mean")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Latency.WithLabelValues("memory", "read-nodes", "read-nodes", "max")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Success.WithLabelValues("memory", "read-nodes", "read-nodes")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Success.WithLabelValues("memory", "delete-nodes", "delete-nodes")))
	// Five statistics for the complete phase, none for the empty one.
	assert.Equal(t, 5, testutil.CollectAndCount(c.Latency))
}

func TestPush(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, Push(srv.URL, "run-1", testResults()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/"+Job+"/uuid/run-1", path)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	assert.Error(t, Push(srv.URL, "run-1", testResults()))
}
