package drivers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   string
}

// fakeServer answers every request with the next canned response and keeps
// the requests it saw.
type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     func(srv string, r *http.Request) string
	srv      *httptest.Server
}

func newFakeServer(t *testing.T, status int, body func(srv string, r *http.Request) string) *fakeServer {
	f := &fakeServer{status: status, body: body}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.RequestURI(), body: string(raw)})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		if f.body != nil {
			_, _ = io.WriteString(w, f.body(f.srv.URL, r))
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeServer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestNeo4j(t *testing.T, f *fakeServer) Driver {
	d, err := NewDriver(Neo4jREST, Options{URL: f.srv.URL + "/db/data", Timeout: time.Second, IndexSettle: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return d
}

func TestNeo4jCreateNode(t *testing.T) {
	f := newFakeServer(t, http.StatusCreated, func(srv string, _ *http.Request) string {
		return `{"self":"` + srv + `/db/data/node/12","data":{}}`
	})
	d := newTestNeo4j(t, f)

	h, err := d.CreateEntity(context.Background(), Node, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Handle(f.srv.URL+"/db/data/node/12"), h)
	assert.Equal(t, recorded{method: http.MethodPost, path: "/db/data/node"}, f.last())
}

func TestNeo4jCreateEdge(t *testing.T) {
	f := newFakeServer(t, http.StatusCreated, func(srv string, _ *http.Request) string {
		return `{"self":"` + srv + `/db/data/relationship/3"}`
	})
	d := newTestNeo4j(t, f)
	from := Handle(f.srv.URL + "/db/data/node/1")
	to := Handle(f.srv.URL + "/db/data/node/2")

	h, err := d.CreateEntity(context.Background(), Edge, &Endpoints{From: from, To: to}, Properties{"weight": 1})
	require.NoError(t, err)
	assert.Equal(t, Handle(f.srv.URL+"/db/data/relationship/3"), h)

	req := f.last()
	assert.Equal(t, "/db/data/node/1/relationships", req.path)
	assert.JSONEq(t, `{"to":"`+string(to)+`","type":"KNOWS","data":{"weight":1}}`, req.body)
}

func TestNeo4jCreateEdgeNeedsEndpoints(t *testing.T) {
	f := newFakeServer(t, http.StatusCreated, nil)
	d := newTestNeo4j(t, f)
	_, err := d.CreateEntity(context.Background(), Edge, nil, nil)
	assert.ErrorIs(t, err, ErrBackendRejected)
	assert.Zero(t, f.count())
}

func TestNeo4jEntityCalls(t *testing.T) {
	f := newFakeServer(t, http.StatusOK, func(string, *http.Request) string { return `{"data":{"prop":42}}` })
	d := newTestNeo4j(t, f)
	ctx := context.Background()
	h := Handle(f.srv.URL + "/db/data/node/5")

	payload, err := d.ReadEntity(ctx, h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"prop":42}}`, string(payload))
	assert.Equal(t, http.MethodGet, f.last().method)

	require.NoError(t, d.UpdateEntity(ctx, h, Properties{"prop": 43}))
	assert.Equal(t, recorded{method: http.MethodPut, path: "/db/data/node/5/properties", body: `{"prop":43}`}, f.last())

	require.NoError(t, d.DeleteEntity(ctx, h))
	assert.Equal(t, http.MethodDelete, f.last().method)
	assert.Equal(t, "/db/data/node/5", f.last().path)
}

func TestNeo4jNotFound(t *testing.T) {
	f := newFakeServer(t, http.StatusNotFound, func(string, *http.Request) string { return `{"exception":"NodeNotFoundException"}` })
	d := newTestNeo4j(t, f)
	_, err := d.ReadEntity(context.Background(), Handle(f.srv.URL+"/db/data/node/404"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNeo4jRejected(t *testing.T) {
	f := newFakeServer(t, http.StatusBadRequest, func(string, *http.Request) string { return `{"message":"bad"}` })
	d := newTestNeo4j(t, f)
	_, err := d.RunQuery(context.Background(), Query{Text: "MATCH"})
	assert.ErrorIs(t, err, ErrBackendRejected)
}

func TestNeo4jUnavailable(t *testing.T) {
	f := newFakeServer(t, http.StatusOK, nil)
	d := newTestNeo4j(t, f)
	f.srv.Close()
	_, err := d.ReadEntity(context.Background(), "node/1")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestNeo4jRunQuery(t *testing.T) {
	f := newFakeServer(t, http.StatusOK, func(string, *http.Request) string { return `{"columns":[],"data":[]}` })
	d := newTestNeo4j(t, f)
	q := d.Statements().Read.With(map[string]interface{}{"id": 3})

	_, err := d.RunQuery(context.Background(), q)
	require.NoError(t, err)
	req := f.last()
	assert.Equal(t, "/db/data/cypher", req.path)
	assert.JSONEq(t, `{"query":"MATCH (n:Person) WHERE n.ID = {id} RETURN n","params":{"id":3}}`, req.body)
}

func TestNeo4jClearAll(t *testing.T) {
	f := newFakeServer(t, http.StatusOK, func(string, *http.Request) string { return `{"columns":[],"data":[]}` })
	d := newTestNeo4j(t, f)
	require.NoError(t, d.ClearAll(context.Background()))
	require.Equal(t, 2, f.count())
	assert.True(t, strings.Contains(f.requests[0].body, "DELETE r"))
	assert.True(t, strings.Contains(f.requests[1].body, "DELETE n"))
}

func TestNeo4jAwaitIndex(t *testing.T) {
	f := newFakeServer(t, http.StatusOK, nil)
	d := newTestNeo4j(t, f)

	start := time.Now()
	require.NoError(t, d.AwaitIndex(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.AwaitIndex(ctx), context.Canceled)
}

func TestNeo4jBasicAuth(t *testing.T) {
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	d, err := NewDriver(Neo4jREST, Options{URL: srv.URL + "/db/data/", Username: "neo4j", Password: "secret"})
	require.NoError(t, err)
	_, err = d.ReadEntity(context.Background(), "node/1")
	require.NoError(t, err)
	assert.Equal(t, "neo4j", user)
	assert.Equal(t, "secret", pass)
}
