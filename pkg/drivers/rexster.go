package drivers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// rexster drives a Titan graph exposed through the Rexster REST server, e.g.
// http://host:8182/graphs/titan/. Handles are element paths relative to the
// graph root ("vertices/<id>", "edges/<id>"). Properties travel as query
// parameters, Gremlin scripts go to the tp/gremlin extension.
type rexster struct {
	rest      *restClient
	edgeLabel string
}

type rexsterResponse struct {
	Results map[string]interface{} `json:"results"`
}

type gremlinRequest struct {
	Script string                 `json:"script"`
	Params map[string]interface{} `json:"params,omitempty"`
}

var rexsterStatements = Statements{
	CreateIndex: Query{Text: "g.createKeyIndex('ID', Vertex.class)"},
	DropIndex:   Query{Text: "g.dropKeyIndex('ID', Vertex.class)"},
	Create:      Query{Text: "g.addVertex(null, [ID: id])"},
	Read:        Query{Text: "g.V('ID', id)"},
	Update:      Query{Text: "g.V('ID', id).sideEffect{it.ID = newId}.iterate()"},
	Delete:      Query{Text: "g.V('ID', id).remove()"},
}

func newRexster(opts Options) (*rexster, error) {
	rest, err := newRESTClient(opts)
	if err != nil {
		return nil, err
	}
	return &rexster{rest: rest, edgeLabel: opts.EdgeLabel}, nil
}

func (r *rexster) Name() string {
	return Rexster
}

// encodeProps renders properties as sorted query parameters.
func encodeProps(v url.Values, props Properties) url.Values {
	if v == nil {
		v = url.Values{}
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Set(k, fmt.Sprint(props[k]))
	}
	return v
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func elementID(h Handle) string {
	_, id, _ := strings.Cut(string(h), "/")
	if raw, err := url.PathUnescape(id); err == nil {
		return raw
	}
	return id
}

func (r *rexster) CreateEntity(ctx context.Context, kind Kind, ends *Endpoints, props Properties) (Handle, error) {
	var (
		target string
		prefix string
	)
	switch kind {
	case Node:
		prefix = "vertices/"
		target = withQuery("vertices", encodeProps(nil, props))
	case Edge:
		if ends == nil {
			return "", errors.Wrap(ErrBackendRejected, "edge requires endpoints")
		}
		prefix = "edges/"
		v := url.Values{}
		v.Set("_outV", elementID(ends.From))
		v.Set("_label", r.edgeLabel)
		v.Set("_inV", elementID(ends.To))
		target = withQuery("edges", encodeProps(v, props))
	default:
		return "", errors.Wrapf(ErrBackendRejected, "unsupported kind %s", kind)
	}
	payload, err := r.rest.do(ctx, http.MethodPost, target, nil)
	if err != nil {
		return "", err
	}
	var resp rexsterResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", errors.Wrapf(ErrBackendRejected, "create %s: %v", kind, err)
	}
	id, ok := resp.Results["_id"]
	if !ok || id == nil {
		return "", errors.Wrapf(ErrBackendRejected, "create %s: response carries no _id", kind)
	}
	return Handle(prefix + url.PathEscape(fmt.Sprint(id))), nil
}

func (r *rexster) ReadEntity(ctx context.Context, h Handle) (Payload, error) {
	return r.rest.do(ctx, http.MethodGet, string(h), nil)
}

func (r *rexster) UpdateEntity(ctx context.Context, h Handle, props Properties) error {
	_, err := r.rest.do(ctx, http.MethodPost, withQuery(string(h), encodeProps(nil, props)), nil)
	return err
}

func (r *rexster) DeleteEntity(ctx context.Context, h Handle) error {
	_, err := r.rest.do(ctx, http.MethodDelete, string(h), nil)
	return err
}

func (r *rexster) RunQuery(ctx context.Context, q Query) (Payload, error) {
	return r.rest.do(ctx, http.MethodPost, "tp/gremlin", gremlinRequest{Script: q.Text, Params: q.Params})
}

func (r *rexster) ClearAll(ctx context.Context) error {
	for _, script := range []string{"g.E.remove()", "g.V.remove()"} {
		if _, err := r.RunQuery(ctx, Query{Text: script}); err != nil {
			return errors.Wrap(err, "clearing rexster graph")
		}
	}
	return nil
}

func (r *rexster) Statements() Statements {
	return rexsterStatements
}

// AwaitIndex returns immediately, key indices are built synchronously.
func (r *rexster) AwaitIndex(_ context.Context) error {
	return nil
}

func (r *rexster) Close(_ context.Context) error {
	r.rest.client.CloseIdleConnections()
	return nil
}
