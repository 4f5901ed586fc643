package drivers

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// neo4jREST drives the Neo4j REST API rooted at /db/data/. Every entity
// operation is one HTTP verb on the entity's resource, handles are the "self"
// URIs returned by the server.
type neo4jREST struct {
	rest        *restClient
	edgeLabel   string
	indexSettle time.Duration
}

type neo4jEntity struct {
	Self string `json:"self"`
}

type neo4jRelationship struct {
	To   string     `json:"to"`
	Type string     `json:"type"`
	Data Properties `json:"data,omitempty"`
}

type cypherRequest struct {
	Query  string                 `json:"query"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// Legacy Cypher endpoint parameter syntax.
var neo4jStatements = Statements{
	CreateIndex: Query{Text: "CREATE INDEX ON :Person(ID)"},
	DropIndex:   Query{Text: "DROP INDEX ON :Person(ID)"},
	Create:      Query{Text: "CREATE (:Person {ID: {id}})"},
	Read:        Query{Text: "MATCH (n:Person) WHERE n.ID = {id} RETURN n"},
	Update:      Query{Text: "MATCH (n:Person) WHERE n.ID = {id} SET n.ID = {newId}"},
	Delete:      Query{Text: "MATCH (n:Person) WHERE n.ID = {id} DELETE n"},
}

func newNeo4jREST(opts Options) (*neo4jREST, error) {
	rest, err := newRESTClient(opts)
	if err != nil {
		return nil, err
	}
	return &neo4jREST{
		rest:        rest,
		edgeLabel:   opts.EdgeLabel,
		indexSettle: opts.IndexSettle,
	}, nil
}

func (n *neo4jREST) Name() string {
	return Neo4jREST
}

func (n *neo4jREST) CreateEntity(ctx context.Context, kind Kind, ends *Endpoints, props Properties) (Handle, error) {
	var (
		payload Payload
		err     error
	)
	switch kind {
	case Node:
		var body interface{}
		if len(props) > 0 {
			body = props
		}
		payload, err = n.rest.do(ctx, http.MethodPost, "node", body)
	case Edge:
		if ends == nil {
			return "", errors.Wrap(ErrBackendRejected, "edge requires endpoints")
		}
		payload, err = n.rest.do(ctx, http.MethodPost, string(ends.From)+"/relationships", neo4jRelationship{
			To:   string(ends.To),
			Type: n.edgeLabel,
			Data: props,
		})
	default:
		return "", errors.Wrapf(ErrBackendRejected, "unsupported kind %s", kind)
	}
	if err != nil {
		return "", err
	}
	var e neo4jEntity
	if err := json.Unmarshal(payload, &e); err != nil || e.Self == "" {
		return "", errors.Wrapf(ErrBackendRejected, "create %s: response carries no self uri", kind)
	}
	return Handle(e.Self), nil
}

func (n *neo4jREST) ReadEntity(ctx context.Context, h Handle) (Payload, error) {
	return n.rest.do(ctx, http.MethodGet, string(h), nil)
}

func (n *neo4jREST) UpdateEntity(ctx context.Context, h Handle, props Properties) error {
	_, err := n.rest.do(ctx, http.MethodPut, string(h)+"/properties", props)
	return err
}

func (n *neo4jREST) DeleteEntity(ctx context.Context, h Handle) error {
	_, err := n.rest.do(ctx, http.MethodDelete, string(h), nil)
	return err
}

func (n *neo4jREST) RunQuery(ctx context.Context, q Query) (Payload, error) {
	return n.rest.do(ctx, http.MethodPost, "cypher", cypherRequest{Query: q.Text, Params: q.Params})
}

func (n *neo4jREST) ClearAll(ctx context.Context) error {
	// Relationships first, a node with relationships cannot be deleted.
	for _, stmt := range []string{
		"MATCH ()-[r]->() DELETE r",
		"MATCH (n) DELETE n",
	} {
		if _, err := n.RunQuery(ctx, Query{Text: stmt}); err != nil {
			return errors.Wrap(err, "clearing neo4j")
		}
	}
	return nil
}

func (n *neo4jREST) Statements() Statements {
	return neo4jStatements
}

// AwaitIndex waits the configured settle delay. The REST API reports no
// index state.
func (n *neo4jREST) AwaitIndex(ctx context.Context) error {
	if n.indexSettle <= 0 {
		return nil
	}
	t := time.NewTimer(n.indexSettle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (n *neo4jREST) Close(_ context.Context) error {
	n.rest.client.CloseIdleConnections()
	return nil
}
