package drivers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"
)

// bolt issues every logical operation as a Cypher statement over the Bolt
// protocol. Handles are "node/<elementId>" or "edge/<elementId>".
type bolt struct {
	driver    neo4j.DriverWithContext
	database  string
	timeout   time.Duration
	edgeLabel string
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var boltStatements = Statements{
	CreateIndex: Query{Text: "CREATE INDEX person_id IF NOT EXISTS FOR (n:Person) ON (n.ID)"},
	DropIndex:   Query{Text: "DROP INDEX person_id IF EXISTS"},
	Create:      Query{Text: "CREATE (:Person {ID: $id})"},
	Read:        Query{Text: "MATCH (n:Person) WHERE n.ID = $id RETURN n"},
	Update:      Query{Text: "MATCH (n:Person) WHERE n.ID = $id SET n.ID = $newId"},
	Delete:      Query{Text: "MATCH (n:Person) WHERE n.ID = $id DELETE n"},
}

func newBolt(opts Options) (*bolt, error) {
	if opts.URL == "" {
		return nil, errors.New("backend url is required")
	}
	if !identifier.MatchString(opts.EdgeLabel) {
		return nil, errors.Errorf("edge label %q is not a valid relationship type", opts.EdgeLabel)
	}
	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}
	d, err := neo4j.NewDriverWithContext(opts.URL, auth)
	if err != nil {
		return nil, errors.Wrapf(err, "creating bolt driver for %s", opts.URL)
	}
	return &bolt{
		driver:    d,
		database:  opts.Database,
		timeout:   opts.Timeout,
		edgeLabel: opts.EdgeLabel,
	}, nil
}

func (b *bolt) Name() string {
	return Bolt
}

func boltError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return errors.Wrapf(err, format, args...)
	case neo4j.IsConnectivityError(err), errors.Is(err, context.DeadlineExceeded):
		return errors.Wrapf(errors.Wrap(ErrBackendUnavailable, err.Error()), format, args...)
	default:
		return errors.Wrapf(errors.Wrap(ErrBackendRejected, err.Error()), format, args...)
	}
}

func (b *bolt) execute(ctx context.Context, text string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return b.executeWithin(ctx, b.timeout, text, params)
}

func (b *bolt) executeWithin(ctx context.Context, timeout time.Duration, text string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if b.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(b.database))
	}
	res, err := neo4j.ExecuteQuery(ctx, b.driver, text, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, boltError(err, "cypher %q", text)
	}
	return res, nil
}

func splitHandle(h Handle) (Kind, string, error) {
	kind, id, ok := strings.Cut(string(h), "/")
	if !ok || id == "" {
		return 0, "", errors.Wrapf(ErrNotFound, "malformed handle %q", h)
	}
	switch kind {
	case "node":
		return Node, id, nil
	case "edge":
		return Edge, id, nil
	}
	return 0, "", errors.Wrapf(ErrNotFound, "malformed handle %q", h)
}

func handleOf(kind Kind, res *neo4j.EagerResult) (Handle, error) {
	if len(res.Records) == 0 {
		return "", errors.Wrapf(ErrNotFound, "create %s matched nothing", kind)
	}
	id, ok := res.Records[0].Get("id")
	if !ok {
		return "", errors.Wrapf(ErrBackendRejected, "create %s returned no id", kind)
	}
	return Handle(fmt.Sprintf("%s/%v", kind, id)), nil
}

func props(p Properties) map[string]interface{} {
	if p == nil {
		return map[string]interface{}{}
	}
	return p
}

func (b *bolt) CreateEntity(ctx context.Context, kind Kind, ends *Endpoints, p Properties) (Handle, error) {
	switch kind {
	case Node:
		res, err := b.execute(ctx, "CREATE (n) SET n = $props RETURN elementId(n) AS id",
			map[string]interface{}{"props": props(p)})
		if err != nil {
			return "", err
		}
		return handleOf(kind, res)
	case Edge:
		if ends == nil {
			return "", errors.Wrap(ErrBackendRejected, "edge requires endpoints")
		}
		_, from, err := splitHandle(ends.From)
		if err != nil {
			return "", err
		}
		_, to, err := splitHandle(ends.To)
		if err != nil {
			return "", err
		}
		stmt := "MATCH (a), (b) WHERE elementId(a) = $from AND elementId(b) = $to " +
			"CREATE (a)-[r:" + b.edgeLabel + "]->(b) SET r = $props RETURN elementId(r) AS id"
		res, err := b.execute(ctx, stmt, map[string]interface{}{"from": from, "to": to, "props": props(p)})
		if err != nil {
			return "", err
		}
		return handleOf(kind, res)
	}
	return "", errors.Wrapf(ErrBackendRejected, "unsupported kind %s", kind)
}

func match(kind Kind) string {
	if kind == Edge {
		return "MATCH ()-[e]->() WHERE elementId(e) = $id "
	}
	return "MATCH (e) WHERE elementId(e) = $id "
}

func (b *bolt) ReadEntity(ctx context.Context, h Handle) (Payload, error) {
	kind, id, err := splitHandle(h)
	if err != nil {
		return nil, err
	}
	res, err := b.execute(ctx, match(kind)+"RETURN properties(e) AS e", map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "read %s", h)
	}
	return encodeRecords(res)
}

func (b *bolt) UpdateEntity(ctx context.Context, h Handle, p Properties) error {
	return b.mutate(ctx, h, "SET e = $props", map[string]interface{}{"props": props(p)})
}

func (b *bolt) DeleteEntity(ctx context.Context, h Handle) error {
	return b.mutate(ctx, h, "DELETE e", nil)
}

// mutate applies clause to the entity behind h and fails with ErrNotFound
// when nothing matched.
func (b *bolt) mutate(ctx context.Context, h Handle, clause string, params map[string]interface{}) error {
	kind, id, err := splitHandle(h)
	if err != nil {
		return err
	}
	args := map[string]interface{}{"id": id}
	for k, v := range params {
		args[k] = v
	}
	res, err := b.execute(ctx, match(kind)+clause+" RETURN count(*) AS c", args)
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		return errors.Wrapf(ErrNotFound, "%s %s", clause, h)
	}
	if c, ok := res.Records[0].Get("c"); ok {
		if n, ok := c.(int64); ok && n == 0 {
			return errors.Wrapf(ErrNotFound, "%s %s", clause, h)
		}
	}
	return nil
}

func (b *bolt) RunQuery(ctx context.Context, q Query) (Payload, error) {
	res, err := b.execute(ctx, q.Text, q.Params)
	if err != nil {
		return nil, err
	}
	return encodeRecords(res)
}

func encodeRecords(res *neo4j.EagerResult) (Payload, error) {
	rows := make([]map[string]interface{}, 0, len(res.Records))
	for _, r := range res.Records {
		rows = append(rows, r.AsMap())
	}
	buf, err := json.Marshal(rows)
	if err != nil {
		return nil, errors.Wrap(ErrBackendRejected, err.Error())
	}
	return buf, nil
}

func (b *bolt) ClearAll(ctx context.Context) error {
	_, err := b.execute(ctx, "MATCH (n) DETACH DELETE n", nil)
	return errors.Wrap(err, "clearing neo4j")
}

func (b *bolt) Statements() Statements {
	return boltStatements
}

// awaitHeadroom lets the server report its own awaitIndexes timeout before
// the client deadline fires.
const awaitHeadroom = 5 * time.Second

// awaitIndexTimeouts returns the server side wait, in whole seconds, and the
// longer client deadline around it.
func awaitIndexTimeouts(timeout time.Duration) (int64, time.Duration) {
	seconds := int64(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds, time.Duration(seconds)*time.Second + awaitHeadroom
}

// AwaitIndex relies on the server's own readiness signal.
func (b *bolt) AwaitIndex(ctx context.Context) error {
	seconds, deadline := awaitIndexTimeouts(b.timeout)
	_, err := b.executeWithin(ctx, deadline, "CALL db.awaitIndexes($seconds)",
		map[string]interface{}{"seconds": seconds})
	return errors.Wrap(err, "awaiting index")
}

func (b *bolt) Close(ctx context.Context) error {
	return b.driver.Close(ctx)
}
