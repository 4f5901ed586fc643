package drivers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind distinguishes node-like from edge-like entities.
type Kind int

const (
	Node Kind = iota
	Edge
)

func (k Kind) String() string {
	switch k {
	case Node:
		return "node"
	case Edge:
		return "edge"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Handle is the opaque identifier a backend returns when an entity is created.
// Only the driver that issued it knows how to interpret it.
type Handle string

// Properties are the key/values stored on an entity.
type Properties map[string]interface{}

// Payload is the raw body a backend answered with.
type Payload []byte

// Endpoints are the nodes an edge connects.
type Endpoints struct {
	From Handle
	To   Handle
}

// Query is a statement in the backend's query language plus its parameters.
// Drivers transport it, they never interpret it.
type Query struct {
	Text   string
	Params map[string]interface{}
}

// With returns a copy of q with params bound on top of the existing ones.
func (q Query) With(params map[string]interface{}) Query {
	merged := make(map[string]interface{}, len(q.Params)+len(params))
	for k, v := range q.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return Query{Text: q.Text, Params: merged}
}

// Statements are the keyed CRUD and index statements of a driver's query
// language. Keyed statements take the "id" parameter, Update also "newId".
type Statements struct {
	CreateIndex Query
	DropIndex   Query
	Create      Query
	Read        Query
	Update      Query
	Delete      Query
}

// Driver is the only component aware of a backend's wire protocol. Every
// method is a single round trip, except ClearAll and AwaitIndex.
type Driver interface {
	Name() string
	CreateEntity(ctx context.Context, kind Kind, ends *Endpoints, props Properties) (Handle, error)
	ReadEntity(ctx context.Context, h Handle) (Payload, error)
	UpdateEntity(ctx context.Context, h Handle, props Properties) error
	DeleteEntity(ctx context.Context, h Handle) error
	RunQuery(ctx context.Context, q Query) (Payload, error)
	// ClearAll removes every entity. It is safe on an empty store.
	ClearAll(ctx context.Context) error
	Statements() Statements
	// AwaitIndex blocks until the index created by Statements().CreateIndex
	// serves lookups.
	AwaitIndex(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options configure how a driver reaches its backend.
type Options struct {
	URL      string
	Username string
	Password string
	Database string
	// Timeout bounds every request.
	Timeout time.Duration
	// IndexSettle is how long drivers without a readiness signal wait after
	// an index is created.
	IndexSettle time.Duration
	// EdgeLabel is the relationship type/label of created edges.
	EdgeLabel string
}

const (
	DefaultTimeout     = 30 * time.Second
	DefaultIndexSettle = time.Second
)

// Driver names accepted by NewDriver.
const (
	Neo4jREST = "neo4j-rest"
	Rexster   = "rexster"
	Bolt      = "bolt"
	InMemory  = "memory"
)

func (o Options) withDefaults(edgeLabel string) Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.IndexSettle < 0 {
		o.IndexSettle = 0
	}
	if o.EdgeLabel == "" {
		o.EdgeLabel = edgeLabel
	}
	return o
}

// Names lists the supported drivers.
func Names() []string {
	n := []string{Neo4jREST, Rexster, Bolt, InMemory}
	sort.Strings(n)
	return n
}

// NewDriver returns a Driver based on the given driverName and options.
// If the driverName is not recognized, it returns an error.
func NewDriver(driverName string, opts Options) (Driver, error) {
	switch strings.ToLower(driverName) {
	case Neo4jREST:
		return newNeo4jREST(opts.withDefaults("KNOWS"))
	case Rexster:
		return newRexster(opts.withDefaults("friend"))
	case Bolt:
		return newBolt(opts.withDefaults("KNOWS"))
	case InMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown driver: %s", driverName)
	}
}
