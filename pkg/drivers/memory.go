package drivers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-process store honouring the Driver contract. It lets the
// whole harness run without a database and backs the orchestrator tests.
//
// Its query language is a fixed set of keyed commands, see memoryStatements.
type Memory struct {
	mu       sync.Mutex
	next     int
	entities map[Handle]*memEntity
	indexed  bool
	// index maps a key value to node handles while an index exists.
	index map[string]map[Handle]struct{}
}

type memEntity struct {
	kind  Kind
	props Properties
	ends  Endpoints
}

const memoryKey = "ID"

const (
	memCreateIndex = "INDEX CREATE ID"
	memDropIndex   = "INDEX DROP ID"
	memCreate      = "KEYED CREATE ID=$id"
	memRead        = "KEYED READ ID=$id"
	memUpdate      = "KEYED UPDATE ID=$id SET ID=$newId"
	memDelete      = "KEYED DELETE ID=$id"
)

var memoryStatements = Statements{
	CreateIndex: Query{Text: memCreateIndex},
	DropIndex:   Query{Text: memDropIndex},
	Create:      Query{Text: memCreate},
	Read:        Query{Text: memRead},
	Update:      Query{Text: memUpdate},
	Delete:      Query{Text: memDelete},
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		entities: map[Handle]*memEntity{},
		index:    map[string]map[Handle]struct{}{},
	}
}

func (m *Memory) Name() string {
	return InMemory
}

func copyProps(p Properties) Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func keyOf(v interface{}) string {
	return fmt.Sprint(v)
}

func (m *Memory) insert(kind Kind, ends Endpoints, p Properties) Handle {
	m.next++
	h := Handle(fmt.Sprintf("%s/%d", kind, m.next))
	m.entities[h] = &memEntity{kind: kind, props: copyProps(p), ends: ends}
	m.reindex(h, nil, p)
	return h
}

// reindex moves h from the old key to the new key when indexing is on.
func (m *Memory) reindex(h Handle, old, cur Properties) {
	if !m.indexed {
		return
	}
	if v, ok := old[memoryKey]; ok {
		delete(m.index[keyOf(v)], h)
	}
	if v, ok := cur[memoryKey]; ok {
		k := keyOf(v)
		if m.index[k] == nil {
			m.index[k] = map[Handle]struct{}{}
		}
		m.index[k][h] = struct{}{}
	}
}

func (m *Memory) CreateEntity(ctx context.Context, kind Kind, ends *Endpoints, p Properties) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case Node:
		return m.insert(Node, Endpoints{}, p), nil
	case Edge:
		if ends == nil {
			return "", errors.Wrap(ErrBackendRejected, "edge requires endpoints")
		}
		for _, end := range []Handle{ends.From, ends.To} {
			e, ok := m.entities[end]
			if !ok || e.kind != Node {
				return "", errors.Wrapf(ErrNotFound, "edge endpoint %s", end)
			}
		}
		return m.insert(Edge, *ends, p), nil
	}
	return "", errors.Wrapf(ErrBackendRejected, "unsupported kind %s", kind)
}

func (m *Memory) lookup(h Handle) (*memEntity, error) {
	e, ok := m.entities[h]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", h)
	}
	return e, nil
}

func (m *Memory) ReadEntity(ctx context.Context, h Handle) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{"self": h, "data": e.props})
}

func (m *Memory) UpdateEntity(ctx context.Context, h Handle, p Properties) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(h)
	if err != nil {
		return err
	}
	cur := copyProps(p)
	if e.kind == Node {
		m.reindex(h, e.props, cur)
	}
	e.props = cur
	return nil
}

func (m *Memory) DeleteEntity(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(h)
}

func (m *Memory) remove(h Handle) error {
	e, err := m.lookup(h)
	if err != nil {
		return err
	}
	if e.kind == Node {
		for _, other := range m.entities {
			if other.kind == Edge && (other.ends.From == h || other.ends.To == h) {
				return errors.Wrapf(ErrBackendRejected, "node %s still has relationships", h)
			}
		}
		m.reindex(h, e.props, nil)
	}
	delete(m.entities, h)
	return nil
}

// keyed returns the nodes whose ID equals v, in handle order.
func (m *Memory) keyed(v interface{}) []Handle {
	k := keyOf(v)
	var out []Handle
	if m.indexed {
		for h := range m.index[k] {
			out = append(out, h)
		}
	} else {
		for h, e := range m.entities {
			if e.kind != Node {
				continue
			}
			if cur, ok := e.props[memoryKey]; ok && keyOf(cur) == k {
				out = append(out, h)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func param(q Query, name string) (interface{}, error) {
	v, ok := q.Params[name]
	if !ok {
		return nil, errors.Wrapf(ErrBackendRejected, "%q: missing parameter %s", q.Text, name)
	}
	return v, nil
}

func (m *Memory) RunQuery(ctx context.Context, q Query) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch q.Text {
	case memCreateIndex:
		m.indexed = true
		m.index = map[string]map[Handle]struct{}{}
		for h, e := range m.entities {
			if e.kind == Node {
				m.reindex(h, nil, e.props)
			}
		}
		return Payload("[]"), nil
	case memDropIndex:
		m.indexed = false
		m.index = map[string]map[Handle]struct{}{}
		return Payload("[]"), nil
	case memCreate:
		id, err := param(q, "id")
		if err != nil {
			return nil, err
		}
		m.insert(Node, Endpoints{}, Properties{memoryKey: id})
		return Payload("[]"), nil
	}

	id, err := param(q, "id")
	if err != nil {
		return nil, err
	}
	matched := m.keyed(id)
	switch q.Text {
	case memRead:
		rows := make([]Properties, 0, len(matched))
		for _, h := range matched {
			rows = append(rows, m.entities[h].props)
		}
		return json.Marshal(rows)
	case memUpdate:
		newID, err := param(q, "newId")
		if err != nil {
			return nil, err
		}
		for _, h := range matched {
			e := m.entities[h]
			cur := copyProps(e.props)
			cur[memoryKey] = newID
			m.reindex(h, e.props, cur)
			e.props = cur
		}
		return Payload("[]"), nil
	case memDelete:
		for _, h := range matched {
			if err := m.remove(h); err != nil {
				return nil, err
			}
		}
		return Payload("[]"), nil
	}
	return nil, errors.Wrapf(ErrBackendRejected, "unknown statement %q", q.Text)
}

func (m *Memory) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities = map[Handle]*memEntity{}
	m.index = map[string]map[Handle]struct{}{}
	return nil
}

func (m *Memory) Statements() Statements {
	return memoryStatements
}

func (m *Memory) AwaitIndex(_ context.Context) error {
	return nil
}

func (m *Memory) Close(_ context.Context) error {
	return nil
}

// Count returns how many entities of kind are stored.
func (m *Memory) Count(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entities {
		if e.kind == kind {
			n++
		}
	}
	return n
}

// Property returns the value stored under key on h.
func (m *Memory) Property(h Handle, key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[h]
	if !ok {
		return nil, false
	}
	v, ok := e.props[key]
	return v, ok
}

// Indexed reports whether the ID index exists.
func (m *Memory) Indexed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexed
}
