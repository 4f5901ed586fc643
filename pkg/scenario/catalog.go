package scenario

import (
	"context"

	"github.com/cloud-bulldozer/graph-crudperf/pkg/drivers"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/logging"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/sample"
	"github.com/pkg/errors"
)

// Scenario names.
const (
	Warmup               = "warmup"
	ReadNodes            = "read-nodes"
	ReadEdges            = "read-edges"
	CreateNodes          = "create-nodes"
	CreateEdges          = "create-edges"
	UpdateNodeProperties = "update-node-properties"
	UpdateEdgeProperties = "update-edge-properties"
	DeleteNodes          = "delete-nodes"
	DeleteEdges          = "delete-edges"
	CRUDUnindexed        = "crud-unindexed"
	CRUDIndexed          = "crud-indexed"
)

// Property written on entities by the update scenarios.
const (
	UpdateKey    = "prop"
	InitialValue = 42
	UpdatedValue = 43
)

var (
	initialProps = drivers.Properties{UpdateKey: InitialValue}
	updatedProps = drivers.Properties{UpdateKey: UpdatedValue}
)

func read(ctx context.Context, d drivers.Driver, h drivers.Handle) Call {
	return func() error {
		_, err := d.ReadEntity(ctx, h)
		return err
	}
}

func readNode(ctx context.Context, d drivers.Driver, st *State, i int) Call {
	return read(ctx, d, st.Nodes[i])
}

func readEdge(ctx context.Context, d drivers.Driver, st *State, i int) Call {
	return read(ctx, d, st.Edges[i])
}

// crud returns the create, read, update and delete phases of the keyed query
// scenarios. Key i becomes i+n on update, delete addresses the new key.
func crud(name string) []Phase {
	keyed := func(build func(s drivers.Statements, st *State, i int) drivers.Query) Op {
		return func(ctx context.Context, d drivers.Driver, st *State, i int) Call {
			q := build(d.Statements(), st, i)
			return func() error {
				_, err := d.RunQuery(ctx, q)
				return err
			}
		}
	}
	return []Phase{
		{Name: name + "-create", Op: keyed(func(s drivers.Statements, _ *State, i int) drivers.Query {
			return s.Create.With(map[string]interface{}{"id": i})
		})},
		{Name: name + "-read", Op: keyed(func(s drivers.Statements, _ *State, i int) drivers.Query {
			return s.Read.With(map[string]interface{}{"id": i})
		})},
		{Name: name + "-update", Op: keyed(func(s drivers.Statements, st *State, i int) drivers.Query {
			return s.Update.With(map[string]interface{}{"id": i, "newId": i + st.Samples})
		})},
		{Name: name + "-delete", Op: keyed(func(s drivers.Statements, st *State, i int) drivers.Query {
			return s.Delete.With(map[string]interface{}{"id": i + st.Samples})
		})},
	}
}

func createIndex(ctx context.Context, env Env, _ *State) error {
	q := env.Driver.Statements().CreateIndex
	_, ms, err := sample.MeasureValue(func() (drivers.Payload, error) {
		return env.Driver.RunQuery(ctx, q)
	})
	if err != nil {
		return errors.Wrap(err, "creating index")
	}
	logging.Debugf("Index created in %.3f ms", ms)
	return errors.Wrap(env.Driver.AwaitIndex(ctx), "waiting for index")
}

func dropIndex(ctx context.Context, env Env, _ *State) error {
	_, err := env.Driver.RunQuery(ctx, env.Driver.Statements().DropIndex)
	return errors.Wrap(err, "dropping index")
}

var catalog = []Scenario{
	{
		Name:        Warmup,
		Description: "Reads a single node repeatedly to warm up the backend and the connection",
		Setup: func(ctx context.Context, env Env, st *State) error {
			var err error
			st.Nodes, err = nodePool(ctx, env, 1, nil)
			return err
		},
		Phases: []Phase{{Name: Warmup, Op: func(ctx context.Context, d drivers.Driver, st *State, _ int) Call {
			return read(ctx, d, st.Nodes[0])
		}}},
	},
	{
		Name:        ReadNodes,
		Description: "Creates a set of nodes, then reads each one",
		Setup:       withNodes(nil),
		Phases:      []Phase{{Name: ReadNodes, Op: readNode}},
	},
	{
		Name:        ReadEdges,
		Description: "Creates a set of edges between node pairs, then reads each edge",
		Setup:       withEdges(nil),
		Phases:      []Phase{{Name: ReadEdges, Op: readEdge}},
	},
	{
		Name:        CreateNodes,
		Description: "Creates nodes one at a time",
		Phases: []Phase{{Name: CreateNodes, Op: func(ctx context.Context, d drivers.Driver, _ *State, _ int) Call {
			return func() error {
				_, err := d.CreateEntity(ctx, drivers.Node, nil, nil)
				return err
			}
		}}},
	},
	{
		Name:        CreateEdges,
		Description: "Creates node pairs, then an edge between each pair",
		Setup:       withNodePairs,
		Phases: []Phase{{Name: CreateEdges, Op: func(ctx context.Context, d drivers.Driver, st *State, i int) Call {
			ends := &drivers.Endpoints{From: st.Nodes[i], To: st.Nodes[i+st.Samples]}
			return func() error {
				_, err := d.CreateEntity(ctx, drivers.Edge, ends, nil)
				return err
			}
		}}},
	},
	{
		Name:        UpdateNodeProperties,
		Description: "Creates nodes with prop set to 42, then updates prop to 43 on each",
		Setup:       withNodes(initialProps),
		Phases: []Phase{{Name: UpdateNodeProperties, Op: func(ctx context.Context, d drivers.Driver, st *State, i int) Call {
			h := st.Nodes[i]
			return func() error { return d.UpdateEntity(ctx, h, updatedProps) }
		}}},
	},
	{
		Name:        UpdateEdgeProperties,
		Description: "Creates edges with prop set to 42, then updates prop to 43 on each",
		Setup:       withEdges(initialProps),
		Phases: []Phase{{Name: UpdateEdgeProperties, Op: func(ctx context.Context, d drivers.Driver, st *State, i int) Call {
			h := st.Edges[i]
			return func() error { return d.UpdateEntity(ctx, h, updatedProps) }
		}}},
	},
	{
		Name:        DeleteNodes,
		Description: "Creates a set of nodes, then deletes each one",
		Setup:       withNodes(nil),
		Phases: []Phase{{Name: DeleteNodes, Op: func(ctx context.Context, d drivers.Driver, st *State, i int) Call {
			h := st.Nodes[i]
			return func() error { return d.DeleteEntity(ctx, h) }
		}}},
	},
	{
		Name:        DeleteEdges,
		Description: "Creates a set of edges, then deletes each edge",
		Setup:       withEdges(nil),
		Phases: []Phase{{Name: DeleteEdges, Op: func(ctx context.Context, d drivers.Driver, st *State, i int) Call {
			h := st.Edges[i]
			return func() error { return d.DeleteEntity(ctx, h) }
		}}},
	},
	{
		Name:        CRUDUnindexed,
		Description: "Creates, reads, updates and deletes nodes by ID through the query language, without an index",
		Phases:      crud(CRUDUnindexed),
	},
	{
		Name:        CRUDIndexed,
		Description: "Creates, reads, updates and deletes nodes by ID through the query language, with an index on ID",
		Prepare:     createIndex,
		Phases:      crud(CRUDIndexed),
		Cleanup:     dropIndex,
	},
}

// Catalog returns every scenario in run order.
func Catalog() []Scenario {
	out := make([]Scenario, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the scenario names in run order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, s := range catalog {
		names = append(names, s.Name)
	}
	return names
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
