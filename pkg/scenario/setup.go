package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/cloud-bulldozer/graph-crudperf/pkg/drivers"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v2"
)

const progressThrottle = 100 * time.Millisecond

// Factory creates the i-th entity of a pool.
type Factory func(ctx context.Context, i int) (drivers.Handle, error)

// Setup calls factory count times, in index order, and returns the handles
// in creation order. None of these calls are timed. On failure the handles
// created so far are returned with the error.
func Setup(ctx context.Context, env Env, desc string, count int, factory Factory) ([]drivers.Handle, error) {
	if count < 0 {
		return nil, errors.Wrapf(ErrInvalidSamples, "%s: %d", desc, count)
	}
	handles := make([]drivers.Handle, 0, count)
	var bar *progressbar.ProgressBar
	if env.Progress != nil && count > 0 {
		bar = progressbar.NewOptions(count,
			progressbar.OptionSetWriter(env.Progress),
			progressbar.OptionSetDescription(desc),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(progressThrottle),
		)
	}
	for i := 0; i < count; i++ {
		h, err := factory(ctx, i)
		if err != nil {
			return handles, errors.Wrapf(err, "%s %d of %d", desc, i, count)
		}
		handles = append(handles, h)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(env.Progress)
	}
	return handles, nil
}

// nodePool creates count nodes carrying props.
func nodePool(ctx context.Context, env Env, count int, props drivers.Properties) ([]drivers.Handle, error) {
	return Setup(ctx, env, "creating nodes", count, func(ctx context.Context, _ int) (drivers.Handle, error) {
		return env.Driver.CreateEntity(ctx, drivers.Node, nil, props)
	})
}

// edgePool creates 2n nodes and n edges, edge i linking node i to node i+n.
func edgePool(ctx context.Context, env Env, n int, props drivers.Properties) ([]drivers.Handle, []drivers.Handle, error) {
	nodes, err := nodePool(ctx, env, 2*n, nil)
	if err != nil {
		return nodes, nil, err
	}
	edges, err := Setup(ctx, env, "creating edges", n, func(ctx context.Context, i int) (drivers.Handle, error) {
		return env.Driver.CreateEntity(ctx, drivers.Edge, &drivers.Endpoints{From: nodes[i], To: nodes[i+n]}, props)
	})
	return nodes, edges, err
}

// withNodes is a Setup step building a pool of one node per sample.
func withNodes(props drivers.Properties) Step {
	return func(ctx context.Context, env Env, st *State) error {
		var err error
		st.Nodes, err = nodePool(ctx, env, st.Samples, props)
		return err
	}
}

// withNodePairs is a Setup step building two nodes per sample.
func withNodePairs(ctx context.Context, env Env, st *State) error {
	var err error
	st.Nodes, err = nodePool(ctx, env, 2*st.Samples, nil)
	return err
}

// withEdges is a Setup step building one edge, and its two endpoints, per
// sample.
func withEdges(props drivers.Properties) Step {
	return func(ctx context.Context, env Env, st *State) error {
		var err error
		st.Nodes, st.Edges, err = edgePool(ctx, env, st.Samples, props)
		return err
	}
}
