package scenario

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/cloud-bulldozer/graph-crudperf/pkg/drivers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupOrder(t *testing.T) {
	var progress bytes.Buffer
	handles, err := Setup(context.Background(), Env{Progress: &progress}, "creating nodes", 3,
		func(_ context.Context, i int) (drivers.Handle, error) {
			return drivers.Handle(fmt.Sprintf("node/%d", i)), nil
		})
	require.NoError(t, err)
	assert.Equal(t, []drivers.Handle{"node/0", "node/1", "node/2"}, handles)
	assert.Contains(t, progress.String(), "creating nodes")
}

func TestSetupPartialHandles(t *testing.T) {
	handles, err := Setup(context.Background(), Env{}, "creating nodes", 5,
		func(_ context.Context, i int) (drivers.Handle, error) {
			if i == 2 {
				return "", drivers.ErrBackendRejected
			}
			return drivers.Handle(fmt.Sprint(i)), nil
		})
	assert.ErrorIs(t, err, drivers.ErrBackendRejected)
	assert.Len(t, handles, 2)
}

// pairs records the endpoints of every edge created.
type pairs struct {
	drivers.Driver
	ends []drivers.Endpoints
}

func (p *pairs) CreateEntity(ctx context.Context, kind drivers.Kind, ends *drivers.Endpoints, props drivers.Properties) (drivers.Handle, error) {
	if kind == drivers.Edge {
		p.ends = append(p.ends, *ends)
	}
	return p.Driver.CreateEntity(ctx, kind, ends, props)
}

func TestEdgePool(t *testing.T) {
	p := &pairs{Driver: drivers.NewMemory()}
	nodes, edges, err := edgePool(context.Background(), Env{Driver: p}, 3, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 6)
	require.Len(t, edges, 3)
	for i, e := range p.ends {
		assert.Equal(t, drivers.Endpoints{From: nodes[i], To: nodes[i+3]}, e)
	}
}

func TestSetupNegativeCount(t *testing.T) {
	calls := 0
	handles, err := Setup(context.Background(), Env{}, "creating nodes", -1,
		func(_ context.Context, i int) (drivers.Handle, error) {
			calls++
			return "", nil
		})
	assert.ErrorIs(t, err, ErrInvalidSamples)
	assert.Empty(t, handles)
	assert.Zero(t, calls)
}

func TestEdgePoolNodeFailure(t *testing.T) {
	p := &spy{Driver: drivers.NewMemory(), failCreate: 1}
	_, edges, err := edgePool(context.Background(), Env{Driver: p}, 2, nil)
	assert.True(t, errors.Is(err, drivers.ErrBackendUnavailable))
	assert.Empty(t, edges)
	assert.Equal(t, 1, p.creates)
}
