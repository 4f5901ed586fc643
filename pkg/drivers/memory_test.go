package drivers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEntityLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, err := m.CreateEntity(ctx, Node, nil, Properties{"prop": 42})
	require.NoError(t, err)
	b, err := m.CreateEntity(ctx, Node, nil, nil)
	require.NoError(t, err)
	e, err := m.CreateEntity(ctx, Edge, &Endpoints{From: a, To: b}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count(Node))
	assert.Equal(t, 1, m.Count(Edge))

	payload, err := m.ReadEntity(ctx, a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"self":"`+string(a)+`","data":{"prop":42}}`, string(payload))

	require.NoError(t, m.UpdateEntity(ctx, a, Properties{"prop": 43}))
	v, ok := m.Property(a, "prop")
	require.True(t, ok)
	assert.Equal(t, 43, v)

	err = m.DeleteEntity(ctx, a)
	assert.ErrorIs(t, err, ErrBackendRejected, "node with relationships")

	require.NoError(t, m.DeleteEntity(ctx, e))
	require.NoError(t, m.DeleteEntity(ctx, a))
	assert.Equal(t, 1, m.Count(Node))
	assert.Zero(t, m.Count(Edge))
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.ReadEntity(ctx, "node/99")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.UpdateEntity(ctx, "node/99", nil), ErrNotFound)
	assert.ErrorIs(t, m.DeleteEntity(ctx, "node/99"), ErrNotFound)
	_, err = m.CreateEntity(ctx, Edge, &Endpoints{From: "node/1", To: "node/2"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.CreateEntity(ctx, Edge, nil, nil)
	assert.ErrorIs(t, err, ErrBackendRejected)
}

func TestMemoryKeyedStatements(t *testing.T) {
	for _, indexed := range []bool{false, true} {
		ctx := context.Background()
		m := NewMemory()
		st := m.Statements()
		if indexed {
			_, err := m.RunQuery(ctx, st.CreateIndex)
			require.NoError(t, err)
			require.True(t, m.Indexed())
		}

		_, err := m.RunQuery(ctx, st.Create.With(map[string]interface{}{"id": 7}))
		require.NoError(t, err)
		rows, err := m.RunQuery(ctx, st.Read.With(map[string]interface{}{"id": 7}))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"ID":7}]`, string(rows))

		_, err = m.RunQuery(ctx, st.Update.With(map[string]interface{}{"id": 7, "newId": 17}))
		require.NoError(t, err)
		rows, err = m.RunQuery(ctx, st.Read.With(map[string]interface{}{"id": 7}))
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(rows))

		_, err = m.RunQuery(ctx, st.Delete.With(map[string]interface{}{"id": 17}))
		require.NoError(t, err)
		assert.Zero(t, m.Count(Node))

		_, err = m.RunQuery(ctx, st.DropIndex)
		require.NoError(t, err)
		assert.False(t, m.Indexed())
	}
}

func TestMemoryIndexCoversExistingNodes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	st := m.Statements()
	_, err := m.RunQuery(ctx, st.Create.With(map[string]interface{}{"id": 1}))
	require.NoError(t, err)
	_, err = m.RunQuery(ctx, st.CreateIndex)
	require.NoError(t, err)

	rows, err := m.RunQuery(ctx, st.Read.With(map[string]interface{}{"id": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"ID":1}]`, string(rows))
}

func TestMemoryRejectsUnknownQuery(t *testing.T) {
	m := NewMemory()
	_, err := m.RunQuery(context.Background(), Query{Text: "MATCH (n) RETURN n", Params: map[string]interface{}{"id": 1}})
	assert.ErrorIs(t, err, ErrBackendRejected)
	_, err = m.RunQuery(context.Background(), m.Statements().Read)
	assert.ErrorIs(t, err, ErrBackendRejected, "missing id")
}

func TestMemoryClearAll(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.ClearAll(ctx), "empty store")
	for i := 0; i < 3; i++ {
		_, err := m.CreateEntity(ctx, Node, nil, nil)
		require.NoError(t, err)
	}
	require.NoError(t, m.ClearAll(ctx))
	assert.Zero(t, m.Count(Node))
	require.NoError(t, m.ClearAll(ctx))
}

func TestMemoryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().CreateEntity(ctx, Node, nil, nil)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
