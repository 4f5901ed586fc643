package drivers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryWith(t *testing.T) {
	base := Query{Text: "MATCH (n) WHERE n.ID = $id RETURN n", Params: map[string]interface{}{"limit": 1}}
	bound := base.With(map[string]interface{}{"id": 7})

	assert.Equal(t, base.Text, bound.Text)
	assert.Equal(t, map[string]interface{}{"limit": 1, "id": 7}, bound.Params)
	assert.NotContains(t, base.Params, "id")
}

func TestNewDriverUnknown(t *testing.T) {
	_, err := NewDriver("orientdb", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orientdb")
}

func TestNewDriverRequiresURL(t *testing.T) {
	for _, name := range []string{Neo4jREST, Rexster, Bolt} {
		_, err := NewDriver(name, Options{})
		assert.Error(t, err, name)
	}
}

func TestNewDriverRejectsScheme(t *testing.T) {
	_, err := NewDriver(Neo4jREST, Options{URL: "ftp://localhost/db/data"})
	assert.Error(t, err)
}

func TestNewDriverMemory(t *testing.T) {
	d, err := NewDriver("MEMORY", Options{})
	require.NoError(t, err)
	assert.Equal(t, InMemory, d.Name())
}

func TestWithDefaults(t *testing.T) {
	o := Options{IndexSettle: -time.Second}.withDefaults("KNOWS")
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Zero(t, o.IndexSettle)
	assert.Equal(t, "KNOWS", o.EdgeLabel)

	o = Options{Timeout: time.Second, EdgeLabel: "friend"}.withDefaults("KNOWS")
	assert.Equal(t, time.Second, o.Timeout)
	assert.Equal(t, "friend", o.EdgeLabel)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{Bolt, InMemory, Neo4jREST, Rexster}, Names())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "node", Node.String())
	assert.Equal(t, "edge", Edge.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
