package deltasharing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableURL(t *testing.T) {
	tbl, err := ParseTableURL("sales.emea.orders")
	require.NoError(t, err)
	assert.Equal(t, Table{Share: "sales", Schema: "emea", Name: "orders"}, tbl)
	assert.Equal(t, "sales.emea.orders", TableURL(tbl))

	tbl, err = ParseTableURL("/tmp/open.share#delta_sharing. default .boston")
	require.NoError(t, err)
	assert.Equal(t, "default", tbl.Schema)

	for _, bad := range []string{"", "a.b", "a..c", "a.b.c.d"} {
		_, err := ParseTableURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewCatalogRejectsNonProfile(t *testing.T) {
	_, err := NewCatalog(`{"endpoint":"https://x"}`, 0, nil)
	assert.Error(t, err)

	c, err := NewCatalog(`{"shareCredentialsVersion":1,"endpoint":"https://example.com/delta-sharing/","bearerToken":"t"}`, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestBuildTree(t *testing.T) {
	tr := BuildTree([]Table{
		{Share: "s2", Schema: "b", Name: "t1"},
		{Share: "s1", Schema: "a", Name: "t2"},
		{Share: "s1", Schema: "a", Name: "t1"},
		{Share: "s1", Schema: "a", Name: "t1"},
	})

	require.Equal(t, []string{"share:s1", "share:s2"}, tr.Children(""))
	assert.Equal(t, []string{"schema:s1.a"}, tr.Children("share:s1"))
	assert.Equal(t, []string{"table:s1.a.t1", "table:s1.a.t2"}, tr.Children("schema:s1.a"))

	assert.True(t, tr.IsBranch("share:s1"))
	assert.False(t, tr.IsBranch("table:s1.a.t1"))
	assert.False(t, tr.IsBranch("missing"))
	assert.Equal(t, "t2", tr.Nodes["table:s1.a.t2"].Table.Name)
}
