package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNode(t *testing.T, a *Allocator, tag Tag, kv ...string) *Node {
	t.Helper()
	tok, err := a.NewToken(Start, tag, "")
	require.NoError(t, err)
	n, err := a.NewNode(tok)
	require.NoError(t, err)
	a.ReleaseToken(tok)
	for i := 0; i < len(kv); i += 2 {
		attr, err := a.NewAttribute(kv[i], kv[i+1])
		require.NoError(t, err)
		if !n.AddAttribute(attr) {
			a.ReleaseToken(attr)
		}
	}
	return n
}

func TestNodeAttributes(t *testing.T) {
	var a Allocator
	n := newNode(t, &a, Input, "type", "hidden", "TYPE", "text", "name", "q")

	require.Equal(t, 2, n.AttrCount())
	assert.Equal(t, "type", n.Key(0))
	assert.Equal(t, "hidden", n.Value(0))
	assert.Equal(t, "name", n.Key(1))

	v, ok := n.Attr("Type")
	assert.True(t, ok)
	assert.Equal(t, "hidden", v)
	_, ok = n.Attr("value")
	assert.False(t, ok)

	a.ReleaseNode(n)
	assert.Equal(t, 0, a.Live())
}

func TestNodePopAttribute(t *testing.T) {
	var a Allocator
	n := newNode(t, &a, Div, "id", "1", "class", "c", "title", "t")

	first := n.PopAttributeTokenFront()
	assert.Equal(t, "id", first.Key)
	last := n.PopAttributeToken()
	assert.Equal(t, "title", last.Key)
	require.Equal(t, 1, n.AttrCount())
	assert.Equal(t, "class", n.Key(0))

	a.ReleaseToken(first)
	a.ReleaseToken(last)
	a.ReleaseToken(n.PopAttributeToken())
	assert.Nil(t, n.PopAttributeToken())
	assert.Nil(t, n.PopAttributeTokenFront())
}

func TestNilNode(t *testing.T) {
	var n *Node
	assert.Equal(t, Unknown, n.Tag())
	assert.Equal(t, Kind(0), n.Kind())
	assert.Equal(t, "", n.Text())
}

func TestTagNames(t *testing.T) {
	assert.Equal(t, "table", Table.String())
	assert.Equal(t, "#text", Text.String())
	assert.Equal(t, Userdefined, Lookup("x-widget"))
	assert.Equal(t, Table, Lookup("TABLE"))

	tag, ok := ParseTag("#newline")
	assert.True(t, ok)
	assert.Equal(t, Newline, tag)
	_, ok = ParseTag("#bogus")
	assert.False(t, ok)
	_, ok = ParseTag("bogus")
	assert.False(t, ok)

	assert.True(t, Unknown.IsPseudo())
	assert.True(t, Comment.IsPseudo())
	assert.False(t, Div.IsPseudo())
}
