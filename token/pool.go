package token

import "errors"

// ErrOutOfMemory is returned when an allocation would exceed the allocator's
// configured limit.
var ErrOutOfMemory = errors.New("token: allocation limit exceeded")

// Slab sizes. Start with startSlab objects and grow by 2x up to maxSlab.
const (
	startSlab = 64
	maxSlab   = 4096
)

// Allocator hands out tokens and nodes from preallocated slabs and recycles
// released ones. The zero value is ready to use.
//
// Limit, when positive, caps the number of live objects (tokens plus nodes).
type Allocator struct {
	Limit int

	live       int
	tokenSlab  []Token
	tokenSize  int
	freeTokens []*Token
	nodeSlab   []Node
	nodeSize   int
	freeNodes  []*Node
}

// Live returns the number of tokens and nodes currently handed out.
func (a *Allocator) Live() int {
	return a.live
}

func (a *Allocator) reserve() error {
	if a.Limit > 0 && a.live >= a.Limit {
		return ErrOutOfMemory
	}
	a.live++
	return nil
}

func (a *Allocator) getToken() *Token {
	if n := len(a.freeTokens); n > 0 {
		t := a.freeTokens[n-1]
		a.freeTokens = a.freeTokens[:n-1]
		return t
	}
	if len(a.tokenSlab) == 0 {
		a.tokenSize = grow(a.tokenSize)
		a.tokenSlab = make([]Token, a.tokenSize)
	}
	t := &a.tokenSlab[len(a.tokenSlab)-1]
	a.tokenSlab = a.tokenSlab[:len(a.tokenSlab)-1]
	return t
}

func (a *Allocator) getNode() *Node {
	if n := len(a.freeNodes); n > 0 {
		nd := a.freeNodes[n-1]
		a.freeNodes = a.freeNodes[:n-1]
		return nd
	}
	if len(a.nodeSlab) == 0 {
		a.nodeSize = grow(a.nodeSize)
		a.nodeSlab = make([]Node, a.nodeSize)
	}
	nd := &a.nodeSlab[len(a.nodeSlab)-1]
	a.nodeSlab = a.nodeSlab[:len(a.nodeSlab)-1]
	return nd
}

func grow(size int) int {
	if size == 0 {
		return startSlab
	}
	return min(size*2, maxSlab)
}

// NewToken returns a token of the given kind owned by the caller. For kinds
// other than Start and End the tag is derived from the kind when tag is
// Unknown.
func (a *Allocator) NewToken(kind Kind, tag Tag, text string) (*Token, error) {
	if err := a.reserve(); err != nil {
		return nil, err
	}
	if tag == Unknown {
		tag = kind.DefaultTag()
	}
	if text == "" && (kind == Start || kind == End) {
		text = tag.String()
	}
	t := a.getToken()
	*t = Token{Kind: kind, Tag: tag, Text: text, refs: 1}
	return t, nil
}

// NewAttribute returns an attribute token owned by the caller.
func (a *Allocator) NewAttribute(key, value string) (*Token, error) {
	t, err := a.NewToken(Attribute, Unknown, value)
	if err != nil {
		return nil, err
	}
	t.Key = key
	return t, nil
}

// NewNode wraps tok in a node owned by the caller. The node holds its own
// reference to tok.
func (a *Allocator) NewNode(tok *Token) (*Node, error) {
	if err := a.reserve(); err != nil {
		return nil, err
	}
	n := a.getNode()
	*n = Node{Token: tok, refs: 1}
	if tok != nil {
		tok.Hold()
	}
	return n, nil
}

// ReleaseToken drops one ownership of t. The token is recycled once its last
// owner releases it and must not be read afterwards.
func (a *Allocator) ReleaseToken(t *Token) {
	if t == nil || t.refs <= 0 {
		return
	}
	t.refs--
	if t.refs > 0 {
		return
	}
	*t = Token{}
	a.freeTokens = append(a.freeTokens, t)
	a.live--
}

// ReleaseNode drops one ownership of n, recycling it together with its
// token and attribute tokens once the last owner lets go.
func (a *Allocator) ReleaseNode(n *Node) {
	if n == nil || n.refs <= 0 {
		return
	}
	n.refs--
	if n.refs > 0 {
		return
	}
	for _, t := range n.attrs {
		a.ReleaseToken(t)
	}
	a.ReleaseToken(n.Token)
	clear(n.attrs)
	attrs := n.attrs[:0]
	*n = Node{attrs: attrs}
	a.freeNodes = append(a.freeNodes, n)
	a.live--
}
