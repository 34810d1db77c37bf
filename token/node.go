package token

import "strings"

// A Node wraps a token together with the attribute tokens that followed it.
//
// UseCount counts the stack slots that track the node as an open residual
// style: the open-element slot and any style stack holding it. It is
// independent from the ownership count that decides when the node returns
// to its allocator.
type Node struct {
	Token    *Token
	UseCount int

	attrs []*Token
	refs  int
}

func (n *Node) Tag() Tag {
	if n == nil || n.Token == nil {
		return Unknown
	}
	return n.Token.Tag
}

func (n *Node) Kind() Kind {
	if n == nil || n.Token == nil {
		return 0
	}
	return n.Token.Kind
}

// Text returns the element name or the character data of the node.
func (n *Node) Text() string {
	if n == nil || n.Token == nil {
		return ""
	}
	return n.Token.Text
}

func (n *Node) AttrCount() int {
	return len(n.attrs)
}

func (n *Node) Key(i int) string {
	return n.attrs[i].Key
}

func (n *Node) Value(i int) string {
	return n.attrs[i].Text
}

// Attr returns the value of the attribute with the given key, compared
// case-insensitively.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.attrs {
		if strings.EqualFold(a.Key, key) {
			return a.Text, true
		}
	}
	return "", false
}

// AddAttribute appends an attribute token. The first attribute with a given
// key wins: a duplicate is refused and stays owned by the caller.
func (n *Node) AddAttribute(t *Token) bool {
	if _, dup := n.Attr(t.Key); dup {
		return false
	}
	n.attrs = append(n.attrs, t)
	return true
}

// PopAttributeToken removes and returns the last attribute token, handing
// its ownership to the caller.
func (n *Node) PopAttributeToken() *Token {
	if len(n.attrs) == 0 {
		return nil
	}
	t := n.attrs[len(n.attrs)-1]
	n.attrs[len(n.attrs)-1] = nil
	n.attrs = n.attrs[:len(n.attrs)-1]
	return t
}

// PopAttributeTokenFront removes and returns the first attribute token.
func (n *Node) PopAttributeTokenFront() *Token {
	if len(n.attrs) == 0 {
		return nil
	}
	t := n.attrs[0]
	copy(n.attrs, n.attrs[1:])
	n.attrs[len(n.attrs)-1] = nil
	n.attrs = n.attrs[:len(n.attrs)-1]
	return t
}

// Hold records one more owner of n.
func (n *Node) Hold() {
	n.refs++
}
