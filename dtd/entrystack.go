package dtd

import "github.com/dpotapov/go-tagsoup/token"

// entry is one slot of an EntryStack.
type entry struct {
	tag     token.Tag
	node    *token.Node
	styles  *EntryStack // residual styles pending at this depth
	tracked bool        // the slot counts towards node.UseCount
}

// EntryStack is a stack of open elements. Each entry may carry a nested
// stack of residual styles.
//
// Every entry holding a node owns one reference to it. Pop and Remove hand
// that reference to the caller.
type EntryStack struct {
	entries []entry
}

func (s *EntryStack) Count() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// TagAt returns the tag of the i-th entry, or token.Unknown if i is out of
// range.
func (s *EntryStack) TagAt(i int) token.Tag {
	if s == nil || i < 0 || i >= len(s.entries) {
		return token.Unknown
	}
	return s.entries[i].tag
}

// NodeAt returns the node of the i-th entry, or nil.
func (s *EntryStack) NodeAt(i int) *token.Node {
	if s == nil || i < 0 || i >= len(s.entries) {
		return nil
	}
	return s.entries[i].node
}

// Last returns the tag of the top entry, or token.Unknown if s is empty.
func (s *EntryStack) Last() token.Tag {
	return s.TagAt(s.Count() - 1)
}

// Push pushes n. When track is set the slot counts towards n.UseCount.
func (s *EntryStack) Push(n *token.Node, track bool) {
	if n == nil {
		return
	}
	n.Hold()
	if track {
		n.UseCount++
	}
	s.entries = append(s.entries, entry{tag: n.Tag(), node: n, tracked: track})
}

// PushTag pushes an entry that has no node.
func (s *EntryStack) PushTag(tag token.Tag) {
	s.entries = append(s.entries, entry{tag: tag})
}

// PushFront inserts n at the bottom of s as a tracked entry.
func (s *EntryStack) PushFront(n *token.Node) {
	if n == nil {
		return
	}
	n.Hold()
	n.UseCount++
	s.entries = append(s.entries, entry{})
	copy(s.entries[1:], s.entries)
	s.entries[0] = entry{tag: n.Tag(), node: n, tracked: true}
}

// Append moves the entries of other on top of s, leaving other empty.
func (s *EntryStack) Append(other *EntryStack) {
	if other == nil {
		return
	}
	s.entries = append(s.entries, other.entries...)
	clear(other.entries)
	other.entries = other.entries[:0]
}

// Pop removes the top entry and returns its node and residual-style stack.
// It returns nil if s is empty.
func (s *EntryStack) Pop() (*token.Node, *EntryStack) {
	i := s.Count()
	if i == 0 {
		return nil, nil
	}
	e := s.entries[i-1]
	s.entries[i-1] = entry{}
	s.entries = s.entries[:i-1]
	if e.tracked && e.node != nil {
		e.node.UseCount--
	}
	return e.node, e.styles
}

// Remove removes the i-th entry and returns its node. Residual styles of the
// entry are dropped.
func (s *EntryStack) Remove(i int) *token.Node {
	if i < 0 || i >= s.Count() {
		return nil
	}
	e := s.entries[i]
	copy(s.entries[i:], s.entries[i+1:])
	s.entries[len(s.entries)-1] = entry{}
	s.entries = s.entries[:len(s.entries)-1]
	if e.tracked && e.node != nil {
		e.node.UseCount--
	}
	return e.node
}

// FirstOf returns the index of the bottom-most entry with the given tag, or
// -1.
func (s *EntryStack) FirstOf(tag token.Tag) int {
	for i := 0; i < s.Count(); i++ {
		if s.entries[i].tag == tag {
			return i
		}
	}
	return -1
}

// LastOf returns the index of the top-most entry with the given tag, or -1.
func (s *EntryStack) LastOf(tag token.Tag) int {
	for i := s.Count() - 1; i >= 0; i-- {
		if s.entries[i].tag == tag {
			return i
		}
	}
	return -1
}

// release drops every entry, returning node references to a.
func (s *EntryStack) release(a *token.Allocator) {
	for s.Count() > 0 {
		n, styles := s.Pop()
		styles.release(a)
		a.ReleaseNode(n)
	}
}
