package dtd

import "github.com/dpotapov/go-tagsoup/token"

// Context is the open-element stack of a parse together with the residual
// styles pending at each depth.
type Context struct {
	stack      EntryStack
	styleCount int

	// TopIndex is the index of the entry misplaced content is relocated
	// under, or -1.
	TopIndex int
}

func newContext() *Context {
	return &Context{TopIndex: -1}
}

func (c *Context) Count() int               { return c.stack.Count() }
func (c *Context) TagAt(i int) token.Tag    { return c.stack.TagAt(i) }
func (c *Context) NodeAt(i int) *token.Node { return c.stack.NodeAt(i) }
func (c *Context) Last() token.Tag          { return c.stack.Last() }
func (c *Context) LastOf(t token.Tag) int   { return c.stack.LastOf(t) }
func (c *Context) FirstOf(t token.Tag) int  { return c.stack.FirstOf(t) }

// StyleCount returns the number of residual styles pending at all depths.
func (c *Context) StyleCount() int {
	return c.styleCount
}

// PeekNode returns the node of the top entry.
func (c *Context) PeekNode() *token.Node {
	return c.stack.NodeAt(c.stack.Count() - 1)
}

// HasOpenContainer reports whether an entry with the given tag is open.
func (c *Context) HasOpenContainer(t token.Tag) bool {
	return c.stack.LastOf(t) >= 0
}

func (c *Context) Push(n *token.Node, track bool) {
	c.stack.Push(n, track)
}

func (c *Context) PushTag(t token.Tag) {
	c.stack.PushTag(t)
}

// Pop removes the top entry, handing the node reference and the residual
// styles pending at that depth to the caller.
func (c *Context) Pop() (*token.Node, *EntryStack) {
	n, styles := c.stack.Pop()
	c.styleCount -= styles.Count()
	return n, styles
}

// StylesAt returns the residual styles pending at depth i, or nil.
func (c *Context) StylesAt(i int) *EntryStack {
	if i < 0 || i >= c.stack.Count() {
		return nil
	}
	return c.stack.entries[i].styles
}

// PushStyle records n as a residual style of the top entry.
func (c *Context) PushStyle(n *token.Node) {
	i := c.stack.Count() - 1
	if i < 0 {
		return
	}
	e := &c.stack.entries[i]
	if e.styles == nil {
		e.styles = &EntryStack{}
	}
	e.styles.Push(n, true)
	c.styleCount++
}

// PushStyles attaches styles to the top entry. With an empty stack the
// styles are released.
func (c *Context) PushStyles(styles *EntryStack, a *token.Allocator) {
	if styles == nil {
		return
	}
	i := c.stack.Count() - 1
	if i < 0 {
		styles.release(a)
		return
	}
	c.styleCount += styles.Count()
	e := &c.stack.entries[i]
	if e.styles == nil {
		e.styles = styles
		return
	}
	e.styles.Append(styles)
}

// PopStyle removes the most recent residual style with the given tag from
// the first depth, searching from the top, whose last style matches. The
// depth 0 is never searched.
func (c *Context) PopStyle(t token.Tag) *token.Node {
	for i := c.stack.Count() - 1; i > 0; i-- {
		styles := c.stack.entries[i].styles
		if styles != nil && styles.Last() == t {
			n, _ := styles.Pop()
			c.styleCount--
			return n
		}
	}
	return nil
}

// RemoveStyle removes the top-most residual style with the given tag and
// releases it.
func (c *Context) RemoveStyle(t token.Tag, a *token.Allocator) {
	for level := c.stack.Count() - 1; level >= 0; level-- {
		styles := c.stack.entries[level].styles
		for i := styles.Count() - 1; i >= 0; i-- {
			if styles.entries[i].tag == t {
				c.styleCount--
				a.ReleaseNode(styles.Remove(i))
				return
			}
		}
	}
}

// removeStyleAt removes the i-th residual style pending at depth level.
func (c *Context) removeStyleAt(level, i int) *token.Node {
	styles := c.StylesAt(level)
	if i < 0 || i >= styles.Count() {
		return nil
	}
	c.styleCount--
	return styles.Remove(i)
}

// MoveEntries moves the top n entries of c onto dest. Entries arrive in
// reverse order; moving them back restores the original order.
func (c *Context) MoveEntries(dest *Context, n int) {
	if n <= 0 || n > c.stack.Count() {
		return
	}
	for ; n > 0; n-- {
		i := len(c.stack.entries) - 1
		e := c.stack.entries[i]
		c.stack.entries[i] = entry{}
		c.stack.entries = c.stack.entries[:i]
		if e.styles != nil {
			c.styleCount -= e.styles.Count()
			dest.styleCount += e.styles.Count()
		}
		dest.stack.entries = append(dest.stack.entries, e)
	}
}

// release pops and releases every entry.
func (c *Context) release(a *token.Allocator) {
	c.stack.release(a)
	c.styleCount = 0
}
