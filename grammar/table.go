package grammar

import (
	"slices"

	"github.com/expr-lang/expr/vm"
	"golang.org/x/net/html/atom"

	"github.com/dpotapov/go-tagsoup/token"
)

// Element is the rule row of one tag.
type Element struct {
	Tag               token.Tag
	Groups            Group // groups the element belongs to
	Contains          Group // groups the element may contain
	Excludes          Group // groups the element refuses
	Properties        Property
	RequiredAncestor  token.Tag
	ExcludingAncestor token.Tag
	RootTags          []token.Tag
	EndRootTags       []token.Tag
	AutoCloseStart    []token.Tag
	AutoCloseEnd      []token.Tag
	Synonyms          []token.Tag
	ExcludableParents []token.Tag
	SpecialParents    []token.Tag
	SpecialKids       []token.Tag
	PropagateRange    int

	requiresBodyIf *vm.Program
	condition      string
}

var emptyElement = &Element{}

// Table is a Grammar backed by a set of element rows. Elements missing from
// the table follow the #userdefined row.
type Table struct {
	elements map[token.Tag]*Element
}

var _ Grammar = (*Table)(nil)

// NewTable returns a table holding the given rows.
func NewTable(elements ...*Element) *Table {
	t := &Table{elements: make(map[token.Tag]*Element, len(elements))}
	for _, e := range elements {
		t.elements[e.Tag] = e
	}
	return t
}

// Element returns the rule row for tag.
func (t *Table) Element(tag token.Tag) *Element {
	if e, ok := t.elements[tag]; ok {
		return e
	}
	if !tag.IsPseudo() {
		if e, ok := t.elements[token.Userdefined]; ok {
			return e
		}
	}
	return emptyElement
}

// Condition returns the source of the requires-body-if condition of the
// element, if any.
func (e *Element) Condition() string {
	return e.condition
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.elements)
}

// Merge returns a table with the rows of t replaced or extended by the rows
// of other.
func (t *Table) Merge(other *Table) *Table {
	m := &Table{elements: make(map[token.Tag]*Element, len(t.elements)+len(other.elements))}
	for k, v := range t.elements {
		m.elements[k] = v
	}
	for k, v := range other.elements {
		m.elements[k] = v
	}
	return m
}

func (t *Table) HasProperty(tag token.Tag, p Property) bool {
	return t.Element(tag).Properties&p != 0
}

// IsMemberOf reports whether tag belongs to any of the groups in g.
func (t *Table) IsMemberOf(tag token.Tag, g Group) bool {
	return t.Element(tag).Groups&g != 0
}

func (t *Table) canContainType(tag token.Tag, g Group) bool {
	return t.Element(tag).Contains&g != 0
}

func (t *Table) IsContainer(tag token.Tag) bool {
	if tag == token.Unknown {
		return true
	}
	return !t.HasProperty(tag, NonContainer)
}

func (t *Table) CanContainSelf(tag token.Tag) bool {
	return t.canContainType(tag, Self)
}

func (t *Table) IsBlockParent(tag token.Tag) bool {
	return !tag.IsPseudo() && t.Element(tag).Contains&BlockEntity == BlockEntity
}

func (t *Table) isInlineParent(tag token.Tag) bool {
	return !tag.IsPseudo() && t.Element(tag).Contains&InlineEntity == InlineEntity
}

func (t *Table) isFlowParent(tag token.Tag) bool {
	return !tag.IsPseudo() && t.Element(tag).Contains&FlowEntity == FlowEntity
}

func isTextTag(tag token.Tag) bool {
	switch tag {
	case token.Text, token.Entity, token.Newline, token.Whitespace:
		return true
	}
	return false
}

var blockClosers = []token.Tag{
	token.Table, token.Tbody, token.Td, token.Th, token.Tr, token.Caption,
	token.Tag(atom.Object), token.Applet, token.Tag(atom.Ol), token.Ul,
	token.Tag(atom.Optgroup), token.Nobr, token.Tag(atom.Dir),
}

// IsBlockCloser reports whether an end tag of tag closes through inline
// content using the auto-close and root sets of the element.
func (t *Table) IsBlockCloser(tag token.Tag) bool {
	if tag.IsPseudo() {
		return false
	}
	if t.IsMemberOf(tag, BlockEntity) {
		return true
	}
	return slices.Contains(blockClosers, tag)
}

func (t *Table) IsResidualStyleTag(tag token.Tag) bool {
	return t.HasProperty(tag, ResidualStyle)
}

func (t *Table) IsSectionTag(tag token.Tag) bool {
	return t.HasProperty(tag, Section)
}

func (t *Table) IsWhitespaceTag(tag token.Tag) bool {
	return tag == token.Whitespace || tag == token.Newline
}

func (t *Table) IsChildOfHead(tag token.Tag) (child, exclusive bool) {
	g := t.Element(tag).Groups
	if g&HeadContent != 0 {
		return true, true
	}
	if g&HeadMisc != 0 {
		return true, false
	}
	return false, false
}

// SectionContains reports whether section is a root of child.
func (t *Table) SectionContains(section, child token.Tag) bool {
	return slices.Contains(t.Element(child).RootTags, section)
}

func (t *Table) HasSpecialKids(tag token.Tag) bool {
	return len(t.Element(tag).SpecialKids) > 0
}

func (t *Table) IsSpecialParent(tag, parent token.Tag) bool {
	return slices.Contains(t.Element(tag).SpecialParents, parent)
}

func (t *Table) RequiredAncestor(tag token.Tag) token.Tag {
	return t.Element(tag).RequiredAncestor
}

func (t *Table) ExcludingAncestor(tag token.Tag) token.Tag {
	return t.Element(tag).ExcludingAncestor
}

func (t *Table) RootTags(tag token.Tag) []token.Tag {
	return t.Element(tag).RootTags
}

func (t *Table) EndRootTags(tag token.Tag) []token.Tag {
	return t.Element(tag).EndRootTags
}

func (t *Table) AutoCloseStartTags(tag token.Tag) []token.Tag {
	return t.Element(tag).AutoCloseStart
}

func (t *Table) AutoCloseEndTags(tag token.Tag) []token.Tag {
	return t.Element(tag).AutoCloseEnd
}

func (t *Table) SpecialParents(tag token.Tag) []token.Tag {
	return t.Element(tag).SpecialParents
}

func (t *Table) PropagateRange(tag token.Tag) int {
	return t.Element(tag).PropagateRange
}

// CanOmitEndTag reports whether an end tag of tag is ignored.
func (t *Table) CanOmitEndTag(tag token.Tag) bool {
	return !t.IsContainer(tag) || t.HasProperty(tag, OmitEndTag)
}

// CanExclude reports whether parent refuses child through its exclusion
// groups. Legal-open elements and special kids are never excluded.
func (t *Table) CanExclude(parent, child token.Tag) bool {
	if t.HasProperty(child, LegalOpen) {
		return false
	}
	p := t.Element(parent)
	if slices.Contains(p.SpecialKids, child) {
		return false
	}
	return p.Excludes != 0 && t.IsMemberOf(child, p.Excludes)
}

// CanContain reports whether parent may directly contain child.
func (t *Table) CanContain(parent, child token.Tag, mode Mode) bool {
	if !t.IsContainer(parent) {
		return false
	}
	if t.HasProperty(child, LegalOpen) {
		return true
	}
	if parent == child {
		return t.CanContainSelf(parent)
	}
	c := t.Element(child)
	if slices.Contains(c.AutoCloseStart, parent) {
		return false
	}
	if slices.Contains(c.ExcludableParents, parent) {
		return false
	}
	if t.IsBlockCloser(child) && t.IsBlockParent(parent) {
		return true
	}
	if t.IsMemberOf(child, InlineEntity) && t.isInlineParent(parent) {
		return true
	}
	if t.IsMemberOf(child, FlowEntity) && t.isFlowParent(parent) {
		return true
	}
	if isTextTag(child) && (t.isInlineParent(parent) || t.canContainType(parent, CDATAGroup)) {
		return true
	}
	if t.canContainType(parent, c.Groups) {
		return true
	}
	if slices.Contains(t.Element(parent).SpecialKids, child) {
		return true
	}
	return child == token.Table && parent == token.P && mode == Quirks
}

// RequiresBody reports whether a start tag of tag forces the body open.
// attr looks up the attributes of the start tag.
func (t *Table) RequiresBody(tag token.Tag, attr func(key string) (string, bool)) bool {
	e := t.Element(tag)
	if e.Properties&RequiresBody == 0 {
		return false
	}
	if e.requiresBodyIf == nil {
		return true
	}
	return evalCondition(e.requiresBodyIf, attr)
}

// IndexOfChildOrSynonym returns the index of the top-most entry of s that is
// tag or one of its synonyms, or -1.
func (t *Table) IndexOfChildOrSynonym(s Stack, tag token.Tag) int {
	for i := s.Count() - 1; i >= 0; i-- {
		if s.TagAt(i) == tag {
			return i
		}
	}
	if syn := t.Element(tag).Synonyms; len(syn) > 0 {
		return LastOf(s, syn)
	}
	return -1
}

// CanAutoCloseTag reports whether the entries from the top of s down to
// index may be closed implicitly.
func (t *Table) CanAutoCloseTag(s Stack, index int, tag token.Tag) bool {
	for i := s.Count() - 1; i >= index; i-- {
		switch s.TagAt(i) {
		case token.Applet, token.Td:
			return false
		}
	}
	return true
}

// CloseTargetForEndTag finds the entry an end tag of tag closes, searching
// from the top of s down to index. Inline end tags walk through other inline
// entries; other end tags walk through entries tag could contain.
func (t *Table) CloseTargetForEndTag(s Stack, tag token.Tag, index int, mode Mode) token.Tag {
	inline := t.IsMemberOf(tag, Phrase|Special|FontStyle)
	for i := s.Count() - 1; i >= index && i >= 0; i-- {
		cur := s.TagAt(i)
		if cur == tag {
			return tag
		}
		if inline {
			if !t.IsMemberOf(cur, Special|FontStyle|Phrase) {
				break
			}
			continue
		}
		if !t.CanContain(tag, cur, mode) {
			break
		}
	}
	return token.Unknown
}
