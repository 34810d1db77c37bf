// Package grammar answers the containment questions the tree builder asks
// about HTML elements: which element may contain which, which elements
// close which, and which are subject to special recovery rules.
//
// The rules are data. Default returns the built-in HTML table; Load reads a
// table from XML.
package grammar

import (
	"slices"

	"github.com/dpotapov/go-tagsoup/token"
)

// Mode is the document compatibility mode.
type Mode int

const (
	Quirks Mode = iota
	AlmostStandards
	FullStandards
)

func (m Mode) String() string {
	switch m {
	case Quirks:
		return "quirks"
	case AlmostStandards:
		return "almost-standards"
	case FullStandards:
		return "full-standards"
	}
	return "unknown"
}

// Group is a set of content groups. An element belongs to one or more groups
// and may contain the members of other groups.
type Group uint32

const (
	HeadContent Group = 1 << iota
	HeadMisc
	Special
	FormControl
	Preformatted
	FontStyle
	Phrase
	Heading
	BlockMisc
	Block
	List
	PCDATA
	Self
	Extensions
	TableGroup
	DLChild
	CDATAGroup
	HTMLContent
)

const (
	InlineEntity = PCDATA | FontStyle | Phrase | Special | FormControl | Extensions
	BlockEntity  = Heading | List | Preformatted | Block
	FlowEntity   = BlockEntity | InlineEntity
)

// Property is a set of element flags that trigger special handling.
type Property uint32

const (
	BadContentWatch Property = 1 << iota
	NoStyleLeaksIn
	NoStyleLeaksOut
	MustCloseSelf
	SaveMisplaced
	LegalOpen
	NoPropagate
	RequiresBody
	PreferHead
	PreferBody
	HandleStrayTag
	VerifyHierarchy
	OmitEndTag
	NonContainer
	OptionalEndTag
	ResidualStyle
	Section
)

// Stack is the read-only view of the open-element stack the grammar needs to
// answer position-dependent questions.
type Stack interface {
	Count() int
	TagAt(i int) token.Tag
}

// Grammar is the set of queries the tree builder makes against the element
// rules. Implementations are read-only and safe to share between parses.
type Grammar interface {
	IsContainer(t token.Tag) bool
	CanContain(parent, child token.Tag, mode Mode) bool
	CanContainSelf(t token.Tag) bool
	CanExclude(parent, child token.Tag) bool
	CanOmitEndTag(t token.Tag) bool
	HasProperty(t token.Tag, p Property) bool
	IsMemberOf(t token.Tag, g Group) bool
	IsBlockCloser(t token.Tag) bool
	IsBlockParent(t token.Tag) bool
	IsResidualStyleTag(t token.Tag) bool
	IsSectionTag(t token.Tag) bool
	IsWhitespaceTag(t token.Tag) bool
	IsChildOfHead(t token.Tag) (child, exclusive bool)
	SectionContains(section, child token.Tag) bool
	HasSpecialKids(t token.Tag) bool
	IsSpecialParent(t, parent token.Tag) bool
	RequiredAncestor(t token.Tag) token.Tag
	ExcludingAncestor(t token.Tag) token.Tag
	RootTags(t token.Tag) []token.Tag
	EndRootTags(t token.Tag) []token.Tag
	AutoCloseStartTags(t token.Tag) []token.Tag
	AutoCloseEndTags(t token.Tag) []token.Tag
	SpecialParents(t token.Tag) []token.Tag
	PropagateRange(t token.Tag) int
	RequiresBody(t token.Tag, attr func(key string) (string, bool)) bool
	IndexOfChildOrSynonym(s Stack, t token.Tag) int
	CloseTargetForEndTag(s Stack, t token.Tag, index int, mode Mode) token.Tag
	CanAutoCloseTag(s Stack, index int, t token.Tag) bool
}

// LastOf returns the index of the top-most entry of s whose tag is in tags,
// or -1.
func LastOf(s Stack, tags []token.Tag) int {
	for i := s.Count() - 1; i >= 0; i-- {
		if slices.Contains(tags, s.TagAt(i)) {
			return i
		}
	}
	return -1
}
