package token

import "fmt"

// Kind is the lexical category of a token.
type Kind uint8

const (
	Start Kind = iota + 1
	End
	TextKind
	WhitespaceKind
	NewlineKind
	EntityKind
	CommentKind
	CDATAKind
	MarkupDeclKind
	InstructionKind
	DoctypeKind
	Attribute
)

var kindNames = [...]string{
	Start:           "start",
	End:             "end",
	TextKind:        "text",
	WhitespaceKind:  "whitespace",
	NewlineKind:     "newline",
	EntityKind:      "entity",
	CommentKind:     "comment",
	CDATAKind:       "cdata",
	MarkupDeclKind:  "markupdecl",
	InstructionKind: "instruction",
	DoctypeKind:     "doctype",
	Attribute:       "attribute",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// DefaultTag returns the tag carried by tokens of kind k that do not name an
// element.
func (k Kind) DefaultTag() Tag {
	switch k {
	case TextKind:
		return Text
	case WhitespaceKind:
		return Whitespace
	case NewlineKind:
		return Newline
	case EntityKind:
		return Entity
	case CommentKind:
		return Comment
	case CDATAKind:
		return CDATA
	case MarkupDeclKind:
		return MarkupDecl
	case InstructionKind:
		return Instruction
	case DoctypeKind:
		return Doctype
	}
	return Unknown
}

// A Token is one lexical unit of the input.
//
// Start tokens are followed in the stream by AttrCount attribute tokens.
// Text holds the element name for start and end tokens, the character data
// for text-like tokens, the entity name (without '&' and ';') for entities,
// and the attribute value for attribute tokens.
type Token struct {
	Kind       Kind
	Tag        Tag
	Text       string
	Key        string
	AttrCount  int
	Line       int
	Newlines   int
	WellFormed bool
	InError    bool

	refs int
}

// Value returns the value of an attribute token.
func (t *Token) Value() string {
	return t.Text
}

// Hold records one more owner of t. Each owner calls Allocator.ReleaseToken
// when done with it.
func (t *Token) Hold() {
	t.refs++
}

func (t *Token) String() string {
	switch t.Kind {
	case Start:
		return fmt.Sprintf("<%s>", t.Tag)
	case End:
		return fmt.Sprintf("</%s>", t.Tag)
	case Attribute:
		return fmt.Sprintf("%s=%q", t.Key, t.Text)
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}
