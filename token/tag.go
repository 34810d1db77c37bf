package token

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// Tag identifies an element or one of the pseudo-elements the tree builder
// reasons about (text runs, whitespace, comments and so on).
//
// Known elements carry their atom.Atom value. Pseudo-elements live above the
// atom range. Unknown is the zero value.
type Tag uint32

const Unknown Tag = 0

const pseudoBase Tag = 1 << 30

const (
	Text Tag = pseudoBase + iota
	Whitespace
	Newline
	Entity
	Comment
	CDATA
	MarkupDecl
	Instruction
	Doctype
	Userdefined
)

// Element tags the tree builder refers to by name.
const (
	A        = Tag(atom.A)
	Applet   = Tag(atom.Applet)
	Area     = Tag(atom.Area)
	B        = Tag(atom.B)
	Body     = Tag(atom.Body)
	Br       = Tag(atom.Br)
	Caption  = Tag(atom.Caption)
	Div      = Tag(atom.Div)
	Font     = Tag(atom.Font)
	Form     = Tag(atom.Form)
	Frameset = Tag(atom.Frameset)
	Head     = Tag(atom.Head)
	HTML     = Tag(atom.Html)
	I        = Tag(atom.I)
	Iframe   = Tag(atom.Iframe)
	Image    = Tag(atom.Image)
	Img      = Tag(atom.Img)
	Input    = Tag(atom.Input)
	Keygen   = Tag(atom.Keygen)
	Li       = Tag(atom.Li)
	Link     = Tag(atom.Link)
	Listing  = Tag(atom.Listing)
	Map      = Tag(atom.Map)
	Meta     = Tag(atom.Meta)
	Nobr     = Tag(atom.Nobr)
	Noembed  = Tag(atom.Noembed)
	Noframes = Tag(atom.Noframes)
	Noscript = Tag(atom.Noscript)
	Option   = Tag(atom.Option)
	P        = Tag(atom.P)
	Pre      = Tag(atom.Pre)
	Script   = Tag(atom.Script)
	Select   = Tag(atom.Select)
	Span     = Tag(atom.Span)
	Table    = Tag(atom.Table)
	Tbody    = Tag(atom.Tbody)
	Td       = Tag(atom.Td)
	Tfoot    = Tag(atom.Tfoot)
	Th       = Tag(atom.Th)
	Thead    = Tag(atom.Thead)
	Title    = Tag(atom.Title)
	Tr       = Tag(atom.Tr)
	Ul       = Tag(atom.Ul)
)

var pseudoNames = map[Tag]string{
	Unknown:     "#unknown",
	Text:        "#text",
	Whitespace:  "#whitespace",
	Newline:     "#newline",
	Entity:      "#entity",
	Comment:     "#comment",
	CDATA:       "#cdata",
	MarkupDecl:  "#markupdecl",
	Instruction: "#instruction",
	Doctype:     "#doctype",
	Userdefined: "#userdefined",
}

var pseudoTags = func() map[string]Tag {
	m := make(map[string]Tag, len(pseudoNames))
	for t, name := range pseudoNames {
		m[name] = t
	}
	return m
}()

// Lookup maps an element name to its tag. Names that are not known HTML
// elements map to Userdefined.
func Lookup(name string) Tag {
	if a := atom.Lookup([]byte(strings.ToLower(name))); a != 0 {
		return Tag(a)
	}
	return Userdefined
}

// ParseTag resolves an element name or a pseudo-element name such as
// "#text". It reports false for names it does not recognize.
func ParseTag(name string) (Tag, bool) {
	if strings.HasPrefix(name, "#") {
		t, ok := pseudoTags[name]
		return t, ok
	}
	if a := atom.Lookup([]byte(strings.ToLower(name))); a != 0 {
		return Tag(a), true
	}
	return Unknown, false
}

// IsPseudo reports whether t is not an actual element.
func (t Tag) IsPseudo() bool {
	return t == Unknown || t >= pseudoBase
}

// Atom returns the atom of an element tag, or 0 for pseudo-elements.
func (t Tag) Atom() atom.Atom {
	if t.IsPseudo() {
		return 0
	}
	return atom.Atom(t)
}

func (t Tag) String() string {
	if name, ok := pseudoNames[t]; ok {
		return name
	}
	return atom.Atom(t).String()
}
