package grammar

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/dpotapov/go-tagsoup/token"
)

//go:embed html.xml
var defaultTable []byte

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return Load(bytes.NewReader(defaultTable))
})

// Default returns the built-in HTML table. The table is loaded once and
// shared.
func Default() *Table {
	return MustLoad(loadDefault())
}

// MustLoad panics if err is non-nil.
func MustLoad(t *Table, err error) *Table {
	if err != nil {
		panic(err)
	}
	return t
}

var (
	ErrUnknownTag       = errors.New("unknown tag")
	ErrUnknownGroup     = errors.New("unknown group")
	ErrUnknownProperty  = errors.New("unknown property")
	ErrUnknownList      = errors.New("unknown tag list")
	ErrUnknownAttribute = errors.New("unknown attribute")
)

var groupNames = map[string]Group{
	"head-content": HeadContent,
	"head-misc":    HeadMisc,
	"special":      Special,
	"form-control": FormControl,
	"preformatted": Preformatted,
	"font-style":   FontStyle,
	"phrase":       Phrase,
	"heading":      Heading,
	"block-misc":   BlockMisc,
	"block":        Block,
	"list":         List,
	"pcdata":       PCDATA,
	"self":         Self,
	"extensions":   Extensions,
	"table":        TableGroup,
	"dl-child":     DLChild,
	"cdata":        CDATAGroup,
	"html-content": HTMLContent,
	"inline":       InlineEntity,
	"block-entity": BlockEntity,
	"flow":         FlowEntity,
}

var propertyNames = map[string]Property{
	"bad-content-watch":  BadContentWatch,
	"no-style-leaks-in":  NoStyleLeaksIn,
	"no-style-leaks-out": NoStyleLeaksOut,
	"must-close-self":    MustCloseSelf,
	"save-misplaced":     SaveMisplaced,
	"legal-open":         LegalOpen,
	"no-propagate":       NoPropagate,
	"requires-body":      RequiresBody,
	"prefer-head":        PreferHead,
	"prefer-body":        PreferBody,
	"handle-stray-tag":   HandleStrayTag,
	"verify-hierarchy":   VerifyHierarchy,
	"omit-end-tag":       OmitEndTag,
	"non-container":      NonContainer,
	"optional-end-tag":   OptionalEndTag,
	"residual-style":     ResidualStyle,
	"section":            Section,
}

// Load reads a table from XML:
//
//	<grammar>
//	  <tags id="root">body td th</tags>
//	  <element name="p" groups="block" contains="inline" root="@root"/>
//	</grammar>
//
// An element's name may list several tags sharing one rule. Tag lists take
// element names, pseudo names such as "#text", and "@id" references to
// earlier <tags> lists.
func Load(r io.Reader) (*Table, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "grammar" {
		return nil, errors.New("read grammar: missing <grammar> root element")
	}

	l := loader{lists: make(map[string][]token.Tag)}
	var elements []*Element
	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "tags":
			if err := l.readList(el); err != nil {
				return nil, newLoadError(el, err)
			}
		case "element":
			rows, err := l.readElement(el)
			if err != nil {
				return nil, newLoadError(el, err)
			}
			elements = append(elements, rows...)
		default:
			return nil, newLoadError(el, fmt.Errorf("unexpected element <%s>", el.Tag))
		}
	}
	return NewTable(elements...), nil
}

type loader struct {
	lists map[string][]token.Tag
}

func (l *loader) readList(el *etree.Element) error {
	id := el.SelectAttrValue("id", "")
	if id == "" {
		return errors.New("tag list without id")
	}
	tags, err := l.tags(el.Text())
	if err != nil {
		return err
	}
	l.lists[id] = tags
	return nil
}

func (l *loader) tags(s string) ([]token.Tag, error) {
	var tags []token.Tag
	for _, f := range strings.Fields(s) {
		if id, ok := strings.CutPrefix(f, "@"); ok {
			list, ok := l.lists[id]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownList, id)
			}
			tags = append(tags, list...)
			continue
		}
		t, ok := token.ParseTag(f)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTag, f)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (l *loader) tag(s string) (token.Tag, error) {
	tags, err := l.tags(s)
	if err != nil {
		return token.Unknown, err
	}
	if len(tags) > 1 {
		return token.Unknown, fmt.Errorf("want a single tag, got %q", s)
	}
	if len(tags) == 0 {
		return token.Unknown, nil
	}
	return tags[0], nil
}

func groups(s string) (Group, error) {
	var g Group
	for _, f := range strings.Fields(s) {
		v, ok := groupNames[f]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownGroup, f)
		}
		g |= v
	}
	return g, nil
}

func properties(s string) (Property, error) {
	var p Property
	for _, f := range strings.Fields(s) {
		v, ok := propertyNames[f]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownProperty, f)
		}
		p |= v
	}
	return p, nil
}

func (l *loader) readElement(el *etree.Element) ([]*Element, error) {
	var (
		e     Element
		names []token.Tag
		err   error
	)
	for _, a := range el.Attr {
		switch a.Key {
		case "name":
			names, err = l.tags(a.Value)
		case "groups":
			e.Groups, err = groups(a.Value)
		case "contains":
			e.Contains, err = groups(a.Value)
		case "excludes":
			e.Excludes, err = groups(a.Value)
		case "props":
			e.Properties, err = properties(a.Value)
		case "required-ancestor":
			e.RequiredAncestor, err = l.tag(a.Value)
		case "excluding-ancestor":
			e.ExcludingAncestor, err = l.tag(a.Value)
		case "root":
			e.RootTags, err = l.tags(a.Value)
		case "end-root":
			e.EndRootTags, err = l.tags(a.Value)
		case "autoclose-start":
			e.AutoCloseStart, err = l.tags(a.Value)
		case "autoclose-end":
			e.AutoCloseEnd, err = l.tags(a.Value)
		case "synonyms":
			e.Synonyms, err = l.tags(a.Value)
		case "excludable-parents":
			e.ExcludableParents, err = l.tags(a.Value)
		case "special-parents":
			e.SpecialParents, err = l.tags(a.Value)
		case "special-kids":
			e.SpecialKids, err = l.tags(a.Value)
		case "propagate-range":
			e.PropagateRange, err = strconv.Atoi(a.Value)
		case "requires-body-if":
			e.condition = a.Value
			e.requiresBodyIf, err = compileCondition(a.Value)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownAttribute, a.Key)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Key, err)
		}
	}
	if len(names) == 0 {
		return nil, errors.New("element without name")
	}

	rows := make([]*Element, len(names))
	for i, name := range names {
		row := e
		row.Tag = name
		rows[i] = &row
	}
	return rows, nil
}
