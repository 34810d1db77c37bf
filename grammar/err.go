package grammar

import (
	"github.com/beevik/etree"
)

// LoadError is returned by Load for a malformed rule. Path is the etree path
// of the offending element.
type LoadError struct {
	Path string
	Err  error
	doc  *etree.Element
}

func newLoadError(el *etree.Element, err error) *LoadError {
	path := el.GetPath()
	if name := el.SelectAttrValue("name", ""); name != "" {
		path += "[@name='" + name + "']"
	} else if id := el.SelectAttrValue("id", ""); id != "" {
		path += "[@id='" + id + "']"
	}
	return &LoadError{
		Path: path,
		Err:  err,
		doc:  buildErrorContext(el),
	}
}

func (e *LoadError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Context returns the offending rule together with up to two neighbouring
// rules on each side, as XML.
func (e *LoadError) Context() string {
	if e.doc == nil {
		return ""
	}
	d := etree.NewDocument()
	for _, c := range e.doc.Child {
		if el, ok := c.(*etree.Element); ok {
			d.AddChild(el.Copy())
		} else if cd, ok := c.(*etree.CharData); ok {
			d.AddChild(etree.NewText(cd.Data))
		}
	}
	s, _ := d.WriteToString()
	return s
}

type errorContextBuilder struct{}

func (b errorContextBuilder) addPrevSiblings(doc *etree.Element, el *etree.Element) {
	parent := el.Parent()
	if parent == nil {
		return
	}
	siblings, i := parent.Child, el.Index()
	var prev []etree.Token
	for j := i - 1; j >= 0; j-- {
		if _, ok := siblings[j].(*etree.Element); !ok {
			continue
		}
		if len(prev) == 2 {
			prev = append(prev, etree.NewText("..."))
			break
		}
		prev = append(prev, siblings[j])
	}
	for j := len(prev) - 1; j >= 0; j-- {
		b.addToken(doc, prev[j])
	}
}

func (b errorContextBuilder) addNextSiblings(doc *etree.Element, el *etree.Element) {
	parent := el.Parent()
	if parent == nil {
		return
	}
	siblings, i := parent.Child, el.Index()
	for j, c := i+1, 0; j < len(siblings); j++ {
		if _, ok := siblings[j].(*etree.Element); !ok {
			continue
		}
		if c == 2 {
			doc.AddChild(etree.NewText("..."))
			break
		}
		b.addToken(doc, siblings[j])
		c++
	}
}

func (b errorContextBuilder) addToken(doc *etree.Element, t etree.Token) {
	switch el := t.(type) {
	case *etree.Element:
		clone := etree.NewElement(el.FullTag())
		clone.Attr = make([]etree.Attr, len(el.Attr))
		copy(clone.Attr, el.Attr)
		if len(el.ChildElements()) > 0 {
			clone.AddChild(etree.NewText("..."))
		} else if text := el.Text(); text != "" {
			clone.SetText(text)
		}
		doc.AddChild(clone)
	case *etree.CharData:
		doc.AddChild(etree.NewText(el.Data))
	}
}

func (b errorContextBuilder) wrapParent(doc *etree.Element, el *etree.Element) *etree.Element {
	parent := el.Parent()
	if parent == nil || parent.Tag == "" {
		return doc
	}
	doc.Space = parent.Space
	doc.Tag = parent.Tag
	doc.Attr = make([]etree.Attr, len(parent.Attr))
	copy(doc.Attr, parent.Attr)

	wrapper := &etree.Element{}
	wrapper.AddChild(doc)
	return wrapper
}

// buildErrorContext creates an XML tree around el to give context for a load
// error.
func buildErrorContext(el *etree.Element) *etree.Element {
	doc := &etree.Element{}
	b := errorContextBuilder{}
	b.addPrevSiblings(doc, el)
	b.addToken(doc, el)
	b.addNextSiblings(doc, el)
	return b.wrapParent(doc, el)
}
