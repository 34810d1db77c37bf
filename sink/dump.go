// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sink

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

func dumpIndent(w io.Writer, level int) {
	_, _ = io.WriteString(w, "| ")
	for i := 0; i < level; i++ {
		_, _ = io.WriteString(w, "  ")
	}
}

func dumpLevel(w io.Writer, n *html.Node, level int) error {
	dumpIndent(w, level)
	level++
	switch n.Type {
	case html.ErrorNode:
		return errors.New("unexpected ErrorNode")
	case html.DocumentNode:
		return errors.New("unexpected DocumentNode")
	case html.ElementNode:
		_, _ = fmt.Fprintf(w, "<%s>", n.Data)
		attr := slices.Clone(n.Attr)
		slices.SortFunc(attr, func(a, b html.Attribute) int {
			return strings.Compare(a.Key, b.Key)
		})
		for _, a := range attr {
			_, _ = io.WriteString(w, "\n")
			dumpIndent(w, level)
			_, _ = fmt.Fprintf(w, `%s="%s"`, a.Key, a.Val)
		}
	case html.TextNode:
		_, _ = fmt.Fprintf(w, `"%s"`, n.Data)
	case html.CommentNode:
		_, _ = fmt.Fprintf(w, "<!-- %s -->", n.Data)
	case html.DoctypeNode:
		_, _ = fmt.Fprintf(w, "<!DOCTYPE %s", n.Data)
		var p, s string
		for _, a := range n.Attr {
			switch a.Key {
			case "public":
				p = a.Val
			case "system":
				s = a.Val
			}
		}
		if p != "" || s != "" {
			_, _ = fmt.Fprintf(w, ` "%s" "%s"`, p, s)
		}
		_, _ = io.WriteString(w, ">")
	default:
		return errors.New("unknown node type")
	}
	_, _ = io.WriteString(w, "\n")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := dumpLevel(w, c, level); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes the children of n one node per line, indented by depth:
//
//	| <html>
//	|   <head>
//	|   <body>
//	|     "text"
func Dump(w io.Writer, n *html.Node) error {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := dumpLevel(w, c, 0); err != nil {
			return err
		}
	}
	return nil
}

// DumpString is Dump into a string.
func DumpString(n *html.Node) (string, error) {
	var b bytes.Buffer
	if err := Dump(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}
