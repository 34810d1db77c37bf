// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sink

import (
	"strings"

	"golang.org/x/net/html"
)

const whitespace = " \t\r\n\f"

// parseDoctype turns the text of a document type declaration into a
// DoctypeNode. Data is the lowercased name; the public and system
// identifiers, when present, become the "public" and "system" attributes.
func parseDoctype(s string) *html.Node {
	n := &html.Node{Type: html.DoctypeNode}

	s = strings.TrimLeft(s, whitespace)
	space := strings.IndexAny(s, whitespace)
	if space == -1 {
		space = len(s)
	}
	n.Data = strings.ToLower(s[:space])
	rest := strings.TrimLeft(s[space:], whitespace)
	if len(rest) < 6 {
		return n
	}

	key := strings.ToLower(rest[:6])
	rest = rest[6:]
	for key == "public" || key == "system" {
		rest = strings.TrimLeft(rest, whitespace)
		if rest == "" {
			break
		}
		quote := rest[0]
		if quote != '"' && quote != '\'' {
			break
		}
		rest = rest[1:]
		id, after, found := strings.Cut(rest, string(quote))
		if !found {
			after = ""
		}
		rest = after
		n.Attr = append(n.Attr, html.Attribute{Key: key, Val: id})
		if key == "public" {
			key = "system"
		} else {
			key = ""
		}
	}
	return n
}
