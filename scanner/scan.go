// Package scanner turns HTML markup into the token stream the tree builder
// consumes.
//
// Markup is lexed with the golang.org/x/net/html tokenizer. Character data
// is split into text, whitespace, newline and entity tokens, start tags are
// followed by one token per attribute, and every container start tag is
// marked as well formed when its end tag closes it without crossing another
// element.
package scanner

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/token"
)

// Options configures Tokenize.
type Options struct {
	// Scripting makes the content of <noscript> raw text, as a browser with
	// scripts enabled sees it.
	Scripting bool

	// Grammar classifies elements for the well-formedness pass. Nil means
	// grammar.Default().
	Grammar grammar.Grammar

	Logger *slog.Logger
}

var entityRef = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);?`)

// Elements whose content the tokenizer returns as a single text token.
var rawTextTags = map[token.Tag]bool{
	token.Script:              true,
	token.Title:               true,
	token.Iframe:              true,
	token.Noembed:             true,
	token.Noframes:            true,
	token.Noscript:            true,
	token.Tag(atom.Style):     true,
	token.Tag(atom.Textarea):  true,
	token.Tag(atom.Xmp):       true,
	token.Tag(atom.Plaintext): true,
}

// Tokenize reads markup from r and appends its tokens to src.
func Tokenize(r io.Reader, src *Source, opts Options) error {
	g := opts.Grammar
	if g == nil {
		g = grammar.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &scan{
		z:     html.NewTokenizer(r),
		src:   src,
		alloc: src.Allocator(),
		opts:  opts,
	}
	start := src.Count()
	if err := s.run(); err != nil {
		return err
	}
	tokens := make([]*token.Token, 0, src.Count()-start)
	for i := start; i < src.Count(); i++ {
		tokens = append(tokens, src.TokenAt(i))
	}
	markStructure(tokens, g)
	logger.Debug("Tokenized markup", "tokens", len(tokens))
	return nil
}

// TokenizeString is Tokenize over a string.
func TokenizeString(s string, src *Source, opts Options) error {
	return Tokenize(strings.NewReader(s), src, opts)
}

type scan struct {
	z     *html.Tokenizer
	src   *Source
	alloc *token.Allocator
	opts  Options

	raw token.Tag // element whose raw text comes next, or Unknown
}

func (s *scan) run() error {
	for {
		tt := s.z.Next()
		if tt == html.ErrorToken {
			err := s.z.Err()
			if errors.Is(err, io.EOF) {
				return s.closeRawText()
			}
			return err
		}
		if err := s.emit(tt); err != nil {
			return err
		}
	}
}

func (s *scan) emit(tt html.TokenType) error {
	raw := s.z.Raw()
	newlines := bytes.Count(raw, []byte{'\n'})

	switch tt {
	case html.TextToken:
		if s.raw != token.Unknown {
			return s.push(token.TextKind, token.Text, string(s.z.Text()), newlines)
		}
		return s.text(string(raw))

	case html.StartTagToken, html.SelfClosingTagToken:
		if err := s.closeRawText(); err != nil {
			return err
		}
		name, hasAttr := s.z.TagName()
		tag := token.Lookup(string(name))
		t, err := s.alloc.NewToken(token.Start, tag, string(name))
		if err != nil {
			return err
		}
		t.Newlines = newlines
		s.src.Push(t)
		if hasAttr {
			if t.AttrCount, err = s.attributes(); err != nil {
				return err
			}
		}
		if rawTextTags[tag] {
			if tag == token.Noscript && !s.opts.Scripting {
				s.z.NextIsNotRawText()
			} else {
				s.raw = tag
			}
		}
		return nil

	case html.EndTagToken:
		name, hasAttr := s.z.TagName()
		tag := token.Lookup(string(name))
		if tag == s.raw {
			s.raw = token.Unknown
		}
		t, err := s.alloc.NewToken(token.End, tag, string(name))
		if err != nil {
			return err
		}
		t.Newlines = newlines
		s.src.Push(t)
		if hasAttr {
			if t.AttrCount, err = s.attributes(); err != nil {
				return err
			}
		}
		return nil

	case html.CommentToken:
		kind := token.CommentKind
		switch {
		case bytes.HasPrefix(raw, []byte("<!--")):
		case bytes.HasPrefix(raw, []byte("<![CDATA[")):
			kind = token.CDATAKind
		case bytes.HasPrefix(raw, []byte("<?")):
			kind = token.InstructionKind
		default:
			kind = token.MarkupDeclKind
		}
		text := string(s.z.Text())
		if kind == token.CDATAKind {
			text = strings.TrimSuffix(strings.TrimPrefix(text, "[CDATA["), "]]")
		}
		return s.push(kind, token.Unknown, text, newlines)

	case html.DoctypeToken:
		return s.push(token.DoctypeKind, token.Unknown, string(s.z.Text()), newlines)
	}
	return nil
}

// closeRawText ends a raw-text element the markup left open.
func (s *scan) closeRawText() error {
	if s.raw == token.Unknown {
		return nil
	}
	t, err := s.alloc.NewToken(token.End, s.raw, "")
	if err != nil {
		return err
	}
	t.InError = true
	s.raw = token.Unknown
	s.src.Push(t)
	return nil
}

func (s *scan) attributes() (int, error) {
	n := 0
	for more := true; more; {
		var key, val []byte
		key, val, more = s.z.TagAttr()
		a, err := s.alloc.NewAttribute(string(key), string(val))
		if err != nil {
			return n, err
		}
		s.src.Push(a)
		n++
	}
	return n, nil
}

func (s *scan) push(kind token.Kind, tag token.Tag, text string, newlines int) error {
	t, err := s.alloc.NewToken(kind, tag, text)
	if err != nil {
		return err
	}
	t.Newlines = newlines
	s.src.Push(t)
	return nil
}

// text splits character data into entity references and runs of text,
// whitespace and newlines.
func (s *scan) text(data string) error {
	for data != "" {
		loc := entityRef.FindStringSubmatchIndex(data)
		if loc == nil {
			return s.chars(data)
		}
		if err := s.chars(data[:loc[0]]); err != nil {
			return err
		}
		if err := s.push(token.EntityKind, token.Entity, data[loc[2]:loc[3]], 0); err != nil {
			return err
		}
		data = data[loc[1]:]
	}
	return nil
}

func (s *scan) chars(data string) error {
	for data != "" {
		var n int
		var err error
		switch c := data[0]; {
		case c == '\n' || c == '\r':
			n = span(data, "\r\n")
			err = s.push(token.NewlineKind, token.Newline, data[:n], strings.Count(data[:n], "\n"))
		case c == ' ' || c == '\t' || c == '\f':
			n = span(data, " \t\f")
			err = s.push(token.WhitespaceKind, token.Whitespace, data[:n], 0)
		default:
			n = strings.IndexAny(data, "\r\n")
			if n < 0 {
				n = len(data)
			}
			err = s.push(token.TextKind, token.Text, data[:n], 0)
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// span returns the length of the prefix of s made of bytes in set.
func span(s, set string) int {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(set, s[i]) < 0 {
			return i
		}
	}
	return len(s)
}
