package scanner

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpotapov/go-tagsoup/token"
)

func tokenize(t *testing.T, markup string, opts Options) *Source {
	t.Helper()
	src := NewSource(nil)
	require.NoError(t, TokenizeString(markup, src, opts))
	return src
}

func describe(src *Source) []string {
	var out []string
	for i := 0; i < src.Count(); i++ {
		tok := src.TokenAt(i)
		switch tok.Kind {
		case token.Start:
			out = append(out, fmt.Sprintf("<%s>/%d", tok.Text, tok.AttrCount))
		case token.End:
			out = append(out, fmt.Sprintf("</%s>", tok.Text))
		case token.Attribute:
			out = append(out, fmt.Sprintf("@%s=%s", tok.Key, tok.Text))
		default:
			out = append(out, fmt.Sprintf("%s:%q", tok.Kind, tok.Text))
		}
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		opts   Options
		want   []string
	}{
		{
			name:   "attributes follow start tag",
			markup: `<A HREF="x" title=y>go</a>`,
			want:   []string{"<a>/2", "@href=x", "@title=y", `text:"go"`, "</a>"},
		},
		{
			name:   "whitespace and newlines",
			markup: "a b\n\nc",
			want:   []string{`text:"a b"`, `newline:"\n\n"`, `text:"c"`},
		},
		{
			name:   "leading whitespace",
			markup: "<p>  x",
			want:   []string{"<p>/0", `whitespace:"  "`, `text:"x"`},
		},
		{
			name:   "entities",
			markup: "a&amp;b&#65;&bogus c",
			want: []string{
				`text:"a"`, `entity:"amp"`, `text:"b"`, `entity:"#65"`,
				`entity:"bogus"`, `whitespace:" "`, `text:"c"`,
			},
		},
		{
			name:   "script is raw text",
			markup: `<script>if (a<b) x="&amp;"</script>`,
			want:   []string{"<script>/0", `text:"if (a<b) x=\"&amp;\""`, "</script>"},
		},
		{
			name:   "unterminated script",
			markup: `<script>x`,
			want:   []string{"<script>/0", `text:"x"`, "</script>"},
		},
		{
			name:   "noscript parsed without scripting",
			markup: `<noscript><b>x</b></noscript>`,
			want:   []string{"<noscript>/0", "<b>/0", `text:"x"`, "</b>", "</noscript>"},
		},
		{
			name:   "noscript raw with scripting",
			markup: `<noscript><b>x</b></noscript>`,
			opts:   Options{Scripting: true},
			want:   []string{"<noscript>/0", `text:"<b>x</b>"`, "</noscript>"},
		},
		{
			name:   "comment and doctype",
			markup: `<!DOCTYPE html><!-- c -->`,
			want:   []string{`doctype:"html"`, `comment:" c "`},
		},
		{
			name:   "markup declaration",
			markup: `<!ELEMENT foo>`,
			want:   []string{`markupdecl:"ELEMENT foo"`},
		},
		{
			name:   "cdata section",
			markup: `<![CDATA[a<b]]>`,
			want:   []string{`cdata:"a<b"`},
		},
		{
			name:   "processing instruction",
			markup: `<?xml version="1.0"?>`,
			want:   []string{`instruction:"?xml version=\"1.0\"?"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tokenize(t, tt.markup, tt.opts)
			if diff := cmp.Diff(tt.want, describe(src)); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenizeUnterminatedRawText(t *testing.T) {
	src := tokenize(t, "<title>x", Options{})
	require.Equal(t, 3, src.Count())
	end := src.TokenAt(2)
	assert.Equal(t, token.End, end.Kind)
	assert.Equal(t, token.Title, end.Tag)
	assert.True(t, end.InError)
}

func TestTokenizeNewlines(t *testing.T) {
	src := tokenize(t, "<p\nclass=x>a\r\n\nb<!--\n-->", Options{})
	var counts []int
	for i := 0; i < src.Count(); i++ {
		counts = append(counts, src.TokenAt(i).Newlines)
	}
	// <p>, @class, a, \r\n\n, b, comment
	assert.Equal(t, []int{1, 0, 0, 2, 0, 1}, counts)
}

func TestTokenizeUserdefined(t *testing.T) {
	src := tokenize(t, "<my-widget>", Options{})
	require.Equal(t, 1, src.Count())
	assert.Equal(t, token.Userdefined, src.TokenAt(0).Tag)
	assert.Equal(t, "my-widget", src.TokenAt(0).Text)
}

func TestTokenizeAllocatorLimit(t *testing.T) {
	src := NewSource(&token.Allocator{Limit: 2})
	err := TokenizeString("<p>a<b>c", src, Options{})
	require.ErrorIs(t, err, token.ErrOutOfMemory)
}
