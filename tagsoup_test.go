package tagsoup

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/dpotapov/go-tagsoup/dtd"
	"github.com/dpotapov/go-tagsoup/sink"
	"github.com/dpotapov/go-tagsoup/token"
)

func dump(t *testing.T, markup string, opts Options) string {
	t.Helper()
	doc, err := ParseWithOptions(strings.NewReader(markup), opts)
	require.NoError(t, err)
	got, err := sink.DumpString(doc)
	require.NoError(t, err)
	return got
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
	}{
		{
			name:   "implied html and body",
			markup: "<p>a</p>",
			want: []string{
				`| <html>`,
				`|   <body>`,
				`|     <p>`,
				`|       "a"`,
			},
		},
		{
			name:   "text in a table is moved in front of it",
			markup: "<table>a<tr><td>b</td></tr></table>",
			want: []string{
				`| <html>`,
				`|   <body>`,
				`|     "a"`,
				`|     <table>`,
				`|       <tbody>`,
				`|         <tr>`,
				`|           <td>`,
				`|             "b"`,
			},
		},
		{
			name:   "title in the head",
			markup: "<title>t</title><p>x",
			want: []string{
				`| <html>`,
				`|   <head>`,
				`|     <title>`,
				`|       "t"`,
				`|   <body>`,
				`|     <p>`,
				`|       "x"`,
			},
		},
		{
			name:   "unclosed font is carried over",
			markup: "<font color=red><p>a</p>b",
			want: []string{
				`| <html>`,
				`|   <body>`,
				`|     <font>`,
				`|       color="red"`,
				`|     <p>`,
				`|       <font>`,
				`|         color="red"`,
				`|         "a"`,
				`|     <font>`,
				`|       color="red"`,
				`|       "b"`,
			},
		},
		{
			name:   "doctype",
			markup: "<!DOCTYPE html><p>x",
			want: []string{
				`| <!DOCTYPE html>`,
				`| <html>`,
				`|   <body>`,
				`|     <p>`,
				`|       "x"`,
			},
		},
		{
			name:   "empty",
			markup: "",
			want: []string{
				`| <html>`,
				`|   <body>`,
			},
		},
		{
			name:   "form end tag keeps the elements inside it open",
			markup: "<form><div>a</form>b</div>c",
			want: []string{
				`| <html>`,
				`|   <body>`,
				`|     <form>`,
				`|       <div>`,
				`|         "ab"`,
				`|     "c"`,
			},
		},
		{
			name:   "text moved out of a table after the form closed",
			markup: "<form><div><table></form>x</table>",
			want: []string{
				`| <html>`,
				`|   <body>`,
				`|     <form>`,
				`|       <div>`,
				`|         "x"`,
				`|         <table>`,
			},
		},
		{
			name:   "table rows stay in the table after the form closed",
			markup: "<form><table></form>x<tr><td>y</table>",
			want: []string{
				`| <html>`,
				`|   <body>`,
				`|     <form>`,
				`|       <table>`,
				`|         <tbody>`,
				`|           <tr>`,
				`|             <td>`,
				`|               "y"`,
				`|     "x"`,
			},
		},
		{
			name:   "repeated body merges attributes",
			markup: "<body id=a><p>x<body class=b id=c>y",
			want: []string{
				`| <html>`,
				`|   <body>`,
				`|     class="b"`,
				`|     id="a"`,
				`|     <p>`,
				`|       "xy"`,
			},
		},
		{
			name:   "unclosed form",
			markup: "<form><input>x",
			want: []string{
				`| <html>`,
				`|   <body>`,
				`|     <form>`,
				`|       <input>`,
				`|       "x"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := strings.Join(tt.want, "\n") + "\n"
			assert.Equal(t, want, dump(t, tt.markup, Options{}))
		})
	}
}

func TestParseRender(t *testing.T) {
	doc, err := ParseString("<p>a</p>")
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, html.Render(&b, doc))
	assert.Equal(t, "<html><body><p>a</p></body></html>", b.String())
}

func TestParseInterrupted(t *testing.T) {
	inputs := []string{
		"<table>a<tr><td>b</td></tr></table>",
		"<font color=red><p>a</p>b",
		"<title>t</title><b>x<i>y</b>z</i>",
	}
	for _, markup := range inputs {
		t.Run(markup, func(t *testing.T) {
			want := dump(t, markup, Options{})
			got := dump(t, markup, Options{Tree: sink.TreeOptions{YieldEvery: 1}})
			assert.Equal(t, want, got)
		})
	}
}

func TestParseSoup(t *testing.T) {
	inputs := []string{
		"<b><i>x</b>y</i>z",
		"<table><tr><td>1<td>2<tr><td>3</table>",
		"<ul><li>a<li>b</ul>",
		"<div><span>a</div>b</span>",
		"<h1>a<h2>b</h1>c",
		"<a href=1>x<a href=2>y</a>",
		"<table><div>x</div><tr><td>y</table>",
		"<p><table><tr><td>x</table>",
		"<select><option>a<option>b</select>",
		"</p></br><image src=x>",
		"<frameset><frame src=a></frameset>",
		"<noscript><p>n</p></noscript>",
		"<pre>\nline</pre>",
		"<dl><dt>a<dd>b<dt>c</dl>",
		"<my-widget>w</my-widget>&amp;&bogus;&#65;",
		"<form><table><tr><td>a</form>b</table>c",
		"<body><body><html><form><form>",
		"</center><html></ul><tr></font><tr>",
	}
	for _, markup := range inputs {
		t.Run(markup, func(t *testing.T) {
			doc, err := ParseString(markup)
			require.NoError(t, err)
			require.NotNil(t, doc)
			require.NotNil(t, doc.FirstChild)

			var b bytes.Buffer
			require.NoError(t, html.Render(&b, doc))
		})
	}
}

func TestParseLimit(t *testing.T) {
	_, err := ParseWithOptions(strings.NewReader("<p>a</p><p>b</p>"), Options{Limit: 2})
	require.ErrorIs(t, err, token.ErrOutOfMemory)
}

func TestBuildRecorder(t *testing.T) {
	rec := &sink.Recorder{Enabled: []token.Tag{token.Script, token.Frameset}}
	require.NoError(t, Build(strings.NewReader("<p>a"), rec, Options{}))
	assert.Equal(t, []string{
		"open html", "open body", "open p", `leaf #text "a"`,
		"close p", "close body", "close html",
	}, rec.Calls)
}

func TestBuildTerminated(t *testing.T) {
	var s stopSink
	err := Build(strings.NewReader("<p>a"), &s, Options{})
	require.ErrorIs(t, err, dtd.ErrStopParsing)
}

// stopSink fails the first container it is asked to open.
type stopSink struct {
	sink.Recorder
}

func (s *stopSink) OpenContainer(n *token.Node) error {
	return assert.AnError
}
