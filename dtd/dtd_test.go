package dtd_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpotapov/go-tagsoup/dtd"
	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/scanner"
	"github.com/dpotapov/go-tagsoup/sink"
	"github.com/dpotapov/go-tagsoup/token"
)

var browserLike = []token.Tag{token.Script, token.Frameset}

// build runs markup through a DTD into a Recorder and returns the recorded
// calls.
func build(t *testing.T, markup string, opts dtd.Options, rec *sink.Recorder) []string {
	t.Helper()
	src := scanner.NewSource(nil)
	require.NoError(t, scanner.TokenizeString(markup, src, scanner.Options{Scripting: true}))

	d := dtd.New(nil, opts)
	require.NoError(t, d.WillBuildModel(grammar.Quirks, rec))
	err := d.BuildModel(src)
	for errors.Is(err, dtd.ErrInterrupted) {
		err = d.BuildModel(src)
	}
	require.NoError(t, err)
	require.NoError(t, d.DidBuildModel(nil))
	assert.Equal(t, 0, src.Count(), "source not drained")
	return rec.Calls
}

func TestBuildModel(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		opts   dtd.Options
		want   []string
	}{
		{
			name:   "implied html and body",
			markup: "<p>a</p>",
			want: []string{
				"open html", "open body", "open p", `leaf #text "a"`,
				"close p", "close body", "close html",
			},
		},
		{
			name:   "text before a table row is moved in front of the table",
			markup: "<table>a<tr><td>b</td></tr></table>",
			want: []string{
				"open html", "open body", "open table",
				"begin 1", `leaf #text "a"`, "end 1",
				"open tbody", "open tr", "open td", `leaf #text "b"`,
				"close td", "close tr", "close tbody", "close table",
				"close body", "close html",
			},
		},
		{
			name:   "stray paragraph end tag",
			markup: "<div></p>x</div>",
			want: []string{
				"open html", "open body", "open div", "open p", "close p",
				`leaf #text "x"`, "close div", "close body", "close html",
			},
		},
		{
			name:   "font carried into the paragraph and after it",
			markup: "<font color=red><p>a</p>b",
			want: []string{
				"open html", "open body",
				"open font color=red", "close font",
				"open p", "open font color=red", `leaf #text "a"`, "close font", "close p",
				"open font color=red", `leaf #text "b"`, "close font",
				"close body", "close html",
			},
		},
		{
			name:   "well-formed font may hold a paragraph",
			markup: "<font color=red><p>a</p>b</font>",
			want: []string{
				"open html", "open body",
				"open font color=red", "open p", `leaf #text "a"`, "close p",
				`leaf #text "b"`, "close font",
				"close body", "close html",
			},
		},
		{
			name:   "title goes to the head",
			markup: "<title>t</title><p>x",
			want: []string{
				"open html", "head", "open title", `leaf #text "t"`, "close title",
				"close head", "open body", "open p", `leaf #text "x"`, "close p",
				"close body", "close html",
			},
		},
		{
			name:   "script before the body goes to the head",
			markup: "<script>x</script><p>y",
			want: []string{
				"open html", "head", "open script", `leaf #text "x"`, "close script",
				"close head", "open body", "open p", `leaf #text "y"`, "close p",
				"close body", "close html",
			},
		},
		{
			name:   "comments dropped by default",
			markup: "<!--c--><p>x",
			want: []string{
				"open html", "open body", "open p", `leaf #text "x"`,
				"close p", "close body", "close html",
			},
		},
		{
			name:   "comments kept",
			markup: "<!--c--><p>x",
			opts:   dtd.Options{Comments: true},
			want: []string{
				"open html", "open body", `leaf #comment "c"`, "open p", `leaf #text "x"`,
				"close p", "close body", "close html",
			},
		},
		{
			name:   "doctype",
			markup: "<!DOCTYPE html><p>x",
			want: []string{
				"open html", `doctype "html"`, "open body", "open p", `leaf #text "x"`,
				"close p", "close body", "close html",
			},
		},
		{
			name:   "empty document gets a body",
			markup: "",
			want:   []string{"open html", "open body", "close body", "close html"},
		},
		{
			name:   "unclosed form is closed at the end",
			markup: "<form><input>x",
			want: []string{
				"open html", "open body", "open form", "leaf input", `leaf #text "x"`,
				"close form", "close body", "close html",
			},
		},
		{
			name:   "repeated body merges its attributes",
			markup: "<body id=a><p>x<body class=b>y",
			want: []string{
				"open html", "open body id=a", "open p", `leaf #text "x"`,
				"merge body class=b", `leaf #text "y"`,
				"close p", "close body", "close html",
			},
		},
		{
			name:   "repeated html merges its attributes",
			markup: "<p>x<html lang=en>y",
			want: []string{
				"open html", "open body", "open p", `leaf #text "x"`,
				"merge html lang=en", `leaf #text "y"`,
				"close p", "close body", "close html",
			},
		},
		{
			name:   "paragraph end tag dropped where the parent omits it",
			markup: "<table></p><tr><td>x</td></tr></table>",
			want: []string{
				"open html", "open body", "open table",
				"open tbody", "open tr", "open td", `leaf #text "x"`,
				"close td", "close tr", "close tbody", "close table",
				"close body", "close html",
			},
		},
		{
			name:   "replay keeps attribute order",
			markup: "<table><a href=x title=y>t</a><tr>",
			want: []string{
				"open html", "open body", "open table",
				"begin 1", "open a href=x title=y", `leaf #text "t"`, "close a", "end 1",
				"open tbody", "open tr",
				"close tr", "close tbody", "close table", "close body", "close html",
			},
		},
		{
			name:   "content still misplaced at the end is replayed",
			markup: "<table>a",
			want: []string{
				"open html", "open body", "open table",
				"begin 1", `leaf #text "a"`, "end 1",
				"close table", "close body", "close html",
			},
		},
		{
			name:   "generic containers past the depth limit close the top",
			markup: "<div><div><div><div>x",
			opts:   dtd.Options{MaxDepth: 4},
			want: []string{
				"open html", "open body", "open div", "open div", "open div",
				"close div", "open div", `leaf #text "x"`,
				"close div", "close div", "close div", "close body", "close html",
			},
		},
		{
			name:   "phrase tags dropped past 90 percent of the depth limit",
			markup: strings.Repeat("<div>", 6) + "<b><cite>a<cite>b<span>c",
			opts:   dtd.Options{MaxDepth: 10},
			want: []string{
				"open html", "open body",
				"open div", "open div", "open div", "open div", "open div", "open div",
				"open cite", `leaf #text "a"`, `leaf #text "b"`, "open span", `leaf #text "c"`,
				"close span", "close cite",
				"close div", "close div", "close div", "close div", "close div", "close div",
				"close body", "close html",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sink.Recorder{Enabled: browserLike}
			got := build(t, tt.markup, tt.opts, rec)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildModelFontClosedInsideParagraph(t *testing.T) {
	calls := build(t, "<font color=red><p>a</font>b</p>", dtd.Options{}, &sink.Recorder{Enabled: browserLike})

	opened, closed := 0, 0
	for _, c := range calls {
		switch c {
		case "open font color=red":
			opened++
		case "close font":
			closed++
		}
	}
	assert.Equal(t, 2, opened)
	assert.Equal(t, 2, closed)
	assert.Contains(t, calls, `leaf #text "b"`)
}

func TestBuildModelInterrupted(t *testing.T) {
	const markup = "<title>t</title><table>a<tr><td><font>b</td></tr></table><p>c"

	want := build(t, markup, dtd.Options{}, &sink.Recorder{Enabled: browserLike})
	got := build(t, markup, dtd.Options{}, &sink.Recorder{Enabled: browserLike, InterruptAt: []int{1, 2, 5, 8}})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("interrupted parse differs (-want +got):\n%s", diff)
	}
}

func TestBuildModelDepthGuard(t *testing.T) {
	markup := strings.Repeat("<b>", 20) + "x"
	calls := build(t, markup, dtd.Options{MaxDepth: 10}, &sink.Recorder{Enabled: browserLike})

	opened := 0
	for _, c := range calls {
		if c == "open b" {
			opened++
		}
	}
	// html and body take two slots, font styles stop at 80% of the limit.
	assert.Equal(t, 6, opened)
}

func TestBuildModelBalanced(t *testing.T) {
	inputs := []string{
		"<p>a</p>",
		"<b><i>x</b>y</i>z",
		"<table><tr><td>1<td>2<tr><td>3</table>",
		"<ul><li>a<li>b</ul>",
		"<div><span>a</div>b</span>",
		"<h1>a<h2>b</h1>c",
		"<a href=1>x<a href=2>y</a>",
		"<table><div>x</div><tr><td>y</table>",
		"<p><table><tr><td>x</table>",
		"<select><option>a<option>b</select>",
		"<form><input>x",
		"<form><div>a</form>b</div>c",
		"<form><table></form>x<tr><td>y</table>",
		"<html><html lang=en><body><body id=b>x",
		"<body><p>a<body>b<html>c",
		"</center><html></ul><tr></font><tr>",
	}
	for _, markup := range inputs {
		t.Run(markup, func(t *testing.T) {
			calls := build(t, markup, dtd.Options{}, &sink.Recorder{Enabled: browserLike})
			depth := 0
			for _, c := range calls {
				switch {
				case strings.HasPrefix(c, "open "):
					depth++
				case strings.HasPrefix(c, "close"):
					depth--
				}
				require.GreaterOrEqual(t, depth, 0, "close without open in %q", calls)
			}
			assert.Equal(t, 0, depth, "unbalanced calls %q", calls)
		})
	}
}

func TestBuildModelWellFormed(t *testing.T) {
	inputs := []string{
		"<html><body><p>a</p></body></html>",
		"<html><head><title>t</title></head><body><p>a</p></body></html>",
		"<html><body><table><tr><td>x</td></tr></table></body></html>",
		"<html><body><table><tbody><tr><th>h</th><td><b>d</b></td></tr></tbody></table></body></html>",
		"<html><body><div><ul><li>a</li><li>b</li></ul></div></body></html>",
		"<html><body><form><input name=q></form></body></html>",
	}
	for _, markup := range inputs {
		t.Run(markup, func(t *testing.T) {
			src := scanner.NewSource(nil)
			require.NoError(t, scanner.TokenizeString(markup, src, scanner.Options{Scripting: true}))

			every := make([]int, src.Count())
			for i := range every {
				every[i] = i + 1
			}
			rec := &sink.Recorder{Enabled: browserLike, InterruptAt: every}
			d := dtd.New(nil, dtd.Options{})
			require.NoError(t, d.WillBuildModel(grammar.Quirks, rec))
			err := d.BuildModel(src)
			for errors.Is(err, dtd.ErrInterrupted) {
				require.Zero(t, d.Misplaced(), "queued content in %q", rec.Calls)
				err = d.BuildModel(src)
			}
			require.NoError(t, err)
			require.NoError(t, d.DidBuildModel(nil))

			for _, c := range rec.Calls {
				assert.False(t, strings.HasPrefix(c, "begin"), "relocated content in %q", rec.Calls)
			}
		})
	}
}

func TestBuildModelTerminate(t *testing.T) {
	src := scanner.NewSource(nil)
	require.NoError(t, scanner.TokenizeString("<p>a", src, scanner.Options{}))

	rec := &sink.Recorder{}
	d := dtd.New(nil, dtd.Options{})
	require.NoError(t, d.WillBuildModel(grammar.Quirks, rec))
	d.Terminate()

	err := d.BuildModel(src)
	require.ErrorIs(t, err, dtd.ErrStopParsing)
	require.NoError(t, d.DidBuildModel(err))
	assert.Empty(t, rec.Calls)
	assert.True(t, d.Flags().StopParsing)
}

func TestBuildModelOutOfMemory(t *testing.T) {
	src := scanner.NewSource(&token.Allocator{Limit: 4})
	require.NoError(t, scanner.TokenizeString("<p>a</p>", src, scanner.Options{}))

	d := dtd.New(nil, dtd.Options{})
	require.NoError(t, d.WillBuildModel(grammar.Quirks, &sink.Recorder{}))
	err := d.BuildModel(src)
	require.ErrorIs(t, err, dtd.ErrStopParsing)
	require.ErrorIs(t, err, token.ErrOutOfMemory)

	// stays stopped
	require.ErrorIs(t, d.BuildModel(src), token.ErrOutOfMemory)
}

type failingSink struct {
	sink.Recorder
	failOn token.Tag
}

func (s *failingSink) OpenContainer(n *token.Node) error {
	if n.Tag() == s.failOn {
		return errors.New("boom")
	}
	return s.Recorder.OpenContainer(n)
}

func TestBuildModelSinkError(t *testing.T) {
	src := scanner.NewSource(nil)
	require.NoError(t, scanner.TokenizeString("<div>a</div>", src, scanner.Options{}))

	d := dtd.New(nil, dtd.Options{})
	require.NoError(t, d.WillBuildModel(grammar.Quirks, &failingSink{failOn: token.Div}))
	err := d.BuildModel(src)
	require.ErrorIs(t, err, dtd.ErrStopParsing)
	assert.ErrorContains(t, err, "open div: boom")
}

func TestWillBuildModelNilSink(t *testing.T) {
	d := dtd.New(nil, dtd.Options{})
	require.ErrorIs(t, d.WillBuildModel(grammar.Quirks, nil), dtd.ErrStopParsing)
}

func TestLineCount(t *testing.T) {
	src := scanner.NewSource(nil)
	require.NoError(t, scanner.TokenizeString("<p>a\n\nb\n</p>", src, scanner.Options{}))

	d := dtd.New(nil, dtd.Options{})
	require.NoError(t, d.WillBuildModel(grammar.Quirks, &sink.Recorder{Enabled: browserLike}))
	require.NoError(t, d.BuildModel(src))
	require.NoError(t, d.DidBuildModel(nil))
	assert.Equal(t, 4, d.Line())
}
