package pull

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseHTML(t *testing.T, s string) *html.Node {
	t.Helper()
	n, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("html.Parse: %v", err)
	}
	return n
}

func renderString(t *testing.T, s string) string {
	t.Helper()
	text, _ := RenderBody(parseHTML(t, s))
	return text
}

func TestRenderParagraphs(t *testing.T) {
	got := renderString(t, "<p>first paragraph</p><p>second paragraph</p>")
	want := "first paragraph\n\nsecond paragraph"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderCollapsesWhitespace(t *testing.T) {
	got := renderString(t, "<p>words   with\n\t  odd    spacing</p>")
	if got != "words with odd spacing" {
		t.Errorf("got %q", got)
	}
}

func TestRenderWraps(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := renderString(t, "<p>"+long+"</p>")
	for _, line := range strings.Split(got, "\n") {
		if len([]rune(line)) > WrapColumn {
			t.Errorf("line exceeds %d columns: %q", WrapColumn, line)
		}
	}
	if strings.Count(got, "\n") == 0 {
		t.Error("long paragraph was not wrapped")
	}
}

func TestRenderBlockquotes(t *testing.T) {
	got := renderString(t, "<blockquote>outer quote<blockquote>inner quote</blockquote></blockquote><p>reply</p>")
	want := "> outer quote\n\n>> inner quote\n\nreply"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderLists(t *testing.T) {
	got := renderString(t, "<ul><li>one</li><li>two<ul><li>nested</li></ul></li></ul>")
	want := "* one\n\n* two\n\n  - nested"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderPreVerbatim(t *testing.T) {
	got := renderString(t, "<p>look:</p><pre>  indented\n\tcode   here</pre>")
	want := "look:\n\n  indented\n\tcode   here"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderAnchors(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{`<p><a href="http://x.org/">http://x.org/</a></p>`, "http://x.org/"},
		{`<p><a href="http://x.org/long/path">http://x.org/lo...</a></p>`, "http://x.org/long/path"},
		{`<p><a href="http://x.org/long/path">http://x.org/lo…</a></p>`, "http://x.org/long/path"},
		{`<p><a href="http://x.org/">the site</a></p>`, "the site (http://x.org/)"},
		{`<p><a name="anchor">no href</a></p>`, "no href"},
	}
	for _, tc := range testCases {
		if got := renderString(t, tc.in); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderPromotedLink(t *testing.T) {
	text, link := RenderBody(parseHTML(t,
		`<p>announcement text</p><p>&gt;&gt;&gt; <a href="http://example.org/release">Подробности</a></p>`))
	if text != "announcement text" {
		t.Errorf("body = %q", text)
	}
	if link == nil || link.Label != "Подробности" || link.URL != "http://example.org/release" {
		t.Errorf("link = %+v", link)
	}
}

func TestRenderVoteLink(t *testing.T) {
	_, link := RenderBody(parseHTML(t,
		`<p>poll question</p><p>&gt;&gt;&gt; <a href="http://example.org/vote.jsp?id=1">`+VoteMarker+`</a></p>`))
	if link == nil || link.Label != VoteMarker {
		t.Errorf("link = %+v", link)
	}
}
