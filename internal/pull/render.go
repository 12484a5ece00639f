package pull

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// WrapColumn is the hard-wrap width, measured without the leading
// quote/list prefixes.
const WrapColumn = 72

// VoteMarker is the label the forum renders on poll links; a trailing
// promoted link with this label becomes X-Vote-URL instead of X-Link-URL.
const VoteMarker = "Голосовать"

// PromotedLink is a trailing ">>> label (url)" line stripped off the body
// and lifted into topic headers.
type PromotedLink struct {
	Label string
	URL   string
}

// block is one paragraph-level unit of rendered output.
type block struct {
	prefix   string   // per-line prefix (quotes, list markers)
	text     string   // unwrapped flow text
	verbatim []string // code block lines, emitted as-is
}

type renderer struct {
	blocks []block
	cur    strings.Builder
	prefix string
}

// RenderBody converts a message body HTML fragment to plain UTF-8 text per
// the gateway's formatting rules and extracts a trailing promoted link.
func RenderBody(n *html.Node) (string, *PromotedLink) {
	r := &renderer{}
	r.walk(n, 0, 0)
	r.flush()

	var lines []string
	for _, b := range r.blocks {
		if b.verbatim != nil {
			lines = append(lines, "")
			lines = append(lines, b.verbatim...)
			lines = append(lines, "")
			continue
		}
		if b.text == "" {
			continue
		}
		for _, l := range wrapText(b.text, WrapColumn) {
			lines = append(lines, b.prefix+l)
		}
		lines = append(lines, "")
	}

	// Trim blank runs introduced by adjoining blocks.
	lines = collapseBlank(lines)

	var link *PromotedLink
	if len(lines) > 0 {
		if l := parsePromotedLink(lines[len(lines)-1]); l != nil {
			link = l
			lines = collapseBlank(lines[:len(lines)-1])
		}
	}
	return strings.Join(lines, "\n"), link
}

func (r *renderer) flush() {
	text := strings.TrimSpace(collapseSpaces(r.cur.String()))
	r.cur.Reset()
	if text != "" {
		r.blocks = append(r.blocks, block{prefix: r.prefix, text: text})
	}
}

// walk renders one node. quoteDepth counts enclosing blockquotes,
// listDepth enclosing unordered lists.
func (r *renderer) walk(n *html.Node, quoteDepth, listDepth int) {
	if n.Type == html.TextNode {
		r.cur.WriteString(n.Data)
		return
	}
	if n.Type != html.ElementNode && n.Type != html.DocumentNode {
		return
	}

	switch n.Data {
	case "p", "div":
		r.flush()
		r.walkChildren(n, quoteDepth, listDepth)
		r.flush()
		return
	case "br":
		r.flush()
		return
	case "blockquote":
		r.flush()
		saved := r.prefix
		r.prefix = strings.Repeat(">", quoteDepth+1) + " "
		r.walkChildren(n, quoteDepth+1, listDepth)
		r.flush()
		r.prefix = saved
		return
	case "ul":
		r.flush()
		r.walkChildren(n, quoteDepth, listDepth+1)
		r.flush()
		return
	case "li":
		r.flush()
		saved := r.prefix
		marker := "*"
		if listDepth%2 == 0 {
			marker = "-" // depths alternate: *, -, *, ...
		}
		r.prefix = strings.Repeat("  ", max(listDepth-1, 0)) + marker + " "
		r.walkChildren(n, quoteDepth, listDepth)
		r.flush()
		r.prefix = saved
		return
	case "pre":
		r.flush()
		r.blocks = append(r.blocks, block{verbatim: strings.Split(strings.Trim(textContent(n), "\n"), "\n")})
		return
	case "a":
		r.cur.WriteString(renderAnchor(n))
		return
	}

	r.walkChildren(n, quoteDepth, listDepth)
}

func (r *renderer) walkChildren(n *html.Node, quoteDepth, listDepth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c, quoteDepth, listDepth)
	}
}

// renderAnchor collapses an anchor whose text equals (or visibly
// truncates) its href to the bare URL; anything else becomes "text (url)".
func renderAnchor(n *html.Node) string {
	href := attrValue(n, "href")
	text := strings.TrimSpace(collapseSpaces(textContent(n)))
	if href == "" {
		return text
	}
	if text == "" || text == href {
		return href
	}
	if stem, ok := strings.CutSuffix(text, "..."); ok && strings.HasPrefix(href, stem) {
		return href
	}
	if stem, ok := strings.CutSuffix(text, "…"); ok && strings.HasPrefix(href, stem) {
		return href
	}
	return text + " (" + href + ")"
}

var promotedLinkRe = regexp.MustCompile(`^>>> (.+) \((\S+)\)$`)

func parsePromotedLink(line string) *PromotedLink {
	m := promotedLinkRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	return &PromotedLink{Label: m[1], URL: m[2]}
}

// wrapText hard-wraps flow text at the given rune width, never breaking
// inside a word.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	lineLen := len([]rune(words[0]))
	for _, w := range words[1:] {
		wl := len([]rune(w))
		if lineLen+1+wl > width {
			lines = append(lines, line)
			line = w
			lineLen = wl
			continue
		}
		line += " " + w
		lineLen += 1 + wl
	}
	return append(lines, line)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}), " ")
}

// collapseBlank squeezes runs of empty lines and trims the edges.
func collapseBlank(lines []string) []string {
	var out []string
	for _, l := range lines {
		if l == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, l)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
