package pull

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrLayout is wrapped into every parse failure: when the forum's markup
// stops matching, a human has to update the parser.
var ErrLayout = fmt.Errorf("Forum changed its layout")

// ThreadEntry is one row of the group-lastmod listing.
type ThreadEntry struct {
	Topic   int64
	Pages   int           // number of comment pages the forum renders
	Clipped bool          // truncated in the listing, Age is unreliable
	Age     time.Duration // parsed from the displayed age string
}

// ParsedMessage is one message extracted from a thread page: the topic
// body (Comment == 0) or a comment.
type ParsedMessage struct {
	Comment int64
	Subject string
	Nick    string
	Banned  bool
	Stars   string
	Date    time.Time
	ReplyTo int64 // immediate parent comment id, 0 for first-level
	Body    *html.Node
}

// ThreadPage is the parsed form of one view-message.jsp page.
type ThreadPage struct {
	Subject  string
	Tags     string
	Topic    *ParsedMessage // nil when this page does not carry the body
	Comments []*ParsedMessage
}

var msgidParamRe = regexp.MustCompile(`[?&]msgid=([0-9]+)`)
var pageParamRe = regexp.MustCompile(`[?&]page=([0-9]+)`)

// ParseLastModPage extracts the thread entries of one listing page, in
// document order.
func ParseLastModPage(data []byte) ([]ThreadEntry, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayout, err)
	}

	var entries []ThreadEntry
	var perr error
	eachElement(doc, "tr", func(row *html.Node) {
		if perr != nil {
			return
		}
		entry := ThreadEntry{Pages: 1, Age: -1}
		found := false
		eachElement(row, "a", func(a *html.Node) {
			href := attrValue(a, "href")
			if !strings.Contains(href, "view-message.jsp") {
				return
			}
			if m := msgidParamRe.FindStringSubmatch(href); m != nil && !found {
				entry.Topic, _ = strconv.ParseInt(m[1], 10, 64)
				found = true
			}
			// Page links raise the page counter: pages = max index + 1.
			if m := pageParamRe.FindStringSubmatch(href); m != nil {
				if p, err := strconv.Atoi(m[1]); err == nil && p+1 > entry.Pages {
					entry.Pages = p + 1
				}
			}
		})
		if !found {
			return
		}
		eachElement(row, "img", func(img *html.Node) {
			if strings.Contains(attrValue(img, "src"), "clip") {
				entry.Clipped = true
			}
		})
		eachElement(row, "td", func(td *html.Node) {
			if !hasClass(td, "dateinterval") {
				return
			}
			age, err := parseAge(strings.TrimSpace(textContent(td)))
			if err != nil {
				perr = err
				return
			}
			entry.Age = age
		})
		if entry.Age < 0 && !entry.Clipped {
			perr = fmt.Errorf("%w: thread %d has no age cell", ErrLayout, entry.Topic)
			return
		}
		entries = append(entries, entry)
	})
	if perr != nil {
		return nil, perr
	}
	return entries, nil
}

var commentIDRe = regexp.MustCompile(`^comment-([0-9]+)$`)
var topicIDRe = regexp.MustCompile(`^topic-([0-9]+)$`)
var replyToRe = regexp.MustCompile(`#comment-([0-9]+)$`)

// ParseThreadPage extracts the topic subject, the topic body when present,
// and every comment of one thread page. This is the single seam bound to
// the forum's concrete markup.
func ParseThreadPage(data []byte) (*ThreadPage, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayout, err)
	}

	page := &ThreadPage{}
	eachElement(doc, "h1", func(h *html.Node) {
		if page.Subject == "" {
			page.Subject = strings.TrimSpace(collapseSpaces(textContent(h)))
		}
	})
	if page.Subject == "" {
		return nil, fmt.Errorf("%w: thread page has no title", ErrLayout)
	}
	eachElement(doc, "div", func(d *html.Node) {
		if hasClass(d, "tags") && page.Tags == "" {
			page.Tags = strings.TrimSpace(collapseSpaces(textContent(d)))
		}
	})

	var perr error
	eachElement(doc, "div", func(d *html.Node) {
		if perr != nil || !hasClass(d, "msg") {
			return
		}
		id := attrValue(d, "id")
		msg, err := parseMessage(d)
		if err != nil {
			perr = err
			return
		}
		if m := topicIDRe.FindStringSubmatch(id); m != nil {
			msg.Comment = 0
			msg.Subject = page.Subject
			page.Topic = msg
			return
		}
		m := commentIDRe.FindStringSubmatch(id)
		if m == nil {
			perr = fmt.Errorf("%w: message div with id %q", ErrLayout, id)
			return
		}
		msg.Comment, _ = strconv.ParseInt(m[1], 10, 64)
		if msg.Subject == "" {
			msg.Subject = "Re: " + page.Subject
		}
		page.Comments = append(page.Comments, msg)
	})
	if perr != nil {
		return nil, perr
	}
	return page, nil
}

// parseMessage extracts the per-message fields from one div.msg.
func parseMessage(d *html.Node) (*ParsedMessage, error) {
	msg := &ParsedMessage{}

	eachElement(d, "h2", func(h *html.Node) {
		if msg.Subject == "" {
			msg.Subject = strings.TrimSpace(collapseSpaces(textContent(h)))
		}
	})

	var signErr error
	eachElement(d, "div", func(inner *html.Node) {
		switch {
		case hasClass(inner, "msg_body") && msg.Body == nil:
			msg.Body = inner
		case hasClass(inner, "reply-to") && msg.ReplyTo == 0:
			eachElement(inner, "a", func(a *html.Node) {
				if m := replyToRe.FindStringSubmatch(attrValue(a, "href")); m != nil {
					msg.ReplyTo, _ = strconv.ParseInt(m[1], 10, 64)
				}
			})
		case hasClass(inner, "sign"):
			if err := parseSign(inner, msg); err != nil && signErr == nil {
				signErr = err
			}
		}
	})
	if signErr != nil {
		return nil, signErr
	}

	if msg.Body == nil {
		return nil, fmt.Errorf("%w: message without body", ErrLayout)
	}
	if msg.Nick == "" {
		return nil, fmt.Errorf("%w: message without signature", ErrLayout)
	}
	return msg, nil
}

// forumDateFormats are the date layouts the forum renders in signatures.
var forumDateFormats = []string{
	"02.01.2006 15:04:05",
	"02.01.06 15:04:05",
	"02.01.2006 15:04",
}

var signDateRe = regexp.MustCompile(`[0-9]{2}\.[0-9]{2}\.[0-9]{2,4} [0-9]{2}:[0-9]{2}(:[0-9]{2})?`)

// parseSign extracts nick, banned flag, stars and date from a signature
// div: "<s>nick</s>" marks banned users, span.stars carries the stars.
func parseSign(sign *html.Node, msg *ParsedMessage) error {
	eachElement(sign, "s", func(s *html.Node) {
		msg.Nick = strings.TrimSpace(textContent(s))
		msg.Banned = true
	})
	eachElement(sign, "span", func(s *html.Node) {
		switch {
		case hasClass(s, "stars"):
			msg.Stars = strings.TrimSpace(textContent(s))
		case hasClass(s, "nick") && msg.Nick == "":
			msg.Nick = strings.TrimSpace(textContent(s))
		}
	})
	text := collapseSpaces(textContent(sign))
	if m := signDateRe.FindString(text); m != "" {
		for _, format := range forumDateFormats {
			if t, err := time.ParseInLocation(format, m, time.Local); err == nil {
				msg.Date = t
				break
			}
		}
	}
	if msg.Date.IsZero() {
		return fmt.Errorf("%w: signature without date: %q", ErrLayout, text)
	}
	return nil
}

var ageRe = regexp.MustCompile(`([0-9]+)\s*(секунд|минут|час|дн|день|недел|месяц)`)

// parseAge converts the listing's displayed age string to a duration.
func parseAge(s string) (time.Duration, error) {
	low := strings.ToLower(s)
	switch {
	case strings.Contains(low, "сегодня"):
		return 0, nil
	case strings.Contains(low, "вчера"):
		return 24 * time.Hour, nil
	}
	if m := ageRe.FindStringSubmatch(low); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.HasPrefix(m[2], "секунд"):
			return time.Duration(n) * time.Second, nil
		case strings.HasPrefix(m[2], "минут"):
			return time.Duration(n) * time.Minute, nil
		case strings.HasPrefix(m[2], "час"):
			return time.Duration(n) * time.Hour, nil
		case strings.HasPrefix(m[2], "недел"):
			return time.Duration(n) * 7 * 24 * time.Hour, nil
		case strings.HasPrefix(m[2], "месяц"):
			return time.Duration(n) * 30 * 24 * time.Hour, nil
		default: // days
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	for _, format := range forumDateFormats {
		if t, err := time.ParseInLocation(format, s, time.Local); err == nil {
			return time.Since(t), nil
		}
	}
	if t, err := time.ParseInLocation("02.01.2006", s, time.Local); err == nil {
		return time.Since(t), nil
	}
	return 0, fmt.Errorf("%w: unparseable age %q", ErrLayout, s)
}

// eachElement calls fn for every descendant element with the given tag.
func eachElement(n *html.Node, tag string, fn func(*html.Node)) {
	if n.Type == html.ElementNode && n.Data == tag {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		eachElement(c, tag, fn)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attrValue(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}
