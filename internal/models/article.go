package models

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"
)

// InjectionDateFormat is used for the Injection-Date header.
const InjectionDateFormat = "Mon, 02 Jan 2006 15:04:05 -0000"

// Render produces the on-disk form of the article: RFC 5322 headers, blank
// line, UTF-8 body. Line endings are LF; the NNTP server rewrites to CRLF
// on the wire.
func (a *Article) Render() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Newsgroups: %s\n", a.Newsgroup)
	fmt.Fprintf(&buf, "Subject: %s\n", a.Subject)
	fmt.Fprintf(&buf, "From: %s\n", a.FromHeader)
	fmt.Fprintf(&buf, "Date: %s\n", a.DateString)
	fmt.Fprintf(&buf, "Message-ID: %s\n", a.MessageID())
	if a.References != "" {
		fmt.Fprintf(&buf, "References: %s\n", a.References)
	}
	buf.WriteString("MIME-Version: 1.0\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\n")
	fmt.Fprintf(&buf, "Injection-Date: %s\n", a.Injected.UTC().Format(InjectionDateFormat))
	fmt.Fprintf(&buf, "Path: %s!not-for-mail\n", ForumHost)
	if a.Stars != "" {
		fmt.Fprintf(&buf, "X-Stars: %s\n", a.Stars)
	}
	for _, kv := range a.Extra {
		fmt.Fprintf(&buf, "%s: %s\n", kv[0], kv[1])
	}
	buf.WriteString("\n")
	buf.WriteString(a.Body)
	if !strings.HasSuffix(a.Body, "\n") {
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// SplitArticle separates an on-disk article into header lines and body
// lines. Header continuation lines are kept as-is; the blank separator line
// belongs to neither part.
func SplitArticle(data []byte) (head, body []string) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	inHead := true
	for sc.Scan() {
		line := sc.Text()
		if inHead && line == "" {
			inHead = false
			continue
		}
		if inHead {
			head = append(head, line)
		} else {
			body = append(body, line)
		}
	}
	return head, body
}

// HeaderValue extracts the value of the named header from split header
// lines, folding continuations. The empty string means the header is absent.
func HeaderValue(head []string, name string) string {
	prefix := strings.ToLower(name) + ":"
	for i, line := range head {
		if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
			continue
		}
		v := strings.TrimSpace(line[len(prefix):])
		for j := i + 1; j < len(head); j++ {
			if !strings.HasPrefix(head[j], " ") && !strings.HasPrefix(head[j], "\t") {
				break
			}
			v += " " + strings.TrimSpace(head[j])
		}
		return v
	}
	return ""
}

// OverviewFromFile regenerates the overview record for an on-disk article.
// encode is applied to the free-text fields (the store keeps them
// MIME-header-encoded); pass an identity func for raw extraction.
func OverviewFromFile(data []byte, encode func(string) string) *Overview {
	head, body := SplitArticle(data)
	return &Overview{
		Subject:    encode(HeaderValue(head, "Subject")),
		FromHeader: encode(HeaderValue(head, "From")),
		DateString: HeaderValue(head, "Date"),
		MessageID:  HeaderValue(head, "Message-ID"),
		References: HeaderValue(head, "References"),
		Stars:      HeaderValue(head, "X-Stars"),
		Bytes:      int64(len(data)),
		Lines:      int64(len(body)),
	}
}

// ParseInjectionDate parses an Injection-Date header back to a timestamp.
func ParseInjectionDate(v string) (time.Time, error) {
	for _, format := range []string{
		InjectionDateFormat,
		time.RFC1123Z,
		time.RFC1123,
	} {
		if t, err := time.Parse(format, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable Injection-Date: %q", v)
}
