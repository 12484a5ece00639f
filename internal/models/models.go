// Package models defines core data structures for go-lornews
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ForumHost is the hostname the gateway fronts. It appears in every
// Message-ID and in the Path header of emitted articles.
const ForumHost = "linux.org.ru"

// Group represents one newsgroup from the catalog file.
// The catalog is authoritative: only listed groups exist.
type Group struct {
	Name        string `json:"name"`
	ForumID     int64  `json:"forum_id"` // numeric section id on the forum
	Description string `json:"description"`
}

// Article represents one gatewayed forum message, either a topic start
// (Comment == 0) or a comment under a topic.
type Article struct {
	Newsgroup  string
	Topic      int64 // forum thread id
	Comment    int64 // forum comment id, 0 for the topic body
	Subject    string
	FromHeader string
	DateString string // RFC 1123-ish date as emitted on the Date header
	References string
	Stars      string // moderator stars, empty for normal users

	// Optional topic headers, emitted in order after the fixed block.
	// Keys are full header names (Keywords, X-Link-URL, ...).
	Extra [][2]string

	Body     string // UTF-8, LF line endings, no trailing newline required
	Injected time.Time
}

// MessageID returns the article's message-id per the gateway scheme:
// <lor{TOPIC}@linux.org.ru> for topics, <lor{TOPIC}.{COMMENT}@linux.org.ru>
// for comments.
func (a *Article) MessageID() string {
	return FormatMessageID(a.Topic, a.Comment)
}

// FormatMessageID builds a message-id from forum thread and comment ids.
func FormatMessageID(topic, comment int64) string {
	if comment > 0 {
		return fmt.Sprintf("<lor%d.%d@%s>", topic, comment, ForumHost)
	}
	return fmt.Sprintf("<lor%d@%s>", topic, ForumHost)
}

var messageIDRe = regexp.MustCompile(`^<lor([0-9]+)(?:\.([0-9]+))?@` + regexp.QuoteMeta(ForumHost) + `>$`)

// ParseMessageID splits a message-id of the gateway scheme into thread and
// comment ids. Comment is 0 for topic articles. ok is false for anything
// that does not match the scheme.
func ParseMessageID(id string) (topic, comment int64, ok bool) {
	m := messageIDRe.FindStringSubmatch(id)
	if m == nil {
		return 0, 0, false
	}
	topic, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if m[2] != "" {
		comment, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil || comment == 0 {
			return 0, 0, false
		}
	}
	return topic, comment, true
}

// StorePath returns the index value mapping an article number to its file,
// always "{TOPIC}/{COMMENT}".
func (a *Article) StorePath() string {
	return fmt.Sprintf("%d/%d", a.Topic, a.Comment)
}

// Overview represents one stored overview record (the ":N" index values).
// Fields are kept MIME-header-encoded on disk; the NNTP server decodes
// before transmission.
type Overview struct {
	Subject    string
	FromHeader string
	DateString string
	MessageID  string
	References string
	Stars      string
	Bytes      int64 // byte length of the encoded article file
	Lines      int64 // body line count
}

// OverviewFields is the fixed LIST OVERVIEW.FMT response.
var OverviewFields = []string{
	"Subject:",
	"From:",
	"Date:",
	"Message-ID:",
	"References:",
	"Bytes:",
	"Lines:",
	"X-Stars:full",
}

// Marshal renders the overview record as the tab-separated index value.
// Field order follows the on-disk layout: subject, from, date, message-id,
// references, X-Stars, bytes, lines.
func (o *Overview) Marshal() string {
	return strings.Join([]string{
		o.Subject,
		o.FromHeader,
		o.DateString,
		o.MessageID,
		o.References,
		"X-Stars: " + o.Stars,
		strconv.FormatInt(o.Bytes, 10),
		strconv.FormatInt(o.Lines, 10),
	}, "\t")
}

// UnmarshalOverview parses a stored ":N" value back into an Overview.
func UnmarshalOverview(v string) (*Overview, error) {
	parts := strings.Split(v, "\t")
	if len(parts) != 8 {
		return nil, fmt.Errorf("overview record has %d fields, want 8", len(parts))
	}
	stars, ok := strings.CutPrefix(parts[5], "X-Stars: ")
	if !ok {
		return nil, fmt.Errorf("overview record missing X-Stars field: %q", parts[5])
	}
	bytes, err := strconv.ParseInt(parts[6], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("overview bytes field: %w", err)
	}
	lines, err := strconv.ParseInt(parts[7], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("overview lines field: %w", err)
	}
	return &Overview{
		Subject:    parts[0],
		FromHeader: parts[1],
		DateString: parts[2],
		MessageID:  parts[3],
		References: parts[4],
		Stars:      stars,
		Bytes:      bytes,
		Lines:      lines,
	}, nil
}
