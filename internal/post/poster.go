// Package post implements the one-shot posting pipeline: read a news
// article, validate its headers, reuse or refresh the forum session and
// submit the topic or comment as an HTTP form.
package post

import (
	"fmt"
	"html"
	"io"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-while/go-lornews/internal/client"
	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
)

// Submission is a validated outgoing message.
type Submission struct {
	Nick      string
	Group     string
	Subject   string
	Body      string
	Topic     int64 // thread id from References; 0 starts a new topic
	ReplyTo   int64 // comment id from References; 0 replies to the topic
	Keywords  string
	LinkURL   string
	LinkText  string
	ImagePath string // local file for multipart upload
}

// ParseArticle reads one complete message and validates it for submission.
func ParseArticle(r io.Reader) (*Submission, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("unreadable article: %w", err)
	}

	addrs, err := mail.ParseAddressList(msg.Header.Get("From"))
	if err != nil || len(addrs) != 1 {
		return nil, fmt.Errorf("From must contain exactly one address")
	}
	nick, _, _ := strings.Cut(addrs[0].Address, "@")
	if nick == "" || strings.EqualFold(nick, "anonymous") {
		return nil, fmt.Errorf("anonymous posting is not supported")
	}

	groups := msg.Header.Get("Newsgroups")
	if groups == "" || strings.Contains(groups, ",") {
		return nil, fmt.Errorf("Newsgroups must name exactly one group")
	}

	subject := msg.Header.Get("Subject")
	if subject == "" {
		return nil, fmt.Errorf("Subject is required")
	}

	sub := &Submission{
		Nick:      nick,
		Group:     strings.TrimSpace(groups),
		Subject:   subject,
		Keywords:  msg.Header.Get("Keywords"),
		LinkURL:   msg.Header.Get("X-Link-URL"),
		LinkText:  msg.Header.Get("X-Link-Text"),
		ImagePath: msg.Header.Get("X-Image-Path"),
	}

	// Only the last reference matters: the forum threads comments flat
	// under the topic, so it names both the thread and the reply target.
	if refs := strings.Fields(msg.Header.Get("References")); len(refs) > 0 {
		last := refs[len(refs)-1]
		topic, comment, ok := models.ParseMessageID(last)
		if !ok {
			return nil, fmt.Errorf("References does not match the gateway message-id scheme: %s", last)
		}
		sub.Topic = topic
		sub.ReplyTo = comment
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("unreadable article body: %w", err)
	}
	sub.Body = string(body)
	return sub, nil
}

var (
	errDivRe = regexp.MustCompile(`(?is)<div class="error">(.*?)</div>`)
	titleRe  = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
)

// extractError pulls the forum's submission error out of a response page,
// "" when the page carries none.
func extractError(page []byte) string {
	if m := errDivRe.FindSubmatch(page); m != nil {
		return strings.TrimSpace(html.UnescapeString(string(m[1])))
	}
	return ""
}

func extractTitle(page []byte) string {
	if m := titleRe.FindSubmatch(page); m != nil {
		return strings.TrimSpace(html.UnescapeString(string(m[1])))
	}
	return ""
}

// Poster carries the state of one submission run.
type Poster struct {
	Cfg     *config.Config
	Timeout time.Duration
	now     func() time.Time
}

func NewPoster(cfg *config.Config, timeout time.Duration) *Poster {
	return &Poster{Cfg: cfg, Timeout: timeout, now: time.Now}
}

// Submit posts one validated submission to the forum. Success is silent.
func (p *Poster) Submit(sub *Submission) error {
	catalog, err := p.Cfg.LoadCatalog()
	if err != nil {
		return err
	}
	group := config.FindGroup(catalog, sub.Group)
	if group == nil {
		return fmt.Errorf("no such newsgroup: %s", sub.Group)
	}

	passwd, err := p.Cfg.ReadPassword(sub.Nick)
	if err != nil {
		return err
	}

	cli, err := client.NewForUser(p.Cfg, sub.Nick, p.Timeout)
	if err != nil {
		return err
	}

	if err := p.refreshSession(cli, sub.Nick, passwd); err != nil {
		return err
	}

	session := cli.Jar.Value("JSESSIONID")
	form := url.Values{
		"session":  {session},
		"title":    {sub.Subject},
		"msg":      {sub.Body},
		"linktext": {sub.LinkText},
		"url":      {sub.LinkURL},
		"tags":     {sub.Keywords},
		"autourl":  {"1"},
	}

	var path string
	if sub.Topic == 0 {
		path = config.AddTopicPath
		form.Set("mode", "tex")
		form.Set("group", strconv.FormatInt(group.ForumID, 10))
		form.Set("topic", "")
		form.Set("replyto", "")
	} else {
		path = config.AddCommentPath
		form.Set("mode", "ntobrq")
		form.Set("topic", strconv.FormatInt(sub.Topic, 10))
		if sub.ReplyTo > 0 {
			form.Set("replyto", strconv.FormatInt(sub.ReplyTo, 10))
		} else {
			form.Set("replyto", "")
		}
	}

	var page []byte
	if sub.ImagePath != "" {
		page, err = cli.PostMultipart(path, form, "image", sub.ImagePath)
	} else {
		page, err = cli.PostForm(path, form)
	}
	if err != nil {
		return err // HTTP status line or transport error
	}
	if msg := extractError(page); msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// refreshSession applies the cookie-expiry heuristic: when any stored
// cookie would expire before the submission could plausibly complete
// (within Timeout), do a fresh login; otherwise just touch the session
// with a no-op GET. The jar is re-saved either way.
func (p *Poster) refreshSession(cli *client.Client, nick, passwd string) error {
	cookies := cli.Jar.All()
	needLogin := len(cookies) == 0
	deadline := p.now().Add(p.Timeout)
	for _, c := range cookies {
		if !c.Expires.IsZero() && c.Expires.Before(deadline) {
			needLogin = true
			break
		}
	}

	if needLogin {
		page, err := cli.PostForm(config.LoginPath, url.Values{
			"nick":   {nick},
			"passwd": {passwd},
		})
		if err != nil {
			return err
		}
		if cli.Jar.Value("JSESSIONID") == "" {
			if title := extractTitle(page); title != "" {
				return fmt.Errorf("%s", title)
			}
			return fmt.Errorf("login failed")
		}
	} else {
		if _, err := cli.Get("/"); err != nil {
			return err
		}
	}
	return cli.Jar.Save()
}
