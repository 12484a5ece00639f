// Package pull implements the forum puller: it walks the group-lastmod
// listing, fetches changed threads page by page, converts topics and
// comments into articles and appends them through the store.
package pull

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-while/go-lornews/internal/client"
	"github.com/go-while/go-lornews/internal/common"
	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
	"github.com/go-while/go-lornews/internal/spool"
)

// Puller is one lorpull invocation. It is single-threaded; periodic
// scheduling is cron's job.
type Puller struct {
	Cfg    *config.Config
	Client *client.Client
	Quiet  bool

	now func() time.Time
}

func NewPuller(cfg *config.Config, timeout time.Duration, quiet bool) *Puller {
	return &Puller{
		Cfg:    cfg,
		Client: client.New(timeout),
		Quiet:  quiet,
		now:    time.Now,
	}
}

// Run processes every catalog group matching the pattern (nil selects all):
// expiry first (when expireDays >= 0), then pulling (when pullDays >= 0).
// Remote errors are fatal for the invocation.
func (p *Puller) Run(groups []*models.Group, pattern *common.Pattern, pullDays, expireDays int) error {
	for _, g := range groups {
		if pattern != nil && !pattern.Match(g.Name) {
			continue
		}
		if expireDays >= 0 {
			if err := p.expireGroup(g, expireDays); err != nil {
				return err
			}
		}
		if pullDays >= 0 {
			if err := p.pullGroup(g, pullDays); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Puller) expireGroup(g *models.Group, days int) error {
	dir := p.Cfg.GroupDir(g.Name)
	if _, err := os.Stat(filepath.Join(dir, spool.IndexFileName)); err != nil {
		return nil // nothing pulled yet, nothing to expire
	}
	idx, err := spool.OpenGroupIndex(dir, g.Name, spool.ModeWrite)
	if err != nil {
		return err
	}
	defer idx.Close()
	deleted, err := idx.Expire(days, p.now())
	if err != nil {
		return err
	}
	if deleted > 0 && !p.Quiet {
		log.Printf("[PULL] %s: expired %d articles", g.Name, deleted)
	}
	return nil
}

// pullGroup walks the lastmod listing in offset pages until it reaches a
// thread older than the pull window.
func (p *Puller) pullGroup(g *models.Group, days int) error {
	window := time.Duration(days) * 24 * time.Hour
	for offset := 0; ; offset += config.LastModPageSize {
		page, err := p.Client.Get(fmt.Sprintf("%s?group=%d&offset=%d", config.LastModPath, g.ForumID, offset))
		if err != nil {
			return fmt.Errorf("pull %s: %w", g.Name, err)
		}
		entries, err := ParseLastModPage(page)
		if err != nil {
			return fmt.Errorf("pull %s: %w", g.Name, err)
		}
		if len(entries) == 0 {
			return nil
		}
		for _, entry := range entries {
			// Clipped threads show an unreliable age; never use it to
			// terminate the walk.
			if !entry.Clipped && entry.Age > window {
				return nil
			}
			if err := p.pullThread(g, entry); err != nil {
				return err
			}
		}
		if len(entries) < config.LastModPageSize {
			return nil
		}
		time.Sleep(config.DefaultPullPause)
	}
}

// pullThread fetches one thread's comment pages in reverse order and
// appends whatever the store does not hold yet. The group index stays
// locked for the whole thread so appended numbering matches the order of
// discovery.
func (p *Puller) pullThread(g *models.Group, entry ThreadEntry) error {
	idx, err := spool.OpenGroupIndex(p.Cfg.GroupDir(g.Name), g.Name, spool.ModeCreate)
	if err != nil {
		return err
	}
	defer idx.Close()

	// Freshness test: skip when the page counter has not grown past the
	// stored per-topic counter. This counts comment pages, not comments,
	// so a freshly clipped thread can be mis-detected as up to date; the
	// next listing walk revisits it.
	if int64(entry.Pages) <= idx.TopicCount(entry.Topic) {
		return nil
	}
	if !p.Quiet {
		log.Printf("[PULL] %s: thread %d (%d pages)", g.Name, entry.Topic, entry.Pages)
	}

	for page := entry.Pages - 1; page >= 0; page-- {
		data, err := p.Client.Get(fmt.Sprintf("%s?msgid=%d&page=%d", config.ViewMessage, entry.Topic, page))
		if err != nil {
			return fmt.Errorf("pull %s: thread %d: %w", g.Name, entry.Topic, err)
		}
		tp, err := ParseThreadPage(data)
		if err != nil {
			return fmt.Errorf("pull %s: thread %d: %w", g.Name, entry.Topic, err)
		}

		if tp.Topic != nil {
			if err := p.appendMessage(idx, g, entry.Topic, tp, tp.Topic); err != nil {
				return err
			}
		}
		for _, c := range tp.Comments {
			if err := p.appendMessage(idx, g, entry.Topic, tp, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// appendMessage converts one parsed message into an article and appends it
// unless its file already exists.
func (p *Puller) appendMessage(idx *spool.GroupIndex, g *models.Group, topic int64, tp *ThreadPage, msg *ParsedMessage) error {
	file := filepath.Join(idx.Dir, strconv.FormatInt(topic, 10), strconv.FormatInt(msg.Comment, 10))
	if _, err := os.Stat(file); err == nil {
		return nil // already stored
	}

	body, link := RenderBody(msg.Body)

	art := &models.Article{
		Newsgroup:  g.Name,
		Topic:      topic,
		Comment:    msg.Comment,
		Subject:    msg.Subject,
		FromHeader: fromHeader(msg),
		DateString: msg.Date.Format(time.RFC1123Z),
		Stars:      msg.Stars,
		Body:       body,
		Injected:   p.now(),
	}

	if msg.Comment > 0 {
		refs, err := referencesFor(idx, topic, msg.ReplyTo)
		if err != nil {
			return err
		}
		art.References = refs
	} else {
		if tp.Tags != "" {
			art.Extra = append(art.Extra, [2]string{"Keywords", tp.Tags})
		}
	}
	if link != nil {
		if link.Label == VoteMarker {
			art.Extra = append(art.Extra, [2]string{"X-Vote-URL", link.URL})
		} else {
			art.Extra = append(art.Extra, [2]string{"X-Link-URL", link.URL})
			art.Extra = append(art.Extra, [2]string{"X-Link-Text", link.Label})
		}
	}

	_, err := idx.AppendArticle(art)
	return err
}

// fromHeader builds the From header from the parsed signature.
func fromHeader(msg *ParsedMessage) string {
	from := fmt.Sprintf("%s <%s@%s>", msg.Nick, msg.Nick, models.ForumHost)
	if msg.Banned {
		from += " (banned)"
	}
	return from
}

// referencesFor builds a comment's References header: the parent's
// References followed by the parent itself, or just the topic's
// message-id for first-level comments.
func referencesFor(idx *spool.GroupIndex, topic, replyTo int64) (string, error) {
	topicID := models.FormatMessageID(topic, 0)
	if replyTo == 0 {
		return topicID, nil
	}
	parentID := models.FormatMessageID(topic, replyTo)

	parentFile := filepath.Join(idx.Dir, strconv.FormatInt(topic, 10), strconv.FormatInt(replyTo, 10))
	data, err := os.ReadFile(parentFile)
	if err != nil {
		// Parent not stored (expired or out of window): fall back to the
		// minimal chain through the topic.
		return topicID + " " + parentID, nil
	}
	head, _ := models.SplitArticle(data)
	parentRefs := models.HeaderValue(head, "References")
	if parentRefs == "" {
		return parentID, nil
	}
	return parentRefs + " " + parentID, nil
}
