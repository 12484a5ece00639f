package pull

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
	"github.com/go-while/go-lornews/internal/spool"
)

// fakeForum serves a one-thread group listing and the thread page.
func fakeForum(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(config.LastModPath, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("offset") != "0" {
			fmt.Fprint(w, "<table></table>")
			return
		}
		fmt.Fprint(w, `<table><tr>
<td><a href="/view-message.jsp?msgid=12345">thread</a></td>
<td class="dateinterval">5 минут назад</td>
</tr></table>`)
	})
	mux.HandleFunc(config.ViewMessage, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<h1>test thread</h1>
<div class="tags">linux</div>
<div class="msg" id="topic-12345">
  <div class="msg_body"><p>topic body</p></div>
  <div class="sign"><span class="nick">author</span> (12.08.2026 10:15:30)</div>
</div>
<div class="msg" id="comment-678">
  <div class="msg_body"><p>comment body</p></div>
  <div class="sign"><span class="nick">user</span> (12.08.2026 11:00:00)</div>
</div>
</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPullThreadEndToEnd(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		RootDir:  root,
		NewsDir:  filepath.Join(root, "news"),
		UsersDir: filepath.Join(root, "users"),
	}
	forum := fakeForum(t)

	p := NewPuller(cfg, 5*time.Second, true)
	p.Client.BaseURL = forum.URL

	group := &models.Group{Name: "lor.forum.talks", ForumID: 42, Description: "Talks"}
	if err := p.Run([]*models.Group{group}, nil, 2, -1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	idx, err := spool.OpenGroupIndex(cfg.GroupDir("lor.forum.talks"), "lor.forum.talks", spool.ModeRead)
	if err != nil {
		t.Fatalf("open pulled group: %v", err)
	}
	defer idx.Close()

	if idx.Count != 2 || idx.Min != 1 || idx.Max != 2 {
		t.Errorf("pulled group: count=%d min=%d max=%d", idx.Count, idx.Min, idx.Max)
	}

	data, err := idx.ReadArticle(1)
	if err != nil {
		t.Fatalf("ReadArticle: %v", err)
	}
	head, body := models.SplitArticle(data)
	if got := models.HeaderValue(head, "Message-ID"); got != "<lor12345@linux.org.ru>" {
		t.Errorf("topic message-id: %q", got)
	}
	if got := models.HeaderValue(head, "Keywords"); got != "linux" {
		t.Errorf("topic keywords: %q", got)
	}
	if len(body) != 1 || body[0] != "topic body" {
		t.Errorf("topic body: %q", body)
	}

	data, err = idx.ReadArticle(2)
	if err != nil {
		t.Fatalf("ReadArticle comment: %v", err)
	}
	head, _ = models.SplitArticle(data)
	if got := models.HeaderValue(head, "References"); got != "<lor12345@linux.org.ru>" {
		t.Errorf("comment references: %q", got)
	}
	if got := models.HeaderValue(head, "From"); got != "user <user@linux.org.ru>" {
		t.Errorf("comment from: %q", got)
	}

	// A second run with unchanged pages appends nothing.
	if err := p.Run([]*models.Group{group}, nil, 2, -1); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	idx2, err := spool.OpenGroupIndex(cfg.GroupDir("lor.forum.talks"), "lor.forum.talks", spool.ModeRead)
	if err != nil {
		t.Fatal(err)
	}
	defer idx2.Close()
	if idx2.Count != 2 {
		t.Errorf("second run changed count to %d", idx2.Count)
	}
}

func TestReferencesChain(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{RootDir: root, NewsDir: filepath.Join(root, "news")}
	idx, err := spool.OpenGroupIndex(cfg.GroupDir("lor.forum.talks"), "lor.forum.talks", spool.ModeCreate)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	now := time.Now()
	topic := &models.Article{
		Newsgroup: "lor.forum.talks", Topic: 7, Subject: "s",
		FromHeader: "a <a@linux.org.ru>", DateString: now.Format(time.RFC1123Z),
		Body: "b\n", Injected: now,
	}
	if _, err := idx.AppendArticle(topic); err != nil {
		t.Fatal(err)
	}
	first := &models.Article{
		Newsgroup: "lor.forum.talks", Topic: 7, Comment: 10, Subject: "Re: s",
		FromHeader: "b <b@linux.org.ru>", DateString: now.Format(time.RFC1123Z),
		References: "<lor7@linux.org.ru>", Body: "c\n", Injected: now,
	}
	if _, err := idx.AppendArticle(first); err != nil {
		t.Fatal(err)
	}

	// Reply to a stored comment extends its chain.
	refs, err := referencesFor(idx, 7, 10)
	if err != nil {
		t.Fatal(err)
	}
	if refs != "<lor7@linux.org.ru> <lor7.10@linux.org.ru>" {
		t.Errorf("chained references: %q", refs)
	}

	// First-level comment references just the topic.
	if refs, err = referencesFor(idx, 7, 0); err != nil || refs != "<lor7@linux.org.ru>" {
		t.Errorf("first-level references: %q, %v", refs, err)
	}

	// Reply to a missing parent falls back to topic + parent.
	if refs, err = referencesFor(idx, 7, 99); err != nil || refs != "<lor7@linux.org.ru> <lor7.99@linux.org.ru>" {
		t.Errorf("fallback references: %q, %v", refs, err)
	}
}
