package spool

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-while/go-lornews/internal/common"
	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
)

func testArticle(topic, comment int64, injected time.Time) *models.Article {
	return &models.Article{
		Newsgroup:  "lor.forum.talks",
		Topic:      topic,
		Comment:    comment,
		Subject:    "test subject",
		FromHeader: "user <user@linux.org.ru>",
		DateString: injected.Format(time.RFC1123Z),
		Body:       "body line\n",
		Injected:   injected,
	}
}

func openCreate(t *testing.T, dir string) *GroupIndex {
	t.Helper()
	idx, err := OpenGroupIndex(dir, "lor.forum.talks", ModeCreate)
	if err != nil {
		t.Fatalf("OpenGroupIndex: %v", err)
	}
	return idx
}

func TestFreshIndexIsEmpty(t *testing.T) {
	idx := openCreate(t, t.TempDir())
	defer idx.Close()

	if idx.Count != 0 || idx.Min != 1 || idx.Max != 0 {
		t.Errorf("fresh index: count=%d min=%d max=%d, want 0/1/0", idx.Count, idx.Min, idx.Max)
	}
}

func TestAppendAndReadBack(t *testing.T) {
	now := time.Now()
	idx := openCreate(t, t.TempDir())
	defer idx.Close()

	topic := testArticle(12345, 0, now)
	n, err := idx.AppendArticle(topic)
	if err != nil {
		t.Fatalf("AppendArticle: %v", err)
	}
	if n != 1 {
		t.Fatalf("first article number = %d, want 1", n)
	}

	comment := testArticle(12345, 678, now)
	comment.References = "<lor12345@linux.org.ru>"
	if n, err = idx.AppendArticle(comment); err != nil || n != 2 {
		t.Fatalf("AppendArticle comment: n=%d err=%v", n, err)
	}

	if idx.Count != 2 || idx.Min != 1 || idx.Max != 2 {
		t.Errorf("after appends: count=%d min=%d max=%d", idx.Count, idx.Min, idx.Max)
	}
	if got := idx.TopicCount(12345); got != 2 {
		t.Errorf("TopicCount = %d, want 2", got)
	}

	data, err := idx.ReadArticle(2)
	if err != nil {
		t.Fatalf("ReadArticle: %v", err)
	}
	if !bytes.Equal(data, comment.Render()) {
		t.Errorf("stored bytes differ from rendered article")
	}

	ov, err := idx.Overview(2)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.MessageID != "<lor12345.678@linux.org.ru>" {
		t.Errorf("overview message-id: %q", ov.MessageID)
	}

	// Re-parsing the file regenerates the stored overview.
	regen := models.OverviewFromFile(data, common.EncodeHeaderValue)
	if regen.Marshal() != ov.Marshal() {
		t.Errorf("overview round trip:\n got %q\nwant %q", regen.Marshal(), ov.Marshal())
	}

	ts, err := idx.Timestamp(1)
	if err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	if ts.Unix() != now.Unix() {
		t.Errorf("timestamp = %v, want %v", ts.Unix(), now.Unix())
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	idx := openCreate(t, dir)
	if _, err := idx.AppendArticle(testArticle(7, 0, time.Now())); err != nil {
		t.Fatalf("AppendArticle: %v", err)
	}
	idx.Close()

	idx, err := OpenGroupIndex(dir, "lor.forum.talks", ModeRead)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	if idx.Count != 1 || idx.Min != 1 || idx.Max != 1 {
		t.Errorf("reopened: count=%d min=%d max=%d", idx.Count, idx.Min, idx.Max)
	}
	if _, err := idx.AppendArticle(testArticle(8, 0, time.Now())); err == nil {
		t.Error("append on read-only index should fail")
	}
}

func TestOpenMissingGroup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never", "pulled")
	_, err := OpenGroupIndex(dir, "lor.forum.talks", ModeRead)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestExpirePreservesNumbering(t *testing.T) {
	now := time.Now()
	old := now.Add(-72 * time.Hour)
	idx := openCreate(t, t.TempDir())
	defer idx.Close()

	// Three old topics and two fresh ones.
	for i, injected := range []time.Time{old, old, old, now, now} {
		if _, err := idx.AppendArticle(testArticle(int64(100+i), 0, injected)); err != nil {
			t.Fatalf("AppendArticle: %v", err)
		}
	}

	deleted, err := idx.Expire(1, now)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if idx.Count != 2 || idx.Min != 4 || idx.Max != 5 {
		t.Errorf("after expire: count=%d min=%d max=%d, want 2/4/5", idx.Count, idx.Min, idx.Max)
	}

	nums, err := idx.Scan(idx.Min, idx.Max)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(nums) != 2 || nums[0] != 4 || nums[1] != 5 {
		t.Errorf("live numbers = %v, want [4 5]", nums)
	}

	// Numbers are never reused after expiry.
	n, err := idx.AppendArticle(testArticle(200, 0, now))
	if err != nil {
		t.Fatalf("AppendArticle: %v", err)
	}
	if n != 6 {
		t.Errorf("post-expire number = %d, want 6", n)
	}

	// Expired topic counters and directories are gone.
	if got := idx.TopicCount(100); got != 0 {
		t.Errorf("expired topic counter = %d", got)
	}
	if _, err := os.Stat(filepath.Join(idx.Dir, "100")); !os.IsNotExist(err) {
		t.Errorf("expired topic dir still present: %v", err)
	}
	if _, err := idx.ReadArticle(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired article still readable: %v", err)
	}
}

func TestExpireAllEmptiesGroup(t *testing.T) {
	now := time.Now()
	idx := openCreate(t, t.TempDir())
	defer idx.Close()

	for i := int64(0); i < 3; i++ {
		if _, err := idx.AppendArticle(testArticle(50+i, 0, now)); err != nil {
			t.Fatalf("AppendArticle: %v", err)
		}
	}

	deleted, err := idx.Expire(0, now)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if idx.Count != 0 || idx.Min != idx.Max+1 {
		t.Errorf("emptied group: count=%d min=%d max=%d", idx.Count, idx.Min, idx.Max)
	}
}

func TestPrevNextLiveWithHoles(t *testing.T) {
	now := time.Now()
	old := now.Add(-72 * time.Hour)
	idx := openCreate(t, t.TempDir())
	defer idx.Close()

	// Numbers 1 and 2 expire, 3 and 4 stay.
	for _, tc := range []struct {
		topic    int64
		injected time.Time
	}{{1, old}, {2, old}, {3, now}, {4, now}} {
		if _, err := idx.AppendArticle(testArticle(tc.topic, 0, tc.injected)); err != nil {
			t.Fatalf("AppendArticle: %v", err)
		}
	}
	if _, err := idx.Expire(1, now); err != nil {
		t.Fatalf("Expire: %v", err)
	}

	if n, err := idx.NextLive(3); err != nil || n != 4 {
		t.Errorf("NextLive(3) = %d, %v", n, err)
	}
	if _, err := idx.NextLive(4); !errors.Is(err, ErrNotFound) {
		t.Errorf("NextLive at end: %v", err)
	}
	if n, err := idx.PrevLive(4); err != nil || n != 3 {
		t.Errorf("PrevLive(4) = %d, %v", n, err)
	}
	if _, err := idx.PrevLive(3); !errors.Is(err, ErrNotFound) {
		t.Errorf("PrevLive at start: %v", err)
	}
}

func TestLookupByMessageID(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		RootDir:  root,
		NewsDir:  filepath.Join(root, "news"),
		UsersDir: filepath.Join(root, "users"),
	}
	catalog := []*models.Group{
		{Name: "lor.forum.general", ForumID: 1},
		{Name: "lor.forum.talks", ForumID: 2},
	}

	idx, err := OpenGroupIndex(cfg.GroupDir("lor.forum.talks"), "lor.forum.talks", ModeCreate)
	if err != nil {
		t.Fatalf("OpenGroupIndex: %v", err)
	}
	n, err := idx.AppendArticle(testArticle(12345, 678, time.Now()))
	if err != nil {
		t.Fatalf("AppendArticle: %v", err)
	}
	wantPath, err := idx.ArticleFile(n)
	if err != nil {
		t.Fatalf("ArticleFile: %v", err)
	}
	idx.Close()

	loc, err := LookupByMessageID(cfg, catalog, "<lor12345.678@linux.org.ru>")
	if err != nil {
		t.Fatalf("LookupByMessageID: %v", err)
	}
	if loc.Group != "lor.forum.talks" || loc.Number != n || loc.Path != wantPath {
		t.Errorf("location = %+v", loc)
	}

	if _, err := LookupByMessageID(cfg, catalog, "<lor99999@linux.org.ru>"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: %v", err)
	}
	if _, err := LookupByMessageID(cfg, catalog, "<garbage@example.com>"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("malformed id should be a distinct error, got %v", err)
	}
}
