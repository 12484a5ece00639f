package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
	"github.com/go-while/go-lornews/internal/spool"
)

func testWebServer(t *testing.T) *WebServer {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		RootDir:  root,
		NewsDir:  filepath.Join(root, "news"),
		UsersDir: filepath.Join(root, "users"),
	}
	catalog := []*models.Group{
		{Name: "lor.forum.talks", ForumID: 42, Description: "Talks"},
		{Name: "lor.forum.general", ForumID: 4, Description: "General"},
	}

	idx, err := spool.OpenGroupIndex(cfg.GroupDir("lor.forum.talks"), "lor.forum.talks", spool.ModeCreate)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if _, err := idx.AppendArticle(&models.Article{
		Newsgroup: "lor.forum.talks", Topic: 1, Subject: "s",
		FromHeader: "a <a@linux.org.ru>", DateString: now.Format(time.RFC1123Z),
		Body: "b\n", Injected: now,
	}); err != nil {
		t.Fatal(err)
	}
	idx.Close()

	return NewServer(cfg, catalog, 0)
}

func get(t *testing.T, s *WebServer, path string, wantStatus int) []byte {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Router.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("GET %s: status %d, want %d (%s)", path, w.Code, wantStatus, w.Body.String())
	}
	return w.Body.Bytes()
}

func TestAPIStatus(t *testing.T) {
	s := testWebServer(t)
	var status struct {
		Groups   int   `json:"groups"`
		Articles int64 `json:"articles"`
	}
	if err := json.Unmarshal(get(t, s, "/api/status", http.StatusOK), &status); err != nil {
		t.Fatal(err)
	}
	if status.Groups != 2 || status.Articles != 1 {
		t.Errorf("status: %+v", status)
	}
}

func TestAPIGroups(t *testing.T) {
	s := testWebServer(t)

	var groups []GroupStatus
	if err := json.Unmarshal(get(t, s, "/api/groups", http.StatusOK), &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups: %+v", groups)
	}
	if groups[0].Name != "lor.forum.talks" || groups[0].Count != 1 || groups[0].Max != 1 {
		t.Errorf("pulled group: %+v", groups[0])
	}
	// Never-pulled group reports empty-group water marks.
	if groups[1].Count != 0 || groups[1].Min != 1 || groups[1].Max != 0 {
		t.Errorf("never-pulled group: %+v", groups[1])
	}

	var one GroupStatus
	if err := json.Unmarshal(get(t, s, "/api/groups/lor.forum.talks", http.StatusOK), &one); err != nil {
		t.Fatal(err)
	}
	if one.ForumID != 42 || one.Count != 1 {
		t.Errorf("single group: %+v", one)
	}

	get(t, s, "/api/groups/lor.nope", http.StatusNotFound)
}
