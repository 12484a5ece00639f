package client

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestJarPersistsSessionCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies")
	jar, err := LoadJar(path)
	if err != nil {
		t.Fatalf("LoadJar: %v", err)
	}

	u := mustURL(t, "http://www.linux.org.ru/login.jsp")
	jar.SetCookies(u, []*http.Cookie{
		// no Expires: a session cookie, must survive the save
		{Name: "JSESSIONID", Value: "abc123", Path: "/"},
		{Name: "tz", Value: "Europe/Moscow", Expires: time.Now().Add(24 * time.Hour)},
	})
	if err := jar.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := LoadJar(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Value("JSESSIONID"); got != "abc123" {
		t.Errorf("session cookie after reload: %q", got)
	}
	if len(reloaded.All()) != 2 {
		t.Errorf("got %d cookies after reload", len(reloaded.All()))
	}
}

func TestJarExpiryAndMatching(t *testing.T) {
	jar, err := LoadJar(filepath.Join(t.TempDir(), "cookies"))
	if err != nil {
		t.Fatal(err)
	}
	u := mustURL(t, "http://www.linux.org.ru/")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "fresh", Value: "1", Expires: time.Now().Add(time.Hour)},
		{Name: "stale", Value: "1", Expires: time.Now().Add(-time.Hour)},
	})

	sent := jar.Cookies(u)
	if len(sent) != 1 || sent[0].Name != "fresh" {
		t.Errorf("sent cookies: %+v", sent)
	}
	// All() still reports the expired one so the poster can see it.
	if len(jar.All()) != 2 {
		t.Errorf("All() = %d cookies, want 2", len(jar.All()))
	}

	other := mustURL(t, "http://example.com/")
	if got := jar.Cookies(other); len(got) != 0 {
		t.Errorf("foreign host got cookies: %+v", got)
	}
}

func TestJarReplaceAndDelete(t *testing.T) {
	jar, err := LoadJar(filepath.Join(t.TempDir(), "cookies"))
	if err != nil {
		t.Fatal(err)
	}
	u := mustURL(t, "http://www.linux.org.ru/")

	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "old"}})
	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "new"}})
	if got := jar.Value("JSESSIONID"); got != "new" {
		t.Errorf("replaced value: %q", got)
	}
	if len(jar.All()) != 1 {
		t.Errorf("replace duplicated the cookie: %d entries", len(jar.All()))
	}

	// MaxAge < 0 deletes.
	jar.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "", MaxAge: -1}})
	if got := jar.Value("JSESSIONID"); got != "" {
		t.Errorf("deleted cookie still present: %q", got)
	}
}
