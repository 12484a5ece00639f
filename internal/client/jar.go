package client

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Jar is a persistent cookie jar stored as JSON in the user directory.
// Unlike net/http/cookiejar it ignores the discard attribute: session
// cookies survive process exit, which is the whole point of reusing the
// forum login between poster invocations.
type Jar struct {
	mux     sync.Mutex
	path    string
	cookies []*StoredCookie
}

// StoredCookie is the persisted form of one cookie.
type StoredCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain"`
	Path    string    `json:"path"`
	Expires time.Time `json:"expires,omitzero"`
}

// LoadJar reads the jar file; a missing file yields an empty jar.
func LoadJar(path string) (*Jar, error) {
	jar := &Jar{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return jar, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &jar.cookies); err != nil {
		return nil, err
	}
	return jar, nil
}

// Save writes the jar back to its file (0600, cookies carry the session).
func (j *Jar) Save() error {
	j.mux.Lock()
	defer j.mux.Unlock()
	data, err := json.MarshalIndent(j.cookies, "", "\t")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(j.path, append(data, '\n'), 0o600)
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mux.Lock()
	defer j.mux.Unlock()
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = u.Hostname()
		}
		domain = strings.TrimPrefix(domain, ".")
		path := c.Path
		if path == "" {
			path = "/"
		}
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
		}

		j.remove(c.Name, domain, path)
		if c.MaxAge < 0 {
			continue
		}
		j.cookies = append(j.cookies, &StoredCookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  domain,
			Path:    path,
			Expires: expires,
		})
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mux.Lock()
	defer j.mux.Unlock()
	now := time.Now()
	var out []*http.Cookie
	for _, c := range j.cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		if !domainMatch(u.Hostname(), c.Domain) || !pathMatch(u.Path, c.Path) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// All returns a snapshot of the stored cookies, expired ones included; the
// poster inspects expiry times to decide whether to re-login.
func (j *Jar) All() []*StoredCookie {
	j.mux.Lock()
	defer j.mux.Unlock()
	out := make([]*StoredCookie, len(j.cookies))
	copy(out, j.cookies)
	return out
}

// Value returns the current value of a named cookie, "" if absent.
func (j *Jar) Value(name string) string {
	j.mux.Lock()
	defer j.mux.Unlock()
	for _, c := range j.cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (j *Jar) remove(name, domain, path string) {
	kept := j.cookies[:0]
	for _, c := range j.cookies {
		if c.Name == name && c.Domain == domain && c.Path == path {
			continue
		}
		kept = append(kept, c)
	}
	j.cookies = kept
}

func domainMatch(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == "" {
		reqPath = "/"
	}
	return strings.HasPrefix(reqPath, cookiePath)
}
