// Package config provides store layout, defaults and the newsgroup
// catalog for go-lornews.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-while/go-lornews/internal/models"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Default server and client settings
	DefaultNNTPPort    = 5119
	DefaultHTTPTimeout = 20 * time.Second
	DefaultPostCmd     = "lorpost"

	// Puller defaults
	DefaultPullDays  = 2  // pull window in days
	LastModPageSize  = 30 // thread entries per group-lastmod page
	DefaultPullPause = time.Second / 2

	// Remote endpoints
	BaseURL        = "http://www.linux.org.ru"
	LoginPath      = "/login.jsp"
	LastModPath    = "/group-lastmod.jsp"
	ViewMessage    = "/view-message.jsp"
	AddTopicPath   = "/add.jsp"
	AddCommentPath = "/add_comment.jsp"

	// CreationDateFormat is the on-disk cdate layout (UTC).
	CreationDateFormat = "20060102150405"
)

// Config holds the resolved store layout for one invocation.
type Config struct {
	RootDir  string // ~/.lornews
	NewsDir  string // <root>/news
	UsersDir string // <root>/users
}

// Resolve locates the store root. HOME is required; its absence is fatal at
// startup (returned as an error so the caller can log.Fatalf). LORNEWS_DIR
// overrides the default for tests and non-standard installs.
func Resolve() (*Config, error) {
	root := os.Getenv("LORNEWS_DIR")
	if root == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return nil, fmt.Errorf("HOME is not set")
		}
		root = filepath.Join(home, ".lornews")
	}
	return &Config{
		RootDir:  root,
		NewsDir:  filepath.Join(root, "news"),
		UsersDir: filepath.Join(root, "users"),
	}, nil
}

// GroupDir returns the per-group article directory: the dot-split group
// name under <root>/news.
func (c *Config) GroupDir(group string) string {
	return filepath.Join(c.NewsDir, filepath.Join(strings.Split(group, ".")...))
}

// UserDir returns <root>/users/<nick>.
func (c *Config) UserDir(nick string) string {
	return filepath.Join(c.UsersDir, nick)
}

// CatalogPath returns the newsgroup catalog file.
func (c *Config) CatalogPath() string { return filepath.Join(c.RootDir, "groups") }

// CreationDatePath returns the cdate file.
func (c *Config) CreationDatePath() string { return filepath.Join(c.RootDir, "cdate") }

// groupNameRe rejects whitespace, commas, brackets, backslashes and
// wildcard characters in catalog group names.
var groupNameRe = regexp.MustCompile(`^[^\s,\[\]\\*?]+$`)

// LoadCatalog reads and validates the newsgroup catalog. Format: one line
// per group, "<name> <id> <description>". The catalog is authoritative.
func (c *Config) LoadCatalog() ([]*models.Group, error) {
	data, err := os.ReadFile(c.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("newsgroup catalog: %w", err)
	}
	var groups []*models.Group
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 3 {
			return nil, fmt.Errorf("newsgroup catalog line %d: malformed entry %q", n+1, line)
		}
		if !groupNameRe.MatchString(parts[0]) {
			return nil, fmt.Errorf("newsgroup catalog line %d: invalid group name %q", n+1, parts[0])
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("newsgroup catalog line %d: invalid group id %q", n+1, parts[1])
		}
		groups = append(groups, &models.Group{
			Name:        parts[0],
			ForumID:     id,
			Description: strings.TrimSpace(parts[2]),
		})
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("newsgroup catalog %s is empty", c.CatalogPath())
	}
	return groups, nil
}

// FindGroup looks a group up by name in a loaded catalog.
func FindGroup(groups []*models.Group, name string) *models.Group {
	for _, g := range groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// CreationDate reads the stored catalog creation timestamp (UTC).
func (c *Config) CreationDate() (time.Time, error) {
	data, err := os.ReadFile(c.CreationDatePath())
	if err != nil {
		return time.Time{}, fmt.Errorf("creation date: %w", err)
	}
	t, err := time.ParseInLocation(CreationDateFormat, strings.TrimSpace(string(data)), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("creation date %s: %w", c.CreationDatePath(), err)
	}
	return t, nil
}

// EnsureCreationDate writes the cdate file if it does not exist yet and
// returns the effective creation timestamp.
func (c *Config) EnsureCreationDate(now time.Time) (time.Time, error) {
	if t, err := c.CreationDate(); err == nil {
		return t, nil
	}
	if err := os.MkdirAll(c.RootDir, 0o700); err != nil {
		return time.Time{}, err
	}
	stamp := now.UTC().Truncate(time.Second)
	if err := os.WriteFile(c.CreationDatePath(), []byte(stamp.Format(CreationDateFormat)+"\n"), 0o600); err != nil {
		return time.Time{}, fmt.Errorf("creation date: %w", err)
	}
	return stamp, nil
}

// ReadPassword reads <root>/users/<nick>/passwd. The password is kept
// cleartext (mode 0600) because it has to be replayed against the forum's
// login form.
func (c *Config) ReadPassword(nick string) (string, error) {
	data, err := os.ReadFile(filepath.Join(c.UserDir(nick), "passwd"))
	if err != nil {
		return "", fmt.Errorf("password for %s: %w", nick, err)
	}
	pw := strings.TrimRight(string(data), "\n")
	if pw == "" {
		return "", fmt.Errorf("password for %s is empty", nick)
	}
	return pw, nil
}

// CookiesPath returns the persistent cookie jar file for a user.
func (c *Config) CookiesPath(nick string) string {
	return filepath.Join(c.UserDir(nick), "cookies")
}
