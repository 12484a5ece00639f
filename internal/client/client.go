// Package client provides the forum HTTP layer shared by puller and
// poster: page retrieval and form submission with a per-user persistent
// cookie jar.
package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-while/go-lornews/internal/config"
)

// Client wraps http.Client with the jar and the gateway User-Agent.
type Client struct {
	HTTP    *http.Client
	Jar     *Jar
	BaseURL string
}

// New builds a client with an in-memory-only jar (puller use: the forum is
// read anonymously, no cookies needed across runs).
func New(timeout time.Duration) *Client {
	jar := &Jar{}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout, Jar: jar},
		Jar:     jar,
		BaseURL: config.BaseURL,
	}
}

// NewForUser builds a client backed by the user's persistent cookie jar.
func NewForUser(cfg *config.Config, nick string, timeout time.Duration) (*Client, error) {
	jar, err := LoadJar(cfg.CookiesPath(nick))
	if err != nil {
		return nil, fmt.Errorf("cookie jar for %s: %w", nick, err)
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout, Jar: jar},
		Jar:     jar,
		BaseURL: config.BaseURL,
	}, nil
}

func (c *Client) userAgent() string {
	return "lornews/" + config.AppVersion
}

// Get fetches a forum page. Non-2xx responses are returned as errors
// carrying the HTTP status line.
func (c *Client) Get(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent())
	return c.do(req)
}

// PostForm submits an application/x-www-form-urlencoded POST.
func (c *Client) PostForm(path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// PostMultipart submits a multipart/form-data POST with one attached file
// (the poster's image upload). filePath may be empty for no attachment.
func (c *Client) PostMultipart(path string, form url.Values, fileField, filePath string) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range form {
		for _, v := range vs {
			if err := w.WriteField(k, v); err != nil {
				return nil, err
			}
		}
	}
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("image upload: %w", err)
		}
		part, err := w.CreateFormFile(fileField, filepath.Base(filePath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("image upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, fmt.Errorf("%s", resp.Status)
	}
	return body, nil
}
