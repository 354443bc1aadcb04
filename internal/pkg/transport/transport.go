package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const userAgent = "adt-smart-security/1.0"

// Client performs portal HTTP calls with a shared cookie jar. A fresh
// jar (a fresh Client) is created on every login so that no cookie from
// an older session leaks into the new one.
type Client struct {
	baseURL   string
	http      *http.Client
	csrfToken string
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// SetCSRFToken sets the anti-forgery token injected into every
// subsequent request.
func (c *Client) SetCSRFToken(token string) {
	c.csrfToken = token
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches a portal page and returns its body.
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	c.decorate(req)
	return c.do(req)
}

// PostForm submits a form-encoded body, following redirects. The portal
// redirects after login and after every web action.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.decorate(req)
	return c.do(req)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")
	if c.csrfToken != "" {
		req.Header.Set("X-Request-Verification-Token", c.csrfToken)
	}
}

func (c *Client) do(req *http.Request) (string, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
