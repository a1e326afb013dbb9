package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bryanwahyu/phiguard/internal/domain/scans"
)

const (
	DefaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	userAgent      = "phiguard-scanner"
)

// Config for the GitHub content API client.
type Config struct {
	BaseURL           string
	Token             string // default credential, may be empty
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 = unthrottled
}

// Client talks to the GitHub REST API. It implements scans.RepoHost and
// scans.HostProvider.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: base,
		token:   strings.TrimSpace(cfg.Token),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// ForCredential returns a client bound to token. An empty token keeps the
// configured default. The throttle is shared.
func (c *Client) ForCredential(token string) scans.RepoHost {
	token = strings.TrimSpace(token)
	if token == "" {
		return c
	}
	cp := *c
	cp.token = token
	return &cp
}

// HeadRevision returns the SHA of the default branch head.
func (c *Client) HeadRevision(ctx context.Context, ref scans.RepoRef) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/commits/HEAD", c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Name))
	var body struct {
		SHA string `json:"sha"`
	}
	if err := c.getJSON(ctx, "head revision", u, &body); err != nil {
		return "", err
	}
	if body.SHA == "" {
		return "", fmt.Errorf("head revision of %s: empty sha", ref)
	}
	return body.SHA, nil
}

// ListDir lists one directory of the repository; path "" is the root.
func (c *Client) ListDir(ctx context.Context, ref scans.RepoRef, path string) ([]scans.Entry, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL,
		url.PathEscape(ref.Owner), url.PathEscape(ref.Name), escapePath(path))
	var entries []scans.Entry
	if err := c.getJSON(ctx, "list "+displayPath(path), u, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchFile downloads the raw content of a file entry.
func (c *Client) FetchFile(ctx context.Context, e scans.Entry) (string, error) {
	if e.DownloadURL == "" {
		return "", fmt.Errorf("fetch %s: no download url", e.Path)
	}
	resp, err := c.do(ctx, "fetch "+e.Path, e.DownloadURL, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &scans.TransportError{Op: "fetch " + e.Path, Err: err}
	}
	return string(b), nil
}

func (c *Client) getJSON(ctx context.Context, op, u string, out any) error {
	resp, err := c.do(ctx, op, u, "application/vnd.github.v3+json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// do sends a GET. Network failures become *scans.TransportError and non-2xx
// answers *scans.AccessError.
func (c *Client) do(ctx context.Context, op, u, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &scans.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &scans.AccessError{
			Kind:   scans.ClassifyStatus(resp.StatusCode, c.token != ""),
			Status: resp.StatusCode,
			URL:    u,
		}
	}
	return resp, nil
}

func escapePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
