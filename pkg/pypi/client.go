// Package pypi is a client for the PyPI JSON API and HTML search page.
//
// Responses are cached through a pluggable cache backend so repeated tool
// calls do not hammer the index. Transient failures (transport errors,
// 5xx responses) are retried with exponential backoff; 404 surfaces as
// NOT_FOUND immediately.
package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pipsight/pipsight/pkg/buildinfo"
	"github.com/pipsight/pipsight/pkg/cache"
	"github.com/pipsight/pipsight/pkg/errors"
	"github.com/pipsight/pipsight/pkg/httputil"
	"github.com/pipsight/pipsight/pkg/manifest"
)

const (
	defaultBaseURL   = "https://pypi.org/pypi"
	defaultSearchURL = "https://pypi.org/search/"
	requestTimeout   = 10 * time.Second
)

// Project is the JSON API response for a project or a single release.
type Project struct {
	Info     Info                     `json:"info"`
	Releases map[string][]ReleaseFile `json:"releases"`
	URLs     []ReleaseFile            `json:"urls"`
}

// Info is the metadata record inside a project or release response.
type Info struct {
	Name                   string         `json:"name"`
	Version                string         `json:"version"`
	Summary                string         `json:"summary"`
	Description            string         `json:"description"`
	DescriptionContentType string         `json:"description_content_type"`
	Author                 string         `json:"author"`
	Maintainer             string         `json:"maintainer"`
	License                string         `json:"license"`
	HomePage               string         `json:"home_page"`
	Keywords               string         `json:"keywords"`
	RequiresDist           []string       `json:"requires_dist"`
	RequiresPython         string         `json:"requires_python"`
	ProjectURLs            map[string]any `json:"project_urls"`
}

// ProjectURL returns the named project link, skipping non-string values
// the API occasionally returns (null entries).
func (i Info) ProjectURL(name string) (string, bool) {
	v, ok := i.ProjectURLs[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ReleaseFile is one uploaded distribution file of a release.
type ReleaseFile struct {
	Filename          string `json:"filename"`
	Yanked            bool   `json:"yanked"`
	UploadTimeISO8601 string `json:"upload_time_iso_8601"`
	UploadTime        string `json:"upload_time"`
}

// Client talks to a PyPI-compatible index. Safe for concurrent use.
type Client struct {
	// BaseURL is the JSON API root (default "https://pypi.org/pypi").
	BaseURL string
	// SearchURL is the HTML search page (default "https://pypi.org/search/").
	SearchURL string

	http      *http.Client
	cache     cache.Cache
	ttl       time.Duration
	userAgent string
}

// NewClient creates a client with the given cache backend and entry TTL.
// Pass a cache.NullCache to disable caching. A nil httpClient uses a
// default with a 10 second timeout.
func NewClient(backend cache.Cache, ttl time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		BaseURL:   defaultBaseURL,
		SearchURL: defaultSearchURL,
		http:      httpClient,
		cache:     backend,
		ttl:       ttl,
		userAgent: buildinfo.UserAgent(),
	}
}

// GetProject fetches project-level metadata including the full release map.
func (c *Client) GetProject(ctx context.Context, name string) (*Project, error) {
	name = manifest.NormalizeName(name)
	var p Project
	url := fmt.Sprintf("%s/%s/json", c.BaseURL, name)
	if err := c.getJSON(ctx, "pypi:project:"+name, url, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetRelease fetches metadata for one specific version of a project.
func (c *Client) GetRelease(ctx context.Context, name, version string) (*Project, error) {
	name = manifest.NormalizeName(name)
	var p Project
	url := fmt.Sprintf("%s/%s/%s/json", c.BaseURL, name, version)
	if err := c.getJSON(ctx, "pypi:release:"+name+":"+version, url, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) getJSON(ctx context.Context, key, url string, out any) error {
	if c.cache != nil {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if json.Unmarshal(data, out) == nil {
				return nil
			}
			// Corrupt entry: drop it and refetch.
			_ = c.cache.Delete(ctx, key)
		}
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "invalid response from %s", url)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, body, c.ttl)
	}
	return nil
}

// fetch performs one GET with retries. The whole body is read so the
// result can be cached verbatim.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		b, err := c.doOnce(ctx, url)
		body = b
		return err
	})
	return body, err
}

func (c *Client) doOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "bad request for %s", url)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "request to %s failed", url)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeNotFound, "not found: %s", url)
	case resp.StatusCode >= 500:
		return nil, &httputil.RetryableError{Err: errors.New(errors.ErrCodeNetwork, "%s returned %d", url, resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, errors.New(errors.ErrCodeNetwork, "%s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "reading %s", url)}
	}
	return body, nil
}

func (c *Client) searchPage(ctx context.Context, query string) ([]byte, error) {
	u := c.SearchURL + "?q=" + url.QueryEscape(query)
	return c.fetch(ctx, u)
}
