// Package photosearch resolves a free-text query ("Make Model" year) to
// candidate photo bytes through an external JSON image-search API.
//
// The API shape is configured, not hard-coded: a URL template with a
// {query} placeholder, a dot-notation path to the result array, and the
// field holding each result's image URL. Headers support ${ENV_VAR}
// expansion so API keys stay out of config files.
package photosearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hazyhaar/cardle/webguard"
)

// Engine describes the image-search API.
type Engine struct {
	Name        string            `yaml:"name" json:"name"`
	URLTemplate string            `yaml:"url_template" json:"url_template"` // contains {query}
	Method      string            `yaml:"method" json:"method"`             // default GET
	Headers     map[string]string `yaml:"headers" json:"headers"`           // ${ENV_VAR} expanded
	ResultPath  string            `yaml:"result_path" json:"result_path"`   // dot-notation: "results"
	ImageField  string            `yaml:"image_field" json:"image_field"`   // default "image"
	MaxResults  int               `yaml:"max_results" json:"max_results"`   // candidates per query, default 1
}

// Config bounds the outbound HTTP work.
type Config struct {
	Timeout   time.Duration // per-request timeout. Default: 15s.
	MaxBytes  int64         // max image body size. Default: 8MB.
	UserAgent string
	// URLValidator validates URLs before fetch (SSRF prevention).
	// Default: webguard.ValidateURL.
	URLValidator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 8 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "cardle/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = webguard.ValidateURL
	}
}

// Photo is one resolved candidate: the source URL and its raw bytes.
type Photo struct {
	URL   string
	Bytes []byte
}

// ErrNoResults is returned when the search API yields no candidates.
var ErrNoResults = errors.New("photosearch: no results")

// ErrNoImage is returned when no candidate's bytes could be fetched.
var ErrNoImage = errors.New("photosearch: no fetchable image")

// Client queries one engine and fetches candidate images.
type Client struct {
	engine Engine
	http   *http.Client
	config Config
}

// New creates a Client. The redirect chain is capped and re-validated
// against SSRF, matching the fetch policy used for every outbound request.
func New(engine Engine, cfg Config) *Client {
	cfg.defaults()
	if engine.Method == "" {
		engine.Method = http.MethodGet
	}
	if engine.ImageField == "" {
		engine.ImageField = "image"
	}
	if engine.MaxResults <= 0 {
		engine.MaxResults = 1
	}
	validate := cfg.URLValidator
	return &Client{
		engine: engine,
		config: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
	}
}

// Search executes the query and returns candidate image URLs, at most
// MaxResults of them.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	searchURL := strings.ReplaceAll(c.engine.URLTemplate, "{query}", url.QueryEscape(query))
	if err := c.config.URLValidator(searchURL); err != nil {
		return nil, fmt.Errorf("photosearch: search URL blocked: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, c.engine.Method, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("photosearch: new request: %w", err)
	}
	for k, v := range c.engine.Headers {
		req.Header.Set(k, os.Expand(v, os.Getenv))
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photosearch: http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("photosearch: http %d", resp.StatusCode)
	}

	body, err := webguard.LimitedReadAll(resp.Body, webguard.MaxResponseBody)
	if err != nil {
		return nil, fmt.Errorf("photosearch: read body: %w", err)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("photosearch: json decode: %w", err)
	}
	items, err := walkPath(raw, c.engine.ResultPath)
	if err != nil {
		return nil, fmt.Errorf("photosearch: walk path %q: %w", c.engine.ResultPath, err)
	}

	urls := make([]string, 0, c.engine.MaxResults)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		u, _ := obj[c.engine.ImageField].(string)
		if u == "" {
			continue
		}
		urls = append(urls, u)
		if len(urls) >= c.engine.MaxResults {
			break
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoResults
	}
	return urls, nil
}

// FetchImage downloads the raw bytes of one candidate image, with SSRF
// validation and a size cap. It does not verify the bytes decode — that is
// the selector's concern.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.config.URLValidator(imageURL); err != nil {
		return nil, fmt.Errorf("photosearch: image URL blocked: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("photosearch: new request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photosearch: http get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("photosearch: http %d", resp.StatusCode)
	}
	body, err := webguard.LimitedReadAll(resp.Body, c.config.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("photosearch: read image: %w", err)
	}
	return body, nil
}

// Resolve runs Search and fetches candidates in order, returning the first
// one whose bytes could be downloaded. Per-candidate failures fall through
// to the next candidate; the per-request timeout bounds each attempt.
func (c *Client) Resolve(ctx context.Context, query string) (*Photo, error) {
	urls, err := c.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, u := range urls {
		b, err := c.FetchImage(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}
		return &Photo{URL: u, Bytes: b}, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, lastErr)
	}
	return nil, ErrNoImage
}

// walkPath walks a dot-notation path into a JSON value, returning the
// items found at that path. If the path is empty, the root must be an
// array.
func walkPath(v any, path string) ([]any, error) {
	if path == "" {
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("root is not an array")
		}
		return arr, nil
	}

	parts := strings.Split(path, ".")
	current := v
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object at %q, got %T", part, current)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("key %q not found", part)
		}
	}

	arr, ok := current.([]any)
	if !ok {
		return nil, fmt.Errorf("path %q is not an array", path)
	}
	return arr, nil
}
