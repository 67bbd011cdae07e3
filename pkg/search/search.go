// Package search proxies web searches to Firecrawl for design inspiration.
// When Firecrawl is unconfigured, failing or empty, a fixed list of well
// known sites is returned instead so the UI always has something to show.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/byteai/builder/pkg/cache"
	"github.com/byteai/builder/pkg/logger"
)

var ErrEmptyQuery = errors.New("query is required")

// ServiceErrorMessage is reported when the fallback hides a failed call.
const ServiceErrorMessage = "Using fallback results due to search service error"

type Config struct {
	APIKey    string        `env:"FIRECRAWL_API_KEY"`
	APIURL    string        `env:"FIRECRAWL_API_URL" envDefault:"https://api.firecrawl.dev"`
	Limit     int           `env:"SEARCH_LIMIT" envDefault:"10"`
	Timeout   time.Duration `env:"SEARCH_TIMEOUT" envDefault:"30s"`
	CacheSize int           `env:"SEARCH_CACHE_SIZE" envDefault:"256"`
	CacheTTL  time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"10m"`
}

type Result struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Screenshot  *string `json:"screenshot"`
	Markdown    string  `json:"markdown"`
}

type Response struct {
	Results  []Result `json:"results"`
	Fallback bool     `json:"fallback,omitempty"`
	Error    string   `json:"error,omitempty"`
}

var fallbackResults = []Result{
	{
		URL:         "https://tailwindui.com",
		Title:       "Tailwind UI - Beautiful UI components",
		Description: "Beautiful UI components, crafted by the creators of Tailwind CSS.",
		Markdown:    "Professional UI components built with Tailwind CSS",
	},
	{
		URL:         "https://ui.shadcn.com",
		Title:       "shadcn/ui - Re-usable components",
		Description: "Beautifully designed components built with Radix UI and Tailwind CSS.",
		Markdown:    "Modern React components with accessibility built-in",
	},
	{
		URL:         "https://stripe.com",
		Title:       "Stripe - Online payment processing",
		Description: "Online payment processing for internet businesses.",
		Markdown:    "Clean, modern payment processing interface",
	},
	{
		URL:         "https://linear.app",
		Title:       "Linear - Issue tracking",
		Description: "The issue tracker you'll enjoy using.",
		Markdown:    "Minimalist project management and issue tracking",
	},
	{
		URL:         "https://vercel.com",
		Title:       "Vercel - Deploy web projects",
		Description: "Deploy web projects with the best frontend developer experience.",
		Markdown:    "Modern deployment platform with clean design",
	},
}

// Fallback returns a copy of the fixed result list.
func Fallback() Response {
	return Response{Results: append([]Result(nil), fallbackResults[:5]...), Fallback: true}
}

// Client searches through Firecrawl, caching successful responses per query.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  *cache.Cache[string, Response]
	flight singleflight.Group
	log    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.firecrawl.dev"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: cache.New[string, Response](cfg.CacheSize, cfg.CacheTTL),
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("search"))
	return c
}

// Search never fails for a non-empty query; problems degrade to Fallback.
func (c *Client) Search(ctx context.Context, query string) (Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Response{}, ErrEmptyQuery
	}
	if c.cfg.APIKey == "" {
		c.log.WarnContext(ctx, "firecrawl api key not configured, using fallback results")
		return Fallback(), nil
	}
	if resp, ok := c.cache.Get(query); ok {
		return resp, nil
	}

	// The flight is shared, so one caller going away must not fail the rest.
	v, _, _ := c.flight.Do(query, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()
		results, err := c.firecrawl(fctx, query)
		if err != nil {
			c.log.ErrorContext(ctx, "firecrawl search failed", slog.String("query", query), logger.Error(err))
			resp := Fallback()
			var se *statusError
			if !errors.As(err, &se) {
				resp.Error = ServiceErrorMessage
			}
			return resp, nil
		}
		if len(results) == 0 {
			c.log.InfoContext(ctx, "no results from firecrawl, using fallback", slog.String("query", query))
			return Fallback(), nil
		}
		resp := Response{Results: results}
		c.cache.Put(query, resp)
		return resp, nil
	})
	return v.(Response), nil
}

type firecrawlRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlResponse struct {
	Data []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Screenshot  string `json:"screenshot"`
		Markdown    string `json:"markdown"`
	} `json:"data"`
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("firecrawl: status %d: %s", e.status, e.body)
}

func (c *Client) firecrawl(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(firecrawlRequest{
		Query: query,
		Limit: c.cfg.Limit,
		ScrapeOptions: scrapeOptions{
			Formats:         []string{"markdown", "screenshot"},
			OnlyMainContent: true,
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.APIURL, "/")+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}

	var data firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(data.Data))
	for _, d := range data.Data {
		r := Result{
			URL:         d.URL,
			Title:       d.Title,
			Description: d.Description,
			Markdown:    d.Markdown,
		}
		if r.Title == "" {
			r.Title = d.URL
		}
		if d.Screenshot != "" {
			shot := d.Screenshot
			r.Screenshot = &shot
		}
		results = append(results, r)
	}
	return results, nil
}
