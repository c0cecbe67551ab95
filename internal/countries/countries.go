// Package countries downloads the Country→Capital map from restcountries and
// scrapes per-country facts from Wikipedia infoboxes.
package countries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	DefaultCountriesURL = "https://restcountries.com/v3.1/all?fields=name,capital"
	DefaultWikiBase     = "https://en.wikipedia.org"
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
)

// ErrEmptyMap is returned when the download yields no usable country/capital pair.
var ErrEmptyMap = errors.New("no country-capital pairs")

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code) }

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	CountriesURL     string
	WikiBase         string
	UserAgent        string
	WikiTimeout      time.Duration
	CountriesTimeout time.Duration
	CacheSize        int
	HTTPClient       *http.Client
	Logger           *zap.Logger
}

// Client fetches capitals and country facts. Safe for concurrent use.
type Client struct {
	countriesURL     string
	wikiBase         string
	userAgent        string
	wikiTimeout      time.Duration
	countriesTimeout time.Duration
	http             *http.Client
	pages            *lru.Cache[string, *goquery.Document]
	log              *zap.Logger
}

func New(opts Options) (*Client, error) {
	if opts.CountriesURL == "" {
		opts.CountriesURL = DefaultCountriesURL
	}
	if opts.WikiBase == "" {
		opts.WikiBase = DefaultWikiBase
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.WikiTimeout <= 0 {
		opts.WikiTimeout = 12 * time.Second
	}
	if opts.CountriesTimeout <= 0 {
		opts.CountriesTimeout = 10 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cache, err := lru.New[string, *goquery.Document](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{
		countriesURL:     opts.CountriesURL,
		wikiBase:         strings.TrimRight(opts.WikiBase, "/"),
		userAgent:        opts.UserAgent,
		wikiTimeout:      opts.WikiTimeout,
		countriesTimeout: opts.CountriesTimeout,
		http:             opts.HTTPClient,
		pages:            cache,
		log:              opts.Logger.Named("countries"),
	}, nil
}

type restCountry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	Capital []string `json:"capital"`
}

// CapitalMap downloads every country and keeps those with exactly one capital.
func (c *Client) CapitalMap(ctx context.Context) (map[string]string, error) {
	c.log.Info("retrieving country-capital map", zap.String("url", c.countriesURL))
	body, err := c.get(ctx, c.countriesURL, c.countriesTimeout)
	if err != nil {
		c.log.Error("country-capital download failed", zap.Error(err))
		return nil, err
	}
	defer body.Close()

	var rows []restCountry
	if err := json.NewDecoder(body).Decode(&rows); err != nil {
		c.log.Error("country-capital decode failed", zap.Error(err))
		return nil, fmt.Errorf("decode countries: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		name := strings.TrimSpace(r.Name.Common)
		if name == "" || len(r.Capital) != 1 {
			continue
		}
		capital := strings.TrimSpace(r.Capital[0])
		if capital == "" {
			continue
		}
		out[name] = capital
	}
	if len(out) == 0 {
		c.log.Warn("country-capital map is empty")
		return nil, ErrEmptyMap
	}
	c.log.Info("country-capital map built", zap.Int("size", len(out)))
	return out, nil
}

// WikiURL is the English Wikipedia article URL for a country name.
func (c *Client) WikiURL(country string) string {
	return c.wikiBase + "/wiki/" + strings.ReplaceAll(strings.TrimSpace(country), " ", "_")
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return cancelCloser{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelCloser) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// page returns the parsed article for country, from cache when possible.
func (c *Client) page(ctx context.Context, country string) (*goquery.Document, error) {
	url := c.WikiURL(country)
	if doc, ok := c.pages.Get(url); ok {
		return doc, nil
	}
	c.log.Debug("loading wikipedia page", zap.String("country", country), zap.String("url", url))
	body, err := c.get(ctx, url, c.wikiTimeout)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	c.pages.Add(url, doc)
	return doc, nil
}

// normalizeSpace collapses runs of whitespace the way a browser renders text.
func normalizeSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func errorKind(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return "HTTPStatusError"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	default:
		return "FetchError"
	}
}
