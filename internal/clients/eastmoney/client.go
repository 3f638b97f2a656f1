// Package eastmoney provides a client for the Eastmoney push2 quote list API
package eastmoney

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/interfaces"
	"github.com/bobmcallan/marketstate/internal/models"
)

const (
	DefaultName      = "eastmoney"
	DefaultBaseURL   = "https://push2.eastmoney.com"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // pages per second
	DefaultPageSize  = 100
	DefaultMaxPages  = 100

	clistPath = "/api/qt/clist/get"
	// public token used by the quote.eastmoney.com web pages
	webToken = "bd1d9ddb04089700cf9c27f6f7426281"
	// price, pct change, volume, amount, amplitude, code, name, prev close
	Fields = "f2,f3,f5,f6,f7,f12,f14,f18"
)

// scopeFilters maps a scope onto the clist "fs" market filter.
var scopeFilters = map[models.Scope]string{
	models.ScopeAllA:     "m:0 t:6,m:0 t:80,m:1 t:2,m:1 t:23,m:0 t:81 s:2048",
	models.ScopeShanghai: "m:1 t:2,m:1 t:23",
	models.ScopeShenzhen: "m:0 t:6,m:0 t:80",
	models.ScopeBeijing:  "m:0 t:81 s:2048",
	models.ScopeChiNext:  "m:0 t:80",
	models.ScopeStar:     "m:1 t:23",
}

// Client implements the SnapshotClient interface
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	pageSize   int
	maxPages   int
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithName sets the provider name reported in meta.source (e.g. "eastmoney_mirror")
func WithName(name string) ClientOption {
	return func(c *Client) {
		c.name = name
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the page rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithPageSize sets rows requested per page
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMaxPages caps the pages fetched in one attempt
func WithMaxPages(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// NewClient creates a new Eastmoney client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		name:    DefaultName,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:   common.NewSilentLogger(),
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eastmoney API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// clistResponse is the envelope of /api/qt/clist/get. With np=1 "diff" is an
// array; older deployments answer with an object keyed by row index.
type clistResponse struct {
	RC   int `json:"rc"`
	Data *struct {
		Total int             `json:"total"`
		Diff  json.RawMessage `json:"diff"`
	} `json:"data"`
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.name
}

// Supports reports whether the scope has a market filter
func (c *Client) Supports(scope models.Scope) bool {
	_, ok := scopeFilters[scope]
	return ok
}

// FetchSnapshot pages through the quote list for scope
func (c *Client) FetchSnapshot(ctx context.Context, scope models.Scope) (*models.ProviderTable, error) {
	fs, ok := scopeFilters[scope]
	if !ok {
		return nil, fmt.Errorf("scope %s not supported", scope)
	}

	start := time.Now()
	var records []models.ProviderRecord
	total := 0
	complete := false

	for page := 1; page <= c.maxPages; page++ {
		resp, err := c.getPage(ctx, fs, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if resp.RC != 0 {
			return nil, &APIError{StatusCode: http.StatusOK, Message: fmt.Sprintf("rc=%d", resp.RC), Endpoint: clistPath}
		}
		// data:null marks a page past the end
		if resp.Data == nil {
			if total > 0 && len(records) < total {
				return nil, fmt.Errorf("page %d: data ended at %d of %d rows", page, len(records), total)
			}
			complete = true
			break
		}

		rows, err := decodeDiff(resp.Data.Diff)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if resp.Data.Total > 0 {
			total = resp.Data.Total
		}
		records = append(records, rows...)

		c.logger.Debug().Str("provider", c.name).Int("page", page).Int("rows", len(rows)).Int("total", total).Msg("Eastmoney page fetched")

		// a known total is authoritative; the server may cap pz below pageSize
		if total > 0 {
			if len(records) >= total {
				complete = true
				break
			}
			if len(rows) < c.pageSize {
				return nil, fmt.Errorf("page %d: short page, %d of %d rows", page, len(records), total)
			}
			continue
		}
		if len(rows) < c.pageSize {
			complete = true
			break
		}
	}

	if !complete {
		return nil, fmt.Errorf("pagination limit reached: %d of %d rows after %d pages", len(records), total, c.maxPages)
	}
	if len(records) == 0 {
		return nil, common.ErrEmptySnapshot
	}

	c.logger.Info().Str("provider", c.name).Str("scope", string(scope)).Int("rows", len(records)).Dur("elapsed", time.Since(start)).Msg("Eastmoney snapshot fetched")

	return &models.ProviderTable{
		Provider: c.name,
		Scope:    scope,
		Records:  records,
	}, nil
}

// getPage performs one rate-limited page request
func (c *Client) getPage(ctx context.Context, fs string, page int) (*clistResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("pn", strconv.Itoa(page))
	params.Set("pz", strconv.Itoa(c.pageSize))
	params.Set("po", "1")
	params.Set("np", "1")
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("fid", "f12")
	params.Set("ut", webToken)
	params.Set("fs", fs)
	params.Set("fields", Fields)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, clistPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   clistPath,
		}
	}

	var result clistResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// decodeDiff reads the row list, keeping numbers as json.Number.
func decodeDiff(raw json.RawMessage) ([]models.ProviderRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if raw[0] == '[' {
		var rows []models.ProviderRecord
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("failed to decode diff: %w", err)
		}
		return rows, nil
	}

	var keyed map[string]models.ProviderRecord
	if err := dec.Decode(&keyed); err != nil {
		return nil, fmt.Errorf("failed to decode diff: %w", err)
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	rows := make([]models.ProviderRecord, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, keyed[k])
	}
	return rows, nil
}

// Ensure Client implements SnapshotClient
var _ interfaces.SnapshotClient = (*Client)(nil)
