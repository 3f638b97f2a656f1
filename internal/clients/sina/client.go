// Package sina provides a client for the Sina Finance Market_Center quote API
package sina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/marketstate/internal/common"
	"github.com/bobmcallan/marketstate/internal/interfaces"
	"github.com/bobmcallan/marketstate/internal/models"
)

const (
	DefaultName      = "sina"
	DefaultBaseURL   = "https://vip.stock.finance.sina.com.cn"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 3 // pages per second
	DefaultPageSize  = 100
	DefaultMaxPages  = 100

	nodeDataPath  = "/quotes_service/api/json_v2.php/Market_Center.getHQNodeData"
	nodeCountPath = "/quotes_service/api/json_v2.php/Market_Center.getHQNodeStockCount"
)

// scopeNodes maps a scope onto a Market_Center node.
var scopeNodes = map[models.Scope]string{
	models.ScopeAllA:     "hs_a",
	models.ScopeShanghai: "sh_a",
	models.ScopeShenzhen: "sz_a",
	models.ScopeBeijing:  "hs_bjs",
	models.ScopeChiNext:  "cyb",
	models.ScopeStar:     "kcb",
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

// NewClient creates a new Sina client.
// No API key is required; the endpoint is public.
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

// APIError represents an API error. Sina answers 456 when it throttles a client.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sina API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.name
}

// Supports reports whether the scope has a Market_Center node
func (c *Client) Supports(scope models.Scope) bool {
	_, ok := scopeNodes[scope]
	return ok
}

// FetchSnapshot pages through the node until the node count is collected,
// or until a short page when the count is unavailable
func (c *Client) FetchSnapshot(ctx context.Context, scope models.Scope) (*models.ProviderTable, error) {
	node, ok := scopeNodes[scope]
	if !ok {
		return nil, fmt.Errorf("scope %s not supported", scope)
	}

	start := time.Now()

	// Without a count the short-page rule is all that ends pagination.
	total, err := c.getCount(ctx, node)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("node count: %w", err)
		}
		c.logger.Warn().Str("provider", c.name).Str("node", node).Err(err).Msg("Sina node count unavailable")
	}

	var records []models.ProviderRecord
	complete := false

	for page := 1; page <= c.maxPages; page++ {
		rows, err := c.getPage(ctx, node, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		records = append(records, rows...)

		c.logger.Debug().Str("provider", c.name).Int("page", page).Int("rows", len(rows)).Int("total", total).Msg("Sina page fetched")

		if len(rows) < c.pageSize {
			if total > 0 && len(records) < total {
				return nil, fmt.Errorf("page %d: short page, %d of %d rows", page, len(records), total)
			}
			complete = true
			break
		}
		if total > 0 && len(records) >= total {
			complete = true
			break
		}
	}

	if !complete {
		return nil, fmt.Errorf("pagination limit reached: %d rows after %d pages", len(records), c.maxPages)
	}
	if len(records) == 0 {
		return nil, common.ErrEmptySnapshot
	}

	c.logger.Info().Str("provider", c.name).Str("scope", string(scope)).Int("rows", len(records)).Dur("elapsed", time.Since(start)).Msg("Sina snapshot fetched")

	return &models.ProviderTable{
		Provider: c.name,
		Scope:    scope,
		Records:  records,
	}, nil
}

// getCount asks how many instruments the node holds. The answer is a
// quoted number, e.g. "5123".
func (c *Client) getCount(ctx context.Context, node string) (int, error) {
	params := url.Values{}
	params.Set("node", node)

	body, err := c.get(ctx, nodeCountPath, params)
	if err != nil {
		return 0, err
	}

	var num json.Number
	if err := json.Unmarshal(bytes.TrimSpace(body), &num); err != nil {
		return 0, fmt.Errorf("failed to decode count: %w", err)
	}
	n, err := num.Int64()
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", num)
	}
	return int(n), nil
}

// getPage performs one page request
func (c *Client) getPage(ctx context.Context, node string, page int) ([]models.ProviderRecord, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("num", strconv.Itoa(c.pageSize))
	params.Set("sort", "symbol")
	params.Set("asc", "1")
	params.Set("node", node)
	params.Set("symbol", "")
	params.Set("_s_r_a", "page")

	body, err := c.get(ctx, nodeDataPath, params)
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// get performs a rate-limited GET and returns the UTF-8 body
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// bare requests are rejected
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://finance.sina.com.cn/")

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
			Endpoint:   path,
		}
	}

	body, err := io.ReadAll(decodeCharset(resp.Header.Get("Content-Type"), resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// decodeCharset transcodes GBK-family bodies to UTF-8.
func decodeCharset(contentType string, r io.Reader) io.Reader {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "gbk") || strings.Contains(ct, "gb2312") || strings.Contains(ct, "gb18030") {
		return transform.NewReader(r, simplifiedchinese.GB18030.NewDecoder())
	}
	return r
}

// decodeRows parses a page body. Past the last page Sina answers "[]" or "null".
func decodeRows(body []byte) ([]models.ProviderRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var rows []models.ProviderRecord
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return rows, nil
}

// Ensure Client implements SnapshotClient
var _ interfaces.SnapshotClient = (*Client)(nil)
