// Package lingxing reads shops, daily sales and monthly exchange rates from the
// Lingxing ERP OpenAPI.
package lingxing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// maxResponseSize is the maximum accepted response body (10MB)
const maxResponseSize = 10 * 1024 * 1024

// tokenRefreshMargin renews a token this long before it expires
const tokenRefreshMargin = 60 * time.Second

// RateSource tags exchange rates read from the ERP
const RateSource = "lingxing"

const (
	pathAccessToken = "/api/auth-server/oauth/access-token"
	pathSellerList  = "/erp/sc/data/seller/lists"
	pathCurrency    = "/erp/sc/routing/finance/currency/currencyMonth"
	pathSalesReport = "/erp/sc/data/sales_report/sales"
)

// API error codes with special handling
const (
	codeOK              = "0"
	codeTokenOK         = "200"
	codeTokenInvalid    = "2001003"
	codeTokenExpired    = "2001005"
	codeUnauthorized    = "401"
	codeRateLimited     = "3001008"
	maxPagesPerRequest  = 1000
	defaultRetryBackoff = time.Second
)

// Client errors
var (
	// ErrRequestFailed is returned when the API answers with a non-zero code or an HTTP error
	ErrRequestFailed = errors.New("lingxing: request failed")
	// ErrTokenExpired is returned when the access token was rejected
	ErrTokenExpired = errors.New("lingxing: access token expired")
	// ErrRateLimited is returned when the API throttles the client
	ErrRateLimited = errors.New("lingxing: rate limited")
	// ErrResponseTooLarge is returned when a body exceeds maxResponseSize
	ErrResponseTooLarge = errors.New("lingxing: response too large")
	// ErrInvalidResponse is returned when a body cannot be decoded
	ErrInvalidResponse = errors.New("lingxing: invalid response")
)

// APIError carries the code and message of a failed API call
type APIError struct {
	Code      string
	Message   string
	RequestID string
	kind      error
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%v: code %s: %s (request %s)", e.kind, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%v: code %s: %s", e.kind, e.Code, e.Message)
}

// Unwrap returns the sentinel error matching the code
func (e *APIError) Unwrap() error {
	return e.kind
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithRateLimitRetry sets how often a throttled call is retried and the first delay
func WithRateLimitRetry(retries int, initial time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.retryInitial = initial
	}
}

// Client implements sales.SalesSource over the Lingxing OpenAPI
type Client struct {
	config       Config
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
	now          func() time.Time
	retries      int
	retryInitial time.Duration

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a client after validating cfg
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		config:       cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:       zap.NewNop(),
		now:          time.Now,
		retries:      2,
		retryInitial: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("lingxing")
	return c, nil
}

// ListShops returns every storefront of the account
func (c *Client) ListShops(ctx context.Context) ([]sales.Shop, error) {
	var records []sellerRecord
	if _, err := c.call(ctx, http.MethodGet, pathSellerList, nil, &records); err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}

	shops := make([]sales.Shop, 0, len(records))
	for _, r := range records {
		sid := r.SID.String()
		if sid == "" || sid == "0" {
			continue
		}
		marketplace := r.Marketplace
		if marketplace == "" {
			marketplace = r.Country
		}
		currency := sales.NormalizeCurrency(r.Currency)
		if currency == "" {
			currency = CurrencyForMarketplace(marketplace)
		}
		status := sales.ShopStatusActive
		if r.Status != "" && intValue(r.Status) != 1 {
			status = sales.ShopStatusDisabled
		}
		shops = append(shops, sales.Shop{
			SellerID:    sid,
			Name:        r.Name,
			Marketplace: marketplace,
			Region:      r.Region,
			Currency:    currency,
			Status:      status,
		})
	}
	return shops, nil
}

// FetchExchangeRates returns the rates the ERP applies in month. The account's own
// rate wins over the official one when both are set.
func (c *Client) FetchExchangeRates(ctx context.Context, month sales.Month) ([]sales.ExchangeRate, error) {
	var records []currencyRecord
	body := map[string]any{"date": month.String()}
	if _, err := c.call(ctx, http.MethodPost, pathCurrency, body, &records); err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", month, err)
	}

	fetched := c.now()
	rates := make([]sales.ExchangeRate, 0, len(records))
	for _, r := range records {
		if r.Date != "" && r.Date != month.String() {
			continue
		}
		value := r.MyRate.Decimal
		if !value.IsPositive() {
			value = r.RateOrg.Decimal
		}
		if !value.IsPositive() {
			c.logger.Debug("Skipping currency without rate",
				zap.String("currency", r.Code),
				zap.String("month", month.String()),
			)
			continue
		}
		rates = append(rates, sales.ExchangeRate{
			Month:     month,
			Currency:  sales.NormalizeCurrency(r.Code),
			Rate:      value,
			Source:    RateSource,
			FetchedAt: fetched,
		})
	}
	return rates, nil
}

// FetchDailySales pages through the sales report of one shop for a month
func (c *Client) FetchDailySales(ctx context.Context, shop sales.Shop, month sales.Month) ([]sales.Sale, error) {
	pageSize := c.config.PageSize
	synced := c.now()
	rows := make([]sales.Sale, 0)

	offset := 0
	for page := 0; page < maxPagesPerRequest; page++ {
		var records []salesRecord
		body := map[string]any{
			"sid":        shop.SellerID,
			"start_date": month.Start().Format("2006-01-02"),
			"end_date":   month.LastDay().Format("2006-01-02"),
			"offset":     offset,
			"length":     pageSize,
		}
		total, err := c.call(ctx, http.MethodPost, pathSalesReport, body, &records)
		if err != nil {
			return nil, fmt.Errorf("fetch sales of shop %s for %s: %w", shop.SellerID, month, err)
		}

		for _, r := range records {
			date, err := time.Parse("2006-01-02", r.Date)
			if err != nil {
				c.logger.Warn("Skipping sales row with invalid date",
					zap.String("seller_id", shop.SellerID),
					zap.String("date", r.Date),
				)
				continue
			}
			currency := sales.NormalizeCurrency(r.Currency)
			if currency == "" {
				currency = shop.Currency
			}
			rows = append(rows, sales.Sale{
				ShopID:       shop.ID,
				SellerID:     shop.SellerID,
				Date:         date,
				Currency:     currency,
				OrderCount:   intValue(r.OrderItems),
				UnitsSold:    intValue(r.Volume),
				SalesAmount:  r.Amount.Decimal,
				RefundAmount: r.RefundAmount.Decimal,
				AdSpend:      r.AdSpend.Decimal,
				SyncedAt:     synced,
			})
		}

		offset += len(records)
		if len(records) == 0 || offset >= total {
			break
		}
	}
	return rows, nil
}

// call performs a signed business request, refreshing the token once when it was
// rejected and retrying throttled calls with backoff. It returns the envelope total.
func (c *Client) call(ctx context.Context, method, path string, body map[string]any, out any) (int, error) {
	var total int
	op := func() error {
		var err error
		total, err = c.callWithToken(ctx, method, path, body, out)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrRateLimited):
			c.logger.Warn("Rate limited, backing off", zap.String("path", path))
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries)), ctx))
	return total, err
}

func (c *Client) callWithToken(ctx context.Context, method, path string, body map[string]any, out any) (int, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, err
	}
	total, err := c.do(ctx, method, path, token, body, out)
	if !errors.Is(err, ErrTokenExpired) {
		return total, err
	}

	c.logger.Info("Access token rejected, refreshing", zap.String("path", path))
	c.invalidateToken(token)
	if token, err = c.accessToken(ctx); err != nil {
		return 0, err
	}
	return c.do(ctx, method, path, token, body, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body map[string]any, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	params := map[string]string{
		"app_key":      c.config.AppID,
		"access_token": token,
		"timestamp":    strconv.FormatInt(c.now().Unix(), 10),
	}
	for k, v := range body {
		params[k] = fmt.Sprint(v)
	}
	sign, err := Sign(c.config.AppID, params)
	if err != nil {
		return 0, err
	}

	query := url.Values{}
	query.Set("app_key", params["app_key"])
	query.Set("access_token", token)
	query.Set("timestamp", params["timestamp"])
	query.Set("sign", sign)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("lingxing: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path+"?"+query.Encode(), reader)
	if err != nil {
		return 0, fmt.Errorf("lingxing: failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	env, err := c.send(req)
	if err != nil {
		return 0, err
	}
	if err := checkCode(env, codeOK); err != nil {
		return 0, err
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, path, err)
		}
	}
	return env.Total, nil
}

func (c *Client) send(req *http.Request) (*envelope, error) {
	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("lingxing: failed to read response: %w", err)
	}
	c.logger.Debug("API call",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", c.now().Sub(start)),
	)

	if len(data) > maxResponseSize {
		return nil, ErrResponseTooLarge
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrTokenExpired
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &env, nil
}

func checkCode(env *envelope, ok string) error {
	code := env.Code.String()
	if code == ok || (code == "" && ok == codeOK) {
		return nil
	}
	apiErr := &APIError{Code: code, Message: env.message(), RequestID: env.RequestID, kind: ErrRequestFailed}
	switch code {
	case codeTokenInvalid, codeTokenExpired, codeUnauthorized:
		apiErr.kind = ErrTokenExpired
	case codeRateLimited:
		apiErr.kind = ErrRateLimited
	}
	return apiErr
}

// accessToken returns the cached token or fetches a new one
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("appId", c.config.AppID)
	form.Set("appSecret", c.config.AppSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+pathAccessToken+"?"+form.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("lingxing: failed to create token request: %w", err)
	}

	env, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	if err := checkCode(env, codeTokenOK); err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}

	var data tokenData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		return "", fmt.Errorf("%w: access token missing", ErrInvalidResponse)
	}
	ttl := time.Duration(intValue(data.ExpiresIn)) * time.Second
	if ttl <= tokenRefreshMargin {
		ttl = 2 * tokenRefreshMargin
	}
	c.token = data.AccessToken
	c.tokenExpiry = c.now().Add(ttl - tokenRefreshMargin)
	c.logger.Debug("Access token refreshed", zap.Time("expires_at", c.tokenExpiry))
	return c.token, nil
}

// invalidateToken drops the cached token if it is still the rejected one
func (c *Client) invalidateToken(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == rejected {
		c.token = ""
		c.tokenExpiry = time.Time{}
	}
}

// Ensure Client implements sales.SalesSource
var _ sales.SalesSource = (*Client)(nil)
