package lingxing

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdash/backend/internal/domain/sales"
)

const (
	testAppID  = "ak_0123456789abc"
	testSecret = "secret"
)

// fakeAPI is an in-process OpenAPI gateway that checks every signature
type fakeAPI struct {
	t          *testing.T
	tokenCalls atomic.Int32
	calls      atomic.Int32
	tokens     []string
	handlers   map[string]func(body map[string]any, call int) (int, any)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:        t,
		tokens:   []string{"tok-1", "tok-2", "tok-3"},
		handlers: map[string]func(map[string]any, int) (int, any){},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if r.URL.Path == pathAccessToken {
		n := f.tokenCalls.Add(1)
		assert.Equal(f.t, testAppID, q.Get("appId"))
		assert.Equal(f.t, testSecret, q.Get("appSecret"))
		writeJSON(w, http.StatusOK, map[string]any{
			"code": "200",
			"msg":  "OK",
			"data": map[string]any{"access_token": f.tokens[n-1], "refresh_token": "r", "expires_in": 7200},
		})
		return
	}

	body := map[string]any{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	params := map[string]string{
		"app_key":      q.Get("app_key"),
		"access_token": q.Get("access_token"),
		"timestamp":    q.Get("timestamp"),
	}
	for k, v := range body {
		params[k] = fmt.Sprint(v)
	}
	expected, err := Sign(testAppID, params)
	assert.NoError(f.t, err)
	assert.Equal(f.t, expected, q.Get("sign"), "signature of %s", r.URL.Path)

	handler, ok := f.handlers[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	status, payload := handler(body, int(f.calls.Add(1)))
	if s, ok := payload.(string); ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(s))
		return
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(data any, total int) map[string]any {
	return map[string]any{"code": 0, "message": "success", "data": data, "total": total}
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRateLimitRetry(2, time.Millisecond)}, opts...)
	c, err := NewClient(Config{
		BaseURL:           server.URL,
		AppID:             testAppID,
		AppSecret:         testSecret,
		RequestsPerSecond: 1000,
		Burst:             100,
		PageSize:          2,
	}, opts...)
	require.NoError(t, err)
	return c
}

func TestClient_ListShops(t *testing.T) {
	api := newFakeAPI(t)
	api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
		return http.StatusOK, ok([]map[string]any{
			{"sid": 101, "name": "Store US", "marketplace": "US", "region": "NA", "status": 1},
			{"sid": 102, "name": "Store UK", "country": "UK", "region": "EU", "currency_code": "gbp", "status": 0},
			{"sid": 0, "name": "broken"},
		}, 3)
	}
	c := newTestClient(t, api)

	shops, err := c.ListShops(context.Background())
	require.NoError(t, err)
	require.Len(t, shops, 2)

	assert.Equal(t, "101", shops[0].SellerID)
	assert.Equal(t, "US", shops[0].Marketplace)
	assert.Equal(t, "USD", shops[0].Currency)
	assert.Equal(t, sales.ShopStatusActive, shops[0].Status)

	assert.Equal(t, "UK", shops[1].Marketplace)
	assert.Equal(t, "GBP", shops[1].Currency)
	assert.Equal(t, sales.ShopStatusDisabled, shops[1].Status)
}

func TestClient_FetchExchangeRates(t *testing.T) {
	fixed := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	api := newFakeAPI(t)
	api.handlers[pathCurrency] = func(body map[string]any, _ int) (int, any) {
		assert.Equal(t, "2024-02", body["date"])
		return http.StatusOK, ok([]map[string]any{
			{"date": "2024-02", "code": "USD", "rate_org": "7.1", "my_rate": "7.2"},
			{"date": "2024-02", "code": "eur", "rate_org": "7.8", "my_rate": ""},
			{"date": "2024-02", "code": "JPY", "rate_org": "0", "my_rate": "0"},
			{"date": "2024-01", "code": "GBP", "rate_org": "9.0"},
		}, 4)
	}
	c := newTestClient(t, api, WithClock(func() time.Time { return fixed }))

	rates, err := c.FetchExchangeRates(context.Background(), sales.NewMonth(2024, time.February))
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, "USD", rates[0].Currency)
	assert.True(t, decimal.RequireFromString("7.2").Equal(rates[0].Rate), "account rate wins")
	assert.Equal(t, "EUR", rates[1].Currency)
	assert.True(t, decimal.RequireFromString("7.8").Equal(rates[1].Rate))
	assert.Equal(t, RateSource, rates[1].Source)
	assert.Equal(t, fixed, rates[1].FetchedAt)
	assert.Equal(t, sales.NewMonth(2024, time.February), rates[1].Month)
}

func TestClient_FetchDailySales(t *testing.T) {
	api := newFakeAPI(t)
	var offsets []any
	api.handlers[pathSalesReport] = func(body map[string]any, _ int) (int, any) {
		assert.Equal(t, "101", body["sid"])
		assert.Equal(t, "2024-02-01", body["start_date"])
		assert.Equal(t, "2024-02-29", body["end_date"])
		offsets = append(offsets, body["offset"])

		switch body["offset"] {
		case float64(0):
			return http.StatusOK, ok([]map[string]any{
				{"date": "2024-02-01", "asin": "B01", "volume": 3, "order_items": 2, "amount": "30.50", "refund_amount": "", "spend": 1.25},
				{"date": "2024-02-01", "asin": "B02", "volume": 1, "order_items": 1, "amount": 10, "currency_code": "usd"},
			}, 3)
		default:
			return http.StatusOK, ok([]map[string]any{
				{"date": "not-a-date", "volume": 1},
			}, 3)
		}
	}
	c := newTestClient(t, api)
	shop := sales.Shop{SellerID: "101", Currency: "USD"}

	rows, err := c.FetchDailySales(context.Background(), shop, sales.NewMonth(2024, time.February))
	require.NoError(t, err)

	assert.Equal(t, []any{float64(0), float64(2)}, offsets)
	require.Len(t, rows, 2)
	assert.Equal(t, "101", rows[0].SellerID)
	assert.Equal(t, "USD", rows[0].Currency)
	assert.Equal(t, 3, rows[0].UnitsSold)
	assert.Equal(t, 2, rows[0].OrderCount)
	assert.True(t, decimal.RequireFromString("30.5").Equal(rows[0].SalesAmount))
	assert.True(t, rows[0].RefundAmount.IsZero())
	assert.True(t, decimal.RequireFromString("1.25").Equal(rows[0].AdSpend))
	assert.True(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Equal(rows[1].Date))
}

func TestClient_TokenHandling(t *testing.T) {
	t.Run("token is cached across calls", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
			return http.StatusOK, ok([]any{}, 0)
		}
		c := newTestClient(t, api)

		for i := 0; i < 3; i++ {
			_, err := c.ListShops(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), api.tokenCalls.Load())
	})

	t.Run("expired token is refreshed and the call replayed once", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(_ map[string]any, call int) (int, any) {
			if call == 1 {
				return http.StatusOK, map[string]any{"code": 2001005, "message": "access token expired"}
			}
			return http.StatusOK, ok([]map[string]any{{"sid": 1, "marketplace": "JP"}}, 1)
		}
		c := newTestClient(t, api)

		shops, err := c.ListShops(context.Background())
		require.NoError(t, err)
		require.Len(t, shops, 1)
		assert.Equal(t, "JPY", shops[0].Currency)
		assert.Equal(t, int32(2), api.tokenCalls.Load())
		assert.Equal(t, int32(2), api.calls.Load())
	})

	t.Run("a second rejection is returned", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
			return http.StatusOK, map[string]any{"code": 2001003, "message": "invalid token"}
		}
		c := newTestClient(t, api)

		_, err := c.ListShops(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.Equal(t, int32(2), api.calls.Load())
	})

	t.Run("token refreshes after expiry", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
			return http.StatusOK, ok([]any{}, 0)
		}
		c := newTestClient(t, api, WithClock(func() time.Time { return now }))

		_, err := c.ListShops(context.Background())
		require.NoError(t, err)
		now = now.Add(2 * time.Hour)
		_, err = c.ListShops(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), api.tokenCalls.Load())
	})
}

func TestClient_Errors(t *testing.T) {
	t.Run("non-zero code is a request failure", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
			return http.StatusOK, map[string]any{"code": 1001, "message": "bad param", "request_id": "req-9"}
		}
		c := newTestClient(t, api)

		_, err := c.ListShops(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRequestFailed)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "1001", apiErr.Code)
		assert.Contains(t, err.Error(), "req-9")
	})

	t.Run("throttled calls are retried", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(_ map[string]any, call int) (int, any) {
			switch call {
			case 1:
				return http.StatusTooManyRequests, "slow down"
			case 2:
				return http.StatusOK, map[string]any{"code": 3001008, "message": "limit"}
			}
			return http.StatusOK, ok([]any{}, 0)
		}
		c := newTestClient(t, api)

		_, err := c.ListShops(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(3), api.calls.Load())
	})

	t.Run("throttling beyond the retries fails", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
			return http.StatusTooManyRequests, "slow down"
		}
		c := newTestClient(t, api)

		_, err := c.ListShops(context.Background())
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, int32(3), api.calls.Load())
	})

	t.Run("HTTP errors", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
			return http.StatusBadGateway, "upstream"
		}
		c := newTestClient(t, api)

		_, err := c.ListShops(context.Background())
		assert.ErrorIs(t, err, ErrRequestFailed)
		assert.Equal(t, int32(1), api.calls.Load(), "only throttling is retried")
	})

	t.Run("oversized bodies are rejected", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
			return http.StatusOK, strings.Repeat("x", maxResponseSize+10)
		}
		c := newTestClient(t, api)

		_, err := c.ListShops(context.Background())
		assert.ErrorIs(t, err, ErrResponseTooLarge)
	})

	t.Run("malformed data", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handlers[pathSellerList] = func(map[string]any, int) (int, any) {
			return http.StatusOK, `{"code":0,"data":{"not":"a list"}}`
		}
		c := newTestClient(t, api)

		_, err := c.ListShops(context.Background())
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("cancelled context", func(t *testing.T) {
		api := newFakeAPI(t)
		c := newTestClient(t, api)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.ListShops(ctx)
		assert.Error(t, err)
	})
}

func decryptECB(t *testing.T, key, data []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += block.BlockSize() {
		block.Decrypt(out[i:i+block.BlockSize()], data[i:i+block.BlockSize()])
	}
	pad := int(out[len(out)-1])
	return out[:len(out)-pad]
}

func TestSign(t *testing.T) {
	params := map[string]string{
		"timestamp":    "1700000000",
		"app_key":      testAppID,
		"access_token": "tok",
		"sid":          "101",
		"empty":        "",
		"sign":         "ignored",
	}

	sign, err := Sign(testAppID, params)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sign)
	require.NoError(t, err)
	assert.Len(t, raw, 48)

	sum := md5.Sum([]byte("access_token=tok&app_key=" + testAppID + "&sid=101&timestamp=1700000000"))
	want := strings.ToUpper(hex.EncodeToString(sum[:]))
	assert.Equal(t, want, string(decryptECB(t, []byte(testAppID), raw)))

	again, err := Sign(testAppID, params)
	require.NoError(t, err)
	assert.Equal(t, sign, again)

	_, err = Sign("short", params)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{AppID: testAppID, AppSecret: testSecret, BaseURL: "https://example.test/"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://example.test", cfg.BaseURL)
	assert.Equal(t, 200, cfg.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	assert.ErrorIs(t, (&Config{AppSecret: "s"}).Validate(), ErrMissingAppID)
	assert.ErrorIs(t, (&Config{AppID: testAppID}).Validate(), ErrMissingAppSecret)
	assert.ErrorIs(t, (&Config{AppID: "ak", AppSecret: "s"}).Validate(), ErrInvalidAppID)
}

func TestCurrencyForMarketplace(t *testing.T) {
	tests := map[string]string{
		"US": "USD",
		"jp": "JPY",
		"UK": "GBP",
		"DE": "EUR",
		"CA": "CAD",
		"":   "",
		"??": "",
	}
	for code, want := range tests {
		assert.Equal(t, want, CurrencyForMarketplace(code), code)
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var rows []struct {
		V amount `json:"v"`
	}
	data := []byte(`[{"v":"1,234.50"},{"v":12.5},{"v":""},{"v":null},{"v":"-"}]`)
	require.NoError(t, json.NewDecoder(bytes.NewReader(data)).Decode(&rows))
	assert.True(t, decimal.RequireFromString("1234.5").Equal(rows[0].V.Decimal))
	assert.True(t, decimal.RequireFromString("12.5").Equal(rows[1].V.Decimal))
	for _, r := range rows[2:] {
		assert.True(t, r.V.IsZero())
	}
}
