package lingxing

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// envelope is the common response wrapper of business endpoints
type envelope struct {
	Code         json.Number     `json:"code"`
	Message      string          `json:"message"`
	Msg          string          `json:"msg"`
	ErrorDetails []string        `json:"error_details"`
	RequestID    string          `json:"request_id"`
	Data         json.RawMessage `json:"data"`
	Total        int             `json:"total"`
}

func (e *envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// tokenData is the payload of the access-token endpoint
type tokenData struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    json.Number `json:"expires_in"`
}

// sellerRecord is one storefront of the seller list
type sellerRecord struct {
	SID         json.Number `json:"sid"`
	MID         json.Number `json:"mid"`
	Name        string      `json:"name"`
	SellerID    string      `json:"seller_id"`
	AccountName string      `json:"account_name"`
	Region      string      `json:"region"`
	Country     string      `json:"country"`
	Marketplace string      `json:"marketplace"`
	Currency    string      `json:"currency_code"`
	Status      json.Number `json:"status"`
}

// currencyRecord is one currency of the monthly rate table
type currencyRecord struct {
	Date       string `json:"date"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	RateOrg    amount `json:"rate_org"`
	MyRate     amount `json:"my_rate"`
	UpdateTime string `json:"update_time"`
}

// salesRecord is one row of the daily sales report
type salesRecord struct {
	Date         string      `json:"date"`
	ASIN         string      `json:"asin"`
	Volume       json.Number `json:"volume"`
	OrderItems   json.Number `json:"order_items"`
	Amount       amount      `json:"amount"`
	RefundAmount amount      `json:"refund_amount"`
	AdSpend      amount      `json:"spend"`
	Currency     string      `json:"currency_code"`
}

// amount is a decimal the API sends either as a JSON number or a string.
// Blank and null values are zero.
type amount struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler
func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := strings.Trim(string(data), `"`)
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "null" || s == "-" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// intValue parses an API integer, treating blanks as zero
func intValue(n json.Number) int {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 0
}
