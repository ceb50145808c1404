package lingxing

import (
	"bytes"
	"crypto/aes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultBaseURL is the production OpenAPI gateway
const DefaultBaseURL = "https://openapi.lingxing.com"

// Configuration errors
var (
	ErrMissingAppID     = errors.New("lingxing: app id is required")
	ErrMissingAppSecret = errors.New("lingxing: app secret is required")
	ErrInvalidAppID     = errors.New("lingxing: app id must be 16, 24 or 32 bytes")
)

// Config holds the OpenAPI credentials and client limits
type Config struct {
	BaseURL   string
	AppID     string
	AppSecret string
	// RequestsPerSecond and Burst shape the client-side rate limiter
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	PageSize          int
}

// Validate checks the credentials and fills defaults
func (c *Config) Validate() error {
	if c.AppID == "" {
		return ErrMissingAppID
	}
	if c.AppSecret == "" {
		return ErrMissingAppSecret
	}
	switch len(c.AppID) {
	case 16, 24, 32:
	default:
		return ErrInvalidAppID
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	return nil
}

// Sign computes the request signature: parameters sorted by key and joined as
// k=v&..., hashed to upper-case MD5 hex, encrypted with AES-128-ECB (PKCS#5) keyed
// by the app id, then base64 encoded. Empty values are left out.
func Sign(appID string, params map[string]string) (string, error) {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	sum := md5.Sum([]byte(b.String()))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))

	encrypted, err := encryptECB([]byte(appID), []byte(digest))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func encryptECB(key, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("lingxing: sign key: %w", err)
	}
	size := block.BlockSize()
	pad := size - len(plain)%size
	plain = append(plain, bytes.Repeat([]byte{byte(pad)}, pad)...)

	out := make([]byte, len(plain))
	for i := 0; i < len(plain); i += size {
		block.Encrypt(out[i:i+size], plain[i:i+size])
	}
	return out, nil
}
