package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"sort"
	"strings"
)

const (
	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"
)

// CanonicalQuery joins params sorted by key as unencoded k=v pairs, leaving
// out the hash fields.
func CanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if key == paramSecureHash || key == paramSecureHashType {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(params[key])
	}
	return b.String()
}

// Sign returns the hex HMAC-SHA512 of data keyed by secret.
func Sign(data, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignParams signs the canonical form of params.
func SignParams(params map[string]string, secret string) string {
	return Sign(CanonicalQuery(params), secret)
}

// VerifyParams recomputes the signature over params and compares it with
// vnp_SecureHash in constant time.
func VerifyParams(params map[string]string, secret string) bool {
	provided := strings.ToLower(strings.TrimSpace(params[paramSecureHash]))
	if provided == "" || secret == "" {
		return false
	}
	expected := SignParams(params, secret)
	return hmac.Equal([]byte(provided), []byte(expected))
}
