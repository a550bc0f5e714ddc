package authinfo

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Claims are the token payload fields the editor cares about for local
// display and expiry checks. Signatures are not validated here.
type Claims struct {
	Account string
	Name    string
	Expiry  time.Time
}

// FromToken decodes the payload of a JWT-like token. Returns zero Claims for
// anything it cannot parse.
func FromToken(token string) Claims {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}
	}
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return Claims{}
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return Claims{}
	}

	var c Claims
	for _, k := range []string{"preferred_username", "upn", "email"} {
		if v, _ := m[k].(string); strings.TrimSpace(v) != "" {
			c.Account = strings.TrimSpace(v)
			break
		}
	}
	if v, _ := m["name"].(string); v != "" {
		c.Name = strings.TrimSpace(v)
	}
	if secs := expSeconds(m["exp"]); secs > 0 {
		c.Expiry = time.Unix(secs, 0).UTC()
	}
	return c
}

func expSeconds(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
	case int64:
		return x
	case int:
		return int64(x)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n
		}
	}
	return 0
}
