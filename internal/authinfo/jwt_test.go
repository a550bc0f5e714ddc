package authinfo

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

func fakeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"none"}`)) + "." + enc(payload) + ".sig"
}

func TestFromToken_PrefersPreferredUsername(t *testing.T) {
	tok := fakeJWT(t, map[string]any{
		"preferred_username": "alice@x.com",
		"email":              "other@x.com",
		"name":               "Alice Adams",
		"exp":                float64(1900000000),
	})
	c := FromToken(tok)
	if c.Account != "alice@x.com" {
		t.Fatalf("account = %q", c.Account)
	}
	if c.Name != "Alice Adams" {
		t.Fatalf("name = %q", c.Name)
	}
	if !c.Expiry.Equal(time.Unix(1900000000, 0).UTC()) {
		t.Fatalf("expiry = %v", c.Expiry)
	}
}

func TestFromToken_FallsBackThroughClaims(t *testing.T) {
	tok := fakeJWT(t, map[string]any{"email": "bob@x.com", "exp": "12345"})
	c := FromToken(tok)
	if c.Account != "bob@x.com" {
		t.Fatalf("account = %q", c.Account)
	}
	if c.Expiry.Unix() != 12345 {
		t.Fatalf("expiry = %v", c.Expiry)
	}
}

func TestFromToken_GarbageIsZero(t *testing.T) {
	for _, tok := range []string{"", "not-a-jwt", "a.!!!.c"} {
		if c := FromToken(tok); c != (Claims{}) {
			t.Fatalf("expected zero claims for %q, got %+v", tok, c)
		}
	}
}
