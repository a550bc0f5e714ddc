package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type staticTokens struct{ tok string }

func (s staticTokens) Token(context.Context) (string, error) { return s.tok, nil }

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{-3, 1}, {0, 1}, {1, 1}, {8, 8}, {25, 25}, {26, 25}, {500, 25},
	}
	for _, c := range cases {
		if got := ClampLimit(c.in); got != c.want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestResolve_SetsBearerAndParsesIdentity(t *testing.T) {
	var gotAuth, gotPath, gotSelect string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotSelect = r.URL.Query().Get("$select")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                "u-1",
			"displayName":       "Alice Adams",
			"mail":              "alice@x.com",
			"userPrincipalName": "alice@x.com",
		})
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL, Tokens: staticTokens{tok: "tok"}, HTTP: srv.Client()}
	p, err := c.Resolve(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotPath != "/users/alice@x.com" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if !strings.Contains(gotSelect, "userPrincipalName") {
		t.Fatalf("unexpected $select: %q", gotSelect)
	}
	if p.DisplayName != "Alice Adams" || p.Login != "alice@x.com" || p.ID != "u-1" {
		t.Fatalf("unexpected person: %#v", p)
	}
}

func TestResolve_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Resolve(context.Background(), "ghost@x.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_RelevanceVariant_QuotesTerm(t *testing.T) {
	var gotPath, gotSearch, gotTop string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSearch = r.URL.Query().Get("$search")
		gotTop = r.URL.Query().Get("$top")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{
			{"id": "u-1", "displayName": "Al", "userPrincipalName": "al@x.com"},
			{"id": "u-2", "displayName": "Albert", "mail": "albert@x.com"},
		}})
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL, Endpoint: EndpointRelevance, HTTP: srv.Client()}
	people, err := c.Search(context.Background(), "al", 8)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotPath != "/me/people" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotSearch != `"al"` {
		t.Fatalf("unexpected $search: %q", gotSearch)
	}
	if gotTop != "8" {
		t.Fatalf("unexpected $top: %q", gotTop)
	}
	if len(people) != 2 {
		t.Fatalf("expected 2 people, got %d", len(people))
	}
	// Service order preserved; mail used as login fallback.
	if people[0].Login != "al@x.com" || people[1].Login != "albert@x.com" {
		t.Fatalf("unexpected order/logins: %#v", people)
	}
}

func TestSearch_DirectoryVariant_FilterAndConsistencyHeader(t *testing.T) {
	var gotPath, gotFilter, gotConsistency string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFilter = r.URL.Query().Get("$filter")
		gotConsistency = r.Header.Get("ConsistencyLevel")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{}})
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL, Endpoint: EndpointDirectory, HTTP: srv.Client()}
	if _, err := c.Search(context.Background(), "o'brien", 99); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotPath != "/users" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotConsistency != "eventual" {
		t.Fatalf("expected eventual consistency header, got %q", gotConsistency)
	}
	if !strings.Contains(gotFilter, "startswith(displayName,'o''brien')") {
		t.Fatalf("single quote not escaped in filter: %q", gotFilter)
	}
	if !strings.Contains(gotFilter, "startswith(userPrincipalName,'o''brien')") {
		t.Fatalf("missing login filter clause: %q", gotFilter)
	}
}

func TestSearch_ClampsLimitAboveMax(t *testing.T) {
	var gotTop string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTop = r.URL.Query().Get("$top")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{}})
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL, HTTP: srv.Client()}
	if _, err := c.Search(context.Background(), "term", 100); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotTop != "25" {
		t.Fatalf("expected clamped $top=25, got %q", gotTop)
	}
}

func TestSearch_EmptyTermIsNoRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for empty term")
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL, HTTP: srv.Client()}
	people, err := c.Search(context.Background(), "   ", 8)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if people != nil {
		t.Fatalf("expected nil result, got %#v", people)
	}
}

func TestSearch_ServiceFailureSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Search(context.Background(), "al", 8)
	if err == nil || !strings.Contains(err.Error(), "status=502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestPersonLabel(t *testing.T) {
	cases := []struct {
		p    Person
		want string
	}{
		{Person{DisplayName: "Alice", Login: "alice@x.com"}, "Alice <alice@x.com>"},
		{Person{Login: "alice@x.com"}, "alice@x.com"},
		{Person{DisplayName: "alice@x.com", Login: "alice@x.com"}, "alice@x.com"},
	}
	for _, c := range cases {
		if got := c.p.Label(); got != c.want {
			t.Fatalf("Label() = %q, want %q", got, c.want)
		}
	}
}
