package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Endpoint selects which search variant the client talks to. The relevance
// endpoint ranks results by personal relevance to the signed-in account; the
// directory endpoint filters the whole tenant directory.
type Endpoint string

const (
	EndpointRelevance Endpoint = "relevance"
	EndpointDirectory Endpoint = "directory"
)

// Search results are capped by the service regardless of configuration.
const (
	MinSearchLimit = 1
	MaxSearchLimit = 25
)

var ErrNotFound = errors.New("identity not found")

// TokenSource supplies a bearer credential for directory calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client resolves and searches directory identities.
type Client interface {
	// Resolve looks up a single identity by its canonical key. Returns
	// ErrNotFound (wrapped) when the key does not exist.
	Resolve(ctx context.Context, key string) (Person, error)
	// Search returns identities matching a free-text term, in the order the
	// service ranked them. limit is clamped to [MinSearchLimit, MaxSearchLimit].
	Search(ctx context.Context, term string, limit int) ([]Person, error)
}

// HTTPClient talks to a Graph-style directory API.
type HTTPClient struct {
	BaseURL  string
	Endpoint Endpoint
	Tokens   TokenSource
	HTTP     *http.Client
}

func ClampLimit(limit int) int {
	if limit < MinSearchLimit {
		return MinSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

func (c HTTPClient) endpointFor(path string) (string, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", fmt.Errorf("missing directory base url")
	}
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid directory url: %w", err)
	}
	p := strings.TrimPrefix(strings.TrimSpace(path), "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + p
	return u.String(), nil
}

type wireIdentity struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

type wireList struct {
	Value []wireIdentity `json:"value"`
}

func (w wireIdentity) person() Person {
	login := strings.TrimSpace(w.UserPrincipalName)
	if login == "" {
		login = strings.TrimSpace(w.Mail)
	}
	if login == "" {
		login = strings.TrimSpace(w.ID)
	}
	return Person{
		ID:          strings.TrimSpace(w.ID),
		DisplayName: strings.TrimSpace(w.DisplayName),
		Email:       strings.TrimSpace(w.Mail),
		Login:       login,
	}
}

func (c HTTPClient) Resolve(ctx context.Context, key string) (Person, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Person{}, errors.New("missing identity key")
	}
	endpoint, err := c.endpointFor("/users/" + url.PathEscape(key))
	if err != nil {
		return Person{}, err
	}
	q := url.Values{"$select": []string{"id,displayName,mail,userPrincipalName"}}

	var out wireIdentity
	status, err := c.do(ctx, endpoint, q, nil, &out)
	if err != nil {
		return Person{}, err
	}
	if status == http.StatusNotFound {
		return Person{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if status < 200 || status > 299 {
		return Person{}, fmt.Errorf("resolve %q failed (status=%d)", key, status)
	}
	return out.person(), nil
}

func (c HTTPClient) Search(ctx context.Context, term string, limit int) ([]Person, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	limit = ClampLimit(limit)

	var endpoint string
	var err error
	q := url.Values{"$top": []string{strconv.Itoa(limit)}}
	headers := map[string]string{}

	switch c.Endpoint {
	case EndpointDirectory:
		endpoint, err = c.endpointFor("/users")
		// startswith comparisons require OData single-quote escaping.
		esc := strings.ReplaceAll(term, "'", "''")
		q.Set("$filter", fmt.Sprintf(
			"startswith(displayName,'%s') or startswith(userPrincipalName,'%s')", esc, esc))
		q.Set("$select", "id,displayName,mail,userPrincipalName")
		// Directory-wide filtering is served from an eventually consistent index.
		headers["ConsistencyLevel"] = "eventual"
	default:
		endpoint, err = c.endpointFor("/me/people")
		q.Set("$search", `"`+strings.ReplaceAll(term, `"`, ``)+`"`)
		q.Set("$select", "id,displayName,mail,userPrincipalName")
	}
	if err != nil {
		return nil, err
	}

	var out wireList
	status, err := c.do(ctx, endpoint, q, headers, &out)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("search failed (status=%d)", status)
	}

	// Service order is the display order; results are not re-sorted locally.
	people := make([]Person, 0, len(out.Value))
	for _, w := range out.Value {
		people = append(people, w.person())
	}
	if len(people) > limit {
		people = people[:limit]
	}
	return people, nil
}

func (c HTTPClient) do(ctx context.Context, endpoint string, query url.Values, headers map[string]string, out any) (int, error) {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if len(query) > 0 {
		u, err := url.Parse(endpoint)
		if err != nil {
			return 0, err
		}
		u.RawQuery = query.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	if c.Tokens != nil {
		tok, err := c.Tokens.Token(ctx)
		if err != nil {
			return 0, fmt.Errorf("acquire token: %w", err)
		}
		if strings.TrimSpace(tok) != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return resp.StatusCode, fmt.Errorf("invalid json response (status=%d): %w", resp.StatusCode, err)
		}
	}
	return resp.StatusCode, nil
}
