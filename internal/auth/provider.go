// Package auth acquires bearer credentials for directory calls. One Provider
// instance holds the shared auth session (account + cached token record) for
// every row of the editor; silent acquisition is always tried first, and the
// interactive browser prompt is single-flight across all callers.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/brandonsypek/approver-repeater/internal/authinfo"
	"github.com/brandonsypek/approver-repeater/internal/authstore"
	"github.com/brandonsypek/approver-repeater/internal/browseropen"
)

// ErrMissingClientID is the one unrecoverable configuration error: without an
// application identifier no directory-dependent operation can run.
var ErrMissingClientID = errors.New("missing clientId; directory access is disabled until configured")

// Tokens near expiry are refreshed rather than handed out.
const expirySlack = 30 * time.Second

const interactiveTimeout = 2 * time.Minute

type Config struct {
	ClientID       string
	TenantID       string
	AuthURL        string
	RedirectOrigin string
	Scopes         []string
}

type session struct {
	account string
	rec     authstore.Record
}

// Provider implements the token state machine. Zero value is not usable;
// construct with New.
type Provider struct {
	cfg       Config
	storePath string

	// OpenURL launches the interactive prompt; overridable in tests.
	OpenURL func(string) error
	// Out receives progress messages during interactive sign-in (may be nil).
	Out io.Writer

	httpc *http.Client
	now   func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	session *session
}

func New(cfg Config, storePath string) *Provider {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.TenantID = strings.TrimSpace(cfg.TenantID)
	cfg.AuthURL = strings.TrimRight(strings.TrimSpace(cfg.AuthURL), "/")
	return &Provider{
		cfg:       cfg,
		storePath: storePath,
		OpenURL:   browseropen.Open,
		httpc:     &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

func (p *Provider) storeKey() string {
	return authstore.Key(p.cfg.AuthURL, p.cfg.TenantID, p.cfg.ClientID)
}

// Account returns the signed-in account, if a session exists.
func (p *Provider) Account() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadSessionLocked()
	if p.session == nil {
		return ""
	}
	return p.session.account
}

// Token returns a bearer credential, establishing an account interactively if
// none exists, then attempting silent acquisition, then falling back to the
// interactive prompt. Concurrent callers share a single interactive prompt.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if p.cfg.ClientID == "" {
		return "", ErrMissingClientID
	}

	p.mu.Lock()
	p.loadSessionLocked()
	established := p.session != nil
	p.mu.Unlock()

	// No active account yet: the interactive prompt establishes one before
	// any silent attempt.
	if !established {
		return p.interactive(ctx)
	}

	tok, err := p.silent(ctx)
	if err == nil {
		return tok, nil
	}
	return p.interactive(ctx)
}

// SignOut tears down the session and removes the cached record.
func (p *Provider) SignOut() error {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()

	st, err := authstore.Load(p.storePath)
	if err != nil {
		return nil // nothing cached
	}
	st.Delete(p.storeKey())
	return authstore.SaveAtomic(p.storePath, st)
}

// loadSessionLocked hydrates the in-memory session from the on-disk cache.
func (p *Provider) loadSessionLocked() {
	if p.session != nil {
		return
	}
	st, err := authstore.Load(p.storePath)
	if err != nil || st == nil {
		return
	}
	rec, ok := st.GetRecord(p.storeKey())
	if !ok {
		return
	}
	account := rec.Account
	if account == "" {
		account = authinfo.FromToken(rec.Token).Account
	}
	p.session = &session{account: account, rec: rec}
}

func (p *Provider) tokenUsable(rec authstore.Record) bool {
	if strings.TrimSpace(rec.Token) == "" {
		return false
	}
	exp := rec.ExpiresAt
	if exp.IsZero() {
		exp = authinfo.FromToken(rec.Token).Expiry
	}
	if exp.IsZero() {
		// No expiry information: hand it out and let the service reject it.
		return true
	}
	return p.now().Before(exp.Add(-expirySlack))
}

// silent returns a cached token or exchanges the refresh token. Its failure
// is the designed "needs interactive" signal.
func (p *Provider) silent(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.session == nil {
		p.mu.Unlock()
		return "", errors.New("no active session")
	}
	rec := p.session.rec
	p.mu.Unlock()

	if p.tokenUsable(rec) {
		return rec.Token, nil
	}
	if strings.TrimSpace(rec.RefreshToken) == "" {
		return "", errors.New("cached token expired and no refresh token")
	}

	next, err := p.refresh(ctx, rec.RefreshToken)
	if err != nil {
		return "", err
	}
	p.commit(next)
	return next.Token, nil
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (authstore.Record, error) {
	endpoint := p.cfg.AuthURL + "/oauth/token"
	payload, err := json.Marshal(map[string]any{
		"clientId":     p.cfg.ClientID,
		"tenantId":     p.cfg.TenantID,
		"refreshToken": refreshToken,
		"scopes":       p.cfg.Scopes,
	})
	if err != nil {
		return authstore.Record{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return authstore.Record{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return authstore.Record{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return authstore.Record{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return authstore.Record{}, fmt.Errorf("refresh failed (status=%d)", resp.StatusCode)
	}

	var m struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return authstore.Record{}, fmt.Errorf("invalid refresh response: %w", err)
	}
	if strings.TrimSpace(m.Token) == "" {
		return authstore.Record{}, errors.New("refresh returned no token")
	}
	if strings.TrimSpace(m.RefreshToken) == "" {
		m.RefreshToken = refreshToken
	}
	rec := authstore.Record{
		Token:        strings.TrimSpace(m.Token),
		RefreshToken: strings.TrimSpace(m.RefreshToken),
		Account:      authinfo.FromToken(m.Token).Account,
	}
	if m.ExpiresIn > 0 {
		rec.ExpiresAt = p.now().UTC().Add(time.Duration(m.ExpiresIn) * time.Second)
	} else if exp := authinfo.FromToken(m.Token).Expiry; !exp.IsZero() {
		rec.ExpiresAt = exp
	}
	return rec, nil
}

// interactive runs the browser prompt. At most one prompt is in flight at a
// time; concurrent callers block on the same flight and share its result.
func (p *Provider) interactive(ctx context.Context) (string, error) {
	v, err, _ := p.group.Do("interactive", func() (any, error) {
		// A caller that queued behind a completed prompt may not need one.
		if tok, err := p.silent(ctx); err == nil {
			return tok, nil
		}
		rec, err := p.browserSignIn(ctx)
		if err != nil {
			return "", err
		}
		p.commit(rec)
		return rec.Token, nil
	})
	if err != nil {
		return "", fmt.Errorf("interactive sign-in: %w", err)
	}
	return v.(string), nil
}

// commit updates the in-memory session and best-effort persists the record.
func (p *Provider) commit(rec authstore.Record) {
	account := rec.Account
	if account == "" {
		account = authinfo.FromToken(rec.Token).Account
		rec.Account = account
	}

	p.mu.Lock()
	p.session = &session{account: account, rec: rec}
	p.mu.Unlock()

	st, _ := authstore.Load(p.storePath)
	if st == nil {
		st = &authstore.Store{}
	}
	st.SetRecord(p.storeKey(), rec)
	_ = authstore.SaveAtomic(p.storePath, st)
}

func (p *Provider) browserSignIn(ctx context.Context) (authstore.Record, error) {
	if p.cfg.AuthURL == "" {
		return authstore.Record{}, errors.New("missing auth url")
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return authstore.Record{}, err
	}
	defer l.Close()

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return authstore.Record{}, err
	}
	state := base64.RawURLEncoding.EncodeToString(nonce)

	callbackURL := "http://" + l.Addr().String() + "/callback"

	recCh := make(chan authstore.Record, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Handler: mux}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			return
		}
		tok := strings.TrimSpace(q.Get("token"))
		if tok == "" {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}
		rec := authstore.Record{
			Token:        tok,
			RefreshToken: strings.TrimSpace(q.Get("refresh_token")),
		}
		if n := expiresIn(q.Get("expires_in")); n > 0 {
			rec.ExpiresAt = p.now().UTC().Add(time.Duration(n) * time.Second)
		} else if exp := authinfo.FromToken(tok).Expiry; !exp.IsZero() {
			rec.ExpiresAt = exp
		}
		_, _ = io.WriteString(w, "<html><body>Sign-in complete. You can close this tab.</body></html>")
		select {
		case recCh <- rec:
		default:
		}
	})

	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	q := url.Values{
		"client_id":    []string{p.cfg.ClientID},
		"tenant":       []string{p.cfg.TenantID},
		"scope":        []string{strings.Join(p.cfg.Scopes, " ")},
		"redirect_uri": []string{callbackURL},
		"state":        []string{state},
	}
	authURL := p.cfg.AuthURL + "/oauth/authorize?" + q.Encode()

	if p.Out != nil {
		fmt.Fprintln(p.Out, "Opening browser for sign-in:")
		fmt.Fprintln(p.Out, authURL)
	}
	open := p.OpenURL
	if open == nil {
		open = browseropen.Open
	}
	if err := open(authURL); err != nil && p.Out != nil {
		fmt.Fprintln(p.Out, "Could not open browser automatically; open the URL above manually.")
	}

	select {
	case rec := <-recCh:
		return rec, nil
	case err := <-errCh:
		return authstore.Record{}, err
	case <-time.After(interactiveTimeout):
		return authstore.Record{}, errors.New("sign-in timed out (no callback received)")
	case <-ctx.Done():
		return authstore.Record{}, ctx.Err()
	}
}

func expiresIn(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	var n int64
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return 0
	}
	return n
}
