package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Defaults for the recognized options. maxSuggestions is clamped to the
// service's hard cap regardless of what the config file says.
const (
	DefaultTenantID       = "common"
	DefaultEndpoint       = "relevance"
	DefaultScopes         = "People.Read,User.Read"
	DefaultMaxSuggestions = 8
	DefaultMinChars       = 2
	DefaultMinRows        = 1
	DefaultMaxRows        = 10

	MaxSuggestionsCap = 25
)

// Options is the full configuration surface of the approver editor.
type Options struct {
	ClientID       string `json:"clientId,omitempty"`
	TenantID       string `json:"tenantId,omitempty"`
	RedirectOrigin string `json:"redirectOrigin,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	Scopes         string `json:"scopes,omitempty"`
	MaxSuggestions int    `json:"maxSuggestions,omitempty"`
	MinChars       int    `json:"minChars,omitempty"`
	MinRows        int    `json:"minRows,omitempty"`
	MaxRows        int    `json:"maxRows,omitempty"`
	MirrorSink     string `json:"mirrorSink,omitempty"`
	ForceEditable  bool   `json:"forceEditable,omitempty"`

	// Host-side endpoints supplied by whoever embeds the editor.
	DirectoryURL string `json:"directoryUrl,omitempty"`
	AuthURL      string `json:"authUrl,omitempty"`
}

func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("cannot determine user config dir")
	}
	return filepath.Join(dir, "approvers", "config.json"), nil
}

// Normalize fills defaults and clamps out-of-range values in place.
func (o *Options) Normalize() {
	o.ClientID = strings.TrimSpace(o.ClientID)
	o.TenantID = strings.TrimSpace(o.TenantID)
	if o.TenantID == "" {
		o.TenantID = DefaultTenantID
	}
	o.Endpoint = strings.ToLower(strings.TrimSpace(o.Endpoint))
	if o.Endpoint != "directory" {
		o.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(o.Scopes) == "" {
		o.Scopes = DefaultScopes
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = DefaultMaxSuggestions
	}
	if o.MaxSuggestions > MaxSuggestionsCap {
		o.MaxSuggestions = MaxSuggestionsCap
	}
	if o.MinChars <= 0 {
		o.MinChars = DefaultMinChars
	}
	if o.MinRows <= 0 {
		o.MinRows = DefaultMinRows
	}
	if o.MaxRows <= 0 {
		o.MaxRows = DefaultMaxRows
	}
	if o.MaxRows < o.MinRows {
		o.MaxRows = o.MinRows
	}
	o.MirrorSink = strings.TrimSpace(o.MirrorSink)
	o.DirectoryURL = strings.TrimRight(strings.TrimSpace(o.DirectoryURL), "/")
	o.AuthURL = strings.TrimRight(strings.TrimSpace(o.AuthURL), "/")
}

// ScopeList splits the comma-separated scopes option.
func (o Options) ScopeList() []string {
	parts := strings.Split(o.Scopes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Load(path string) (*Options, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("missing path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var o Options
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, err
	}
	o.Normalize()
	return &o, nil
}

// LoadOrDefault returns normalized defaults when no config file exists yet.
func LoadOrDefault(path string) (*Options, error) {
	o, err := Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			o = &Options{}
			o.Normalize()
			return o, nil
		}
		return nil, err
	}
	return o, nil
}

func SaveAtomic(path string, o *Options) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("missing path")
	}
	if o == nil {
		return errors.New("missing options")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
