// Package authstore caches the auth session on disk: one record per
// authority (token service + tenant + client id). The cache is the silent
// acquisition path; nothing here talks to the network.
package authstore

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Record struct {
	Account      string    `json:"account,omitempty"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Store struct {
	Sessions map[string]Record `json:"sessions"`
}

// Key builds the authority key a record is cached under.
func Key(authURL, tenantID, clientID string) string {
	authURL = strings.TrimRight(strings.TrimSpace(authURL), "/")
	return authURL + "|" + strings.TrimSpace(tenantID) + "|" + strings.TrimSpace(clientID)
}

func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		h, herr := os.UserHomeDir()
		if herr != nil {
			return "", errors.New("cannot determine config dir")
		}
		dir = filepath.Join(h, ".config")
	}
	return filepath.Join(dir, "approvers", "auth.json"), nil
}

func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var s Store
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Sessions == nil {
		s.Sessions = map[string]Record{}
	}
	return &s, nil
}

func SaveAtomic(path string, s *Store) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	if s.Sessions == nil {
		s.Sessions = map[string]Record{}
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) GetRecord(key string) (Record, bool) {
	if s == nil || s.Sessions == nil {
		return Record{}, false
	}
	rec, ok := s.Sessions[strings.TrimSpace(key)]
	if !ok || strings.TrimSpace(rec.Token) == "" {
		return Record{}, false
	}
	return rec, true
}

func (s *Store) SetRecord(key string, rec Record) {
	if s.Sessions == nil {
		s.Sessions = map[string]Record{}
	}
	key = strings.TrimSpace(key)
	rec.Token = strings.TrimSpace(rec.Token)
	if key == "" || rec.Token == "" {
		return
	}
	rec.UpdatedAt = time.Now().UTC()
	s.Sessions[key] = rec
}

func (s *Store) Delete(key string) {
	if s == nil || s.Sessions == nil {
		return
	}
	delete(s.Sessions, strings.TrimSpace(key))
}
