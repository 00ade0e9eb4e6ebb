package store

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"wyze-camera-server/models"
)

// CredentialStore holds the single active Wyze credential for this process
// and mirrors every change to a local JSON file. The process runs one
// account, so there is exactly one credential slot.
type CredentialStore struct {
	mu   sync.RWMutex
	path string
	cred *models.Credential
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Load reads the persisted credential. A missing or unparseable file is
// treated as "not logged in" rather than an error, which forces a fresh
// login on the next startup step.
func (s *CredentialStore) Load() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Store] Failed to read token file %s: %v", s.path, err)
		}
		return false
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		log.Printf("[Store] Token file %s is corrupt, ignoring: %v", s.path, err)
		return false
	}
	if !cred.Valid() {
		return false
	}

	s.mu.Lock()
	s.cred = &cred
	s.mu.Unlock()
	return true
}

// Save replaces the active credential and persists it.
func (s *CredentialStore) Save(cred models.Credential) error {
	s.mu.Lock()
	s.cred = &cred
	s.mu.Unlock()
	return s.persist(cred)
}

// UpdateTokens swaps the token pair after a refresh, keeping the stable
// identifiers, and persists the result.
func (s *CredentialStore) UpdateTokens(accessToken, refreshToken string) error {
	s.mu.Lock()
	if s.cred == nil {
		s.mu.Unlock()
		return nil
	}
	if accessToken != "" {
		s.cred.AccessToken = accessToken
	}
	if refreshToken != "" {
		s.cred.RefreshToken = refreshToken
	}
	cred := *s.cred
	s.mu.Unlock()
	return s.persist(cred)
}

// Current returns a copy of the active credential, if any.
func (s *CredentialStore) Current() (models.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return models.Credential{}, false
	}
	return *s.cred, true
}

// Clear drops the in-memory credential. The token file is left in place;
// the next successful login overwrites it.
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()
}

// persist writes the credential via a temp file and rename so a crash
// mid-write cannot leave a half-written token file behind.
func (s *CredentialStore) persist(cred models.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
