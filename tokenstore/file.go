package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/onnwee/clip-tender/crypto"
)

// FileStore keeps all records in a single JSON object keyed by open_id.
// Writes go through a mutex and a temp-file rename so concurrent callers
// cannot interleave partial writes or clobber each other's entries.
type FileStore struct {
	path string
	enc  crypto.Encryptor // nil disables at-rest encryption

	mu sync.Mutex
}

// NewFileStore returns a store backed by the JSON file at path. The file is
// created lazily on first Put. enc may be nil; when set, access and refresh
// tokens are encrypted before hitting disk.
func NewFileStore(path string, enc crypto.Encryptor) *FileStore {
	return &FileStore{path: path, enc: enc}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// load reads and decodes the whole file. A missing file is an empty store.
// Caller must hold s.mu.
func (s *FileStore) load() (map[string]*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Record{}, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if len(data) == 0 {
		return map[string]*Record{}, nil
	}
	var m map[string]*Record
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", s.path, err)
	}
	for id, rec := range m {
		if rec.OpenID == "" {
			rec.OpenID = id
		}
		if err := s.decryptRecord(rec); err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
	}
	return m, nil
}

// save writes the whole map atomically via temp file + rename.
// Caller must hold s.mu.
func (s *FileStore) save(m map[string]*Record) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (s *FileStore) encryptRecord(rec *Record) error {
	if s.enc == nil {
		rec.EncryptionVersion = 0
		return nil
	}
	access, err := crypto.EncryptString(s.enc, rec.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := crypto.EncryptString(s.enc, rec.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}
	rec.AccessToken, rec.RefreshToken = access, refresh
	rec.EncryptionVersion = 1
	return nil
}

func (s *FileStore) decryptRecord(rec *Record) error {
	if rec.EncryptionVersion == 0 {
		return nil
	}
	if s.enc == nil {
		return fmt.Errorf("token is encrypted but no encryption key configured")
	}
	access, err := crypto.DecryptString(s.enc, rec.AccessToken)
	if err != nil {
		return fmt.Errorf("decrypt access token: %w", err)
	}
	refresh, err := crypto.DecryptString(s.enc, rec.RefreshToken)
	if err != nil {
		return fmt.Errorf("decrypt refresh token: %w", err)
	}
	rec.AccessToken, rec.RefreshToken = access, refresh
	rec.EncryptionVersion = 0
	return nil
}

// Get returns the record for openID or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, openID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := m[openID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Put overwrites the record for rec.OpenID wholesale.
func (s *FileStore) Put(ctx context.Context, rec *Record) error {
	if rec == nil || rec.OpenID == "" {
		return fmt.Errorf("put: record missing open_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	stored := *rec
	if err := s.encryptRecord(&stored); err != nil {
		return err
	}
	m[rec.OpenID] = &stored
	return s.save(m)
}

// List returns every stored record in open_id order.
func (s *FileStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	recs := make([]*Record, 0, len(m))
	for _, id := range ids {
		recs = append(recs, m[id])
	}
	return recs, nil
}

// Delete removes the record for openID; deleting a missing record is a no-op.
func (s *FileStore) Delete(ctx context.Context, openID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[openID]; !ok {
		return nil
	}
	delete(m, openID)
	return s.save(m)
}

var _ Store = (*FileStore)(nil)
