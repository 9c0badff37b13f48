package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"thumbcode/internal/security/redaction"
)

// CredentialType identifies the provider a secret belongs to.
type CredentialType string

const (
	TypeGitHub    CredentialType = "github"
	TypeAnthropic CredentialType = "anthropic"
	TypeOpenAI    CredentialType = "openai"
)

// Credential is provider-scoped secret metadata. The raw secret never leaves
// the store except through Retrieve; MaskedValue is safe for display.
type Credential struct {
	Type        CredentialType `json:"type"`
	MaskedValue string         `json:"masked_value"`
	Valid       *bool          `json:"valid,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Store is the secure credential store contract consumed by the auth poller
// and the agents. Implementations must be safe for concurrent use.
type Store interface {
	Store(ctx context.Context, credType CredentialType, secret string) error
	Retrieve(ctx context.Context, credType CredentialType) (string, error)
	Delete(ctx context.Context, credType CredentialType) error
	List(ctx context.Context) ([]Credential, error)
}

type record struct {
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore persists credentials as a JSON file with 0600 permissions under
// the ThumbCode data directory.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates the backing directory and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, "credentials.json")}, nil
}

// Store saves or replaces the secret for a provider.
func (s *FileStore) Store(ctx context.Context, credType CredentialType, secret string) error {
	if secret == "" {
		return fmt.Errorf("empty secret for %s", credType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now()
	existing, ok := records[credType]
	created := now
	if ok {
		created = existing.CreatedAt
	}
	records[credType] = record{Secret: secret, CreatedAt: created, UpdatedAt: now}
	return s.save(records)
}

// Retrieve returns the raw secret for a provider.
func (s *FileStore) Retrieve(ctx context.Context, credType CredentialType) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return "", err
	}
	rec, ok := records[credType]
	if !ok {
		return "", fmt.Errorf("no credential stored for %s", credType)
	}
	return rec.Secret, nil
}

// Delete removes the secret for a provider. Deleting a missing credential is an error.
func (s *FileStore) Delete(ctx context.Context, credType CredentialType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[credType]; !ok {
		return fmt.Errorf("no credential stored for %s", credType)
	}
	delete(records, credType)
	return s.save(records)
}

// List returns display-safe metadata for every stored credential, sorted by type.
func (s *FileStore) List(ctx context.Context) ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	creds := make([]Credential, 0, len(records))
	for credType, rec := range records {
		creds = append(creds, Credential{
			Type:        credType,
			MaskedValue: redaction.MaskSecret(rec.Secret),
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   rec.UpdatedAt,
		})
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].Type < creds[j].Type })
	return creds, nil
}

func (s *FileStore) load() (map[CredentialType]record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[CredentialType]record{}, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	records := map[CredentialType]record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return records, nil
}

func (s *FileStore) save(records map[CredentialType]record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}
