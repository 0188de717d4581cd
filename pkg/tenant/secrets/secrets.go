// Package secrets resolves tenant database credentials through one of a
// closed set of backends, selected by a "provider" tag the same way
// pkg/blobstore and pkg/searchindex select their backend kind.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
)

// Kind names a secret-manager backend.
type Kind string

const (
	KindAWS    Kind = "aws"
	KindMemory Kind = "memory"
	KindJSON   Kind = "json"
)

// Credential is the decoded {username,password,host} contract every backend
// must resolve a secret reference to.
type Credential struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Host     string `json:"host" mapstructure:"host"`
}

// backend is implemented by each concrete secret-manager kind.
type backend interface {
	getSecret(ctx context.Context, name string) (string, bool, error)
}

// Config selects and configures a backend, decoded from the root TOML
// config's [secrets] table.
type Config struct {
	Provider Kind                   `toml:"provider" mapstructure:"provider"`
	Options  map[string]interface{} `toml:"options" mapstructure:"options"`
}

// Manager resolves a secret reference to a Credential, caching nothing
// itself — callers (pkg/tenant's DatabasePoolCache) own caching.
type Manager struct {
	backend     backend
	defaultName *string
}

// New constructs a Manager from cfg.
func New(cfg Config) (*Manager, error) {
	switch cfg.Provider {
	case KindAWS:
		b, err := newAWSBackend(cfg.Options)
		if err != nil {
			return nil, err
		}
		return &Manager{backend: b}, nil
	case KindMemory:
		b, err := newMemoryBackend(cfg.Options)
		if err != nil {
			return nil, err
		}
		return &Manager{backend: b}, nil
	case KindJSON:
		b, err := newJSONBackend(cfg.Options)
		if err != nil {
			return nil, err
		}
		return &Manager{backend: b}, nil
	default:
		return nil, fmt.Errorf("secrets: unknown provider %q", cfg.Provider)
	}
}

// Credential resolves ref (spec.md §3's optional db_secret_ref) to a
// credential. A nil ref returns an error; no fallback secret name is tried.
func (m *Manager) Credential(ctx context.Context, ref *string) (Credential, error) {
	var name string
	if ref != nil {
		name = *ref
	} else {
		return Credential{}, fmt.Errorf("secrets: no secret reference for tenant")
	}

	raw, ok, err := m.backend.getSecret(ctx, name)
	if err != nil {
		return Credential{}, err
	}
	if !ok {
		return Credential{}, fmt.Errorf("secrets: secret %q not found", name)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return Credential{}, fmt.Errorf("secrets: malformed secret %q: %w", name, err)
	}
	return cred, nil
}
