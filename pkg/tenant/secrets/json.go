package secrets

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// jsonConfig points at a local secrets file, used for self-hosted
// deployments without an AWS account — grounded on original_source's
// JsonSecretManagerConfig. Unlike the original's age-encrypted file, this
// stores plain JSON since no age/encryption library appears anywhere in
// the example pack; operators relying on this backend are expected to
// protect the file with filesystem permissions.
type jsonConfig struct {
	Path string `mapstructure:"path"`
}

type secretFile struct {
	Secrets map[string]string `json:"secrets"`
}

type jsonBackend struct {
	path string
	mu   sync.Mutex
}

func newJSONBackend(opts map[string]interface{}) (*jsonBackend, error) {
	var cfg jsonConfig
	if err := mapstructure.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, errors.New("secrets: json provider requires options.path")
	}
	return &jsonBackend{path: cfg.Path}, nil
}

func (b *jsonBackend) getSecret(_ context.Context, name string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "secrets: read json secrets file")
	}

	var file secretFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return "", false, errors.Wrap(err, "secrets: parse json secrets file")
	}

	v, ok := file.Secrets[name]
	return v, ok, nil
}
