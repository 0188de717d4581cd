package secrets

import (
	"context"

	"github.com/mitchellh/mapstructure"
)

// memoryConfig lists fixed secrets inline, used for local dev and tests —
// grounded on original_source's MemorySecretManagerConfig.
type memoryConfig struct {
	Secrets map[string]string `mapstructure:"secrets"`
	Default string            `mapstructure:"default"`
}

type memoryBackend struct {
	secrets map[string]string
	def     string
}

func newMemoryBackend(opts map[string]interface{}) (*memoryBackend, error) {
	var cfg memoryConfig
	if err := mapstructure.Decode(opts, &cfg); err != nil {
		return nil, err
	}
	return &memoryBackend{secrets: cfg.Secrets, def: cfg.Default}, nil
}

func (b *memoryBackend) getSecret(_ context.Context, name string) (string, bool, error) {
	if v, ok := b.secrets[name]; ok {
		return v, true, nil
	}
	if b.def != "" {
		return b.def, true, nil
	}
	return "", false, nil
}
