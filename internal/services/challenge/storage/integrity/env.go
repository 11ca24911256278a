package integrity

import (
	"fmt"
	"strings"

	"github.com/louisbranch/wager.space/internal/platform/config"
)

const (
	envHMACKeys  = "WAGER_SPACE_EVENT_HMAC_KEYS"
	envHMACKey   = "WAGER_SPACE_EVENT_HMAC_KEY"
	defaultKeyID = "v1"
)

// EnvConfig is the keyring configuration read from the environment.
type EnvConfig struct {
	// Keys is a comma separated list of id=secret pairs.
	Keys  string `env:"WAGER_SPACE_EVENT_HMAC_KEYS"`
	Key   string `env:"WAGER_SPACE_EVENT_HMAC_KEY"`
	KeyID string `env:"WAGER_SPACE_EVENT_HMAC_KEY_ID" envDefault:"v1"`
}

// KeyringFromEnv loads the HMAC keyring configuration from environment variables.
func KeyringFromEnv() (*Keyring, error) {
	var cfg EnvConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, fmt.Errorf("keyring config: %w", err)
	}
	return KeyringFromConfig(cfg)
}

// KeyringFromConfig builds a keyring from parsed settings.
func KeyringFromConfig(cfg EnvConfig) (*Keyring, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		keyID = defaultKeyID
	}

	keySpec := strings.TrimSpace(cfg.Keys)
	if keySpec == "" {
		raw := strings.TrimSpace(cfg.Key)
		if raw == "" {
			return nil, fmt.Errorf("%s is required", envHMACKey)
		}
		return NewKeyring(map[string][]byte{keyID: []byte(raw)}, keyID)
	}

	keys := make(map[string][]byte)
	for _, entry := range strings.Split(keySpec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, value, ok := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		value = strings.TrimSpace(value)
		if !ok || id == "" || value == "" {
			return nil, fmt.Errorf("invalid %s entry", envHMACKeys)
		}
		keys[id] = []byte(value)
	}
	return NewKeyring(keys, keyID)
}
