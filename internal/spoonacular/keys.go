package spoonacular

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ccastromar/aos-diet-planner/internal/logx"
)

// KeyEnvVar is the environment variable holding the Spoonacular API key.
const KeyEnvVar = "SPOONACULAR_API_KEY"

// ErrMissingAPIKey is returned at construction when no API key is available.
var ErrMissingAPIKey = errors.New("spoonacular api key not configured")

// KeyProvider resolves the upstream API key.
type KeyProvider interface {
	APIKey() (string, error)
}

// StaticKey is an already-resolved key, typically from the env config struct.
type StaticKey string

func (k StaticKey) APIKey() (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// EnvKey reads the key from the process environment the first time it is
// asked for and reuses it afterwards. A failed lookup is not cached.
type EnvKey struct {
	Name   string
	Lookup func(string) (string, bool)

	mu  sync.Mutex
	key string
}

func NewEnvKey() *EnvKey {
	return &EnvKey{Name: KeyEnvVar, Lookup: os.LookupEnv}
}

func (k *EnvKey) APIKey() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key != "" {
		return k.key, nil
	}

	name := k.Name
	if name == "" {
		name = KeyEnvVar
	}
	lookup := k.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	v, _ := lookup(name)
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%s not found in environment variables: %w", name, ErrMissingAPIKey)
	}

	k.key = v
	logx.Info("Spoonacular", "API key loaded: %s", maskKey(v))
	return v, nil
}

func maskKey(k string) string {
	if len(k) <= 5 {
		return "*****"
	}
	return k[:5] + "..."
}
