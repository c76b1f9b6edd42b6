// Package keys stores provider API keys in the user config directory.
package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/ruizrica/spriteforge/pkg/models"
)

var (
	ErrNoKey           = errors.New("no API key configured")
	ErrUnknownProvider = errors.New("unknown provider")
)

// EnvVars maps each provider to the environment variable holding its key.
var EnvVars = map[models.ProviderType]string{
	models.ProviderGemini: "GEMINI_API_KEY",
	models.ProviderOpenAI: "OPENAI_API_KEY",
}

type Store struct {
	configDir string
}

type KeyEntry struct {
	Key string `json:"key"`
}

// Keys is the keys.json document.
type Keys map[string]KeyEntry

func NewStore() (*Store, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return &Store{configDir: configDir}, nil
}

func NewStoreAt(dir string) *Store {
	return &Store{configDir: dir}
}

// ConfigDir returns the platform-specific config directory.
// SPRITEFORGE_CONFIG_DIR overrides it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SPRITEFORGE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "spriteforge"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "spriteforge"), nil
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "spriteforge"), nil
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (Keys, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(Keys), nil
		}
		return nil, err
	}

	var keys Keys
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	if keys == nil {
		keys = make(Keys)
	}
	return keys, nil
}

func (s *Store) save(keys Keys) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// Owner read/write only.
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	return nil
}

func checkProvider(p models.ProviderType) error {
	if !p.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	return nil
}

func (s *Store) Set(p models.ProviderType, key string) error {
	if err := checkProvider(p); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrNoKey
	}
	keys, err := s.load()
	if err != nil {
		return err
	}

	keys[string(p)] = KeyEntry{Key: key}
	return s.save(keys)
}

// Get returns the stored key, or "" when none is stored.
func (s *Store) Get(p models.ProviderType) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	return keys[string(p)].Key, nil
}

func (s *Store) Delete(p models.ProviderType) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := keys[string(p)]; !ok {
		return fmt.Errorf("%w for %s", ErrNoKey, p)
	}

	delete(keys, string(p))
	return s.save(keys)
}

// List returns the providers with a stored key, sorted.
func (s *Store) List() ([]models.ProviderType, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}

	providers := make([]models.ProviderType, 0, len(keys))
	for p := range keys {
		providers = append(providers, models.ProviderType(p))
	}
	slices.Sort(providers)
	return providers, nil
}

// MaskKey returns a masked version of the key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Resolver finds the API key for a provider: an explicit key first, then
// the store, then the provider's environment variable.
type Resolver struct {
	Store  *Store
	Getenv func(string) string
}

// Resolve returns the key and a human readable description of its source.
func (r Resolver) Resolve(explicit string, p models.ProviderType) (key, source string, err error) {
	if explicit != "" {
		return explicit, "command-line flag", nil
	}

	if r.Store != nil {
		if stored, err := r.Store.Get(p); err == nil && stored != "" {
			return stored, "stored key (" + r.Store.Path() + ")", nil
		}
	}

	envVar := EnvVars[p]
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if envVar != "" {
		if v := getenv(envVar); v != "" {
			return v, "environment variable (" + envVar + ")", nil
		}
	}

	return "", "", fmt.Errorf("%w: run 'spriteforge keys set %s' or set %s", ErrNoKey, p, envVar)
}
