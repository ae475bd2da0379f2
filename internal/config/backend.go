package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigBackend abstracts where persisted config keys live.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// configPathEnv points at an alternative config file.
const configPathEnv = "RLOC_CONFIG"

// appDir is the per-user directory holding config.yaml and, by default,
// the lookup history database.
func appDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "reportlocator")
	}
	return "reportlocator-data"
}

func defaultDataDir() string {
	return appDir()
}

// ConfigPath returns the config file in use.
func ConfigPath() string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return filepath.Join(appDir(), "config.yaml")
}

func newPlatformBackend() ConfigBackend {
	return newFileBackend(ConfigPath())
}

// fileBackend stores keys in a YAML file where each dotted key is a nested
// mapping, so "mongo.uri" lives under mongo: uri:.
type fileBackend struct {
	path string
	data map[string]any
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, data: make(map[string]any)}
	b.load()
	return b
}

func (b *fileBackend) load() {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", b.path, err)
		}
		return
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse config file %s: %v. Using default values.\n", b.path, err)
		return
	}
	if data != nil {
		b.data = data
	}
}

// save writes through a temp file so a crash never leaves half a config.
func (b *fileBackend) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	out, err := yaml.Marshal(b.data)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (b *fileBackend) lookup(key string) (any, bool) {
	parts := strings.Split(key, ".")
	node := b.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			return nil, false
		}
		node = next
	}
	v, ok := node[parts[len(parts)-1]]
	return v, ok
}

func (b *fileBackend) set(key string, v any) error {
	parts := strings.Split(key, ".")
	node := b.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[p] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = v
	return b.save()
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.lookup(key)
	if !ok || v == nil {
		return "", false, nil
	}
	switch val := v.(type) {
	case string:
		return val, true, nil
	case map[string]any, []any:
		return "", true, fmt.Errorf("%s must be a scalar", key)
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.lookup(key)
	if !ok || v == nil {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int:
		return val, true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	}
	return 0, true, fmt.Errorf("invalid integer for %s: %v", key, v)
}

func (b *fileBackend) SetString(key, val string) error {
	return b.set(key, val)
}

func (b *fileBackend) SetInt(key string, val int) error {
	return b.set(key, val)
}

// Delete removes key and any section it leaves empty.
func (b *fileBackend) Delete(key string) error {
	parts := strings.Split(key, ".")
	path := []map[string]any{b.data}
	node := b.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			return nil
		}
		path = append(path, next)
		node = next
	}
	if _, ok := node[parts[len(parts)-1]]; !ok {
		return nil
	}
	delete(node, parts[len(parts)-1])
	for i := len(path) - 1; i > 0 && len(path[i]) == 0; i-- {
		delete(path[i-1], parts[i-1])
	}
	return b.save()
}
