// Package store persists small pieces of tuner state between runs.
package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// KeyLastHost holds the last device the tuner talked to.
const KeyLastHost = "last_host"

var ErrNoHost = errors.New("store: no device selected")

// File is a flat string map kept in a YAML file. Every Set rewrites the
// file atomically; the last write wins.
type File struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// Open loads path. A missing file is an empty store.
func Open(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &f.values); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	return f, nil
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

// Get returns the value under key.
func (f *File) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key and writes the file.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return f.flush()
}

// Delete removes key and writes the file.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return f.flush()
}

func (f *File) flush() error {
	data, err := yaml.Marshal(f.values)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return atomicWrite(f.path, data, dir)
}

func atomicWrite(path string, data []byte, dir string) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	ok = true
	return nil
}

// LastHost returns the normalized persisted host, or ErrNoHost.
func (f *File) LastHost() (string, error) {
	v, ok := f.Get(KeyLastHost)
	if !ok || strings.TrimSpace(v) == "" {
		return "", ErrNoHost
	}
	return NormalizeHost(v)
}

// SetLastHost normalizes and persists host.
func (f *File) SetLastHost(host string) (string, error) {
	norm, err := NormalizeHost(host)
	if err != nil {
		return "", err
	}
	return norm, f.Set(KeyLastHost, norm)
}

// NormalizeHost turns user input such as "192.168.4.1/", "cdi.local:8080"
// or "HTTP://cdi.local/map" into "scheme://host[:port]". The scheme
// defaults to http; paths, queries and trailing slashes are dropped.
func NormalizeHost(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrNoHost
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("store: invalid host %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("store: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("store: invalid host %q", raw)
	}
	return scheme + "://" + strings.ToLower(u.Host), nil
}
