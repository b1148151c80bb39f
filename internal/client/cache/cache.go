// Package cache persists reference data (counties, cities, form catalogue and
// form details) as one JSON file per key.
//
// Reads never fail: a missing or undecodable file is reported as absent and
// the caller refetches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/casefile/internal/filex"
	"github.com/dmitrijs2005/casefile/internal/logging"
)

type Key string

const (
	KeyCounties Key = "counties"
	KeyForms    Key = "forms"
)

func CitiesKey(countyID int64) Key {
	return Key("cities-" + strconv.FormatInt(countyID, 10))
}

func FormDetailsKey(formID int64) Key {
	return Key("form-details-" + strconv.FormatInt(formID, 10))
}

type Cache struct {
	dir    string
	logger logging.Logger
	mu     sync.RWMutex
}

// New opens (and creates if needed) the cache directory.
func New(dir string, logger logging.Logger) (*Cache, error) {
	abs, err := filex.EnsureDir("", dir)
	if err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	return &Cache{dir: abs, logger: logger}, nil
}

func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(key Key) string {
	return filepath.Join(c.dir, string(key)+".json")
}

// Get decodes the value stored under key into out and reports whether it
// was present.
func (c *Cache) Get(key Key, out any) bool {
	c.mu.RLock()
	data, err := os.ReadFile(c.path(key))
	c.mu.RUnlock()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn(context.Background(), "cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn(context.Background(), "cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value under key. A nil value deletes the entry.
func (c *Cache) Set(key Key, value any) error {
	if isNil(value) {
		return c.Delete(key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := filex.WriteFileAtomic(c.path(key), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
