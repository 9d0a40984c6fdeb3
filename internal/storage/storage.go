// /internal/storage/storage.go
package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"relaybot/datastore"
)

// KeyControlCharacter is the command prefix setting.
const KeyControlCharacter = "control_character"

// Storage holds per-instance settings on top of a datastore file.
type Storage struct {
	ds *datastore.DataStore
}

// New opens (or creates) the settings file at filePath.
func New(filePath string, log *zap.Logger) (*Storage, error) {
	return NewWithInterval(filePath, datastore.DefaultConfig(filePath).AutoSaveInterval, log)
}

// NewWithInterval is New with an explicit autosave interval; 0 disables autosave.
func NewWithInterval(filePath string, interval time.Duration, log *zap.Logger) (*Storage, error) {
	cfg := datastore.DefaultConfig(filePath)
	cfg.Logger = log
	cfg.AutoSaveInterval = interval
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// Save flushes settings to disk immediately.
func (s *Storage) Save() error {
	return s.ds.SaveToFile()
}

// For returns the key/value view of one module instance.
func (s *Storage) For(instance string) *NV {
	return &NV{s: s, prefix: instance + "/"}
}

// NV is the persisted key/value store of a single instance.
type NV struct {
	s      *Storage
	prefix string
}

// Get returns the string stored under key.
func (nv *NV) Get(key string) (string, bool) {
	v, ok := nv.s.ds.Get(nv.prefix + key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Has reports whether key is set.
func (nv *NV) Has(key string) bool {
	_, ok := nv.Get(key)
	return ok
}

// Set stores value under key.
func (nv *NV) Set(key, value string) error {
	if err := nv.s.ds.Add(nv.prefix+key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (nv *NV) Delete(key string) {
	nv.s.ds.Delete(nv.prefix + key)
}
