package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keys maps "channel:chatID" → the cipher key bound to that chat.
type Keys struct {
	mu   sync.RWMutex
	data map[string]string
	path string
}

func NewKeys(path string) (*Keys, error) {
	k := &Keys{
		data: make(map[string]string),
		path: path,
	}
	if err := k.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return k, nil
}

func (k *Keys) Get(chat string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.data[chat]
	return v, ok
}

func (k *Keys) Set(chat, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[chat] = key
	return k.save()
}

func (k *Keys) Delete(chat string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, chat)
	return k.save()
}

func (k *Keys) All() map[string]string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[string]string, len(k.data))
	for c, v := range k.data {
		out[c] = v
	}
	return out
}

func (k *Keys) load() error {
	data, err := os.ReadFile(k.path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &k.data)
}

func (k *Keys) save() error {
	if k.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(k.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(k.path), 0700); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	return os.WriteFile(k.path, data, 0600)
}

// Mask hides all but the first byte of key.
func Mask(key string) string {
	if len(key) <= 1 {
		return key
	}
	b := make([]byte, len(key))
	b[0] = key[0]
	for i := 1; i < len(b); i++ {
		b[i] = '*'
	}
	return string(b)
}
