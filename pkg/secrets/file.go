// Copyright 2026 fanjia1024
// Mounted-directory credential source (docker / kubernetes secret volumes)

package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const defaultSecretsDir = "/run/secrets"

type fileStore struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]string
}

// NewFileStore 从挂载目录读取凭据，每个文件一个 key；dir 为空时使用 /run/secrets
func NewFileStore(dir string) (Store, error) {
	if dir == "" {
		dir = defaultSecretsDir
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("secrets directory not found: %s: %w", dir, err)
	}
	return &fileStore{dir: dir, cache: make(map[string]string)}, nil
}

func (f *fileStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.RLock()
	val, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return val, nil
	}

	data, err := os.ReadFile(filepath.Join(f.dir, filepath.Base(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}
	val = strings.TrimRight(string(data), "\r\n")
	f.mu.Lock()
	f.cache[key] = val
	f.mu.Unlock()
	return val, nil
}
