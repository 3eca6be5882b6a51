// Copyright 2026 fanjia1024
// Static in-memory credential source (development and tests)

package secrets

import (
	"context"
	"fmt"
)

type memoryStore map[string]string

// NewMemoryStore 以给定值创建只读来源；values 会被复制
func NewMemoryStore(values map[string]string) Store {
	m := make(memoryStore, len(values))
	for k, v := range values {
		m[k] = v
	}
	return m
}

func (m memoryStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}
