// Copyright 2026 fanjia1024
// Environment variable credential source

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix env 来源默认的变量名前缀
const DefaultEnvPrefix = "WORLDSAVE_SECRET_"

type envStore struct {
	prefix string
}

// NewEnvStore 从环境变量读取凭据：key redis_password 对应 <prefix>REDIS_PASSWORD，
// 前缀变量不存在时再按 key 原样查找
func NewEnvStore(prefix string) Store {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &envStore{prefix: prefix}
}

func (e *envStore) name(key string) string {
	return e.prefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", "/", "_").Replace(key))
}

func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := os.LookupEnv(e.name(key)); ok && v != "" {
		return v, nil
	}
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s (env %s)", ErrNotFound, key, e.name(key))
}
