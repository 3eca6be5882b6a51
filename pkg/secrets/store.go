// Copyright 2026 fanjia1024
// Credential resolution for storage backends

package secrets

import (
	"context"
	"fmt"
	"strings"

	apperrors "worldsave/pkg/errors"
)

// RefPrefix 配置值以该前缀开头时从 secret 来源解析
const RefPrefix = "secret://"

// ErrNotFound 来源中没有该 key
var ErrNotFound = fmt.Errorf("secrets: key %w", apperrors.ErrNotFound)

// Store 只读的凭据来源；存储后端的密码与 DSN 通过它解析
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Config 凭据来源配置
type Config struct {
	Provider  string            // memory | env | file | vault
	EnvPrefix string            // provider=env 时的变量名前缀
	Dir       string            // provider=file 时的挂载目录
	Values    map[string]string // provider=memory 时的静态值，仅用于开发环境
	Vault     VaultConfig       // provider=vault 时使用
}

// NewStore 按 provider 创建凭据来源
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(config.EnvPrefix), nil
	case "memory":
		return NewMemoryStore(config.Values), nil
	case "file":
		return NewFileStore(config.Dir)
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}

// Resolve 解析配置值：secret://key 形式从 store 读取，其余原样返回
func Resolve(ctx context.Context, store Store, value string) (string, error) {
	if !strings.HasPrefix(value, RefPrefix) {
		return value, nil
	}
	key := strings.TrimPrefix(value, RefPrefix)
	if key == "" {
		return "", fmt.Errorf("secret reference %q has no key: %w", value, apperrors.ErrInvalidArg)
	}
	if store == nil {
		return "", fmt.Errorf("secret reference %q requires a secret store", value)
	}
	v, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve secret %q: %w", key, err)
	}
	return strings.TrimSpace(v), nil
}
