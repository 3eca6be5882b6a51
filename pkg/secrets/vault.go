// Copyright 2026 fanjia1024
// HashiCorp Vault credential source

package secrets

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

const defaultVaultField = "value"

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string            // Vault 地址，如 http://vault:8200
	Token      string            // Vault token
	PathPrefix string            // 未在 Paths 中登记的 key 读取 <PathPrefix>/<key>
	Paths      map[string]string // key -> "<path>#<field>"，如 redis_password -> secret/data/worldsave/redis#password
}

type vaultStore struct {
	logical    *vault.Logical
	pathPrefix string
	paths      map[string]string
}

// NewVaultStore 创建 Vault 凭据来源并检查连通性
func NewVaultStore(config VaultConfig) (Store, error) {
	if config.Address == "" {
		config.Address = "http://localhost:8200"
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}
	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}

	prefix := strings.TrimSuffix(config.PathPrefix, "/")
	if prefix == "" {
		prefix = "secret"
	}
	return &vaultStore{logical: client.Logical(), pathPrefix: prefix, paths: config.Paths}, nil
}

// locate 返回 key 对应的 Vault 路径与字段
func (v *vaultStore) locate(key string) (path, field string) {
	ref, ok := v.paths[key]
	if !ok {
		return v.pathPrefix + "/" + key, defaultVaultField
	}
	path, field, _ = strings.Cut(ref, "#")
	if field == "" {
		field = defaultVaultField
	}
	return path, field
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	path, field := v.locate(key)
	secret, err := v.logical.ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s (vault %s)", ErrNotFound, key, path)
	}

	data := secret.Data
	// KV v2 把字段包在 data.data 下
	if inner, ok := data["data"].(map[string]interface{}); ok {
		data = inner
	}
	val, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s (vault %s#%s)", ErrNotFound, key, path, field)
	}
	return val, nil
}
