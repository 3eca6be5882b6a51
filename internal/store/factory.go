// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"fmt"
	"log/slog"

	"worldsave/pkg/config"
	"worldsave/pkg/secrets"
)

// NewStore 根据配置创建存储；password/dsn 可为 secret://key 引用，由 sec 解析
func NewStore(ctx context.Context, cfg *config.Config, sec secrets.Store, logger *slog.Logger) (Store, error) {
	sc := cfg.Store
	switch sc.Type {
	case "", "file":
		return NewFileStore(cfg.Save, logger), nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		password, err := secrets.Resolve(ctx, sec, sc.Password)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(ctx, sc.Addr, password, sc.DB, sc.KeyPrefix)
	case "postgres":
		dsn, err := secrets.Resolve(ctx, sec, sc.DSN)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(ctx, dsn, sc.Table)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}
