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

package app

import (
	"context"
	"fmt"

	"worldsave/internal/controller"
	"worldsave/internal/slots"
	"worldsave/internal/store"
	"worldsave/internal/world/memworld"
	"worldsave/pkg/config"
	"worldsave/pkg/log"
	"worldsave/pkg/secrets"
)

// Bootstrap 统一初始化：日志、密钥、存储、世界宿主与持久化控制器
type Bootstrap struct {
	Config     *config.Config
	Logger     *log.Logger
	Secrets    secrets.Store
	Store      store.Store
	World      *memworld.Host
	Slots      *slots.Manager
	Controller *controller.Controller
}

// NewBootstrap 根据配置创建 Bootstrap；cfg 为 nil 时使用默认配置
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	sec, err := secrets.NewStore(secrets.Config{
		Provider:  cfg.Secrets.Provider,
		EnvPrefix: cfg.Secrets.EnvPrefix,
		Dir:       cfg.Secrets.Dir,
		Values:    cfg.Secrets.Values,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
			Paths:      cfg.Secrets.Vault.Paths,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化密钥存储失败: %w", err)
	}

	st, err := store.NewStore(ctx, cfg, sec, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}

	host := memworld.NewFromConfig(cfg.World, cfg.Scenes)
	start := cfg.Scenes.Start
	if err := host.Open(start); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("加载起始场景失败: %w", err)
	}

	sm := slots.NewManager(cfg.Save, cfg.Slots, st, logger.Logger)
	ctrl := controller.New(host, st, sm, controller.Options{
		Manifest:       cfg.Scenes.Manifest,
		StallWarnTicks: cfg.Controller.StallWarnTicks,
		TriggerRPS:     cfg.Controller.TriggerRPS,
		TriggerBurst:   cfg.Controller.TriggerBurst,
	}, logger.Logger)
	// 起始场景的玩家已就绪
	ctrl.MarkReady()

	logger.Info("存档引擎已初始化", "store", cfg.Store.Type, "scene", start, "slots_dir", sm.Dir())
	return &Bootstrap{
		Config:     cfg,
		Logger:     logger,
		Secrets:    sec,
		Store:      st,
		World:      host,
		Slots:      sm,
		Controller: ctrl,
	}, nil
}

// Close 释放存储连接与日志文件
func (b *Bootstrap) Close() error {
	var first error
	if b.Store != nil {
		first = b.Store.Close()
	}
	if err := b.Logger.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
