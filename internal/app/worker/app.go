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

// Package worker 世界驱动循环：按固定间隔推进宿主的异步场景操作，随后推进持久化控制器。
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// World 每个 tick 先推进的世界宿主
type World interface {
	Advance()
}

// Controller 每个 tick 随后推进的状态机
type Controller interface {
	Tick(ctx context.Context)
}

// DefaultInterval 未配置或配置无效时的 tick 间隔
const DefaultInterval = 16 * time.Millisecond

// App 世界驱动
type App struct {
	world    World
	ctrl     Controller
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewApp 创建世界驱动；interval 为空或非法时使用 DefaultInterval
func NewApp(world World, ctrl Controller, interval string, logger *slog.Logger) *App {
	d := DefaultInterval
	if interval != "" {
		if v, err := time.ParseDuration(interval); err == nil && v > 0 {
			d = v
		} else {
			logger.Warn("tick 间隔无效，使用默认值", "interval", interval, "default", DefaultInterval)
		}
	}
	return &App{world: world, ctrl: ctrl, interval: d, logger: logger}
}

// Interval 实际使用的 tick 间隔
func (a *App) Interval() time.Duration { return a.interval }

// Start 在后台启动循环；重复调用无效果
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	go a.loop(ctx, a.done)
	a.logger.Info("世界驱动已启动", "interval", a.interval)
}

func (a *App) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Step(ctx)
		}
	}
}

// Step 执行一个 tick
func (a *App) Step(ctx context.Context) {
	a.world.Advance()
	a.ctrl.Tick(ctx)
}

// Shutdown 停止循环并等待当前 tick 结束
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		a.logger.Info("世界驱动已停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
