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

// Package persist 快照的采集/写入与读取/重建。每个类别拆成 clear / populate 两个阶段，
// 按固定顺序处理；任何类别的失败都只记录到 Report，后续类别照常执行。
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"worldsave/internal/snapshot"
	"worldsave/internal/world"
	"worldsave/pkg/metrics"
	"worldsave/pkg/tracing"
)

// Env 一次操作使用的活动场景协作方
type Env struct {
	Registry world.Registry
	Resolver world.AssetResolver
	Weapons  world.WeaponManager
}

// 实体被跳过的原因
const (
	ReasonTemplateNotFound = "template_not_found"
	ReasonSpawnFailed      = "spawn_failed"
	ReasonInsertFailed     = "insert_failed"
	ReasonEmptyName        = "empty_name"
	ReasonInvalidName      = "invalid_name"
	ReasonContainerMissing = "container_missing"
)

// Skip 一个被跳过的实体
type Skip struct {
	Template string
	Reason   string
	Err      error
}

// BulkInsert 在 fn 执行期间关闭背包的自动装备，并在任何退出路径（含 panic）恢复原值
func BulkInsert(inv world.Inventory, fn func() error) error {
	prev := inv.AutoEquip()
	inv.SetAutoEquip(false)
	defer inv.SetAutoEquip(prev)
	return fn()
}

// guard 执行单个实体的重建，把 panic 转成错误
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("persist: recovered: %v", p)
		}
	}()
	return fn()
}

// runCategory 执行一个类别；panic 被恢复并记为失败，保证后续类别继续执行
func runCategory(ctx context.Context, logger *slog.Logger, op, scene string, c snapshot.Category,
	fn func(ctx context.Context) CategoryResult) (res CategoryResult) {
	ctx, span := tracing.StartCategorySpan(ctx, op, string(c))
	defer func() {
		if p := recover(); p != nil {
			res = CategoryResult{Status: StatusFailed, Error: fmt.Sprintf("panic: %v", p)}
			logger.Error("类别处理异常", "op", op, "scene", scene, "category", string(c), "panic", p)
		}
		res.Category = c
		var err error
		if res.Status == StatusFailed {
			err = errors.New(res.Error)
		}
		tracing.EndWithError(span, err)
		metrics.CategoryTotal.WithLabelValues(op, string(c), string(res.Status)).Inc()
	}()
	return fn(ctx)
}

func failed(err error) CategoryResult {
	return CategoryResult{Status: StatusFailed, Error: err.Error()}
}

func logSkips(logger *slog.Logger, scene string, c snapshot.Category, skips []Skip) {
	for _, s := range skips {
		metrics.EntitySkippedTotal.WithLabelValues(string(c), s.Reason).Inc()
		level := slog.LevelWarn
		if s.Reason == ReasonContainerMissing {
			level = slog.LevelDebug
		}
		args := []any{"scene", scene, "category", string(c), "template", s.Template, "reason", s.Reason}
		if s.Err != nil {
			args = append(args, "error", s.Err)
		}
		logger.Log(context.Background(), level, "跳过实体", args...)
	}
}
