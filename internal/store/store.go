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

// Package store 快照载荷的原始读写：按 (场景, 类别) 定位，后端可为本地文件、内存、Redis 或 PostgreSQL。
package store

import (
	"context"
	"fmt"
	"log/slog"

	"worldsave/internal/snapshot"
	apperrors "worldsave/pkg/errors"
)

// ErrNotFound 指定场景/类别没有载荷；读档时视为“该类别无需恢复”
var ErrNotFound = fmt.Errorf("store: payload %w", apperrors.ErrNotFound)

// Store 快照载荷存储
type Store interface {
	// Write 无条件覆盖 (scene, category) 的载荷
	Write(ctx context.Context, category snapshot.Category, scene string, payload []byte) error
	// Read 读取载荷；不存在时返回 ErrNotFound
	Read(ctx context.Context, category snapshot.Category, scene string) ([]byte, error)
	// Delete 删除载荷；不存在时返回 ErrNotFound
	Delete(ctx context.Context, category snapshot.Category, scene string) error
	// Close 释放连接
	Close() error
}

// DeleteReport DeleteAll 的结果统计
type DeleteReport struct {
	Deleted int      `json:"deleted"`
	Absent  int      `json:"absent"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// DeleteAll 对每个场景删除给定类别的载荷；单个删除失败只记录，不中断批处理
func DeleteAll(ctx context.Context, s Store, scenes []string, categories []snapshot.Category, logger *slog.Logger) DeleteReport {
	var r DeleteReport
	ctx = WithOperation(ctx)
	for _, scene := range scenes {
		for _, c := range categories {
			err := s.Delete(ctx, c, scene)
			switch {
			case err == nil:
				r.Deleted++
			case apperrors.Is(err, ErrNotFound):
				r.Absent++
			default:
				r.Failed++
				r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", snapshot.FileName(scene, c), err))
				if logger != nil {
					logger.Warn("删除持久化数据失败", "scene", scene, "category", string(c), "error", err)
				}
			}
		}
	}
	return r
}
