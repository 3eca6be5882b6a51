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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"worldsave/internal/snapshot"
	"worldsave/pkg/config"
	apperrors "worldsave/pkg/errors"
)

// FileStore 本地文件存储：<save-root>/<scene>_<category>
type FileStore struct {
	cfg     config.SaveConfig
	atomic  bool
	logger  *slog.Logger
	resolve func() string
}

// NewFileStore 创建文件存储；存档目录在每次操作开始时解析一次，见 WithOperation
func NewFileStore(cfg config.SaveConfig, logger *slog.Logger) *FileStore {
	s := &FileStore{cfg: cfg, atomic: cfg.AtomicWriteEnabled(), logger: logger}
	s.resolve = func() string { return ResolveSaveRoot(s.cfg, s.logger) }
	return s
}

type opKey struct{}

type opRoots struct {
	mu    sync.Mutex
	roots map[*FileStore]string
}

// WithOperation 标记一次存储操作（一次存档、读档、批量删除或存档槽写回）。
// 同一操作内文件存储只解析并创建一次存档目录；已标记的 ctx 原样返回
func WithOperation(ctx context.Context) context.Context {
	if _, ok := ctx.Value(opKey{}).(*opRoots); ok {
		return ctx
	}
	return context.WithValue(ctx, opKey{}, &opRoots{roots: make(map[*FileStore]string)})
}

// Root 当前解析出的存档目录
func (s *FileStore) Root() string {
	return s.resolve()
}

func (s *FileStore) root(ctx context.Context) string {
	op, ok := ctx.Value(opKey{}).(*opRoots)
	if !ok {
		return s.resolve()
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	dir, ok := op.roots[s]
	if !ok {
		dir = s.resolve()
		op.roots[s] = dir
	}
	return dir
}

func (s *FileStore) path(ctx context.Context, category snapshot.Category, scene string) (string, error) {
	if !snapshot.ValidScene(scene) {
		return "", fmt.Errorf("store: scene %q: %w", scene, apperrors.ErrInvalidArg)
	}
	return filepath.Join(s.root(ctx), snapshot.FileName(scene, category)), nil
}

func (s *FileStore) Write(ctx context.Context, category snapshot.Category, scene string, payload []byte) error {
	p, err := s.path(ctx, category, scene)
	if err != nil {
		return err
	}
	if !s.atomic {
		return os.WriteFile(p, payload, 0644)
	}
	return WriteFileAtomic(p, payload)
}

// WriteFileAtomic 写入同目录临时文件后 rename，读者不会看到半写入的内容
func WriteFileAtomic(path string, payload []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("store: rename temp file: %w", err)
	}
	return nil
}

func (s *FileStore) Read(ctx context.Context, category snapshot.Category, scene string) ([]byte, error) {
	p, err := s.path(ctx, category, scene)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FileStore) Delete(ctx context.Context, category snapshot.Category, scene string) error {
	p, err := s.path(ctx, category, scene)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Close() error { return nil }
