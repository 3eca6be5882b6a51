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

// Package slots 命名存档槽：把某个场景的完整存档载荷打包成 <SavedGames>/<name>.json，
// 之后可整体写回存储再读档。
package slots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"worldsave/internal/snapshot"
	"worldsave/internal/store"
	"worldsave/pkg/config"
	apperrors "worldsave/pkg/errors"
)

const (
	defaultDirName = "SavedGames"
	slotExt        = ".json"
	maxNameLen     = 64
)

// ErrInvalidName 槽名为空、过长或包含路径字符
var ErrInvalidName = fmt.Errorf("slots: name %w", apperrors.ErrInvalidArg)

// ErrInvalidScene 槽记录的场景名为空或包含路径字符
var ErrInvalidScene = fmt.Errorf("slots: scene %w", apperrors.ErrInvalidArg)

// Slot 槽文件内容
type Slot struct {
	Name     string                                `json:"name"`
	Scene    string                                `json:"scene"`
	SavedAt  time.Time                             `json:"saved_at"`
	Payloads map[snapshot.Category]json.RawMessage `json:"payloads"`
}

// Info 槽摘要
type Info struct {
	Name       string    `json:"name"`
	Scene      string    `json:"scene"`
	SavedAt    time.Time `json:"saved_at"`
	Categories int       `json:"categories"`
}

func (s *Slot) info() Info {
	return Info{Name: s.Name, Scene: s.Scene, SavedAt: s.SavedAt, Categories: len(s.Payloads)}
}

// Manager 存档槽管理
type Manager struct {
	save    config.SaveConfig
	dirName string
	store   store.Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager 创建存档槽管理器；槽目录与存档目录同根
func NewManager(save config.SaveConfig, sc config.SlotsConfig, st store.Store, logger *slog.Logger) *Manager {
	dirName := sc.DirName
	if dirName == "" {
		dirName = defaultDirName
	}
	return &Manager{save: save, dirName: dirName, store: st, logger: logger, now: time.Now}
}

// Dir 槽目录，必要时创建
func (m *Manager) Dir() string {
	return store.ResolveDir(m.save, m.dirName, m.logger)
}

// ValidName 槽名是否合法
func ValidName(name string) bool {
	if name == "" || len(name) > maxNameLen || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\:*?"<>|`)
}

func (m *Manager) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(m.Dir(), name+slotExt), nil
}

// Exists 槽是否存在
func (m *Manager) Exists(name string) bool {
	p, err := m.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Save 把 scene 当前的完整存档载荷打包成槽；同名槽存在且 overwrite 为 false 时返回 ErrSlotExists
func (m *Manager) Save(ctx context.Context, name, scene string, overwrite bool) (Info, error) {
	p, err := m.path(name)
	if err != nil {
		return Info{}, err
	}
	if !snapshot.ValidScene(scene) {
		return Info{}, fmt.Errorf("%w: %q", ErrInvalidScene, scene)
	}
	if !overwrite {
		if _, err := os.Stat(p); err == nil {
			return Info{}, fmt.Errorf("slots: %q: %w", name, apperrors.ErrSlotExists)
		}
	}

	ctx = store.WithOperation(ctx)
	slot := &Slot{Name: name, Scene: scene, SavedAt: m.now().UTC(), Payloads: make(map[snapshot.Category]json.RawMessage)}
	for _, c := range snapshot.FullCategories() {
		data, err := m.store.Read(ctx, c, scene)
		if apperrors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return Info{}, fmt.Errorf("slots: read %s: %w", snapshot.FileName(scene, c), err)
		}
		if !json.Valid(data) {
			m.logger.Warn("载荷不是合法 JSON，未写入存档槽", "slot", name, "scene", scene, "category", string(c))
			continue
		}
		slot.Payloads[c] = json.RawMessage(data)
	}
	if len(slot.Payloads) == 0 {
		return Info{}, fmt.Errorf("slots: scene %q has no saved data: %w", scene, apperrors.ErrNotFound)
	}

	data, err := json.MarshalIndent(slot, "", "  ")
	if err != nil {
		return Info{}, err
	}
	if err := store.WriteFileAtomic(p, data); err != nil {
		return Info{}, err
	}
	m.logger.Info("存档槽已保存", "slot", name, "scene", scene, "categories", len(slot.Payloads))
	return slot.info(), nil
}

func (m *Manager) read(name string) (*Slot, error) {
	p, err := m.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("slots: %q: %w", name, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var slot Slot
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, fmt.Errorf("slots: decode %q: %w", name, err)
	}
	if slot.Name == "" {
		slot.Name = name
	}
	return &slot, nil
}

// List 列出全部槽，最新的在前；无法解析的文件被跳过
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != slotExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), slotExt)
		slot, err := m.read(name)
		if err != nil {
			m.logger.Warn("跳过无法读取的存档槽", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, slot.info())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Delete 删除槽
func (m *Manager) Delete(name string) error {
	p, err := m.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("slots: %q: %w", name, apperrors.ErrNotFound)
	}
	return err
}

// Restore 把槽中的载荷写回存储并返回槽所属场景；槽中缺少的类别会从存储中删除，
// 避免与旧数据混合。accept 非空时在任何写入之前校验槽的场景
func (m *Manager) Restore(ctx context.Context, name string, accept func(scene string) error) (Info, error) {
	slot, err := m.read(name)
	if err != nil {
		return Info{}, err
	}
	if !snapshot.ValidScene(slot.Scene) {
		return Info{}, fmt.Errorf("%w: slot %q scene %q", ErrInvalidScene, name, slot.Scene)
	}
	if accept != nil {
		if err := accept(slot.Scene); err != nil {
			return Info{}, err
		}
	}
	ctx = store.WithOperation(ctx)
	for _, c := range snapshot.FullCategories() {
		payload, ok := slot.Payloads[c]
		if !ok {
			if err := m.store.Delete(ctx, c, slot.Scene); err != nil && !apperrors.Is(err, store.ErrNotFound) {
				return Info{}, err
			}
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, payload); err != nil {
			return Info{}, fmt.Errorf("slots: %s payload: %w", c, err)
		}
		if err := m.store.Write(ctx, c, slot.Scene, compact.Bytes()); err != nil {
			return Info{}, fmt.Errorf("slots: write %s: %w", snapshot.FileName(slot.Scene, c), err)
		}
	}
	m.logger.Info("存档槽已写回", "slot", name, "scene", slot.Scene)
	return slot.info(), nil
}
