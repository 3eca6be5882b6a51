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

package persist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"worldsave/internal/codec"
	"worldsave/internal/snapshot"
	"worldsave/internal/store"
	"worldsave/internal/world"
	"worldsave/pkg/metrics"
	"worldsave/pkg/tracing"
)

var errNoPlayer = errors.New("persist: no player in scene")

// Writer 遍历活动场景，按类别编码并写入存储
type Writer struct {
	store  store.Store
	logger *slog.Logger
}

// NewWriter 创建 Writer
func NewWriter(st store.Store, logger *slog.Logger) *Writer {
	return &Writer{store: st, logger: logger}
}

// encodeFunc 采集并编码一个类别，返回载荷、采集到的实体数与被跳过的实体
type encodeFunc func() ([]byte, int, []Skip, error)

// SaveAll 完整存档：玩家、角色、背包、散落物品、容器。各类别分别写入，不做跨类别回滚
func (w *Writer) SaveAll(ctx context.Context, env Env, scene string) *Report {
	steps := []struct {
		category snapshot.Category
		encode   encodeFunc
	}{
		{snapshot.PlayerData, func() ([]byte, int, []Skip, error) {
			s, ok := CapturePlayer(env.Registry)
			if !ok {
				return nil, 0, nil, errNoPlayer
			}
			data, err := codec.EncodePlayer(s)
			return data, 1, nil, err
		}},
		{snapshot.CharactersData, func() ([]byte, int, []Skip, error) {
			s := CaptureCharacters(env.Registry)
			data, err := codec.EncodeCharacters(s)
			return data, len(s.Characters) + len(s.Hostiles), nil, err
		}},
		{snapshot.InventoryData, func() ([]byte, int, []Skip, error) {
			s := CaptureInventory(env.Registry, env.Weapons)
			data, err := codec.EncodeInventory(s)
			return data, len(s.Items), nil, err
		}},
		{snapshot.ItemsLevelData, w.sceneItems(env)},
		{snapshot.LootboxData, w.containers(env)},
	}
	return w.run(ctx, OpSave, scene, len(steps), func(ctx context.Context, r *Report) {
		for _, st := range steps {
			r.add(w.save(ctx, OpSave, scene, st.category, st.encode))
		}
	})
}

// SaveLevel 关卡持久化：只保存散落物品与容器
func (w *Writer) SaveLevel(ctx context.Context, env Env, scene string) *Report {
	return w.run(ctx, OpSaveLevel, scene, 2, func(ctx context.Context, r *Report) {
		r.add(w.save(ctx, OpSaveLevel, scene, snapshot.PersistenceItems, w.sceneItems(env)))
		r.add(w.save(ctx, OpSaveLevel, scene, snapshot.PersistenceLoot, w.containers(env)))
	})
}

func (w *Writer) run(ctx context.Context, op, scene string, n int, body func(ctx context.Context, r *Report)) *Report {
	started := time.Now()
	r := newReport(op, scene)
	r.Categories = make([]CategoryResult, 0, n)
	ctx = store.WithOperation(ctx)
	ctx, span := tracing.StartOperationSpan(ctx, op, scene, r.ID)
	body(ctx, r)
	r.finish()
	span.End()
	metrics.ObserveOperation(op, r.Outcome(), started)
	w.logger.Info("存档完成", "op", op, "scene", scene, "id", r.ID, "failed", r.FailedCount(),
		"elapsed", r.FinishedAt.Sub(r.StartedAt))
	return r
}

func (w *Writer) sceneItems(env Env) encodeFunc {
	return func() ([]byte, int, []Skip, error) {
		s, skips := CaptureSceneItems(env.Registry)
		data, err := codec.EncodeSceneItems(s)
		return data, len(s.Items), skips, err
	}
}

func (w *Writer) containers(env Env) encodeFunc {
	return func() ([]byte, int, []Skip, error) {
		s, skips := CaptureContainers(env.Registry)
		data, err := codec.EncodeContainers(s)
		return data, len(s.Containers), skips, err
	}
}

func (w *Writer) save(ctx context.Context, op, scene string, c snapshot.Category, encode encodeFunc) CategoryResult {
	return runCategory(ctx, w.logger, op, scene, c, func(ctx context.Context) CategoryResult {
		data, n, skips, err := encode()
		logSkips(w.logger, scene, c, skips)
		if errors.Is(err, errNoPlayer) {
			return CategoryResult{Status: StatusAbsent}
		}
		if err != nil {
			w.logger.Error("编码快照失败", "scene", scene, "category", string(c), "error", err)
			return failed(err)
		}
		if err := w.store.Write(ctx, c, scene, data); err != nil {
			w.logger.Error("写入快照失败", "scene", scene, "category", string(c), "error", err)
			return failed(err)
		}
		metrics.PayloadBytes.WithLabelValues(string(c)).Observe(float64(len(data)))
		return CategoryResult{Status: StatusOK, Entities: n, Skipped: len(skips), Bytes: len(data)}
	})
}

// CapturePlayer 采集玩家数值、位置与视角
func CapturePlayer(reg world.Registry) (snapshot.PlayerSnapshot, bool) {
	p, ok := reg.Player()
	if !ok {
		return snapshot.PlayerSnapshot{}, false
	}
	tr := p.Transform()
	return snapshot.PlayerSnapshot{
		Stats:          p.Stats(),
		Position:       tr.Position,
		Rotation:       tr.Rotation,
		CameraRotation: p.CameraRotation(),
		Look:           p.Look(),
	}, true
}

// CaptureCharacters 采集全部友方角色与敌对单位
func CaptureCharacters(reg world.Registry) snapshot.CharacterSnapshot {
	var s snapshot.CharacterSnapshot
	for _, c := range reg.Characters() {
		tr := c.Transform()
		s.Characters = append(s.Characters, snapshot.CharacterEntry{
			Template:      c.TemplateName(),
			Position:      tr.Position,
			Rotation:      tr.Rotation,
			CurrentTarget: c.CurrentTarget(),
			LookAt:        c.LookTarget(),
		})
	}
	for _, h := range reg.Hostiles() {
		tr := h.Transform()
		s.Hostiles = append(s.Hostiles, snapshot.HostileEntry{Position: tr.Position, Rotation: tr.Rotation, Wary: h.Wary()})
	}
	return s
}

// CaptureInventory 采集背包内容与当前激活的武器栏位
func CaptureInventory(reg world.Registry, weapons world.WeaponManager) snapshot.InventorySnapshot {
	s := snapshot.InventorySnapshot{ActiveWeaponSlot: snapshot.NoActiveWeapon}
	if weapons != nil {
		s.ActiveWeaponSlot = weapons.ActiveSlot()
	}
	inv := reg.Inventory()
	if inv == nil {
		return s
	}
	for _, e := range inv.Entries() {
		s.Items = append(s.Items, snapshot.InventoryEntry{
			Template:  e.Item.Title(),
			StackSize: e.Item.StackSize(),
			GridX:     e.X,
			GridY:     e.Y,
		})
	}
	return s
}

// CaptureSceneItems 采集处于激活状态的散落物品；已禁用或已拾取的物品不在其中
func CaptureSceneItems(reg world.Registry) (snapshot.SceneItemSnapshot, []Skip) {
	var s snapshot.SceneItemSnapshot
	var skips []Skip
	for _, it := range reg.WorldItems() {
		if !it.Active() {
			continue
		}
		if it.Title() == "" {
			skips = append(skips, Skip{Reason: ReasonEmptyName})
			continue
		}
		tr := it.Transform()
		s.Items = append(s.Items, snapshot.SceneItemEntry{
			Template:  it.Title(),
			Position:  tr.Position,
			Rotation:  tr.Rotation,
			StackSize: it.StackSize(),
		})
	}
	return s, skips
}

// CaptureContainers 采集容器内容；名称为空或含分隔符的容器/物品无法编码，被跳过
func CaptureContainers(reg world.Registry) (snapshot.ContainerSnapshot, []Skip) {
	var s snapshot.ContainerSnapshot
	var skips []Skip
	for _, c := range reg.Containers() {
		if !encodableName(c.Name()) {
			skips = append(skips, Skip{Template: c.Name(), Reason: ReasonInvalidName})
			continue
		}
		entry := snapshot.ContainerEntry{Name: c.Name()}
		for _, it := range c.Items() {
			if !encodableName(it.Title()) {
				skips = append(skips, Skip{Template: it.Title(), Reason: ReasonInvalidName})
				continue
			}
			entry.Items = append(entry.Items, snapshot.ContainerItem{Template: it.Title(), StackSize: it.StackSize()})
		}
		s.Containers = append(s.Containers, entry)
	}
	return s, skips
}

func encodableName(s string) bool {
	return s != "" && !strings.Contains(s, codec.Separator)
}
