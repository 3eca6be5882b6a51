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
	"fmt"
	"log/slog"
	"time"

	"worldsave/internal/codec"
	"worldsave/internal/snapshot"
	"worldsave/internal/store"
	"worldsave/internal/world"
	apperrors "worldsave/pkg/errors"
	"worldsave/pkg/metrics"
	"worldsave/pkg/tracing"
)

// Reader 读取各类别载荷并按固定顺序重建：玩家 -> 角色 -> 背包 -> 散落物品 -> 容器
type Reader struct {
	store  store.Store
	logger *slog.Logger
}

// NewReader 创建 Reader
func NewReader(st store.Store, logger *slog.Logger) *Reader {
	return &Reader{store: st, logger: logger}
}

// LoadAll 完整读档。应在场景刚重新加载后调用
func (r *Reader) LoadAll(ctx context.Context, env Env, scene string) *Report {
	return r.run(ctx, OpLoad, scene, func(ctx context.Context, rep *Report) {
		rep.add(r.loadPlayer(ctx, env, scene))
		rep.add(r.loadCharacters(ctx, env, scene))
		rep.add(r.loadInventory(ctx, env, scene))
		rep.add(r.loadSceneItems(ctx, OpLoad, env, scene, snapshot.ItemsLevelData))
		rep.add(r.loadContainers(ctx, OpLoad, env, scene, snapshot.LootboxData))
	})
}

// LoadLevel 关卡持久化恢复：只处理散落物品与容器
func (r *Reader) LoadLevel(ctx context.Context, env Env, scene string) *Report {
	return r.run(ctx, OpLoadLevel, scene, func(ctx context.Context, rep *Report) {
		rep.add(r.loadSceneItems(ctx, OpLoadLevel, env, scene, snapshot.PersistenceItems))
		rep.add(r.loadContainers(ctx, OpLoadLevel, env, scene, snapshot.PersistenceLoot))
	})
}

func (r *Reader) run(ctx context.Context, op, scene string, body func(ctx context.Context, rep *Report)) *Report {
	started := time.Now()
	rep := newReport(op, scene)
	ctx = store.WithOperation(ctx)
	ctx, span := tracing.StartOperationSpan(ctx, op, scene, rep.ID)
	body(ctx, rep)
	rep.finish()
	span.End()
	metrics.ObserveOperation(op, rep.Outcome(), started)
	r.logger.Info("读档完成", "op", op, "scene", scene, "id", rep.ID, "failed", rep.FailedCount(),
		"elapsed", rep.FinishedAt.Sub(rep.StartedAt))
	return rep
}

// fetch 读取载荷；文件不存在返回 absent，读失败返回 failed，二者 ok 均为 false
func (r *Reader) fetch(ctx context.Context, c snapshot.Category, scene string) ([]byte, CategoryResult, bool) {
	data, err := r.store.Read(ctx, c, scene)
	if apperrors.Is(err, store.ErrNotFound) {
		r.logger.Debug("无存档数据", "scene", scene, "category", string(c))
		return nil, CategoryResult{Status: StatusAbsent}, false
	}
	if err != nil {
		r.logger.Error("读取快照失败", "scene", scene, "category", string(c), "error", err)
		return nil, failed(err), false
	}
	return data, CategoryResult{}, true
}

func (r *Reader) decodeFailed(scene string, c snapshot.Category, err error) CategoryResult {
	r.logger.Error("解码快照失败", "scene", scene, "category", string(c), "error", err)
	return failed(err)
}

func (r *Reader) loadPlayer(ctx context.Context, env Env, scene string) CategoryResult {
	return runCategory(ctx, r.logger, OpLoad, scene, snapshot.PlayerData, func(ctx context.Context) CategoryResult {
		data, res, ok := r.fetch(ctx, snapshot.PlayerData, scene)
		if !ok {
			return res
		}
		s, err := codec.DecodePlayer(data)
		if err != nil {
			return r.decodeFailed(scene, snapshot.PlayerData, err)
		}
		p, ok := env.Registry.Player()
		if !ok {
			r.logger.Warn("场景中没有玩家对象，跳过玩家数据", "scene", scene)
			return failed(errNoPlayer)
		}
		ApplyPlayer(p, s)
		return CategoryResult{Status: StatusOK, Entities: 1, Bytes: len(data)}
	})
}

// 角色在载荷缺失时也会被全部清除
func (r *Reader) loadCharacters(ctx context.Context, env Env, scene string) CategoryResult {
	return runCategory(ctx, r.logger, OpLoad, scene, snapshot.CharactersData, func(ctx context.Context) CategoryResult {
		cleared := ClearCharacters(env.Registry)
		data, res, ok := r.fetch(ctx, snapshot.CharactersData, scene)
		if !ok {
			res.Cleared = cleared
			return res
		}
		s, err := codec.DecodeCharacters(data)
		if err != nil {
			res := r.decodeFailed(scene, snapshot.CharactersData, err)
			res.Cleared = cleared
			return res
		}
		n, skips := PopulateCharacters(env, s)
		logSkips(r.logger, scene, snapshot.CharactersData, skips)
		return CategoryResult{Status: StatusOK, Cleared: cleared, Entities: n, Skipped: len(skips), Bytes: len(data)}
	})
}

func (r *Reader) loadInventory(ctx context.Context, env Env, scene string) CategoryResult {
	return runCategory(ctx, r.logger, OpLoad, scene, snapshot.InventoryData, func(ctx context.Context) CategoryResult {
		data, res, ok := r.fetch(ctx, snapshot.InventoryData, scene)
		if !ok {
			return res
		}
		s, err := codec.DecodeInventory(data)
		if err != nil {
			return r.decodeFailed(scene, snapshot.InventoryData, err)
		}
		if env.Registry.Inventory() == nil {
			return failed(errors.New("persist: scene has no inventory"))
		}
		if x, y, dup := s.DuplicateCell(); dup {
			r.logger.Warn("背包快照中存在重复格子", "scene", scene, "x", x, "y", y)
		}
		cleared := ClearInventory(env.Registry)
		n, skips := PopulateInventory(env, s)
		logSkips(r.logger, scene, snapshot.InventoryData, skips)
		return CategoryResult{Status: StatusOK, Cleared: cleared, Entities: n, Skipped: len(skips), Bytes: len(data)}
	})
}

func (r *Reader) loadSceneItems(ctx context.Context, op string, env Env, scene string, c snapshot.Category) CategoryResult {
	return runCategory(ctx, r.logger, op, scene, c, func(ctx context.Context) CategoryResult {
		data, res, ok := r.fetch(ctx, c, scene)
		if !ok {
			return res
		}
		s, err := codec.DecodeSceneItems(data)
		if err != nil {
			return r.decodeFailed(scene, c, err)
		}
		cleared := ClearSceneItems(env.Registry)
		n, skips := PopulateSceneItems(env, s)
		logSkips(r.logger, scene, c, skips)
		return CategoryResult{Status: StatusOK, Cleared: cleared, Entities: n, Skipped: len(skips), Bytes: len(data)}
	})
}

func (r *Reader) loadContainers(ctx context.Context, op string, env Env, scene string, c snapshot.Category) CategoryResult {
	return runCategory(ctx, r.logger, op, scene, c, func(ctx context.Context) CategoryResult {
		data, res, ok := r.fetch(ctx, c, scene)
		if !ok {
			return res
		}
		s, err := codec.DecodeContainers(data)
		if err != nil {
			return r.decodeFailed(scene, c, err)
		}
		cleared := ClearContainers(env.Registry, s)
		n, skips := PopulateContainers(env, s)
		logSkips(r.logger, scene, c, skips)
		missing := 0
		for _, sk := range skips {
			if sk.Reason == ReasonContainerMissing {
				missing++
			}
		}
		return CategoryResult{Status: StatusOK, Cleared: cleared, Entities: n, Skipped: len(skips) - missing, Bytes: len(data)}
	})
}

// ApplyPlayer 把快照直接覆盖到已存在的玩家对象上
func ApplyPlayer(p world.Player, s snapshot.PlayerSnapshot) {
	p.SetStats(s.Stats)
	p.SetLook(s.Look)
	p.SetTransform(world.Transform{Position: s.Position, Rotation: s.Rotation})
	p.SetCameraRotation(s.CameraRotation)
}

// ClearCharacters 销毁全部友方与敌对单位，返回销毁数量
func ClearCharacters(reg world.Registry) int {
	n := 0
	for _, c := range reg.Characters() {
		reg.Destroy(c)
		n++
	}
	for _, h := range reg.Hostiles() {
		reg.Destroy(h)
		n++
	}
	return n
}

// PopulateCharacters 按快照生成角色；放置期间关闭寻路以免被导航系统拉回
func PopulateCharacters(env Env, s snapshot.CharacterSnapshot) (int, []Skip) {
	reg := env.Registry
	restored := 0
	var skips []Skip
	for _, e := range s.Characters {
		t, ok := env.Resolver.ResolveCharacter(e.Template)
		if !ok {
			skips = append(skips, Skip{Template: e.Template, Reason: ReasonTemplateNotFound, Err: apperrors.ErrTemplateNotFound})
			continue
		}
		err := guard(func() error {
			c, err := reg.SpawnCharacter(t)
			if err != nil {
				return err
			}
			c.SetNavigationEnabled(false)
			c.SetTransform(world.Transform{Position: e.Position, Rotation: e.Rotation})
			c.SetLookTarget(e.LookAt)
			c.SetNavigationEnabled(true)
			return nil
		})
		if err != nil {
			skips = append(skips, Skip{Template: e.Template, Reason: ReasonSpawnFailed, Err: err})
			continue
		}
		restored++
	}

	if len(s.Hostiles) == 0 {
		return restored, skips
	}
	t, ok := env.Resolver.ResolveHostile()
	if !ok {
		for range s.Hostiles {
			skips = append(skips, Skip{Reason: ReasonTemplateNotFound, Err: apperrors.ErrTemplateNotFound})
		}
		return restored, skips
	}
	for _, e := range s.Hostiles {
		err := guard(func() error {
			h, err := reg.SpawnHostile(t)
			if err != nil {
				return err
			}
			h.SetNavigationEnabled(false)
			h.SetTransform(world.Transform{Position: e.Position, Rotation: e.Rotation})
			h.SetWary(e.Wary)
			h.SetNavigationEnabled(true)
			return nil
		})
		if err != nil {
			skips = append(skips, Skip{Template: t.Name, Reason: ReasonSpawnFailed, Err: err})
			continue
		}
		restored++
	}
	return restored, skips
}

// ClearInventory 清空背包，返回清除的物品数
func ClearInventory(reg world.Registry) int {
	inv := reg.Inventory()
	if inv == nil {
		return 0
	}
	n := len(inv.Entries())
	inv.Clear()
	return n
}

// PopulateInventory 在自动装备关闭的情况下把物品放回记录的格子，恢复装备栏关联，
// 最后激活记录的武器栏位
func PopulateInventory(env Env, s snapshot.InventorySnapshot) (int, []Skip) {
	reg := env.Registry
	inv := reg.Inventory()
	restored := 0
	var skips []Skip
	_ = BulkInsert(inv, func() error {
		for _, e := range s.Items {
			t, ok := env.Resolver.ResolveItem(e.Template)
			if !ok {
				skips = append(skips, Skip{Template: e.Template, Reason: ReasonTemplateNotFound, Err: apperrors.ErrTemplateNotFound})
				continue
			}
			reason := ReasonSpawnFailed
			err := guard(func() error {
				it, err := reg.SpawnItem(t)
				if err != nil {
					return err
				}
				if e.StackSize >= 0 {
					it.SetStackSize(e.StackSize)
				}
				if err := inv.Insert(it, e.GridX, e.GridY); err != nil {
					reg.Destroy(it)
					reason = ReasonInsertFailed
					return err
				}
				if slot, ok := inv.EquipSlotAt(e.GridX, e.GridY); ok {
					slot.SetEquipped(it)
				}
				return nil
			})
			if err != nil {
				skips = append(skips, Skip{Template: e.Template, Reason: reason, Err: err})
				continue
			}
			restored++
		}
		if s.ActiveWeaponSlot != snapshot.NoActiveWeapon && env.Weapons != nil {
			env.Weapons.ActivateSlot(s.ActiveWeaponSlot)
		}
		return nil
	})
	return restored, skips
}

// ClearSceneItems 销毁全部散落物品
func ClearSceneItems(reg world.Registry) int {
	n := 0
	for _, it := range reg.WorldItems() {
		reg.Destroy(it)
		n++
	}
	return n
}

// PopulateSceneItems 按记录的位置与堆叠数重新生成散落物品；单条失败只跳过该条
func PopulateSceneItems(env Env, s snapshot.SceneItemSnapshot) (int, []Skip) {
	reg := env.Registry
	restored := 0
	var skips []Skip
	for _, e := range s.Items {
		if e.Template == "" {
			skips = append(skips, Skip{Reason: ReasonEmptyName})
			continue
		}
		t, ok := env.Resolver.ResolveItem(e.Template)
		if !ok {
			skips = append(skips, Skip{Template: e.Template, Reason: ReasonTemplateNotFound, Err: apperrors.ErrTemplateNotFound})
			continue
		}
		err := guard(func() error {
			it, err := reg.SpawnItem(t)
			if err != nil {
				return err
			}
			it.SetTransform(world.Transform{Position: e.Position, Rotation: e.Rotation})
			if e.StackSize >= 0 {
				it.SetStackSize(e.StackSize)
			}
			return nil
		})
		if err != nil {
			skips = append(skips, Skip{Template: e.Template, Reason: ReasonSpawnFailed, Err: err})
			continue
		}
		restored++
	}
	return restored, skips
}

// ClearContainers 清空快照中出现过名称的场景容器，返回清空的容器数
func ClearContainers(reg world.Registry, s snapshot.ContainerSnapshot) int {
	names := make(map[string]bool, len(s.Containers))
	for _, e := range s.Containers {
		names[e.Name] = true
	}
	n := 0
	for _, c := range reg.Containers() {
		if names[c.Name()] {
			c.Clear()
			n++
		}
	}
	return n
}

// PopulateContainers 按名称匹配场景容器并放回物品（物品保持禁用，不在场景中可见）；
// 场景中已不存在的容器被忽略
func PopulateContainers(env Env, s snapshot.ContainerSnapshot) (int, []Skip) {
	reg := env.Registry
	byName := make(map[string][]world.Container)
	for _, c := range reg.Containers() {
		byName[c.Name()] = append(byName[c.Name()], c)
	}
	restored := 0
	var skips []Skip
	for _, entry := range s.Containers {
		boxes := byName[entry.Name]
		if len(boxes) == 0 {
			skips = append(skips, Skip{Template: entry.Name, Reason: ReasonContainerMissing})
			continue
		}
		for _, box := range boxes {
			for _, ci := range entry.Items {
				t, ok := env.Resolver.ResolveItem(ci.Template)
				if !ok {
					skips = append(skips, Skip{Template: ci.Template, Reason: ReasonTemplateNotFound, Err: apperrors.ErrTemplateNotFound})
					continue
				}
				err := guard(func() error {
					it, err := reg.SpawnItem(t)
					if err != nil {
						return err
					}
					it.SetActive(false)
					if ci.StackSize >= 0 {
						it.SetStackSize(ci.StackSize)
					}
					box.Add(it)
					return nil
				})
				if err != nil {
					skips = append(skips, Skip{Template: ci.Template, Reason: ReasonSpawnFailed, Err: fmt.Errorf("container %s: %w", entry.Name, err)})
					continue
				}
				restored++
			}
		}
	}
	return restored, skips
}
