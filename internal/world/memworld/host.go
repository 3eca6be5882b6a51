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

package memworld

import (
	"fmt"
	"sync"
	"sync/atomic"

	"worldsave/internal/world"
)

// Options Host 构造参数
type Options struct {
	Build          []string             // 构建清单
	Blueprints     map[string]Blueprint // 场景初始内容，缺省为空场景
	LoadTicks      int                  // 异步卸载/加载完成所需的 Advance 次数
	InventoryWidth int
	InventoryRows  int
	EquipCells     []Cell // 缺省为最后一行前两格
}

// Host 内存世界宿主：场景表、常驻玩家/背包/武器、异步加载器
type Host struct {
	mu         sync.Mutex
	catalog    *Catalog
	build      []string
	blueprints map[string]Blueprint
	scenes     map[string]*Scene
	active     string
	seq        atomic.Int64

	player    *Player
	inventory *Inventory
	weapons   *Weapons
	loader    *Loader
}

var (
	_ world.PlayerRespawner = (*Host)(nil)
	_ world.SceneLoader     = (*Loader)(nil)
)

// NewHost 创建宿主；场景需通过 Open 或 Loader 加载
func NewHost(catalog *Catalog, opts Options) *Host {
	if opts.InventoryWidth <= 0 {
		opts.InventoryWidth = 8
	}
	if opts.InventoryRows <= 0 {
		opts.InventoryRows = 6
	}
	if len(opts.EquipCells) == 0 {
		last := opts.InventoryRows - 1
		opts.EquipCells = []Cell{{X: 0, Y: last}, {X: 1, Y: last}}
	}
	if opts.Blueprints == nil {
		opts.Blueprints = make(map[string]Blueprint)
	}
	h := &Host{
		catalog:    catalog,
		build:      append([]string(nil), opts.Build...),
		blueprints: opts.Blueprints,
		scenes:     make(map[string]*Scene),
		player:     newPlayer(),
		weapons:    NewWeapons(),
	}
	h.inventory = NewInventory(opts.InventoryWidth, opts.InventoryRows, h.weapons, opts.EquipCells...)
	h.loader = &Loader{host: h, ticks: opts.LoadTicks}
	return h
}

func (h *Host) nextID(kind string) string {
	return fmt.Sprintf("%s-%d", kind, h.seq.Add(1))
}

// Open 同步加载并激活场景（启动时使用）
func (h *Host) Open(scene string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.loadLocked(scene); err != nil {
		return err
	}
	h.active = scene
	return nil
}

func (h *Host) loadLocked(scene string) error {
	if !h.inBuild(scene) {
		return fmt.Errorf("memworld: scene %q not in build manifest", scene)
	}
	s := &Scene{name: scene, host: h}
	s.build(h.blueprints[scene], h.catalog)
	h.scenes[scene] = s
	return nil
}

func (h *Host) inBuild(scene string) bool {
	for _, b := range h.build {
		if b == scene {
			return true
		}
	}
	return false
}

// Registry 返回活动场景；尚无活动场景时返回空场景
func (h *Host) Registry() world.Registry {
	return h.Scene()
}

// Scene 返回活动场景
func (h *Host) Scene() *Scene {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.scenes[h.active]; ok {
		return s
	}
	return &Scene{host: h}
}

func (h *Host) Resolver() world.AssetResolver { return h.catalog }
func (h *Host) Weapons() world.WeaponManager  { return h.weapons }
func (h *Host) Loader() world.SceneLoader     { return h.loader }

// Catalog 资源库
func (h *Host) Catalog() *Catalog { return h.catalog }

// Player 常驻玩家
func (h *Host) Player() *Player { return h.player }

// Inventory 常驻背包
func (h *Host) Inventory() *Inventory { return h.inventory }

// WeaponState 武器管理器具体类型
func (h *Host) WeaponState() *Weapons { return h.weapons }

// Advance 推进一个 tick 的异步场景操作
func (h *Host) Advance() {
	h.loader.Advance()
}

// KillPlayer 标记玩家死亡
func (h *Host) KillPlayer() {
	h.player.stats.Health = 0
	h.player.dead = true
}

func (h *Host) PlayerDead() bool {
	return h.player.dead
}

// RespawnPlayer 以默认数值重新生成玩家
func (h *Host) RespawnPlayer() error {
	h.player = newPlayer()
	return nil
}

// Loader 分阶段的异步场景加载器：每次 Advance 推进全部挂起操作一步
type Loader struct {
	host    *Host
	ticks   int
	pending []*operation
}

type operation struct {
	mu        sync.Mutex
	remaining int
	done      bool
	finish    func()
}

func (o *operation) Done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

func (l *Loader) ActiveScene() string {
	l.host.mu.Lock()
	defer l.host.mu.Unlock()
	return l.host.active
}

func (l *Loader) BuildScenes() []string {
	return append([]string(nil), l.host.build...)
}

func (l *Loader) BeginUnload(scene string) (world.Progress, error) {
	h := l.host
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.scenes[scene]; !ok {
		return nil, fmt.Errorf("memworld: scene %q is not loaded", scene)
	}
	return l.enqueueLocked(func() {
		delete(h.scenes, scene)
		if h.active == scene {
			h.active = ""
		}
	}), nil
}

func (l *Loader) BeginLoad(scene string) (world.Progress, error) {
	h := l.host
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inBuild(scene) {
		return nil, fmt.Errorf("memworld: scene %q not in build manifest", scene)
	}
	return l.enqueueLocked(func() {
		_ = h.loadLocked(scene)
	}), nil
}

func (l *Loader) SetActive(scene string) error {
	h := l.host
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.scenes[scene]; !ok {
		return fmt.Errorf("memworld: scene %q is not loaded", scene)
	}
	h.active = scene
	return nil
}

func (l *Loader) enqueueLocked(finish func()) *operation {
	op := &operation{remaining: l.ticks, finish: finish}
	l.pending = append(l.pending, op)
	return op
}

// Advance 推进挂起操作；完成的操作在宿主锁内执行收尾
func (l *Loader) Advance() {
	h := l.host
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := l.pending[:0]
	for _, op := range l.pending {
		op.remaining--
		if op.remaining > 0 {
			kept = append(kept, op)
			continue
		}
		op.finish()
		op.mu.Lock()
		op.done = true
		op.mu.Unlock()
	}
	l.pending = kept
}

// Pending 未完成的异步操作数
func (l *Loader) Pending() int {
	l.host.mu.Lock()
	defer l.host.mu.Unlock()
	return len(l.pending)
}
