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

import "worldsave/internal/world"

type navigable struct {
	nav bool
}

func (n *navigable) NavigationEnabled() bool { return n.nav }
func (n *navigable) SetNavigationEnabled(on bool) { n.nav = on }

// Character 内存版友方角色
type Character struct {
	navigable
	id       string
	template string
	tr       world.Transform
	current  world.Vec3
	look     world.Vec3

	// Relocations 导航开启状态下被移动的次数
	Relocations int
}

func (c *Character) ID() string { return c.id }
func (c *Character) TemplateName() string { return c.template }
func (c *Character) Transform() world.Transform { return c.tr }
func (c *Character) CurrentTarget() world.Vec3 { return c.current }
func (c *Character) LookTarget() world.Vec3 { return c.look }
func (c *Character) SetLookTarget(v world.Vec3) { c.look = v }

func (c *Character) SetTransform(t world.Transform) {
	if c.nav {
		c.Relocations++
	}
	c.tr = t
}

// SetCurrentTarget 设置当前寻路目标
func (c *Character) SetCurrentTarget(v world.Vec3) { c.current = v }

// Hostile 内存版敌对单位
type Hostile struct {
	navigable
	id   string
	tr   world.Transform
	wary bool

	Relocations int
}

func (h *Hostile) ID() string { return h.id }
func (h *Hostile) Transform() world.Transform { return h.tr }
func (h *Hostile) Wary() bool { return h.wary }
func (h *Hostile) SetWary(w bool) { h.wary = w }

func (h *Hostile) SetTransform(t world.Transform) {
	if h.nav {
		h.Relocations++
	}
	h.tr = t
}

// Item 内存版物品；scene 非空表示物品散落在该场景中
type Item struct {
	id     string
	title  string
	stack  int
	weapon bool
	tr     world.Transform
	active bool
	scene  *Scene
}

func (i *Item) ID() string { return i.id }
func (i *Item) Title() string { return i.title }
func (i *Item) StackSize() int { return i.stack }
func (i *Item) SetStackSize(n int) { i.stack = n }
func (i *Item) Transform() world.Transform { return i.tr }
func (i *Item) SetTransform(t world.Transform) { i.tr = t }
func (i *Item) Active() bool { return i.active }
func (i *Item) SetActive(a bool) { i.active = a }

// Weapon 是否为武器
func (i *Item) Weapon() bool { return i.weapon }

// detach 把物品从所在场景的散落列表中移除
func detach(it world.Item) {
	if mi, ok := it.(*Item); ok && mi.scene != nil {
		mi.scene.removeItem(mi)
		mi.scene = nil
	}
}

// Container 内存版战利品容器
type Container struct {
	id    string
	name  string
	items []world.Item
}

func (c *Container) ID() string { return c.id }
func (c *Container) Name() string { return c.name }
func (c *Container) Items() []world.Item { return append([]world.Item(nil), c.items...) }
func (c *Container) Clear() { c.items = nil }

// Add 放入物品，物品随即脱离场景散落列表
func (c *Container) Add(it world.Item) {
	detach(it)
	c.items = append(c.items, it)
}

// Player 内存版玩家
type Player struct {
	stats world.PlayerStats
	tr    world.Transform
	cam   world.Quat
	look  world.LookState
	dead  bool
}

// DefaultStats 新生成玩家的数值
func DefaultStats() world.PlayerStats {
	return world.PlayerStats{
		Health:           100,
		UseConsumeSystem: true,
		Hydration:        100,
		HydrationRate:    0.5,
		ThirstDamage:     1,
		HydrationTimer:   0,
		Satiety:          100,
		SatietyRate:      0.25,
		HungerDamage:     1,
		SatietyTimer:     0,
	}
}

func newPlayer() *Player {
	return &Player{stats: DefaultStats(), tr: world.Transform{Rotation: world.Identity}, cam: world.Identity}
}

func (p *Player) Stats() world.PlayerStats { return p.stats }
func (p *Player) SetStats(s world.PlayerStats) { p.stats = s }
func (p *Player) Transform() world.Transform { return p.tr }
func (p *Player) SetTransform(t world.Transform) { p.tr = t }
func (p *Player) CameraRotation() world.Quat { return p.cam }
func (p *Player) SetCameraRotation(q world.Quat) { p.cam = q }
func (p *Player) Look() world.LookState { return p.look }
func (p *Player) SetLook(l world.LookState) { p.look = l }

// Dead 玩家是否死亡
func (p *Player) Dead() bool { return p.dead }
