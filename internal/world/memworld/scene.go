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

	"worldsave/internal/world"
)

// Placement 角色摆放
type Placement struct {
	Template  string
	Transform world.Transform
	Look      world.Vec3
}

// HostilePlacement 敌对单位摆放
type HostilePlacement struct {
	Transform world.Transform
	Wary      bool
}

// ItemPlacement 散落物品摆放；Stack <= 0 使用模板默认值
type ItemPlacement struct {
	Template  string
	Transform world.Transform
	Stack     int
	Disabled  bool
}

// Stack 容器内的一组物品
type Stack struct {
	Template string
	Count    int
}

// ContainerPlacement 容器及其初始内容
type ContainerPlacement struct {
	Name  string
	Items []Stack
}

// Blueprint 场景从磁盘加载后的初始状态
type Blueprint struct {
	Characters []Placement
	Hostiles   []HostilePlacement
	Items      []ItemPlacement
	Containers []ContainerPlacement
}

// Scene 一个已加载场景的实体集合，实现 world.Registry
type Scene struct {
	name       string
	host       *Host
	characters []*Character
	hostiles   []*Hostile
	items      []*Item
	containers []*Container
}

var _ world.Registry = (*Scene)(nil)

// Name 场景名
func (s *Scene) Name() string { return s.name }

func (s *Scene) Player() (world.Player, bool) {
	if s.host == nil || s.host.player == nil {
		return nil, false
	}
	return s.host.player, true
}

func (s *Scene) Characters() []world.Character {
	out := make([]world.Character, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, c)
	}
	return out
}

func (s *Scene) Hostiles() []world.Hostile {
	out := make([]world.Hostile, 0, len(s.hostiles))
	for _, h := range s.hostiles {
		out = append(out, h)
	}
	return out
}

func (s *Scene) WorldItems() []world.Item {
	out := make([]world.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	return out
}

func (s *Scene) Containers() []world.Container {
	out := make([]world.Container, 0, len(s.containers))
	for _, c := range s.containers {
		out = append(out, c)
	}
	return out
}

func (s *Scene) Inventory() world.Inventory {
	if s.host == nil {
		return nil
	}
	return s.host.inventory
}

// Container 按名称查找容器
func (s *Scene) Container(name string) (*Container, bool) {
	for _, c := range s.containers {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

func (s *Scene) SpawnCharacter(t world.Template) (world.Character, error) {
	if t.Kind != world.KindCharacter {
		return nil, fmt.Errorf("memworld: template %q is not a character", t.Name)
	}
	c := &Character{id: s.host.nextID("npc"), template: t.Name, tr: world.Transform{Rotation: world.Identity}}
	c.nav = true
	s.characters = append(s.characters, c)
	return c, nil
}

func (s *Scene) SpawnHostile(t world.Template) (world.Hostile, error) {
	if t.Kind != world.KindHostile {
		return nil, fmt.Errorf("memworld: template %q is not a hostile", t.Name)
	}
	h := &Hostile{id: s.host.nextID("hostile"), tr: world.Transform{Rotation: world.Identity}}
	h.nav = true
	s.hostiles = append(s.hostiles, h)
	return h, nil
}

func (s *Scene) SpawnItem(t world.Template) (world.Item, error) {
	if t.Kind != world.KindItem {
		return nil, fmt.Errorf("memworld: template %q is not an item", t.Name)
	}
	it := &Item{
		id:     s.host.nextID("item"),
		title:  t.Name,
		stack:  t.DefaultStack,
		weapon: t.Weapon,
		tr:     world.Transform{Rotation: world.Identity},
		active: true,
		scene:  s,
	}
	s.items = append(s.items, it)
	return it, nil
}

// Destroy 销毁实体；同时在容器与背包中查找
func (s *Scene) Destroy(e world.Entity) {
	if e == nil {
		return
	}
	id := e.ID()
	for i, c := range s.characters {
		if c.id == id {
			s.characters = append(s.characters[:i], s.characters[i+1:]...)
			return
		}
	}
	for i, h := range s.hostiles {
		if h.id == id {
			s.hostiles = append(s.hostiles[:i], s.hostiles[i+1:]...)
			return
		}
	}
	for _, it := range s.items {
		if it.id == id {
			s.removeItem(it)
			it.scene = nil
			return
		}
	}
	for _, c := range s.containers {
		for i, it := range c.items {
			if it.ID() == id {
				c.items = append(c.items[:i], c.items[i+1:]...)
				return
			}
		}
	}
	if s.host != nil && s.host.inventory != nil {
		s.host.inventory.remove(id)
	}
}

func (s *Scene) removeItem(target *Item) {
	for i, it := range s.items {
		if it == target {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// build 按蓝图生成场景，资源库中缺失的模板被忽略
func (s *Scene) build(bp Blueprint, catalog *Catalog) {
	for _, p := range bp.Characters {
		t, ok := catalog.ResolveCharacter(p.Template)
		if !ok {
			continue
		}
		c, _ := s.SpawnCharacter(t)
		c.SetTransform(p.Transform)
		c.SetLookTarget(p.Look)
	}
	if t, ok := catalog.ResolveHostile(); ok {
		for _, p := range bp.Hostiles {
			h, _ := s.SpawnHostile(t)
			h.SetTransform(p.Transform)
			h.SetWary(p.Wary)
		}
	}
	for _, p := range bp.Items {
		t, ok := catalog.ResolveItem(p.Template)
		if !ok {
			continue
		}
		it, _ := s.SpawnItem(t)
		it.SetTransform(p.Transform)
		if p.Stack > 0 {
			it.SetStackSize(p.Stack)
		}
		if p.Disabled {
			it.SetActive(false)
		}
	}
	for _, p := range bp.Containers {
		c := &Container{id: s.host.nextID("container"), name: p.Name}
		for _, st := range p.Items {
			t, ok := catalog.ResolveItem(st.Template)
			if !ok {
				continue
			}
			it, _ := s.SpawnItem(t)
			it.SetActive(false)
			if st.Count > 0 {
				it.SetStackSize(st.Count)
			}
			c.Add(it)
		}
		s.containers = append(s.containers, c)
	}
	for _, c := range s.characters {
		c.Relocations = 0
	}
	for _, h := range s.hostiles {
		h.Relocations = 0
	}
}
