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

// Package memworld 内存版世界：实现 world 包中全部协作方接口，供测试与 cmd/api 宿主使用。
// 实体方法本身不加锁，调用方需通过控制器串行访问；Host 只保护场景表与异步操作。
package memworld

import (
	"sort"

	"worldsave/internal/world"
)

// Catalog 资源库：名称 -> 模板
type Catalog struct {
	characters map[string]world.Template
	items      map[string]world.Template
	hostile    *world.Template
}

// NewCatalog 创建空资源库
func NewCatalog() *Catalog {
	return &Catalog{
		characters: make(map[string]world.Template),
		items:      make(map[string]world.Template),
	}
}

// AddCharacter 注册友方角色模板
func (c *Catalog) AddCharacter(name string) *Catalog {
	c.characters[name] = world.Template{Name: name, Kind: world.KindCharacter}
	return c
}

// AddItem 注册物品模板；defaultStack <= 0 时按 1 处理
func (c *Catalog) AddItem(name string, defaultStack int, weapon bool) *Catalog {
	if defaultStack <= 0 {
		defaultStack = 1
	}
	c.items[name] = world.Template{Name: name, Kind: world.KindItem, DefaultStack: defaultStack, Weapon: weapon}
	return c
}

// SetHostile 设置敌对单位模板
func (c *Catalog) SetHostile(name string) *Catalog {
	c.hostile = &world.Template{Name: name, Kind: world.KindHostile}
	return c
}

// RemoveItem 从资源库删除物品模板（模拟资源被移除）
func (c *Catalog) RemoveItem(name string) {
	delete(c.items, name)
}

// RemoveCharacter 从资源库删除角色模板
func (c *Catalog) RemoveCharacter(name string) {
	delete(c.characters, name)
}

func (c *Catalog) ResolveCharacter(name string) (world.Template, bool) {
	t, ok := c.characters[name]
	return t, ok
}

func (c *Catalog) ResolveItem(name string) (world.Template, bool) {
	t, ok := c.items[name]
	return t, ok
}

func (c *Catalog) ResolveHostile() (world.Template, bool) {
	if c.hostile == nil {
		return world.Template{}, false
	}
	return *c.hostile, true
}

// ItemNames 已注册物品名（有序）
func (c *Catalog) ItemNames() []string {
	return sortedKeys(c.items)
}

// CharacterNames 已注册角色名（有序）
func (c *Catalog) CharacterNames() []string {
	return sortedKeys(c.characters)
}

func sortedKeys(m map[string]world.Template) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
