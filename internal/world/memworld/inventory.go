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

// Cell 背包网格坐标
type Cell struct {
	X int
	Y int
}

type equipSlot struct {
	index int
	item  world.Item
}

func (s *equipSlot) Equipped() world.Item        { return s.item }
func (s *equipSlot) SetEquipped(item world.Item) { s.item = item }

// Inventory 网格背包，每个物品占一格；与玩家一起跨场景常驻
type Inventory struct {
	width     int
	height    int
	entries   []world.InventoryEntry
	equip     map[Cell]*equipSlot
	autoEquip bool
	weapons   *Weapons

	autoEquipped int
}

// NewInventory 创建 width×height 背包，equipCells 为关联装备栏的格子（按顺序对应武器栏位）
func NewInventory(width, height int, weapons *Weapons, equipCells ...Cell) *Inventory {
	inv := &Inventory{
		width:     width,
		height:    height,
		equip:     make(map[Cell]*equipSlot),
		autoEquip: true,
		weapons:   weapons,
	}
	for i, c := range equipCells {
		inv.equip[c] = &equipSlot{index: i}
	}
	return inv
}

// Entries 按放入顺序返回背包内容
func (inv *Inventory) Entries() []world.InventoryEntry {
	return append([]world.InventoryEntry(nil), inv.entries...)
}

func (inv *Inventory) Insert(item world.Item, x, y int) error {
	if x < 0 || y < 0 || x >= inv.width || y >= inv.height {
		return fmt.Errorf("memworld: cell (%d,%d) outside %dx%d grid", x, y, inv.width, inv.height)
	}
	if _, ok := inv.at(x, y); ok {
		return fmt.Errorf("memworld: cell (%d,%d) already occupied", x, y)
	}
	detach(item)
	item.SetActive(false)
	inv.entries = append(inv.entries, world.InventoryEntry{Item: item, X: x, Y: y})

	if inv.autoEquip {
		if mi, ok := item.(*Item); ok && mi.weapon {
			inv.equipFirstFree(item)
		}
	}
	return nil
}

// equipFirstFree 自动装备：放入第一个空装备栏并激活对应武器
func (inv *Inventory) equipFirstFree(item world.Item) {
	best := -1
	var slot *equipSlot
	for _, s := range inv.equip {
		if s.item == nil && (best < 0 || s.index < best) {
			best, slot = s.index, s
		}
	}
	if slot == nil {
		return
	}
	slot.item = item
	inv.autoEquipped++
	if inv.weapons != nil {
		inv.weapons.ActivateSlot(slot.index)
	}
}

func (inv *Inventory) at(x, y int) (world.Item, bool) {
	for _, e := range inv.entries {
		if e.X == x && e.Y == y {
			return e.Item, true
		}
	}
	return nil, false
}

// At 返回格子中的物品
func (inv *Inventory) At(x, y int) (world.Item, bool) {
	return inv.at(x, y)
}

func (inv *Inventory) EquipSlotAt(x, y int) (world.EquipSlot, bool) {
	s, ok := inv.equip[Cell{X: x, Y: y}]
	if !ok {
		return nil, false
	}
	return s, true
}

func (inv *Inventory) AutoEquip() bool           { return inv.autoEquip }
func (inv *Inventory) SetAutoEquip(enabled bool) { inv.autoEquip = enabled }

// AutoEquipCount 自动装备触发次数
func (inv *Inventory) AutoEquipCount() int { return inv.autoEquipped }

func (inv *Inventory) Clear() {
	inv.entries = nil
	for _, s := range inv.equip {
		s.item = nil
	}
}

func (inv *Inventory) remove(id string) bool {
	for i, e := range inv.entries {
		if e.Item.ID() == id {
			inv.entries = append(inv.entries[:i], inv.entries[i+1:]...)
			for _, s := range inv.equip {
				if s.item != nil && s.item.ID() == id {
					s.item = nil
				}
			}
			return true
		}
	}
	return false
}

// Weapons 武器管理器
type Weapons struct {
	active      int
	activations int
}

// NewWeapons 创建未激活任何武器的管理器
func NewWeapons() *Weapons {
	return &Weapons{active: world.NoWeapon}
}

func (w *Weapons) ActiveSlot() int { return w.active }

func (w *Weapons) ActivateSlot(index int) {
	if index < 0 {
		index = world.NoWeapon
	}
	w.active = index
	w.activations++
}

// Activations ActivateSlot 被调用的次数
func (w *Weapons) Activations() int { return w.activations }
