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

// Package snapshot 定义每个持久化类别的内存记录。记录是一次存档/读档期间的临时值对象，
// 不跨周期保留。
package snapshot

import (
	"strings"

	"worldsave/internal/world"
)

// Category 一个独立持久化为单个文件的世界状态切片
type Category string

const (
	PlayerData       Category = "playerData"
	CharactersData   Category = "charactersData"
	InventoryData    Category = "inventoryData"
	ItemsLevelData   Category = "itemsLevelData"
	LootboxData      Category = "lootboxData"
	PersistenceItems Category = "persistenceItems"
	PersistenceLoot  Category = "persistenceLoot"
)

const (
	// NoActiveWeapon 背包快照中未激活武器
	NoActiveWeapon = world.NoWeapon
	// KeepStackSize 堆叠数未知，保留模板默认值
	KeepStackSize = -1
)

// FullCategories 完整存档涉及的类别，按恢复顺序排列
func FullCategories() []Category {
	return []Category{PlayerData, CharactersData, InventoryData, ItemsLevelData, LootboxData}
}

// LevelCategories 关卡持久化（仅散落物品与容器）涉及的类别
func LevelCategories() []Category {
	return []Category{PersistenceItems, PersistenceLoot}
}

// AllCategories 全部类别
func AllCategories() []Category {
	return append(FullCategories(), LevelCategories()...)
}

// ParseCategory 解析类别名
func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// ValidScene 场景名能否安全地用作存储键与文件名前缀：非空，且不含路径分隔符或 ".."
func ValidScene(scene string) bool {
	return scene != "" && !strings.ContainsAny(scene, `/\`) && !strings.Contains(scene, "..")
}

// FileName 返回 <scene>_<category>
func FileName(scene string, c Category) string {
	return scene + "_" + string(c)
}

// PlayerSnapshot 玩家数值与朝向；直接覆盖到场景中已存在的玩家对象上
type PlayerSnapshot struct {
	Stats          world.PlayerStats
	Position       world.Vec3
	Rotation       world.Quat
	CameraRotation world.Quat
	Look           world.LookState
}

// CharacterEntry 友方角色记录
type CharacterEntry struct {
	Template      string
	Position      world.Vec3
	Rotation      world.Quat
	CurrentTarget world.Vec3
	LookAt        world.Vec3
}

// HostileEntry 敌对单位记录
type HostileEntry struct {
	Position world.Vec3
	Rotation world.Quat
	Wary     bool
}

// CharacterSnapshot 友方与敌对单位合并为一个文件
type CharacterSnapshot struct {
	Characters []CharacterEntry
	Hostiles   []HostileEntry
}

// InventoryEntry 背包物品记录；同一快照内 (GridX, GridY) 唯一
type InventoryEntry struct {
	Template  string
	StackSize int
	GridX     int
	GridY     int
}

// InventorySnapshot 背包内容与当前激活武器栏位
type InventorySnapshot struct {
	Items            []InventoryEntry
	ActiveWeaponSlot int
}

// SceneItemEntry 散落物品记录
type SceneItemEntry struct {
	Template  string
	Position  world.Vec3
	Rotation  world.Quat
	StackSize int
}

// SceneItemSnapshot 仅包含处于激活状态的散落物品
type SceneItemSnapshot struct {
	Items []SceneItemEntry
}

// ContainerItem 容器内物品
type ContainerItem struct {
	Template  string
	StackSize int
}

// ContainerEntry 按场景内名称匹配的容器
type ContainerEntry struct {
	Name  string
	Items []ContainerItem
}

// ContainerSnapshot 全部容器内容
type ContainerSnapshot struct {
	Containers []ContainerEntry
}

// DuplicateCell 返回快照中第一个重复占用的格子
func (s InventorySnapshot) DuplicateCell() (x, y int, dup bool) {
	seen := make(map[[2]int]bool, len(s.Items))
	for _, e := range s.Items {
		k := [2]int{e.GridX, e.GridY}
		if seen[k] {
			return e.GridX, e.GridY, true
		}
		seen[k] = true
	}
	return 0, 0, false
}
