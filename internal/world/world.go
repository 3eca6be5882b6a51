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

package world

// Kind 模板种类
type Kind string

const (
	KindCharacter Kind = "character"
	KindHostile   Kind = "hostile"
	KindItem      Kind = "item"
)

// Template 可实例化的命名定义，由 AssetResolver 按名称解析
type Template struct {
	Name         string
	Kind         Kind
	DefaultStack int
	Weapon       bool
}

// AssetResolver 资源库：名称 -> 模板；找不到返回 false
type AssetResolver interface {
	ResolveCharacter(name string) (Template, bool)
	ResolveItem(name string) (Template, bool)
	ResolveHostile() (Template, bool)
}

// Entity 场景内可销毁的对象
type Entity interface {
	ID() string
}

// Navigator 寻路能力；重定位期间需关闭，否则导航系统会把实体拉回原位
type Navigator interface {
	NavigationEnabled() bool
	SetNavigationEnabled(enabled bool)
}

// Character 友方角色
type Character interface {
	Entity
	Navigator
	TemplateName() string
	Transform() Transform
	SetTransform(t Transform)
	CurrentTarget() Vec3
	LookTarget() Vec3
	SetLookTarget(v Vec3)
}

// Hostile 敌对单位
type Hostile interface {
	Entity
	Navigator
	Transform() Transform
	SetTransform(t Transform)
	Wary() bool
	SetWary(wary bool)
}

// Item 可拾取物品；Active 为 false 表示已禁用（已拾取或位于容器内）
type Item interface {
	Entity
	Title() string
	StackSize() int
	SetStackSize(n int)
	Transform() Transform
	SetTransform(t Transform)
	Active() bool
	SetActive(active bool)
}

// Container 场景内按名称识别的战利品容器
type Container interface {
	Entity
	Name() string
	Items() []Item
	Add(item Item)
	Clear()
}

// EquipSlot 装备栏位，与背包网格中的某个格子关联
type EquipSlot interface {
	Equipped() Item
	SetEquipped(item Item)
}

// InventoryEntry 背包中一格的占用情况
type InventoryEntry struct {
	Item Item
	X    int
	Y    int
}

// Inventory 网格背包
type Inventory interface {
	Entries() []InventoryEntry
	// Insert 把物品放入指定格子；格子越界或已被占用时返回错误
	Insert(item Item, x, y int) error
	EquipSlotAt(x, y int) (EquipSlot, bool)
	AutoEquip() bool
	SetAutoEquip(enabled bool)
	// Clear 销毁背包内全部物品并解除装备关联
	Clear()
}

// Player 场景中已存在的玩家对象（含相机与控制器）
type Player interface {
	Stats() PlayerStats
	SetStats(s PlayerStats)
	Transform() Transform
	SetTransform(t Transform)
	CameraRotation() Quat
	SetCameraRotation(q Quat)
	Look() LookState
	SetLook(l LookState)
}

// Registry 活动场景的实体注册表：按类别枚举、从模板实例化、销毁
type Registry interface {
	Player() (Player, bool)
	Characters() []Character
	Hostiles() []Hostile
	// WorldItems 返回散落在场景中的物品，包括已禁用的
	WorldItems() []Item
	Containers() []Container
	Inventory() Inventory

	SpawnCharacter(t Template) (Character, error)
	SpawnHostile(t Template) (Hostile, error)
	// SpawnItem 在场景中生成物品，初始为激活状态、堆叠数为模板默认值
	SpawnItem(t Template) (Item, error)
	Destroy(e Entity)
}

// WeaponManager 武器管理；NoWeapon 表示未激活任何武器
type WeaponManager interface {
	ActiveSlot() int
	ActivateSlot(index int)
}

// NoWeapon 未激活武器时的栏位索引
const NoWeapon = -1

// Progress 异步操作进度
type Progress interface {
	Done() bool
}

// SceneLoader 引擎场景加载器，卸载/加载为异步操作，需轮询 Progress
type SceneLoader interface {
	ActiveScene() string
	BuildScenes() []string
	BeginUnload(scene string) (Progress, error)
	BeginLoad(scene string) (Progress, error)
	SetActive(scene string) error
}

// PlayerRespawner 可选能力：完整重载后复活已死亡的玩家
type PlayerRespawner interface {
	PlayerDead() bool
	RespawnPlayer() error
}
