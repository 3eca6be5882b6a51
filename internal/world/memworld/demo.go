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
	"strings"

	"worldsave/internal/world"
	"worldsave/pkg/config"
)

// NewFromConfig 按配置构建演示世界：资源库、每个关卡的蓝图与宿主
func NewFromConfig(wc config.WorldConfig, sc config.ScenesConfig) *Host {
	catalog := NewCatalog()
	for _, name := range wc.Characters {
		catalog.AddCharacter(name)
	}
	weapons := make(map[string]bool, len(wc.Weapons))
	for _, w := range wc.Weapons {
		weapons[w] = true
	}
	for _, name := range wc.Items {
		catalog.AddItem(name, 1, weapons[name])
	}
	if wc.HostileName != "" {
		catalog.SetHostile(wc.HostileName)
	}

	blueprints := make(map[string]Blueprint, len(sc.Manifest))
	for i, scene := range sc.Manifest {
		if isMenuScene(scene) {
			continue
		}
		blueprints[scene] = DemoBlueprint(i, wc.Characters, wc.Items)
	}
	return NewHost(catalog, Options{
		Build:          sc.Manifest,
		Blueprints:     blueprints,
		LoadTicks:      wc.LoadTicks,
		InventoryWidth: wc.InventoryWidth,
		InventoryRows:  wc.InventoryRows,
	})
}

func isMenuScene(name string) bool {
	return strings.Contains(strings.ToLower(name), "menu")
}

// DemoBlueprint 生成确定性的关卡内容：每个角色一个、两个敌对单位、
// 每种物品一件散落物，以及两个装有前两种物品的容器
func DemoBlueprint(seed int, characters, items []string) Blueprint {
	var bp Blueprint
	off := float32(seed * 10)
	for i, name := range characters {
		bp.Characters = append(bp.Characters, Placement{
			Template:  name,
			Transform: world.Transform{Position: world.Vec3{X: off + float32(i)*2, Z: 5}, Rotation: world.Identity},
			Look:      world.Vec3{X: off, Z: 10},
		})
	}
	for i := 0; i < 2; i++ {
		bp.Hostiles = append(bp.Hostiles, HostilePlacement{
			Transform: world.Transform{Position: world.Vec3{X: off - float32(i)*3, Z: -8}, Rotation: world.Identity},
		})
	}
	for i, name := range items {
		bp.Items = append(bp.Items, ItemPlacement{
			Template:  name,
			Transform: world.Transform{Position: world.Vec3{X: off + float32(i), Y: 0.5}, Rotation: world.Identity},
		})
	}
	var loot []Stack
	for i, name := range items {
		if i >= 2 {
			break
		}
		loot = append(loot, Stack{Template: name, Count: i + 2})
	}
	bp.Containers = []ContainerPlacement{
		{Name: "LootBox_A", Items: loot},
		{Name: "LootBox_B"},
	}
	return bp
}
