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

// Package codec 快照的文本编码。字段名与存档文件格式保持一致；容器内容沿用
// 以 | 连接的两段字符串（名称串、数量串），而不是原生嵌套数组。
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"worldsave/internal/snapshot"
	"worldsave/internal/world"
)

// Separator 容器内容的分隔符
const Separator = "|"

// ErrInvalidName 容器或物品名为空或包含分隔符，无法无损编码
var ErrInvalidName = errors.New("codec: name is empty or contains separator")

// MaxGridCell 背包格坐标以 float32 存储，绝对值超过 2^24 的整数无法精确往返
const MaxGridCell = 1 << 24

// ErrGridOutOfRange 背包格坐标超出 MaxGridCell
var ErrGridOutOfRange = errors.New("codec: inventory grid cell out of range")

type vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type quat struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

func fromVec2(v world.Vec2) vec2 { return vec2{X: v.X, Y: v.Y} }
func fromVec3(v world.Vec3) vec3 { return vec3{X: v.X, Y: v.Y, Z: v.Z} }
func fromQuat(q world.Quat) quat { return quat{X: q.X, Y: q.Y, Z: q.Z, W: q.W} }

func (v vec2) world() world.Vec2 { return world.Vec2{X: v.X, Y: v.Y} }
func (v vec3) world() world.Vec3 { return world.Vec3{X: v.X, Y: v.Y, Z: v.Z} }
func (q quat) world() world.Quat { return world.Quat{X: q.X, Y: q.Y, Z: q.Z, W: q.W} }

type playerWire struct {
	Health                      int     `json:"health"`
	UseConsumeSystem            bool    `json:"useConsumeSystem"`
	Hydratation                 int     `json:"hydratation"`
	HydratationSubstractionRate float32 `json:"hydratationSubstractionRate"`
	ThirstDamage                int     `json:"thirstDamage"`
	HydratationTimer            float32 `json:"hydratationTimer"`
	Satiety                     int     `json:"satiety"`
	SatietySubstractionRate     float32 `json:"satietySubstractionRate"`
	HungerDamage                int     `json:"hungerDamage"`
	SatietyTimer                float32 `json:"satietyTimer"`
	PlayerPosition              vec3    `json:"playerPosition"`
	PlayerRotation              quat    `json:"playerRotation"`
	CamRotation                 quat    `json:"camRotation"`
	TargetDirection             vec2    `json:"targetDirection"`
	MouseAbsolute               vec2    `json:"mouseAbsolute"`
	SmoothMouse                 vec2    `json:"smoothMouse"`
}

type charactersWire struct {
	NpcName          []string `json:"npcName"`
	NpcPos           []vec3   `json:"npcPos"`
	NpcRot           []quat   `json:"npcRot"`
	NpcCurrentTarget []vec3   `json:"npcCurrentTarget"`
	NpcLookAtTarget  []vec3   `json:"npcLookAtTarget"`
	ZombiePos        []vec3   `json:"zombiePos"`
	ZombieRot        []quat   `json:"zombieRot"`
	ZombieIsWorried  []bool   `json:"zombieIsWorried"`
}

type inventoryWire struct {
	ItemNames         []string `json:"itemNames"`
	StackSize         []int    `json:"stackSize"`
	ItemGridPos       []vec2   `json:"itemGridPos"`
	ActiveWeaponIndex *int     `json:"activeWeaponIndex"`
}

type levelWire struct {
	ItemPos       []vec3   `json:"itemPos"`
	ItemRot       []quat   `json:"itemRot"`
	ItemName      []string `json:"itemName"`
	ItemStackSize []int    `json:"itemStackSize"`
}

type lootWire struct {
	LootBoxSceneNames string   `json:"lootBoxSceneNames"`
	ItemNames         []string `json:"itemNames"`
	StackSize         []string `json:"stackSize"`
}

// EncodePlayer 编码玩家快照
func EncodePlayer(s snapshot.PlayerSnapshot) ([]byte, error) {
	st := s.Stats
	return json.Marshal(playerWire{
		Health:                      st.Health,
		UseConsumeSystem:            st.UseConsumeSystem,
		Hydratation:                 st.Hydration,
		HydratationSubstractionRate: st.HydrationRate,
		ThirstDamage:                st.ThirstDamage,
		HydratationTimer:            st.HydrationTimer,
		Satiety:                     st.Satiety,
		SatietySubstractionRate:     st.SatietyRate,
		HungerDamage:                st.HungerDamage,
		SatietyTimer:                st.SatietyTimer,
		PlayerPosition:              fromVec3(s.Position),
		PlayerRotation:              fromQuat(s.Rotation),
		CamRotation:                 fromQuat(s.CameraRotation),
		TargetDirection:             fromVec2(s.Look.TargetDirection),
		MouseAbsolute:               fromVec2(s.Look.MouseAbsolute),
		SmoothMouse:                 fromVec2(s.Look.SmoothMouse),
	})
}

// DecodePlayer 解码玩家快照；缺失字段取零值
func DecodePlayer(data []byte) (snapshot.PlayerSnapshot, error) {
	var w playerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return snapshot.PlayerSnapshot{}, fmt.Errorf("codec: decode %s: %w", snapshot.PlayerData, err)
	}
	return snapshot.PlayerSnapshot{
		Stats: world.PlayerStats{
			Health:           w.Health,
			UseConsumeSystem: w.UseConsumeSystem,
			Hydration:        w.Hydratation,
			HydrationRate:    w.HydratationSubstractionRate,
			ThirstDamage:     w.ThirstDamage,
			HydrationTimer:   w.HydratationTimer,
			Satiety:          w.Satiety,
			SatietyRate:      w.SatietySubstractionRate,
			HungerDamage:     w.HungerDamage,
			SatietyTimer:     w.SatietyTimer,
		},
		Position:       w.PlayerPosition.world(),
		Rotation:       w.PlayerRotation.world(),
		CameraRotation: w.CamRotation.world(),
		Look: world.LookState{
			TargetDirection: w.TargetDirection.world(),
			MouseAbsolute:   w.MouseAbsolute.world(),
			SmoothMouse:     w.SmoothMouse.world(),
		},
	}, nil
}

// EncodeCharacters 编码角色快照；空列表编码为 []
func EncodeCharacters(s snapshot.CharacterSnapshot) ([]byte, error) {
	w := charactersWire{
		NpcName:          make([]string, 0, len(s.Characters)),
		NpcPos:           make([]vec3, 0, len(s.Characters)),
		NpcRot:           make([]quat, 0, len(s.Characters)),
		NpcCurrentTarget: make([]vec3, 0, len(s.Characters)),
		NpcLookAtTarget:  make([]vec3, 0, len(s.Characters)),
		ZombiePos:        make([]vec3, 0, len(s.Hostiles)),
		ZombieRot:        make([]quat, 0, len(s.Hostiles)),
		ZombieIsWorried:  make([]bool, 0, len(s.Hostiles)),
	}
	for _, c := range s.Characters {
		w.NpcName = append(w.NpcName, c.Template)
		w.NpcPos = append(w.NpcPos, fromVec3(c.Position))
		w.NpcRot = append(w.NpcRot, fromQuat(c.Rotation))
		w.NpcCurrentTarget = append(w.NpcCurrentTarget, fromVec3(c.CurrentTarget))
		w.NpcLookAtTarget = append(w.NpcLookAtTarget, fromVec3(c.LookAt))
	}
	for _, h := range s.Hostiles {
		w.ZombiePos = append(w.ZombiePos, fromVec3(h.Position))
		w.ZombieRot = append(w.ZombieRot, fromQuat(h.Rotation))
		w.ZombieIsWorried = append(w.ZombieIsWorried, h.Wary)
	}
	return json.Marshal(w)
}

// DecodeCharacters 解码角色快照。名称/位置/旋转长度不一致时按最短截断，
// 朝向目标与警觉标记缺失时取零值
func DecodeCharacters(data []byte) (snapshot.CharacterSnapshot, error) {
	var w charactersWire
	if err := json.Unmarshal(data, &w); err != nil {
		return snapshot.CharacterSnapshot{}, fmt.Errorf("codec: decode %s: %w", snapshot.CharactersData, err)
	}
	var s snapshot.CharacterSnapshot
	for i := 0; i < minLen(len(w.NpcName), len(w.NpcPos), len(w.NpcRot)); i++ {
		e := snapshot.CharacterEntry{
			Template: w.NpcName[i],
			Position: w.NpcPos[i].world(),
			Rotation: w.NpcRot[i].world(),
		}
		if i < len(w.NpcCurrentTarget) {
			e.CurrentTarget = w.NpcCurrentTarget[i].world()
		}
		if i < len(w.NpcLookAtTarget) {
			e.LookAt = w.NpcLookAtTarget[i].world()
		}
		s.Characters = append(s.Characters, e)
	}
	for i := 0; i < minLen(len(w.ZombiePos), len(w.ZombieRot)); i++ {
		e := snapshot.HostileEntry{Position: w.ZombiePos[i].world(), Rotation: w.ZombieRot[i].world()}
		if i < len(w.ZombieIsWorried) {
			e.Wary = w.ZombieIsWorried[i]
		}
		s.Hostiles = append(s.Hostiles, e)
	}
	return s, nil
}

// EncodeInventory 编码背包快照
func EncodeInventory(s snapshot.InventorySnapshot) ([]byte, error) {
	active := s.ActiveWeaponSlot
	w := inventoryWire{
		ItemNames:         make([]string, 0, len(s.Items)),
		StackSize:         make([]int, 0, len(s.Items)),
		ItemGridPos:       make([]vec2, 0, len(s.Items)),
		ActiveWeaponIndex: &active,
	}
	for _, e := range s.Items {
		if !gridInRange(e.GridX) || !gridInRange(e.GridY) {
			return nil, fmt.Errorf("%w: %q at (%d, %d)", ErrGridOutOfRange, e.Template, e.GridX, e.GridY)
		}
		w.ItemNames = append(w.ItemNames, e.Template)
		w.StackSize = append(w.StackSize, e.StackSize)
		w.ItemGridPos = append(w.ItemGridPos, vec2{X: float32(e.GridX), Y: float32(e.GridY)})
	}
	return json.Marshal(w)
}

func gridInRange(v int) bool {
	return v >= -MaxGridCell && v <= MaxGridCell
}

// DecodeInventory 解码背包快照；缺失堆叠数记为 KeepStackSize，缺失激活栏位记为 NoActiveWeapon
func DecodeInventory(data []byte) (snapshot.InventorySnapshot, error) {
	var w inventoryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return snapshot.InventorySnapshot{}, fmt.Errorf("codec: decode %s: %w", snapshot.InventoryData, err)
	}
	s := snapshot.InventorySnapshot{ActiveWeaponSlot: snapshot.NoActiveWeapon}
	if w.ActiveWeaponIndex != nil {
		s.ActiveWeaponSlot = *w.ActiveWeaponIndex
	}
	for i := 0; i < minLen(len(w.ItemNames), len(w.ItemGridPos)); i++ {
		e := snapshot.InventoryEntry{
			Template:  w.ItemNames[i],
			StackSize: snapshot.KeepStackSize,
			GridX:     int(w.ItemGridPos[i].X),
			GridY:     int(w.ItemGridPos[i].Y),
		}
		if i < len(w.StackSize) {
			e.StackSize = w.StackSize[i]
		}
		s.Items = append(s.Items, e)
	}
	return s, nil
}

// EncodeSceneItems 编码散落物品快照
func EncodeSceneItems(s snapshot.SceneItemSnapshot) ([]byte, error) {
	w := levelWire{
		ItemPos:       make([]vec3, 0, len(s.Items)),
		ItemRot:       make([]quat, 0, len(s.Items)),
		ItemName:      make([]string, 0, len(s.Items)),
		ItemStackSize: make([]int, 0, len(s.Items)),
	}
	for _, e := range s.Items {
		w.ItemPos = append(w.ItemPos, fromVec3(e.Position))
		w.ItemRot = append(w.ItemRot, fromQuat(e.Rotation))
		w.ItemName = append(w.ItemName, e.Template)
		w.ItemStackSize = append(w.ItemStackSize, e.StackSize)
	}
	return json.Marshal(w)
}

// DecodeSceneItems 解码散落物品快照
func DecodeSceneItems(data []byte) (snapshot.SceneItemSnapshot, error) {
	var w levelWire
	if err := json.Unmarshal(data, &w); err != nil {
		return snapshot.SceneItemSnapshot{}, fmt.Errorf("codec: decode scene items: %w", err)
	}
	var s snapshot.SceneItemSnapshot
	for i := 0; i < minLen(len(w.ItemName), len(w.ItemPos), len(w.ItemRot)); i++ {
		e := snapshot.SceneItemEntry{
			Template:  w.ItemName[i],
			Position:  w.ItemPos[i].world(),
			Rotation:  w.ItemRot[i].world(),
			StackSize: snapshot.KeepStackSize,
		}
		if i < len(w.ItemStackSize) {
			e.StackSize = w.ItemStackSize[i]
		}
		s.Items = append(s.Items, e)
	}
	return s, nil
}

// EncodeContainers 编码容器快照：容器名连成一串，每个容器的物品名与数量各连成一串，
// 每个元素后都跟一个分隔符
func EncodeContainers(s snapshot.ContainerSnapshot) ([]byte, error) {
	w := lootWire{
		ItemNames: make([]string, 0, len(s.Containers)),
		StackSize: make([]string, 0, len(s.Containers)),
	}
	names := make([]string, 0, len(s.Containers))
	for _, c := range s.Containers {
		if !validName(c.Name) {
			return nil, fmt.Errorf("%w: container %q", ErrInvalidName, c.Name)
		}
		names = append(names, c.Name)
		titles := make([]string, 0, len(c.Items))
		counts := make([]string, 0, len(c.Items))
		for _, it := range c.Items {
			if !validName(it.Template) {
				return nil, fmt.Errorf("%w: item %q", ErrInvalidName, it.Template)
			}
			titles = append(titles, it.Template)
			counts = append(counts, strconv.Itoa(it.StackSize))
		}
		w.ItemNames = append(w.ItemNames, JoinList(titles))
		w.StackSize = append(w.StackSize, JoinList(counts))
	}
	w.LootBoxSceneNames = JoinList(names)
	return json.Marshal(w)
}

// DecodeContainers 解码容器快照。空 token 被跳过；数量缺失或无法解析时记为 KeepStackSize
func DecodeContainers(data []byte) (snapshot.ContainerSnapshot, error) {
	var w lootWire
	if err := json.Unmarshal(data, &w); err != nil {
		return snapshot.ContainerSnapshot{}, fmt.Errorf("codec: decode containers: %w", err)
	}
	var s snapshot.ContainerSnapshot
	for i, name := range SplitList(w.LootBoxSceneNames) {
		entry := snapshot.ContainerEntry{Name: name}
		var titles, counts []string
		if i < len(w.ItemNames) {
			titles = SplitList(w.ItemNames[i])
		}
		if i < len(w.StackSize) {
			counts = SplitList(w.StackSize[i])
		}
		for j, title := range titles {
			n := snapshot.KeepStackSize
			if j < len(counts) {
				n = ParseStack(counts[j])
			}
			entry.Items = append(entry.Items, snapshot.ContainerItem{Template: title, StackSize: n})
		}
		s.Containers = append(s.Containers, entry)
	}
	return s, nil
}

// JoinList 以分隔符连接，每个元素后都带分隔符："a|b|"；空列表得到空串
func JoinList(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p)
		b.WriteString(Separator)
	}
	return b.String()
}

// SplitList 按分隔符拆分并跳过空 token
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, Separator) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseStack 解析堆叠数；无法解析或为负时返回 KeepStackSize
func ParseStack(token string) int {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil || n < 0 {
		return snapshot.KeepStackSize
	}
	return n
}

func validName(s string) bool {
	return s != "" && !strings.Contains(s, Separator)
}

func minLen(ns ...int) int {
	m := ns[0]
	for _, n := range ns[1:] {
		if n < m {
			m = n
		}
	}
	return m
}
