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

package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldsave/internal/snapshot"
	"worldsave/internal/world"
)

func TestInventoryRoundTrip(t *testing.T) {
	cases := []snapshot.InventorySnapshot{
		{ActiveWeaponSlot: snapshot.NoActiveWeapon},
		{
			Items: []snapshot.InventoryEntry{
				{Template: "Bandage", StackSize: 3, GridX: 0, GridY: 0},
				{Template: "Pistol", StackSize: 1, GridX: 1, GridY: 0},
				{Template: "Canned Food", StackSize: 0, GridX: 7, GridY: 5},
			},
			ActiveWeaponSlot: 1,
		},
	}
	for _, in := range cases {
		data, err := EncodeInventory(in)
		require.NoError(t, err)
		out, err := DecodeInventory(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestEncodeInventoryGridLimit(t *testing.T) {
	edge := snapshot.InventorySnapshot{ActiveWeaponSlot: snapshot.NoActiveWeapon, Items: []snapshot.InventoryEntry{
		{Template: "Ammo", StackSize: 1, GridX: MaxGridCell, GridY: 0},
	}}
	data, err := EncodeInventory(edge)
	require.NoError(t, err)
	got, err := DecodeInventory(data)
	require.NoError(t, err)
	assert.Equal(t, edge, got)

	for _, e := range []snapshot.InventoryEntry{
		{Template: "Ammo", StackSize: 1, GridX: MaxGridCell + 1},
		{Template: "Ammo", StackSize: 1, GridY: -MaxGridCell - 1},
	} {
		_, err := EncodeInventory(snapshot.InventorySnapshot{Items: []snapshot.InventoryEntry{e}})
		assert.ErrorIs(t, err, ErrGridOutOfRange)
	}
}

func TestPlayerRoundTrip(t *testing.T) {
	in := snapshot.PlayerSnapshot{
		Stats: world.PlayerStats{
			Health: 73, UseConsumeSystem: true, Hydration: 40, HydrationRate: 0.5, ThirstDamage: 2,
			HydrationTimer: 1.25, Satiety: 61, SatietyRate: 0.125, HungerDamage: 3, SatietyTimer: 9.5,
		},
		Position:       world.Vec3{X: 1.5, Y: 2, Z: -3.25},
		Rotation:       world.Quat{Y: 0.7071, W: 0.7071},
		CameraRotation: world.Quat{X: 0.1, W: 0.995},
		Look: world.LookState{
			TargetDirection: world.Vec2{X: 0, Y: 90},
			MouseAbsolute:   world.Vec2{X: 12.5, Y: -4},
			SmoothMouse:     world.Vec2{X: 0.25, Y: 0.5},
		},
	}
	data, err := EncodePlayer(in)
	require.NoError(t, err)
	out, err := DecodePlayer(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPlayerWireFieldNames(t *testing.T) {
	data, err := EncodePlayer(snapshot.PlayerSnapshot{})
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{
		"health", "useConsumeSystem", "hydratation", "hydratationSubstractionRate", "thirstDamage",
		"hydratationTimer", "satiety", "satietySubstractionRate", "hungerDamage", "satietyTimer",
		"playerPosition", "playerRotation", "camRotation", "targetDirection", "mouseAbsolute", "smoothMouse",
	} {
		assert.Contains(t, m, k)
	}
	assert.JSONEq(t, `{"x":0,"y":0,"z":0,"w":0}`, string(m["camRotation"]))
}

func TestCharactersRoundTrip(t *testing.T) {
	in := snapshot.CharacterSnapshot{
		Characters: []snapshot.CharacterEntry{
			{Template: "Trader", Position: world.Vec3{X: 1}, Rotation: world.Identity, LookAt: world.Vec3{Z: 4}},
			{Template: "Guard", Position: world.Vec3{X: 2}, Rotation: world.Identity, CurrentTarget: world.Vec3{Y: 1}},
		},
		Hostiles: []snapshot.HostileEntry{
			{Position: world.Vec3{Z: -8}, Rotation: world.Identity, Wary: true},
		},
	}
	data, err := EncodeCharacters(in)
	require.NoError(t, err)
	out, err := DecodeCharacters(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCharactersEmptyEncodesArrays(t *testing.T) {
	data, err := EncodeCharacters(snapshot.CharacterSnapshot{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"npcName":[],"npcPos":[],"npcRot":[],"npcCurrentTarget":[],"npcLookAtTarget":[],
		"zombiePos":[],"zombieRot":[],"zombieIsWorried":[]}`, string(data))
}

func TestDecodeCharactersTolerant(t *testing.T) {
	raw := `{"npcName":["Trader","Guard"],"npcPos":[{"x":1,"y":0,"z":0}],
		"npcRot":[{"x":0,"y":0,"z":0,"w":1},{"x":0,"y":0,"z":0,"w":1}],
		"zombiePos":[{"x":0,"y":0,"z":1},{"x":0,"y":0,"z":2}],"zombieRot":[{"w":1},{"w":1}]}`
	out, err := DecodeCharacters([]byte(raw))
	require.NoError(t, err)
	require.Len(t, out.Characters, 1, "truncated to the shortest parallel array")
	assert.Equal(t, "Trader", out.Characters[0].Template)
	assert.Equal(t, world.Vec3{}, out.Characters[0].LookAt)
	require.Len(t, out.Hostiles, 2)
	assert.False(t, out.Hostiles[1].Wary)
}

func TestSceneItemsRoundTripAndMissingStack(t *testing.T) {
	in := snapshot.SceneItemSnapshot{Items: []snapshot.SceneItemEntry{
		{Template: "Medkit", Position: world.Vec3{X: 3, Y: 0.5}, Rotation: world.Identity, StackSize: 1},
		{Template: "Ammo", Position: world.Vec3{X: 4}, Rotation: world.Identity, StackSize: 30},
	}}
	data, err := EncodeSceneItems(in)
	require.NoError(t, err)
	out, err := DecodeSceneItems(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out, err = DecodeSceneItems([]byte(`{"itemName":["Water"],"itemPos":[{"x":1}],"itemRot":[{"w":1}]}`))
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, snapshot.KeepStackSize, out.Items[0].StackSize)
}

func TestContainerScenarioEncoding(t *testing.T) {
	in := snapshot.ContainerSnapshot{Containers: []snapshot.ContainerEntry{
		{Name: "LootBox_A", Items: []snapshot.ContainerItem{
			{Template: "Bandage", StackSize: 2},
			{Template: "Ammo", StackSize: 5},
		}},
	}}
	data, err := EncodeContainers(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lootBoxSceneNames":"LootBox_A|","itemNames":["Bandage|Ammo|"],"stackSize":["2|5|"]}`, string(data))

	out, err := DecodeContainers(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestContainerRoundTrip(t *testing.T) {
	cases := []snapshot.ContainerSnapshot{
		{},
		{Containers: []snapshot.ContainerEntry{{Name: "Empty"}}},
		{Containers: []snapshot.ContainerEntry{
			{Name: "A", Items: []snapshot.ContainerItem{{Template: "Canned Food", StackSize: 1}}},
			{Name: "B"},
			{Name: "C", Items: []snapshot.ContainerItem{{Template: "Water", StackSize: 0}, {Template: "Water", StackSize: 4}}},
		}},
	}
	for _, in := range cases {
		data, err := EncodeContainers(in)
		require.NoError(t, err)
		out, err := DecodeContainers(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestEncodeContainersRejectsInvalidNames(t *testing.T) {
	_, err := EncodeContainers(snapshot.ContainerSnapshot{Containers: []snapshot.ContainerEntry{{Name: "a|b"}}})
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = EncodeContainers(snapshot.ContainerSnapshot{Containers: []snapshot.ContainerEntry{
		{Name: "A", Items: []snapshot.ContainerItem{{Template: ""}}},
	}})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestDecodeContainersTolerant(t *testing.T) {
	raw := `{"lootBoxSceneNames":"A||B|","itemNames":["Bandage|Ammo|Water","||"],"stackSize":["2|x"]}`
	out, err := DecodeContainers([]byte(raw))
	require.NoError(t, err)
	require.Len(t, out.Containers, 2)
	assert.Equal(t, "A", out.Containers[0].Name)
	assert.Equal(t, []snapshot.ContainerItem{
		{Template: "Bandage", StackSize: 2},
		{Template: "Ammo", StackSize: snapshot.KeepStackSize},
		{Template: "Water", StackSize: snapshot.KeepStackSize},
	}, out.Containers[0].Items)
	assert.Equal(t, "B", out.Containers[1].Name)
	assert.Empty(t, out.Containers[1].Items)
}

func TestSplitJoinParse(t *testing.T) {
	assert.Equal(t, "", JoinList(nil))
	assert.Equal(t, "a|b|", JoinList([]string{"a", "b"}))
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"a", "b"}, SplitList("|a||b|"))
	assert.Equal(t, 5, ParseStack(" 5 "))
	assert.Equal(t, snapshot.KeepStackSize, ParseStack("five"))
	assert.Equal(t, snapshot.KeepStackSize, ParseStack("-3"))
}

func TestEncodingIsDeterministic(t *testing.T) {
	in := snapshot.ContainerSnapshot{Containers: []snapshot.ContainerEntry{
		{Name: "A", Items: []snapshot.ContainerItem{{Template: "Bandage", StackSize: 2}}},
	}}
	a, err := EncodeContainers(in)
	require.NoError(t, err)
	b, err := EncodeContainers(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := DecodePlayer([]byte("{not json"))
	assert.Error(t, err)
	_, err = DecodeContainers([]byte("[]"))
	assert.Error(t, err)
}
