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

package controller

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldsave/internal/persist"
	"worldsave/internal/slots"
	"worldsave/internal/snapshot"
	"worldsave/internal/store"
	"worldsave/internal/world/memworld"
	"worldsave/pkg/config"
	apperrors "worldsave/pkg/errors"
	"worldsave/pkg/log"
)

var manifest = []string{"MainMenu_P", "Level_01", "Level_02"}

type fixture struct {
	ctrl  *Controller
	host  *memworld.Host
	store *store.MemoryStore
}

func newFixture(t *testing.T, loadTicks int, opts Options, logger *slog.Logger) *fixture {
	t.Helper()
	chars := []string{"Trader", "Guard"}
	items := []string{"Bandage", "Ammo", "Medkit"}
	catalog := memworld.NewCatalog().
		AddCharacter("Trader").AddCharacter("Guard").
		AddItem("Bandage", 1, false).AddItem("Ammo", 1, false).AddItem("Medkit", 1, false).
		SetHostile("Zombie")
	host := memworld.NewHost(catalog, memworld.Options{
		Build: manifest,
		Blueprints: map[string]memworld.Blueprint{
			"Level_01": memworld.DemoBlueprint(1, chars, items),
			"Level_02": memworld.DemoBlueprint(2, chars, items),
		},
		LoadTicks: loadTicks,
	})
	require.NoError(t, host.Open("Level_01"))
	if logger == nil {
		logger = log.Discard()
	}
	st := store.NewMemoryStore()
	sm := slots.NewManager(config.SaveConfig{Root: t.TempDir()}, config.SlotsConfig{}, st, logger)
	return &fixture{ctrl: New(host, st, sm, opts, logger), host: host, store: st}
}

// drive 推进宿主与控制器直到回到 Idle，返回所用 tick 数
func (f *fixture) drive(t *testing.T) int {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if f.ctrl.State() == StateIdle {
			return i
		}
		f.host.Advance()
		f.ctrl.Tick(ctx)
	}
	t.Fatalf("controller stuck in %s", f.ctrl.State())
	return 0
}

func (f *fixture) setHealth(h int) {
	stats := f.host.Player().Stats()
	stats.Health = h
	f.host.Player().SetStats(stats)
}

func (f *fixture) takeItem(t *testing.T, title string) {
	t.Helper()
	reg := f.host.Registry()
	for _, it := range reg.WorldItems() {
		if it.Title() == title {
			reg.Destroy(it)
			return
		}
	}
	t.Fatalf("no world item %q", title)
}

func titles(f *fixture) []string {
	var out []string
	for _, it := range f.host.Registry().WorldItems() {
		out = append(out, it.Title())
	}
	return out
}

func TestController_SaveAndReload(t *testing.T) {
	f := newFixture(t, 2, Options{}, nil)
	ctx := context.Background()

	f.setHealth(42)
	f.takeItem(t, "Medkit")
	rep, err := f.ctrl.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", rep.Outcome())
	assert.Len(t, f.store.Keys(), len(snapshot.FullCategories()))

	f.setHealth(10)
	require.NoError(t, f.ctrl.RequestLoad(ctx))
	assert.Equal(t, StateUnloading, f.ctrl.State())

	_, err = f.ctrl.Save(ctx)
	assert.ErrorIs(t, err, apperrors.ErrBusy)
	assert.ErrorIs(t, f.ctrl.RequestLoad(ctx), apperrors.ErrBusy)

	f.drive(t)
	assert.Equal(t, "Level_01", f.host.Loader().ActiveScene())
	assert.Equal(t, 42, f.host.Player().Stats().Health)
	assert.ElementsMatch(t, []string{"Bandage", "Ammo"}, titles(f), "blueprint medkit replaced by saved scene items")

	st := f.ctrl.Status()
	assert.Equal(t, "idle", st.State)
	require.NotNil(t, st.LastReport)
	assert.Equal(t, persist.OpLoad, st.LastReport.Op)
}

func TestController_RestoreRunsOnTickAfterLoad(t *testing.T) {
	f := newFixture(t, 1, Options{}, nil)
	ctx := context.Background()
	_, err := f.ctrl.Save(ctx)
	require.NoError(t, err)
	require.NoError(t, f.ctrl.RequestLoad(ctx))

	f.host.Advance()
	f.ctrl.Tick(ctx)
	assert.Equal(t, StateLoading, f.ctrl.State())

	f.host.Advance()
	f.ctrl.Tick(ctx)
	assert.Equal(t, StatePendingRestore, f.ctrl.State())
	assert.Equal(t, persist.OpSave, f.ctrl.Status().LastReport.Op, "restore not yet applied")

	f.ctrl.Tick(ctx)
	assert.Equal(t, StateIdle, f.ctrl.State())
	assert.Equal(t, persist.OpLoad, f.ctrl.Status().LastReport.Op)
}

func TestController_RespawnsDeadPlayerBeforeRestore(t *testing.T) {
	f := newFixture(t, 1, Options{}, nil)
	ctx := context.Background()
	f.setHealth(42)
	_, err := f.ctrl.Save(ctx)
	require.NoError(t, err)

	f.host.KillPlayer()
	require.True(t, f.host.PlayerDead())
	require.NoError(t, f.ctrl.RequestLoad(ctx))
	f.drive(t)

	assert.False(t, f.host.PlayerDead())
	assert.Equal(t, 42, f.host.Player().Stats().Health)
}

func TestController_TransitionPersistsLevels(t *testing.T) {
	f := newFixture(t, 1, Options{}, nil)
	ctx := context.Background()
	f.ctrl.MarkReady()

	f.takeItem(t, "Medkit")
	rep, err := f.ctrl.Transition(ctx, "Level_02")
	require.NoError(t, err)
	assert.Equal(t, persist.OpSaveLevel, rep.Op)
	f.drive(t)

	assert.Equal(t, "Level_02", f.host.Loader().ActiveScene())
	assert.Len(t, f.host.Registry().WorldItems(), 3, "first visit keeps blueprint items")
	res, ok := f.ctrl.Status().LastReport.Result(snapshot.ItemsLevelData)
	require.True(t, ok)
	assert.Equal(t, persist.StatusAbsent, res.Status)

	_, err = f.ctrl.Transition(ctx, "Level_01")
	require.NoError(t, err)
	f.drive(t)

	assert.Equal(t, "Level_01", f.host.Loader().ActiveScene())
	assert.ElementsMatch(t, []string{"Bandage", "Ammo"}, titles(f), "picked-up medkit stays gone")
}

func TestController_TransitionSkipsRestoreWhenNotReady(t *testing.T) {
	f := newFixture(t, 1, Options{}, nil)
	ctx := context.Background()

	f.takeItem(t, "Medkit")
	_, err := f.ctrl.Transition(ctx, "Level_02")
	require.NoError(t, err)
	f.drive(t)
	_, err = f.ctrl.Transition(ctx, "Level_01")
	require.NoError(t, err)
	f.drive(t)

	assert.Len(t, f.host.Registry().WorldItems(), 3)
	assert.Equal(t, persist.OpSaveLevel, f.ctrl.Status().LastReport.Op)
}

func TestController_TransitionUnknownScene(t *testing.T) {
	f := newFixture(t, 1, Options{}, nil)
	_, err := f.ctrl.Transition(context.Background(), "Level_99")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArg)
	assert.Equal(t, StateIdle, f.ctrl.State())
}

func TestController_LoadLevelRequiresReady(t *testing.T) {
	f := newFixture(t, 1, Options{}, nil)
	ctx := context.Background()

	_, err := f.ctrl.LoadLevel(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotReady)

	f.ctrl.MarkReady()
	_, err = f.ctrl.SaveLevel(ctx)
	require.NoError(t, err)
	rep, err := f.ctrl.LoadLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, persist.OpLoadLevel, rep.Op)
	assert.Equal(t, 0, rep.FailedCount())
	assert.True(t, f.ctrl.Status().Ready)
}

func TestController_LoadLevelBusyDuringReload(t *testing.T) {
	f := newFixture(t, 3, Options{}, nil)
	ctx := context.Background()
	f.ctrl.MarkReady()
	require.NoError(t, f.ctrl.RequestLoad(ctx))
	_, err := f.ctrl.LoadLevel(ctx)
	assert.ErrorIs(t, err, apperrors.ErrBusy)
	f.drive(t)
}

func TestController_ClearAll(t *testing.T) {
	f := newFixture(t, 1, Options{}, nil)
	ctx := context.Background()
	for _, scene := range []string{"Level_01", "Level_02"} {
		for _, c := range snapshot.LevelCategories() {
			require.NoError(t, f.store.Write(ctx, c, scene, []byte(`{}`)))
		}
	}
	require.NoError(t, f.store.Write(ctx, snapshot.PlayerData, "Level_01", []byte(`{}`)))

	r, err := f.ctrl.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Deleted)
	assert.Equal(t, 2, r.Absent)
	assert.Equal(t, 0, r.Failed)
	assert.Len(t, f.store.Keys(), 1, "full-save categories are kept")
	require.NotNil(t, f.ctrl.Status().LastClear)
}

func TestController_TriggerThrottle(t *testing.T) {
	f := newFixture(t, 1, Options{TriggerRPS: 0.001, TriggerBurst: 1}, nil)
	ctx := context.Background()
	_, err := f.ctrl.Save(ctx)
	require.NoError(t, err)
	_, err = f.ctrl.Save(ctx)
	assert.ErrorIs(t, err, ErrThrottled)

	// 关卡持久化由场景切换自动触发，不受限流
	_, err = f.ctrl.SaveLevel(ctx)
	assert.NoError(t, err)
}

func TestController_StallWarnsWithoutCancelling(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	f := newFixture(t, 50, Options{StallWarnTicks: 3}, logger)
	ctx := context.Background()

	require.NoError(t, f.ctrl.RequestLoad(ctx))
	for i := 0; i < 7; i++ {
		f.host.Advance()
		f.ctrl.Tick(ctx)
	}
	assert.Equal(t, StateUnloading, f.ctrl.State())
	assert.Equal(t, 2, strings.Count(buf.String(), "场景重载耗时过长"))
	assert.Equal(t, 7, f.ctrl.Status().StageTicks)

	f.drive(t)
	assert.Equal(t, "Level_01", f.host.Loader().ActiveScene())
}

func TestController_Slots(t *testing.T) {
	f := newFixture(t, 1, Options{}, nil)
	ctx := context.Background()

	f.setHealth(42)
	info, err := f.ctrl.SaveSlot(ctx, "run1", false)
	require.NoError(t, err)
	assert.Equal(t, "Level_01", info.Scene)
	assert.Equal(t, len(snapshot.FullCategories()), info.Categories)

	_, err = f.ctrl.SaveSlot(ctx, "run1", false)
	assert.ErrorIs(t, err, apperrors.ErrSlotExists)
	_, err = f.ctrl.SaveSlot(ctx, "../escape", false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArg)

	f.setHealth(7)
	_, err = f.ctrl.Save(ctx)
	require.NoError(t, err)

	_, err = f.ctrl.LoadSlot(ctx, "run1")
	require.NoError(t, err)
	f.drive(t)
	assert.Equal(t, 42, f.host.Player().Stats().Health)

	list, err := f.ctrl.ListSlots()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run1", list[0].Name)

	require.NoError(t, f.ctrl.DeleteSlot("run1"))
	_, err = f.ctrl.LoadSlot(ctx, "run1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestController_LoadSlotOutsideManifestWritesNothing(t *testing.T) {
	root := t.TempDir()
	save := config.SaveConfig{Root: root}
	fs := store.NewFileStore(save, log.Discard())
	sm := slots.NewManager(save, config.SlotsConfig{}, fs, log.Discard())
	host := memworld.NewHost(memworld.NewCatalog(), memworld.Options{Build: manifest, LoadTicks: 1})
	require.NoError(t, host.Open("Level_01"))
	ctrl := New(host, fs, sm, Options{}, log.Discard())
	ctx := context.Background()

	for name, scene := range map[string]string{"escape": "../../escaped", "foreign": "Level_99"} {
		slot := `{"name":"` + name + `","scene":"` + scene + `","payloads":{"playerData":{"health":1},"inventoryData":{"itemNames":[]}}}`
		require.NoError(t, os.WriteFile(filepath.Join(sm.Dir(), name+".json"), []byte(slot), 0644))

		_, err := ctrl.LoadSlot(ctx, name)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArg, "slot %s", name)
		assert.Equal(t, StateIdle, ctrl.State())
	}

	_, err := os.Stat(filepath.Join(root, "..", "escaped_playerData"))
	assert.True(t, os.IsNotExist(err), "no file outside the save root")
	entries, err := os.ReadDir(fs.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "no payload restored for a rejected slot")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "pending_restore", StatePendingRestore.String())
	assert.Equal(t, "state(9)", State(9).String())
}
