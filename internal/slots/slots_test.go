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

package slots

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldsave/internal/snapshot"
	"worldsave/internal/store"
	"worldsave/pkg/config"
	apperrors "worldsave/pkg/errors"
	"worldsave/pkg/log"
)

func newTestManager(t *testing.T) (*Manager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	m := NewManager(config.SaveConfig{Root: t.TempDir()}, config.SlotsConfig{}, st, log.Discard())
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return m, st
}

func seed(t *testing.T, st store.Store, scene string, health string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Write(ctx, snapshot.PlayerData, scene, []byte(`{"health":`+health+`}`)))
	require.NoError(t, st.Write(ctx, snapshot.InventoryData, scene, []byte(`{"itemNames":[]}`)))
}

func TestManager_SaveListExistsDelete(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	seed(t, st, "Level_01", "80")

	info, err := m.Save(ctx, "first", "Level_01", false)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Categories)
	assert.True(t, m.Exists("first"))
	assert.FileExists(t, filepath.Join(m.Dir(), "first.json"))

	_, err = m.Save(ctx, "first", "Level_01", false)
	assert.ErrorIs(t, err, apperrors.ErrSlotExists)
	_, err = m.Save(ctx, "first", "Level_01", true)
	assert.NoError(t, err, "overwrite confirmed")

	_, err = m.Save(ctx, "second", "Level_01", false)
	require.NoError(t, err)

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name, "newest first")
	assert.Equal(t, "first", list[1].Name)

	require.NoError(t, m.Delete("first"))
	assert.False(t, m.Exists("first"))
	assert.ErrorIs(t, m.Delete("first"), apperrors.ErrNotFound)
}

func TestManager_SaveWithoutData(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Save(context.Background(), "empty", "Level_01", false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestManager_InvalidNames(t *testing.T) {
	m, _ := newTestManager(t)
	for _, name := range []string{"", "../escape", "a/b", ".hidden", "pipe|name"} {
		_, err := m.Save(context.Background(), name, "Level_01", true)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArg, "name %q", name)
		assert.False(t, m.Exists(name))
	}
}

func TestManager_Restore(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	seed(t, st, "Level_02", "55")
	_, err := m.Save(ctx, "checkpoint", "Level_02", false)
	require.NoError(t, err)

	require.NoError(t, st.Write(ctx, snapshot.PlayerData, "Level_02", []byte(`{"health":1}`)))
	require.NoError(t, st.Write(ctx, snapshot.CharactersData, "Level_02", []byte(`{}`)))

	info, err := m.Restore(ctx, "checkpoint", nil)
	require.NoError(t, err)
	assert.Equal(t, "Level_02", info.Scene)

	data, err := st.Read(ctx, snapshot.PlayerData, "Level_02")
	require.NoError(t, err)
	assert.Equal(t, `{"health":55}`, string(data), "payload restored byte-identical")
	_, err = st.Read(ctx, snapshot.CharactersData, "Level_02")
	assert.ErrorIs(t, err, store.ErrNotFound, "category absent from the slot is removed")

	_, err = m.Restore(ctx, "missing", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestManager_RestoreChecksSceneBeforeWriting(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	seed(t, st, "Level_02", "55")
	_, err := m.Save(ctx, "checkpoint", "Level_02", false)
	require.NoError(t, err)
	require.NoError(t, st.Delete(ctx, snapshot.PlayerData, "Level_02"))
	require.NoError(t, st.Delete(ctx, snapshot.InventoryData, "Level_02"))

	rejected := errors.New("scene not allowed")
	_, err = m.Restore(ctx, "checkpoint", func(scene string) error {
		assert.Equal(t, "Level_02", scene)
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	assert.Empty(t, st.Keys(), "nothing written when the scene is rejected")

	forged := `{"name":"forged","scene":"../../escaped","payloads":{"playerData":{"health":1}}}`
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "forged.json"), []byte(forged), 0644))
	_, err = m.Restore(ctx, "forged", nil)
	assert.ErrorIs(t, err, ErrInvalidScene)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArg)
	assert.Empty(t, st.Keys())

	_, err = m.Save(ctx, "bad", "../up", true)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArg)
}

func TestManager_ListSkipsCorruptFiles(t *testing.T) {
	m, st := newTestManager(t)
	seed(t, st, "Level_01", "10")
	_, err := m.Save(context.Background(), "good", "Level_01", false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "bad.json"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("x"), 0644))

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "good", list[0].Name)
}
