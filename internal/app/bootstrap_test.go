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

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldsave/internal/controller"
	"worldsave/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	cfg.Store.Type = "memory"
	cfg.Save.Root = t.TempDir()
	cfg.Log.Level = "error"
	return cfg
}

func TestNewBootstrap(t *testing.T) {
	b, err := NewBootstrap(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	assert.Equal(t, "Level_01", b.World.Loader().ActiveScene())
	st := b.Controller.Status()
	assert.True(t, st.Ready)
	assert.Equal(t, "idle", st.State)

	rep, err := b.Controller.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", rep.Outcome())
	assert.DirExists(t, b.Slots.Dir())
}

func TestNewBootstrap_UnknownStartScene(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scenes.Start = "Nowhere"
	_, err := NewBootstrap(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewBootstrap_UnknownSecretProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.Provider = "kms"
	_, err := NewBootstrap(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBootstrap_ReloadThroughController(t *testing.T) {
	cfg := testConfig(t)
	cfg.World.LoadTicks = 1
	b, err := NewBootstrap(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	ctx := context.Background()
	_, err = b.Controller.Save(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Controller.RequestLoad(ctx))
	for i := 0; i < 10 && b.Controller.State() != controller.StateIdle; i++ {
		b.World.Advance()
		b.Controller.Tick(ctx)
	}
	assert.Equal(t, controller.StateIdle, b.Controller.State())
	assert.Equal(t, "load", b.Controller.Status().LastReport.Op)
}
