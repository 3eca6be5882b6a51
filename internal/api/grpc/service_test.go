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

package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"worldsave/internal/controller"
	"worldsave/internal/store"
	"worldsave/internal/world/memworld"
	"worldsave/pkg/config"
	"worldsave/pkg/log"
)

func newTestClient(t *testing.T) (*Client, *controller.Controller) {
	t.Helper()
	return newTestClientWith(t, nil)
}

func newTestClientWith(t *testing.T, serverOpts []grpc.ServerOption, dialOpts ...grpc.DialOption) (*Client, *controller.Controller) {
	t.Helper()
	host := memworld.NewFromConfig(
		config.WorldConfig{Characters: []string{"Trader"}, Items: []string{"Bandage"}, HostileName: "Zombie", LoadTicks: 1},
		config.ScenesConfig{Manifest: []string{"Level_01", "Level_02"}},
	)
	require.NoError(t, host.Open("Level_01"))
	ctrl := controller.New(host, store.NewMemoryStore(), nil, controller.Options{}, log.Discard())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(serverOpts...)
	NewServer(ctrl).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialOpts = append(dialOpts,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	conn, err := grpc.NewClient("passthrough:///bufnet", dialOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), ctrl
}

func TestServer_SaveStatusClear(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	rep, err := client.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "save", rep.GetFields()["op"].GetStringValue())
	assert.Len(t, rep.GetFields()["categories"].GetListValue().GetValues(), 5)

	st, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", st.GetFields()["state"].GetStringValue())
	assert.Equal(t, "Level_01", st.GetFields()["scene"].GetStringValue())

	cleared, err := client.ClearAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cleared.GetFields()["deleted"].GetNumberValue())
}

func TestServer_LoadBusy(t *testing.T) {
	client, ctrl := newTestClient(t)
	ctx := context.Background()

	st, err := client.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "unloading", st.GetFields()["state"].GetStringValue())
	assert.Equal(t, controller.StateUnloading, ctrl.State())

	_, err = client.Save(ctx)
	assert.Equal(t, codes.Aborted, status.Code(err))
}

func TestServer_TokenAuth(t *testing.T) {
	auth := []grpc.ServerOption{grpc.UnaryInterceptor(TokenAuth("s3cret"))}
	ctx := context.Background()

	anonymous, _ := newTestClientWith(t, auth)
	_, err := anonymous.Save(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	_, err = anonymous.Status(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	wrong, _ := newTestClientWith(t, auth, WithToken("guess", false))
	_, err = wrong.ClearAll(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	operator, _ := newTestClientWith(t, auth, WithToken("s3cret", false))
	rep, err := operator.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "save", rep.GetFields()["op"].GetStringValue())
}
