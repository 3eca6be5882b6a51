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

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	mu    sync.Mutex
	calls []string
	body  map[string]interface{}
	auth  string
}

func fakeAPI(t *testing.T) (*httptest.Server, *seen) {
	t.Helper()
	s := &seen{}
	routes := map[string]struct {
		status int
		body   string
	}{
		"GET /api/status":            {200, `{"state":"idle","scene":"Level_01"}`},
		"POST /api/save":             {200, `{"op":"save","categories":[]}`},
		"POST /api/load":             {202, `{"state":"unloading"}`},
		"POST /api/level/save":       {200, `{"op":"save_level"}`},
		"POST /api/level/load":       {412, `{"error":"scene not ready"}`},
		"POST /api/level/transition": {202, `{"saved":{"op":"save_level"}}`},
		"DELETE /api/persistence":    {200, `{"deleted":4,"absent":2,"failed":0}`},
		"GET /api/slots":             {200, `{"slots":[],"total":0}`},
		"POST /api/slots":            {201, `{"name":"run1","scene":"Level_01"}`},
		"POST /api/slots/run1/load":  {202, `{"name":"run1"}`},
		"DELETE /api/slots/run1":     {204, ``},
		"POST /api/login":            {200, `{"code":200,"token":"tok-123"}`},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls = append(s.calls, key)
		s.auth = r.Header.Get("Authorization")
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			s.body = nil
			_ = json.Unmarshal(data, &s.body)
		}
		s.mu.Unlock()
		route, ok := routes[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(route.status)
		_, _ = w.Write([]byte(route.body))
	}))
	t.Cleanup(srv.Close)
	return srv, s
}

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(newClient(srv.URL), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Commands(t *testing.T) {
	srv, s := fakeAPI(t)

	cases := []struct {
		args []string
		call string
		out  string
	}{
		{[]string{"status"}, "GET /api/status", `"idle"`},
		{[]string{"save"}, "POST /api/save", `"save"`},
		{[]string{"load"}, "POST /api/load", `"unloading"`},
		{[]string{"level", "save"}, "POST /api/level/save", `"save_level"`},
		{[]string{"transition", "Level_02"}, "POST /api/level/transition", `"saved"`},
		{[]string{"clear"}, "DELETE /api/persistence", `"deleted": 4`},
		{[]string{"slots"}, "GET /api/slots", `"total": 0`},
		{[]string{"slots", "save", "run1"}, "POST /api/slots", `"run1"`},
		{[]string{"slots", "load", "run1"}, "POST /api/slots/run1/load", `"run1"`},
		{[]string{"slots", "delete", "run1"}, "DELETE /api/slots/run1", "已删除存档槽 run1"},
	}
	for _, tc := range cases {
		code, stdout, stderr := runCLI(t, srv, tc.args...)
		assert.Equal(t, 0, code, "%v: %s", tc.args, stderr)
		assert.Contains(t, stdout, tc.out, "%v", tc.args)
		s.mu.Lock()
		assert.Equal(t, tc.call, s.calls[len(s.calls)-1])
		s.mu.Unlock()
	}
}

func TestRun_RequestBodies(t *testing.T) {
	srv, s := fakeAPI(t)

	code, _, _ := runCLI(t, srv, "transition", "Level_02")
	require.Equal(t, 0, code)
	assert.Equal(t, "Level_02", s.body["target"])

	code, _, _ = runCLI(t, srv, "slots", "save", "run1", "--overwrite")
	require.Equal(t, 0, code)
	assert.Equal(t, "run1", s.body["name"])
	assert.Equal(t, true, s.body["overwrite"])
}

func TestRun_ErrorStatus(t *testing.T) {
	srv, _ := fakeAPI(t)
	code, _, stderr := runCLI(t, srv, "level", "load")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "412")
}

func TestRun_Usage(t *testing.T) {
	srv, _ := fakeAPI(t)
	code, stdout, _ := runCLI(t, srv)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Usage: worldsave-cli")

	code, _, stderr := runCLI(t, srv, "transition")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "transition <scene>")

	code, _, _ = runCLI(t, srv, "bogus")
	assert.Equal(t, 1, code)
}

func TestRun_LoginAndToken(t *testing.T) {
	srv, s := fakeAPI(t)
	code, stdout, _ := runCLI(t, srv, "login", "letmein")
	require.Equal(t, 0, code)
	assert.Equal(t, "tok-123\n", stdout)
	assert.Equal(t, "letmein", s.body["operator_token"])

	t.Setenv("WORLDSAVE_TOKEN", "tok-123")
	code, _, _ = runCLI(t, srv, "status")
	require.Equal(t, 0, code)
	assert.Equal(t, "Bearer tok-123", s.auth)
}
