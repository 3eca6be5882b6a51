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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("WORLDSAVE_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newClient(baseURL string) *resty.Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if token := os.Getenv("WORLDSAVE_TOKEN"); token != "" {
		c.SetAuthToken(token)
	}
	return c
}

// call 发送请求并在状态码不符合预期时返回带响应体的错误
func call(c *resty.Client, method, path string, body interface{}, want ...int) (map[string]interface{}, error) {
	var out map[string]interface{}
	req := c.R().SetResult(&out)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}
	if len(want) == 0 {
		want = []int{http.StatusOK}
	}
	for _, code := range want {
		if resp.StatusCode() == code {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode(), resp.String())
}

func getStatus(c *resty.Client) (map[string]interface{}, error) {
	return call(c, http.MethodGet, "/api/status", nil)
}

func save(c *resty.Client) (map[string]interface{}, error) {
	return call(c, http.MethodPost, "/api/save", nil)
}

func load(c *resty.Client) (map[string]interface{}, error) {
	return call(c, http.MethodPost, "/api/load", nil, http.StatusAccepted)
}

func saveLevel(c *resty.Client) (map[string]interface{}, error) {
	return call(c, http.MethodPost, "/api/level/save", nil)
}

func loadLevel(c *resty.Client) (map[string]interface{}, error) {
	return call(c, http.MethodPost, "/api/level/load", nil)
}

func transition(c *resty.Client, target string) (map[string]interface{}, error) {
	return call(c, http.MethodPost, "/api/level/transition", map[string]string{"target": target}, http.StatusAccepted)
}

func clearAll(c *resty.Client) (map[string]interface{}, error) {
	return call(c, http.MethodDelete, "/api/persistence", nil)
}

func listSlots(c *resty.Client) (map[string]interface{}, error) {
	return call(c, http.MethodGet, "/api/slots", nil)
}

func saveSlot(c *resty.Client, name string, overwrite bool) (map[string]interface{}, error) {
	body := map[string]interface{}{"name": name, "overwrite": overwrite}
	return call(c, http.MethodPost, "/api/slots", body, http.StatusCreated)
}

func loadSlot(c *resty.Client, name string) (map[string]interface{}, error) {
	return call(c, http.MethodPost, "/api/slots/"+name+"/load", nil, http.StatusAccepted)
}

func deleteSlot(c *resty.Client, name string) error {
	_, err := call(c, http.MethodDelete, "/api/slots/"+name, nil, http.StatusNoContent)
	return err
}

func login(c *resty.Client, operatorToken string) (string, error) {
	out, err := call(c, http.MethodPost, "/api/login", map[string]string{"operator_token": operatorToken})
	if err != nil {
		return "", err
	}
	token, _ := out["token"].(string)
	if token == "" {
		return "", fmt.Errorf("login: empty token")
	}
	return token, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
