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

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
)

// AuditMiddleware 访问审计：记录每个变更类请求的操作员、路径与结果
type AuditMiddleware struct {
	logger *slog.Logger
}

// NewAuditMiddleware 创建审计中间件
func NewAuditMiddleware(logger *slog.Logger) *AuditMiddleware {
	return &AuditMiddleware{logger: logger}
}

// AuditAccess 记录 API 访问；GET 请求只在 debug 级别记录
func (a *AuditMiddleware) AuditAccess() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		level := slog.LevelInfo
		if string(c.Method()) == "GET" {
			level = slog.LevelDebug
		}
		status := c.Response.StatusCode()
		if status >= 500 {
			level = slog.LevelWarn
		}
		a.logger.Log(ctx, level, "API 访问",
			"operator", Operator(c),
			"action", determineAction(string(c.Method())),
			"path", string(c.Path()),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func determineAction(method string) string {
	switch method {
	case "GET":
		return "read"
	case "POST":
		return "write"
	case "DELETE":
		return "delete"
	default:
		return method
	}
}
