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

package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/jwt"

	"worldsave/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	audit      *middleware.AuditMiddleware
	jwt        *jwt.HertzJWTMiddleware
	rateLimit  int
	metrics    bool
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw, metrics: true}
}

// SetMetricsEnabled 是否暴露 GET /metrics
func (r *Router) SetMetricsEnabled(enabled bool) {
	r.metrics = enabled
}

// SetJWT 启用 JWT 认证；/api/health、/api/login 与 /metrics 不需要令牌
func (r *Router) SetJWT(j *jwt.HertzJWTMiddleware) {
	r.jwt = j
}

// SetAudit 启用访问审计
func (r *Router) SetAudit(a *middleware.AuditMiddleware) {
	r.audit = a
}

// SetRateLimit 设置 /api 下的全局限流（每秒请求数）
func (r *Router) SetRateLimit(rps int) {
	r.rateLimit = rps
}

// Build 创建 Hertz 服务并注册路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)
	r.setup(h)
	return h
}

func (r *Router) setup(h *server.Hertz) {
	h.Use(r.middleware.CORS())
	if r.metrics {
		h.GET("/metrics", r.handler.Metrics)
	}

	api := h.Group("/api")
	if r.rateLimit > 0 {
		api.Use(r.middleware.RateLimit(r.rateLimit))
	}
	api.GET("/health", r.handler.HealthCheck)

	if r.jwt != nil {
		api.POST("/login", r.jwt.LoginHandler)
		api.GET("/refresh_token", r.jwt.RefreshHandler)
		api.Use(r.jwt.MiddlewareFunc())
	}
	if r.audit != nil {
		api.Use(r.audit.AuditAccess())
	}

	api.GET("/status", r.handler.Status)
	api.POST("/save", r.handler.Save)
	api.POST("/load", r.handler.Load)
	api.DELETE("/persistence", r.handler.ClearAll)

	level := api.Group("/level")
	{
		level.POST("/save", r.handler.SaveLevel)
		level.POST("/load", r.handler.LoadLevel)
		level.POST("/transition", r.handler.Transition)
	}

	slots := api.Group("/slots")
	{
		slots.GET("", r.handler.ListSlots)
		slots.POST("", r.handler.SaveSlot)
		slots.POST("/:name/load", r.handler.LoadSlot)
		slots.DELETE("/:name", r.handler.DeleteSlot)
	}
}
