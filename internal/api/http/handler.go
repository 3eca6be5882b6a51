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
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/prometheus/common/expfmt"

	"worldsave/internal/controller"
	apperrors "worldsave/pkg/errors"
	"worldsave/pkg/metrics"
)

// Handler HTTP 处理器，所有操作委托给持久化控制器
type Handler struct {
	ctrl   *controller.Controller
	logger *slog.Logger
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(ctrl *controller.Controller, logger *slog.Logger) *Handler {
	return &Handler{ctrl: ctrl, logger: logger}
}

type transitionRequest struct {
	Target string `json:"target"`
}

type slotRequest struct {
	Name      string `json:"name"`
	Overwrite bool   `json:"overwrite"`
}

// writeError 按错误类别映射状态码
func (h *Handler) writeError(c *app.RequestContext, op string, err error) {
	status := consts.StatusInternalServerError
	switch {
	case apperrors.Is(err, controller.ErrThrottled):
		status = consts.StatusTooManyRequests
	case apperrors.Is(err, apperrors.ErrBusy), apperrors.Is(err, apperrors.ErrSlotExists):
		status = consts.StatusConflict
	case apperrors.Is(err, apperrors.ErrNotReady):
		status = consts.StatusPreconditionFailed
	case apperrors.Is(err, apperrors.ErrInvalidArg):
		status = consts.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrNotFound):
		status = consts.StatusNotFound
	}
	if status == consts.StatusInternalServerError {
		h.logger.Error("请求处理失败", "op", op, "error", err)
	}
	c.JSON(status, utils.H{"error": err.Error()})
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "worldsave",
	})
}

// Status 控制器状态与最近一次报告
func (h *Handler) Status(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, h.ctrl.Status())
}

// Save 完整存档
func (h *Handler) Save(ctx context.Context, c *app.RequestContext) {
	rep, err := h.ctrl.Save(ctx)
	if err != nil {
		h.writeError(c, "save", err)
		return
	}
	c.JSON(consts.StatusOK, rep)
}

// Load 开始完整读档；恢复在场景重载完成后异步执行
func (h *Handler) Load(ctx context.Context, c *app.RequestContext) {
	if err := h.ctrl.RequestLoad(ctx); err != nil {
		h.writeError(c, "load", err)
		return
	}
	c.JSON(consts.StatusAccepted, h.ctrl.Status())
}

// SaveLevel 关卡持久化保存
func (h *Handler) SaveLevel(ctx context.Context, c *app.RequestContext) {
	rep, err := h.ctrl.SaveLevel(ctx)
	if err != nil {
		h.writeError(c, "save_level", err)
		return
	}
	c.JSON(consts.StatusOK, rep)
}

// LoadLevel 关卡持久化恢复
func (h *Handler) LoadLevel(ctx context.Context, c *app.RequestContext) {
	rep, err := h.ctrl.LoadLevel(ctx)
	if err != nil {
		h.writeError(c, "load_level", err)
		return
	}
	c.JSON(consts.StatusOK, rep)
}

// Transition 关卡切换
func (h *Handler) Transition(ctx context.Context, c *app.RequestContext) {
	var req transitionRequest
	if err := c.BindJSON(&req); err != nil || req.Target == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "target is required"})
		return
	}
	rep, err := h.ctrl.Transition(ctx, req.Target)
	if err != nil {
		h.writeError(c, "transition", err)
		return
	}
	c.JSON(consts.StatusAccepted, utils.H{"saved": rep, "status": h.ctrl.Status()})
}

// ClearAll 清除所有场景的关卡持久化
func (h *Handler) ClearAll(ctx context.Context, c *app.RequestContext) {
	r, err := h.ctrl.ClearAll(ctx)
	if err != nil {
		h.writeError(c, "clear", err)
		return
	}
	c.JSON(consts.StatusOK, r)
}

// ListSlots 列出存档槽
func (h *Handler) ListSlots(ctx context.Context, c *app.RequestContext) {
	list, err := h.ctrl.ListSlots()
	if err != nil {
		h.writeError(c, "list_slots", err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"slots": list, "total": len(list)})
}

// SaveSlot 保存到命名存档槽
func (h *Handler) SaveSlot(ctx context.Context, c *app.RequestContext) {
	var req slotRequest
	if err := c.BindJSON(&req); err != nil || req.Name == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "name is required"})
		return
	}
	info, err := h.ctrl.SaveSlot(ctx, req.Name, req.Overwrite)
	if err != nil {
		h.writeError(c, "save_slot", err)
		return
	}
	c.JSON(consts.StatusCreated, info)
}

// LoadSlot 从存档槽读档
func (h *Handler) LoadSlot(ctx context.Context, c *app.RequestContext) {
	info, err := h.ctrl.LoadSlot(ctx, c.Param("name"))
	if err != nil {
		h.writeError(c, "load_slot", err)
		return
	}
	c.JSON(consts.StatusAccepted, info)
}

// DeleteSlot 删除存档槽
func (h *Handler) DeleteSlot(ctx context.Context, c *app.RequestContext) {
	if err := h.ctrl.DeleteSlot(c.Param("name")); err != nil {
		h.writeError(c, "delete_slot", err)
		return
	}
	c.Status(consts.StatusNoContent)
}

// Metrics Prometheus 文本格式指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.writeError(c, "metrics", err)
		return
	}
	c.Data(consts.StatusOK, string(expfmt.FmtText), buf.Bytes())
}
