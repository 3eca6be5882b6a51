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

// Package controller 持久化控制器：决定何时执行完整存档/读档与关卡持久化，
// 并以状态机 Idle -> Unloading -> Loading -> PendingRestore -> Idle 驱动异步场景重载。
// 状态只由控制器自身写入；所有操作经同一把锁串行化，重载进行中的新请求返回 ErrBusy。
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"worldsave/internal/persist"
	"worldsave/internal/slots"
	"worldsave/internal/snapshot"
	"worldsave/internal/store"
	"worldsave/internal/world"
	apperrors "worldsave/pkg/errors"
	"worldsave/pkg/metrics"
)

// ErrThrottled 手动触发过于频繁
var ErrThrottled = errors.New("controller: trigger throttled")

// State 控制器状态
type State int

const (
	StateIdle State = iota
	StateUnloading
	StateLoading
	StatePendingRestore
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUnloading:
		return "unloading"
	case StateLoading:
		return "loading"
	case StatePendingRestore:
		return "pending_restore"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RestoreKind 重载完成后执行的恢复类型
type RestoreKind string

const (
	RestoreNone  RestoreKind = ""
	RestoreFull  RestoreKind = "full"
	RestoreLevel RestoreKind = "level"
)

// World 控制器所需的世界协作方；实现 world.PlayerRespawner 时完整重载后会复活死亡玩家
type World interface {
	Registry() world.Registry
	Resolver() world.AssetResolver
	Weapons() world.WeaponManager
	Loader() world.SceneLoader
}

// Options 控制器参数
type Options struct {
	Manifest       []string // 构建清单；为空时取 SceneLoader.BuildScenes()
	StallWarnTicks int      // 重载阶段超过该 tick 数告警，<=0 不告警
	TriggerRPS     float64  // 手动触发限流，<=0 不限流
	TriggerBurst   int
}

// Status 控制器状态快照
type Status struct {
	State      string              `json:"state"`
	Kind       RestoreKind         `json:"restore_kind,omitempty"`
	Scene      string              `json:"scene"`
	Target     string              `json:"target,omitempty"`
	Ready      bool                `json:"ready"`
	StageTicks int                 `json:"stage_ticks,omitempty"`
	LastReport *persist.Report     `json:"last_report,omitempty"`
	LastClear  *store.DeleteReport `json:"last_clear,omitempty"`
}

// Controller 持久化控制器
type Controller struct {
	mu      sync.Mutex
	world   World
	store   store.Store
	writer  *persist.Writer
	reader  *persist.Reader
	slots   *slots.Manager
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger

	state      State
	kind       RestoreKind
	target     string
	progress   world.Progress
	stageTicks int
	ready      bool
	last       *persist.Report
	lastClear  *store.DeleteReport
}

// New 创建控制器；sm 为 nil 时存档槽操作返回 ErrNotReady
func New(w World, st store.Store, sm *slots.Manager, opts Options, logger *slog.Logger) *Controller {
	c := &Controller{
		world:  w,
		store:  st,
		writer: persist.NewWriter(st, logger),
		reader: persist.NewReader(st, logger),
		slots:  sm,
		opts:   opts,
		logger: logger,
	}
	if opts.TriggerRPS > 0 {
		burst := opts.TriggerBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.TriggerRPS), burst)
	}
	metrics.ControllerState.Set(float64(StateIdle))
	return c
}

func (c *Controller) env() persist.Env {
	return persist.Env{Registry: c.world.Registry(), Resolver: c.world.Resolver(), Weapons: c.world.Weapons()}
}

func (c *Controller) manifest() []string {
	if len(c.opts.Manifest) > 0 {
		return c.opts.Manifest
	}
	return c.world.Loader().BuildScenes()
}

// allow 手动触发限流
func (c *Controller) allow(op string) error {
	if c.limiter == nil || c.limiter.Allow() {
		return nil
	}
	metrics.OperationTotal.WithLabelValues(op, "rejected").Inc()
	return ErrThrottled
}

// idleLocked 要求控制器空闲且存在活动场景，返回活动场景名
func (c *Controller) idleLocked() (string, error) {
	if c.state != StateIdle {
		return "", apperrors.ErrBusy
	}
	scene := c.world.Loader().ActiveScene()
	if scene == "" {
		return "", apperrors.ErrNotReady
	}
	return scene, nil
}

func (c *Controller) setState(s State) {
	c.state = s
	c.stageTicks = 0
	metrics.ControllerState.Set(float64(s))
}

// MarkReady 场景常驻单例（玩家等）初始化完成后调用；之前关卡持久化恢复不会执行
func (c *Controller) MarkReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
}

// State 当前状态
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status 返回当前状态快照
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:      c.state.String(),
		Kind:       c.kind,
		Scene:      c.world.Loader().ActiveScene(),
		Target:     c.target,
		Ready:      c.ready,
		StageTicks: c.stageTicks,
		LastReport: c.last,
		LastClear:  c.lastClear,
	}
}

// Save 完整存档当前场景
func (c *Controller) Save(ctx context.Context) (*persist.Report, error) {
	if err := c.allow(persist.OpSave); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	scene, err := c.idleLocked()
	if err != nil {
		return nil, err
	}
	c.last = c.writer.SaveAll(ctx, c.env(), scene)
	return c.last, nil
}

// RequestLoad 开始完整读档：先重载当前场景，重载完成后的下一个 tick 执行恢复
func (c *Controller) RequestLoad(ctx context.Context) error {
	if err := c.allow(persist.OpLoad); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	scene, err := c.idleLocked()
	if err != nil {
		return err
	}
	return c.beginReloadLocked(scene, scene, RestoreFull)
}

// SaveLevel 关卡持久化保存（散落物品与容器）
func (c *Controller) SaveLevel(ctx context.Context) (*persist.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scene, err := c.idleLocked()
	if err != nil {
		return nil, err
	}
	c.last = c.writer.SaveLevel(ctx, c.env(), scene)
	return c.last, nil
}

// LoadLevel 关卡持久化恢复；控制器未就绪返回 ErrNotReady，有待执行的完整恢复时返回 ErrBusy
func (c *Controller) LoadLevel(ctx context.Context) (*persist.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil, apperrors.ErrNotReady
	}
	scene, err := c.idleLocked()
	if err != nil {
		return nil, err
	}
	c.last = c.reader.LoadLevel(ctx, c.env(), scene)
	return c.last, nil
}

// Transition 关卡切换：保存当前场景的关卡持久化，然后加载目标场景，到达后恢复其关卡持久化
func (c *Controller) Transition(ctx context.Context, target string) (*persist.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inManifest(target) {
		return nil, fmt.Errorf("controller: scene %q not in build manifest: %w", target, apperrors.ErrInvalidArg)
	}
	scene, err := c.idleLocked()
	if err != nil {
		return nil, err
	}
	rep := c.writer.SaveLevel(ctx, c.env(), scene)
	c.last = rep
	if err := c.beginReloadLocked(scene, target, RestoreLevel); err != nil {
		return rep, err
	}
	return rep, nil
}

func (c *Controller) inManifest(scene string) bool {
	for _, s := range c.manifest() {
		if s == scene {
			return true
		}
	}
	return false
}

// ClearAll 删除构建清单中每个场景的关卡持久化文件（新游戏时使用）；单个删除失败不影响其余
func (c *Controller) ClearAll(ctx context.Context) (store.DeleteReport, error) {
	if err := c.allow("clear"); err != nil {
		return store.DeleteReport{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return store.DeleteReport{}, apperrors.ErrBusy
	}
	started := time.Now()
	r := store.DeleteAll(ctx, c.store, c.manifest(), snapshot.LevelCategories(), c.logger)
	c.lastClear = &r
	result := "ok"
	if r.Failed > 0 {
		result = "partial"
	}
	metrics.ObserveOperation("clear", result, started)
	c.logger.Info("已清除全部关卡持久化数据", "deleted", r.Deleted, "absent", r.Absent, "failed", r.Failed)
	return r, nil
}

// SaveSlot 完整存档后打包到命名存档槽
func (c *Controller) SaveSlot(ctx context.Context, name string, overwrite bool) (slots.Info, error) {
	if c.slots == nil {
		return slots.Info{}, apperrors.ErrNotReady
	}
	if !slots.ValidName(name) {
		return slots.Info{}, fmt.Errorf("%w: %q", slots.ErrInvalidName, name)
	}
	if err := c.allow("save_slot"); err != nil {
		return slots.Info{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	scene, err := c.idleLocked()
	if err != nil {
		return slots.Info{}, err
	}
	if !overwrite && c.slots.Exists(name) {
		return slots.Info{}, fmt.Errorf("slots: %q: %w", name, apperrors.ErrSlotExists)
	}
	c.last = c.writer.SaveAll(ctx, c.env(), scene)
	return c.slots.Save(ctx, name, scene, overwrite)
}

// LoadSlot 把存档槽写回存储并重载槽所属场景，随后执行完整恢复
func (c *Controller) LoadSlot(ctx context.Context, name string) (slots.Info, error) {
	if c.slots == nil {
		return slots.Info{}, apperrors.ErrNotReady
	}
	if err := c.allow("load_slot"); err != nil {
		return slots.Info{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	scene, err := c.idleLocked()
	if err != nil {
		return slots.Info{}, err
	}
	info, err := c.slots.Restore(ctx, name, func(target string) error {
		if !c.inManifest(target) {
			return fmt.Errorf("controller: slot scene %q not in build manifest: %w", target, apperrors.ErrInvalidArg)
		}
		return nil
	})
	if err != nil {
		return slots.Info{}, err
	}
	return info, c.beginReloadLocked(scene, info.Scene, RestoreFull)
}

// ListSlots 列出存档槽
func (c *Controller) ListSlots() ([]slots.Info, error) {
	if c.slots == nil {
		return nil, apperrors.ErrNotReady
	}
	return c.slots.List()
}

// DeleteSlot 删除存档槽
func (c *Controller) DeleteSlot(name string) error {
	if c.slots == nil {
		return apperrors.ErrNotReady
	}
	return c.slots.Delete(name)
}

func (c *Controller) beginReloadLocked(from, to string, kind RestoreKind) error {
	loader := c.world.Loader()
	p, err := loader.BeginUnload(from)
	if err != nil {
		return apperrors.Wrapf(err, "controller: unload %q", from)
	}
	c.kind = kind
	c.target = to
	c.progress = p
	c.setState(StateUnloading)
	c.logger.Info("开始重载场景", "from", from, "to", to, "restore", string(kind))
	return nil
}

// Tick 推进状态机一步；由宿主每帧调用。重载完成后先进入 PendingRestore，
// 恢复在下一个 tick 执行
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		return

	case StateUnloading:
		if !c.progress.Done() {
			c.stalled()
			return
		}
		p, err := c.world.Loader().BeginLoad(c.target)
		if err != nil {
			c.abortLocked(apperrors.Wrapf(err, "load %q", c.target))
			return
		}
		c.progress = p
		c.setState(StateLoading)

	case StateLoading:
		if !c.progress.Done() {
			c.stalled()
			return
		}
		if err := c.world.Loader().SetActive(c.target); err != nil {
			c.abortLocked(apperrors.Wrapf(err, "activate %q", c.target))
			return
		}
		if c.kind == RestoreFull {
			c.respawnIfDead()
		}
		c.progress = nil
		c.setState(StatePendingRestore)

	case StatePendingRestore:
		scene := c.target
		switch c.kind {
		case RestoreFull:
			c.last = c.reader.LoadAll(ctx, c.env(), scene)
		case RestoreLevel:
			if c.ready {
				c.last = c.reader.LoadLevel(ctx, c.env(), scene)
			} else {
				c.logger.Warn("控制器未就绪，跳过关卡持久化恢复", "scene", scene)
			}
		}
		c.kind = RestoreNone
		c.target = ""
		c.setState(StateIdle)
	}
}

// stalled 记录重载阶段耗时；超过阈值只告警，不取消
func (c *Controller) stalled() {
	c.stageTicks++
	if n := c.opts.StallWarnTicks; n > 0 && c.stageTicks%n == 0 {
		c.logger.Warn("场景重载耗时过长", "state", c.state.String(), "target", c.target, "ticks", c.stageTicks)
	}
}

func (c *Controller) abortLocked(err error) {
	c.logger.Error("场景重载失败", "target", c.target, "error", err)
	metrics.OperationTotal.WithLabelValues(persist.OpLoad, "failed").Inc()
	c.kind = RestoreNone
	c.target = ""
	c.progress = nil
	c.setState(StateIdle)
}

func (c *Controller) respawnIfDead() {
	r, ok := c.world.(world.PlayerRespawner)
	if !ok || !r.PlayerDead() {
		return
	}
	if err := r.RespawnPlayer(); err != nil {
		c.logger.Error("复活玩家失败", "error", err)
		return
	}
	c.logger.Info("玩家已复活")
}
