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

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"google.golang.org/grpc"

	apigrpc "worldsave/internal/api/grpc"
	"worldsave/internal/api/http"
	"worldsave/internal/api/http/middleware"
	"worldsave/internal/app"
	"worldsave/internal/app/worker"
	"worldsave/pkg/config"
	"worldsave/pkg/log"
	"worldsave/pkg/tracing"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：装配 HTTP Router、gRPC 服务与世界驱动
type App struct {
	config       *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	grpcServer   *grpcRun
	driver       *worker.App
	otelProvider otelProviderShutdown
	logFile      io.Closer
}

// grpcRun 持有 gRPC Server 与 Listener，用于 GracefulStop 时关闭
type grpcRun struct {
	srv *grpc.Server
	lis net.Listener
}

func (g *grpcRun) GracefulStop() {
	if g.srv != nil {
		g.srv.GracefulStop()
	}
}

// NewApp 根据 Bootstrap 创建 API 应用
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config
	logger := bootstrap.Logger.Logger

	handler := http.NewHandler(bootstrap.Controller, logger)
	router := http.NewRouter(handler, middleware.NewMiddleware(cfg.API.CORS))
	router.SetAudit(middleware.NewAuditMiddleware(logger))
	router.SetMetricsEnabled(cfg.Monitoring.Prometheus.Enable)

	mw := cfg.API.Middleware
	if mw.RateLimit {
		router.SetRateLimit(mw.RateLimitRPS)
	}
	if mw.Auth {
		timeout := parseDuration(mw.JWTTimeout, time.Hour)
		maxRefresh := parseDuration(mw.JWTMaxRefresh, time.Hour)
		jwtAuth, err := middleware.NewJWTAuth([]byte(mw.JWTKey), mw.OperatorToken, timeout, maxRefresh)
		if err != nil {
			return nil, fmt.Errorf("初始化 JWT 认证失败: %w", err)
		}
		router.SetJWT(jwtAuth)
		logger.Info("API 认证已启用")
	}

	return &App{
		config: bootstrap,
		router: router,
		driver: worker.NewApp(bootstrap.World, bootstrap.Controller, cfg.Controller.TickInterval, logger),
	}, nil
}

// Run 启动世界驱动与可选的 gRPC 服务，然后阻塞运行 HTTP 服务
func (a *App) Run(addr string) error {
	cfg := a.config.Config
	logger := a.config.Logger.Logger

	a.setHertzLogger()
	a.driver.Start(context.Background())

	if cfg.API.Grpc.Enable {
		g, err := startGRPC(a.config, cfg.API.Grpc.Port, cfg.API.Middleware)
		if err != nil {
			return fmt.Errorf("启动 gRPC 失败: %w", err)
		}
		a.grpcServer = g
		logger.Info("gRPC 服务已启动", "addr", g.lis.Addr().String())
	}

	a.hertz = a.buildServer(addr)
	return a.hertz.Run()
}

// setHertzLogger 把 Hertz 内部日志接到与应用相同的输出与级别
func (a *App) setHertzLogger() {
	cfg := a.config.Config
	var output io.Writer = os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			output = f
			a.logFile = f
		} else {
			a.config.Logger.Logger.Warn("打开 Hertz 日志文件失败，改用标准输出", "file", cfg.Log.File, "error", err)
		}
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(cfg.Log.Level))
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))
}

// buildServer 按配置启用链路追踪后构建 Hertz 服务
func (a *App) buildServer(addr string) *server.Hertz {
	tc := a.config.Config.Monitoring.Tracing
	logger := a.config.Logger.Logger
	if !tc.Enable {
		return a.router.Build(addr)
	}
	serviceName := tc.ServiceName
	if serviceName == "" {
		serviceName = "worldsave"
	}
	exportEndpoint := tc.ExportEndpoint
	if exportEndpoint == "" {
		exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if exportEndpoint == "" {
		logger.Warn("链路追踪已开启但未配置导出地址，跳过")
		return a.router.Build(addr)
	}

	switch tc.Provider {
	case "otlphttp":
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    serviceName,
			ExportEndpoint: exportEndpoint,
			Insecure:       tc.Insecure,
		})
		if err != nil {
			logger.Error("初始化 OTLP tracer 失败", "error", err)
			return a.router.Build(addr)
		}
		a.otelProvider = tp
	default:
		opts := []provider.Option{
			provider.WithServiceName(serviceName),
			provider.WithExportEndpoint(exportEndpoint),
		}
		if tc.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
	}

	tracerOpt, cfg := hertztracing.NewServerTracer()
	h := a.router.Build(addr, tracerOpt)
	h.Use(hertztracing.ServerMiddleware(cfg))
	logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint, "provider", tc.Provider)
	return h
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
	if err := a.driver.Shutdown(ctx); err != nil {
		return err
	}
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.logFile != nil {
		hlog.SetOutput(os.Stderr)
		_ = a.logFile.Close()
		a.logFile = nil
	}
	return a.config.Close()
}

// parseDuration 解析时长字符串，无效或空时返回 defaultVal
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// startGRPC 创建并启动 gRPC 服务（在 goroutine 中 Serve）；启用认证时每次调用须携带操作员口令
func startGRPC(b *app.Bootstrap, port int, mw config.MiddlewareConfig) (*grpcRun, error) {
	var opts []grpc.ServerOption
	if mw.Auth {
		if mw.OperatorToken == "" {
			return nil, fmt.Errorf("gRPC 认证需要 operator_token")
		}
		opts = append(opts, grpc.UnaryInterceptor(apigrpc.TokenAuth(mw.OperatorToken)))
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	srv := grpc.NewServer(opts...)
	apigrpc.NewServer(b.Controller).Register(srv)
	logger := b.Logger.Logger
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC 服务异常退出", "error", err)
		}
	}()
	return &grpcRun{srv: srv, lis: lis}, nil
}
