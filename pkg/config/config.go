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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	Save       SaveConfig       `mapstructure:"save"`
	Store      StoreConfig      `mapstructure:"store"`
	Scenes     ScenesConfig     `mapstructure:"scenes"`
	Controller ControllerConfig `mapstructure:"controller"`
	World      WorldConfig      `mapstructure:"world"`
	Slots      SlotsConfig      `mapstructure:"slots"`
	API        APIConfig        `mapstructure:"api"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// SaveConfig 存档目录解析配置
type SaveConfig struct {
	Mode        string `mapstructure:"mode"`         // dev | packaged
	AssetDir    string `mapstructure:"asset_dir"`    // dev 模式下的资源目录，SaveGames 位于其父目录
	Root        string `mapstructure:"root"`         // 显式指定根目录，优先级最高
	DirName     string `mapstructure:"dir_name"`     // 存档子目录名，默认 SaveGames
	AtomicWrite *bool  `mapstructure:"atomic_write"` // 写入临时文件后 rename；未配置时默认 true
}

// StoreConfig 快照存储后端配置
type StoreConfig struct {
	Type      string `mapstructure:"type"` // file | memory | redis | postgres
	Addr      string `mapstructure:"addr"`
	DB        int    `mapstructure:"db"`
	Password  string `mapstructure:"password"` // 支持 ${ENV} 或 secret://key
	DSN       string `mapstructure:"dsn"`      // 支持 ${ENV} 或 secret://key
	KeyPrefix string `mapstructure:"key_prefix"`
	Table     string `mapstructure:"table"`
}

// ScenesConfig 构建清单（对应引擎 build settings 中的场景列表）
type ScenesConfig struct {
	Manifest []string `mapstructure:"manifest"`
	Start    string   `mapstructure:"start"`
}

// ControllerConfig 持久化控制器配置
type ControllerConfig struct {
	TickInterval   string  `mapstructure:"tick_interval"`    // 如 "16ms"
	StallWarnTicks int     `mapstructure:"stall_warn_ticks"` // 场景重载超过该 tick 数时告警，<=0 不告警
	TriggerRPS     float64 `mapstructure:"trigger_rps"`      // 手动存档/读档触发限流，<=0 不限流
	TriggerBurst   int     `mapstructure:"trigger_burst"`
}

// WorldConfig 内置演示世界配置
type WorldConfig struct {
	LoadTicks      int      `mapstructure:"load_ticks"` // 异步卸载/加载所需 tick 数
	Characters     []string `mapstructure:"characters"`
	Items          []string `mapstructure:"items"`
	Weapons        []string `mapstructure:"weapons"` // items 中属于武器的名称
	HostileName    string   `mapstructure:"hostile"`
	InventoryWidth int      `mapstructure:"inventory_width"`
	InventoryRows  int      `mapstructure:"inventory_rows"`
}

// SlotsConfig 命名存档槽配置
type SlotsConfig struct {
	DirName string `mapstructure:"dir_name"` // 默认 SavedGames
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	Grpc       GrpcConfig       `mapstructure:"grpc"`
}

// GrpcConfig gRPC 服务配置
type GrpcConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool   `mapstructure:"auth"`
	RateLimit     bool   `mapstructure:"rate_limit"`
	RateLimitRPS  int    `mapstructure:"rate_limit_rps"`
	JWTKey        string `mapstructure:"jwt_key"`
	JWTTimeout    string `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string `mapstructure:"jwt_max_refresh"` // 如 "1h"
	OperatorToken string `mapstructure:"operator_token"`  // 登录换取 JWT 的口令
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	Provider       string `mapstructure:"provider"` // hertz（默认，obs-opentelemetry）| otlphttp
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// SecretsConfig 密钥来源配置
type SecretsConfig struct {
	Provider  string            `mapstructure:"provider"`   // memory | env | file | vault
	EnvPrefix string            `mapstructure:"env_prefix"` // provider=env 时的变量名前缀，默认 WORLDSAVE_SECRET_
	Dir       string            `mapstructure:"dir"`        // provider=file 时的挂载目录
	Values    map[string]string `mapstructure:"values"`     // provider=memory 时的静态值，仅开发环境
	Vault     VaultConfig       `mapstructure:"vault"`
}

// VaultConfig Vault 连接配置
type VaultConfig struct {
	Address    string            `mapstructure:"address"`
	Token      string            `mapstructure:"token"`
	PathPrefix string            `mapstructure:"path_prefix"`
	Paths      map[string]string `mapstructure:"paths"` // key -> "<path>#<field>"
}

// AtomicWriteEnabled 返回是否启用原子写，未配置时默认 true
func (s SaveConfig) AtomicWriteEnabled() bool {
	if s.AtomicWrite == nil {
		return true
	}
	return *s.AtomicWrite
}

// Defaults 返回无配置文件时可直接使用的默认配置
func Defaults() *Config {
	return &Config{
		Save:  SaveConfig{Mode: "packaged", DirName: "SaveGames"},
		Store: StoreConfig{Type: "file", KeyPrefix: "worldsave:", Table: "world_snapshots"},
		Scenes: ScenesConfig{
			Manifest: []string{"MainMenu_P", "Level_01", "Level_02"},
			Start:    "Level_01",
		},
		Controller: ControllerConfig{TickInterval: "16ms", StallWarnTicks: 600, TriggerRPS: 2, TriggerBurst: 1},
		World: WorldConfig{
			LoadTicks:      3,
			Characters:     []string{"Trader", "Guard"},
			Items:          []string{"Bandage", "Ammo", "Medkit", "Pistol", "Canned Food", "Water"},
			Weapons:        []string{"Pistol"},
			HostileName:    "Zombie",
			InventoryWidth: 8,
			InventoryRows:  6,
		},
		Slots: SlotsConfig{DirName: "SavedGames"},
		API:   APIConfig{Port: 8080, Host: "0.0.0.0", Grpc: GrpcConfig{Port: 9090}},
		Log:   LogConfig{Level: "info", Format: "json"},
		Monitoring: MonitoringConfig{
			Prometheus: PrometheusConfig{Enable: true},
			Tracing:    TracingConfig{ServiceName: "worldsave"},
		},
		Secrets: SecretsConfig{Provider: "env"},
	}
}

// Validate 校验枚举型字段
func (c *Config) Validate() error {
	switch c.Save.Mode {
	case "", "dev", "packaged":
	default:
		return fmt.Errorf("不支持的 save.mode: %s", c.Save.Mode)
	}
	switch c.Store.Type {
	case "", "file", "memory", "redis", "postgres":
	default:
		return fmt.Errorf("不支持的 store.type: %s", c.Store.Type)
	}
	if c.Store.Type == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.type=postgres 时 store.dsn 必填")
	}
	if c.Store.Type == "redis" && c.Store.Addr == "" {
		return fmt.Errorf("store.type=redis 时 store.addr 必填")
	}
	return nil
}

// LoadConfig 加载配置文件；未出现在文件中的字段沿用 Defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	config := Defaults()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// replaceEnvVars 替换配置中的 ${ENV} 占位
func replaceEnvVars(config *Config) {
	config.Store.Password = expandEnv(config.Store.Password)
	config.Store.DSN = expandEnv(config.Store.DSN)
	config.API.Middleware.JWTKey = expandEnv(config.API.Middleware.JWTKey)
	config.API.Middleware.OperatorToken = expandEnv(config.API.Middleware.OperatorToken)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
}

func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	envVar := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return s
}
