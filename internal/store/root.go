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

package store

import (
	"log/slog"
	"os"
	"path/filepath"

	"worldsave/pkg/config"
)

const (
	defaultSaveDirName = "SaveGames"
	defaultAssetDir    = "Assets"
)

// ResolveSaveRoot 解析存档目录并在首次使用时创建：
// root 显式指定时为 <root>/<dir_name>；dev 模式位于资源目录的父目录；packaged 模式位于可执行文件旁。
// 目录创建失败只记录日志，调用方继续尽力而为
func ResolveSaveRoot(cfg config.SaveConfig, logger *slog.Logger) string {
	name := cfg.DirName
	if name == "" {
		name = defaultSaveDirName
	}
	return ResolveDir(cfg, name, logger)
}

// ResolveDir 与 ResolveSaveRoot 相同的根目录规则，子目录名由调用方指定
func ResolveDir(cfg config.SaveConfig, dirName string, logger *slog.Logger) string {
	dir := filepath.Join(baseDir(cfg), dirName)
	if err := os.MkdirAll(dir, 0755); err != nil && logger != nil {
		logger.Error("创建存档目录失败", "dir", dir, "error", err)
	}
	return dir
}

func baseDir(cfg config.SaveConfig) string {
	if cfg.Root != "" {
		return cfg.Root
	}
	if cfg.Mode == "dev" {
		assets := cfg.AssetDir
		if assets == "" {
			assets = defaultAssetDir
		}
		if abs, err := filepath.Abs(assets); err == nil {
			assets = abs
		}
		return filepath.Dir(assets)
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
