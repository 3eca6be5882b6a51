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

// Package errors 提供统一错误辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// 常用哨兵错误（持久化各层共享）
var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidArg = errors.New("invalid argument")
	// ErrBusy 已有存档/读档操作在进行中
	ErrBusy = errors.New("operation already in flight")
	// ErrNotReady 场景常驻单例尚未初始化
	ErrNotReady = errors.New("scene not ready")
	// ErrTemplateNotFound 资源库中找不到对应模板
	ErrTemplateNotFound = errors.New("template not found")
	// ErrSlotExists 同名存档槽已存在且未允许覆盖
	ErrSlotExists = errors.New("save slot already exists")
)

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is 透传标准库 errors.Is，避免调用方同时引入两个 errors 包
func Is(err, target error) bool {
	return errors.Is(err, target)
}
