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

// Package world 定义持久化引擎消费的外部协作方边界：数学值类型、实体注册表、
// 资源解析、武器管理与异步场景加载。引擎只通过这些接口读写活动场景。
package world

// Vec2 二维向量（视角方向、鼠标平滑等）
type Vec2 struct {
	X float32
	Y float32
}

// Vec3 三维向量
type Vec3 struct {
	X float32
	Y float32
	Z float32
}

// Up 世界坐标上方向
var Up = Vec3{Y: 1}

// Add 向量相加
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Quat 四元数旋转
type Quat struct {
	X float32
	Y float32
	Z float32
	W float32
}

// Identity 单位旋转
var Identity = Quat{W: 1}

// Transform 位置 + 旋转
type Transform struct {
	Position Vec3
	Rotation Quat
}

// PlayerStats 玩家生命与消耗系统数值
type PlayerStats struct {
	Health           int
	UseConsumeSystem bool
	Hydration        int
	HydrationRate    float32
	ThirstDamage     int
	HydrationTimer   float32
	Satiety          int
	SatietyRate      float32
	HungerDamage     int
	SatietyTimer     float32
}

// LookState 第一人称控制器的视角状态
type LookState struct {
	TargetDirection Vec2
	MouseAbsolute   Vec2
	SmoothMouse     Vec2
}
