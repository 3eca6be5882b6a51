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

package persist

import (
	"time"

	"github.com/google/uuid"

	"worldsave/internal/snapshot"
)

// 操作名，同时用作指标与 span 标签
const (
	OpSave      = "save"
	OpLoad      = "load"
	OpSaveLevel = "save_level"
	OpLoadLevel = "load_level"
)

// Status 单个类别的处理结果
type Status string

const (
	StatusOK     Status = "ok"
	StatusAbsent Status = "absent" // 无载荷，该类别无需处理
	StatusFailed Status = "failed"
)

// CategoryResult 一个类别的处理结果
type CategoryResult struct {
	Category snapshot.Category `json:"category"`
	Status   Status            `json:"status"`
	Cleared  int               `json:"cleared,omitempty"`
	Entities int               `json:"entities"` // 写入或重建的实体数
	Skipped  int               `json:"skipped"`
	Bytes    int               `json:"bytes,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Report 一次存档/读档的结果；失败只体现在这里，不会中断后续类别
type Report struct {
	ID         string           `json:"id"`
	Op         string           `json:"op"`
	Scene      string           `json:"scene"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Categories []CategoryResult `json:"categories"`
}

func newReport(op, scene string) *Report {
	return &Report{ID: uuid.NewString(), Op: op, Scene: scene, StartedAt: time.Now()}
}

func (r *Report) add(res CategoryResult) {
	r.Categories = append(r.Categories, res)
}

func (r *Report) finish() {
	r.FinishedAt = time.Now()
}

// Result 查找某个类别的结果
func (r *Report) Result(c snapshot.Category) (CategoryResult, bool) {
	for _, res := range r.Categories {
		if res.Category == c {
			return res, true
		}
	}
	return CategoryResult{}, false
}

// FailedCount 失败类别数
func (r *Report) FailedCount() int {
	n := 0
	for _, res := range r.Categories {
		if res.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Outcome ok 或 partial（至少一个类别失败）
func (r *Report) Outcome() string {
	if r.FailedCount() > 0 {
		return "partial"
	}
	return "ok"
}
