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

package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		OperationTotal, OperationDuration,
		CategoryTotal, EntitySkippedTotal,
		ControllerState, PayloadBytes,
	)
}

// OperationTotal 存档/读档操作总数（按结果）
var OperationTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worldsave_operation_total",
		Help: "存档/读档操作总数",
	},
	[]string{"op", "result"}, // op: save | load | save_level | load_level | clear；result: ok | partial | failed | rejected
)

// OperationDuration 单次操作耗时（秒），只统计同步的快照读写部分
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "worldsave_operation_duration_seconds",
		Help:    "存档/读档同步阶段耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"op"},
)

// CategoryTotal 每个分类的处理结果
var CategoryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worldsave_category_total",
		Help: "按分类统计的快照处理结果",
	},
	[]string{"op", "category", "status"}, // status: ok | absent | failed
)

// EntitySkippedTotal 因模板缺失等原因被跳过的实体数
var EntitySkippedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worldsave_entity_skipped_total",
		Help: "重建时被跳过的实体数",
	},
	[]string{"category", "reason"},
)

// ControllerState 控制器当前状态（0=idle 1=unloading 2=loading 3=pending_restore）
var ControllerState = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "worldsave_controller_state",
		Help: "持久化控制器状态机当前状态",
	},
)

// PayloadBytes 写入的快照载荷大小
var PayloadBytes = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "worldsave_payload_bytes",
		Help:    "写入的快照载荷字节数",
		Buckets: prometheus.ExponentialBuckets(64, 4, 8),
	},
	[]string{"category"},
)

// ObserveOperation 记录一次操作的结果与耗时
func ObserveOperation(op, result string, started time.Time) {
	OperationTotal.WithLabelValues(op, result).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
