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

// Package tracing 为存档/读档流程提供 span 辅助；未初始化 provider 时为 no-op
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "worldsave"

// StartOperationSpan 开始一次完整的存档/读档 span
func StartOperationSpan(ctx context.Context, op string, scene string, opID string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "persist."+op,
		trace.WithAttributes(
			attribute.String("worldsave.op", op),
			attribute.String("worldsave.scene", scene),
			attribute.String("worldsave.op_id", opID),
		),
	)
}

// StartCategorySpan 开始单个分类的处理 span
func StartCategorySpan(ctx context.Context, op string, category string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "persist."+op+"."+category,
		trace.WithAttributes(
			attribute.String("worldsave.category", category),
		),
	)
}

// EndWithError 结束 span；err 非空时记录错误状态
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
