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

package grpc

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const bearerPrefix = "Bearer "

// TokenAuth 要求每次调用在 authorization 元数据中携带 "Bearer <operator_token>"，
// 与 HTTP 登录使用同一口令
func TokenAuth(token string) grpc.UnaryServerInterceptor {
	want := []byte(token)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		for _, v := range md.Get("authorization") {
			got, ok := strings.CutPrefix(v, bearerPrefix)
			if ok && subtle.ConstantTimeCompare([]byte(got), want) == 1 {
				return handler(ctx, req)
			}
		}
		return nil, status.Error(codes.Unauthenticated, "missing or invalid operator token")
	}
}

type tokenCredentials struct {
	token  string
	secure bool
}

func (t tokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": bearerPrefix + t.token}, nil
}

func (t tokenCredentials) RequireTransportSecurity() bool { return t.secure }

// WithToken 客户端在每次调用上附带操作员口令；secure 为 true 时只允许 TLS 连接
func WithToken(token string, secure bool) grpc.DialOption {
	return grpc.WithPerRPCCredentials(tokenCredentials{token: token, secure: secure})
}
