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

package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/hertz-contrib/jwt"
)

// IdentityKey JWT 中操作员身份的 claim 名
const IdentityKey = "operator"

type loginRequest struct {
	Operator string `json:"operator"`
	Token    string `json:"operator_token"`
}

// NewJWTAuth 创建 JWT 中间件：POST /api/login 以 operator_token 换取令牌
func NewJWTAuth(key []byte, operatorToken string, timeout, maxRefresh time.Duration) (*jwt.HertzJWTMiddleware, error) {
	if len(key) == 0 {
		return nil, errors.New("middleware: jwt key is empty")
	}
	if operatorToken == "" {
		return nil, errors.New("middleware: operator token is empty")
	}
	return jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "worldsave",
		Key:         key,
		Timeout:     timeout,
		MaxRefresh:  maxRefresh,
		IdentityKey: IdentityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if op, ok := data.(string); ok {
				return jwt.MapClaims{IdentityKey: op}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			return jwt.ExtractClaims(ctx, c)[IdentityKey]
		},
		Authenticator: func(ctx context.Context, c *app.RequestContext) (interface{}, error) {
			var req loginRequest
			if err := c.BindJSON(&req); err != nil || req.Token == "" {
				return nil, jwt.ErrMissingLoginValues
			}
			if subtle.ConstantTimeCompare([]byte(req.Token), []byte(operatorToken)) != 1 {
				return nil, jwt.ErrFailedAuthentication
			}
			if req.Operator == "" {
				req.Operator = "operator"
			}
			return req.Operator, nil
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, utils.H{"error": message})
		},
	})
}

// Operator 从请求中取出已认证的操作员名；未启用认证时为空
func Operator(c *app.RequestContext) string {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
