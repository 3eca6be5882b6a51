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

// Package grpc 提供 gRPC 服务端，与 HTTP 能力对齐；服务 worldsave.v1.Persistence 以
// emptypb 为请求、structpb 为响应，不依赖生成代码。
package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"worldsave/internal/controller"
	apperrors "worldsave/pkg/errors"
)

// ServiceName 完整服务名
const ServiceName = "worldsave.v1.Persistence"

// PersistenceServer 服务端接口
type PersistenceServer interface {
	Save(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Load(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	ClearAll(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Status(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

type call func(s PersistenceServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)

func unary(method string, fn call) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(PersistenceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(srv.(PersistenceServer), ctx, req.(*emptypb.Empty))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc worldsave.v1.Persistence 的服务描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PersistenceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Save", PersistenceServer.Save),
		unary("Load", PersistenceServer.Load),
		unary("ClearAll", PersistenceServer.ClearAll),
		unary("Status", PersistenceServer.Status),
	},
	Metadata: "worldsave/v1/persistence.proto",
}

// Server gRPC 服务端，持有持久化控制器
type Server struct {
	ctrl *controller.Controller
}

var _ PersistenceServer = (*Server)(nil)

// NewServer 根据注入的控制器创建 gRPC Server
func NewServer(ctrl *controller.Controller) *Server {
	return &Server{ctrl: ctrl}
}

// Register 注册服务到 grpc.Server
func (s *Server) Register(grpcServer *grpc.Server) {
	grpcServer.RegisterService(&ServiceDesc, s)
}

// Save 完整存档
func (s *Server) Save(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rep, err := s.ctrl.Save(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(rep)
}

// Load 开始完整读档，返回受理时的控制器状态
func (s *Server) Load(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ctrl.RequestLoad(ctx); err != nil {
		return nil, toStatus(err)
	}
	return toStruct(s.ctrl.Status())
}

// ClearAll 清除全部关卡持久化
func (s *Server) ClearAll(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	r, err := s.ctrl.ClearAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(r)
}

// Status 控制器状态
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.ctrl.Status())
}

// toStruct 经 JSON 转为 structpb，字段名与 HTTP 响应一致
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case apperrors.Is(err, controller.ErrThrottled):
		return status.Error(codes.ResourceExhausted, err.Error())
	case apperrors.Is(err, apperrors.ErrBusy):
		return status.Error(codes.Aborted, err.Error())
	case apperrors.Is(err, apperrors.ErrNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	case apperrors.Is(err, apperrors.ErrInvalidArg):
		return status.Error(codes.InvalidArgument, err.Error())
	case apperrors.Is(err, apperrors.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// Client worldsave.v1.Persistence 客户端
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 基于已建立的连接创建客户端
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Save(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Save", opts...)
}

func (c *Client) Load(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Load", opts...)
}

func (c *Client) ClearAll(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ClearAll", opts...)
}

func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Status", opts...)
}
