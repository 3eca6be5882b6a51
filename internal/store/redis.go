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
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"worldsave/internal/snapshot"
)

// RedisStore Redis 存储：key 为 <prefix><scene>_<category>
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 连接 Redis 并 Ping 校验
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(category snapshot.Category, scene string) string {
	return s.prefix + snapshot.FileName(scene, category)
}

func (s *RedisStore) Write(ctx context.Context, category snapshot.Category, scene string, payload []byte) error {
	return s.client.Set(ctx, s.key(category, scene), payload, 0).Err()
}

func (s *RedisStore) Read(ctx context.Context, category snapshot.Category, scene string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(category, scene)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Delete(ctx context.Context, category snapshot.Category, scene string) error {
	n, err := s.client.Del(ctx, s.key(category, scene)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
