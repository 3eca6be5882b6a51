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
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"worldsave/internal/snapshot"
)

const defaultTable = "world_snapshots"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore PostgreSQL 存储：每个 (scene, category) 一行，写入为 upsert
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore 创建连接池并确保表存在
func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("store: invalid table name %q", table)
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s := &PostgresStore{pool: pool, table: pgx.Identifier{table}.Sanitize()}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		scene      TEXT        NOT NULL,
		category   TEXT        NOT NULL,
		payload    BYTEA       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (scene, category)
	)`)
	if err != nil {
		return fmt.Errorf("store: create table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Write(ctx context.Context, category snapshot.Category, scene string, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (scene, category, payload, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (scene, category) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		scene, string(category), payload)
	return err
}

func (s *PostgresStore) Read(ctx context.Context, category snapshot.Category, scene string) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM `+s.table+` WHERE scene = $1 AND category = $2`,
		scene, string(category)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return payload, err
}

func (s *PostgresStore) Delete(ctx context.Context, category snapshot.Category, scene string) error {
	cmd, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.table+` WHERE scene = $1 AND category = $2`,
		scene, string(category))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
