/*
 * Copyright 2026 The CanvasAI Collab Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package postgres implements the project bootstrapper on the project
// database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canvasai/collab/api/converter"
	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/projects"
)

const (
	selectCanvas = `SELECT canvas_data FROM projects WHERE id = $1`
	selectRole   = `SELECT role FROM project_collaborators WHERE project_id = $1 AND user_id = $2`
)

// Querier is the part of a pgx pool used by the bootstrapper.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Bootstrapper reads saved canvases and collaborator roles from Postgres.
type Bootstrapper struct {
	db    Querier
	close func()
}

// Dial connects to the project database.
func Dial(ctx context.Context, conf *Config) (*Bootstrapper, error) {
	ctx, cancel := context.WithTimeout(ctx, conf.ParseConnectTimeout())
	defer cancel()

	pool, err := pgxpool.New(ctx, conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logging.DefaultLogger().Infof("Postgres connected, host: %s", pool.Config().ConnConfig.Host)

	return &Bootstrapper{
		db:    pool,
		close: pool.Close,
	}, nil
}

// New creates a bootstrapper on the given querier.
func New(db Querier) *Bootstrapper {
	return &Bootstrapper{db: db}
}

// InitialDocument returns the saved canvas of the project as a snapshot.
func (b *Bootstrapper) InitialDocument(ctx context.Context, projectRef string) (*document.Snapshot, error) {
	var canvas []byte
	if err := b.db.QueryRow(ctx, selectCanvas, projectRef).Scan(&canvas); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", projectRef, projects.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("select canvas of %s: %w", projectRef, err)
	}

	snap, err := converter.CanvasToSnapshot(canvas)
	if err != nil {
		return nil, fmt.Errorf("bootstrap %s: %w", projectRef, err)
	}
	return snap, nil
}

// Role returns the role of the user in the project.
func (b *Bootstrapper) Role(ctx context.Context, projectRef, userID string) (types.Role, error) {
	var role string
	if err := b.db.QueryRow(ctx, selectRole, projectRef, userID).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s in %s: %w", userID, projectRef, projects.ErrNotCollaborator)
		}
		return "", fmt.Errorf("select role of %s: %w", userID, err)
	}

	parsed, err := types.ParseRole(role)
	if err != nil {
		return "", fmt.Errorf("role of %s in %s: %w", userID, projectRef, err)
	}
	return parsed, nil
}

// Close closes the connection pool.
func (b *Bootstrapper) Close() error {
	if b.close != nil {
		b.close()
	}
	return nil
}
