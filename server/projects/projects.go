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

// Package projects provides the collaborator that bootstraps room documents
// from saved projects and resolves participant roles.
package projects

import (
	"context"
	"fmt"
	"sync"

	"github.com/canvasai/collab/api/converter"
	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/errors"
)

var (
	// ErrProjectNotFound is returned when the project does not exist.
	ErrProjectNotFound = errors.NotFound("project not found").WithCode("ErrProjectNotFound")

	// ErrNotCollaborator is returned when the user is not a collaborator of
	// the project.
	ErrNotCollaborator = errors.PermissionDenied("not a collaborator of the project").WithCode("ErrNotCollaborator")
)

// Bootstrapper loads the initial document of a project and the roles of its
// collaborators.
type Bootstrapper interface {
	// InitialDocument returns the saved canvas of the project as a snapshot.
	InitialDocument(ctx context.Context, projectRef string) (*document.Snapshot, error)

	// Role returns the role of the user in the project.
	Role(ctx context.Context, projectRef, userID string) (types.Role, error)

	// Close closes the bootstrapper.
	Close() error
}

// Static is a Bootstrapper without a project database. Unknown projects
// start empty and every user gets the default role unless a role was set.
type Static struct {
	defaultRole types.Role

	mu       sync.RWMutex
	canvases map[string][]byte
	roles    map[string]map[string]types.Role
}

// NewStatic creates a new instance of Static.
func NewStatic(defaultRole types.Role) *Static {
	return &Static{
		defaultRole: defaultRole,
		canvases:    make(map[string][]byte),
		roles:       make(map[string]map[string]types.Role),
	}
}

// SetCanvas sets the saved canvas of the project.
func (s *Static) SetCanvas(projectRef string, canvas []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.canvases[projectRef] = canvas
}

// SetRole sets the role of the user in the project.
func (s *Static) SetRole(projectRef, userID string, role types.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[projectRef]; !ok {
		s.roles[projectRef] = make(map[string]types.Role)
	}
	s.roles[projectRef][userID] = role
}

// InitialDocument returns the saved canvas of the project.
func (s *Static) InitialDocument(_ context.Context, projectRef string) (*document.Snapshot, error) {
	s.mu.RLock()
	canvas := s.canvases[projectRef]
	s.mu.RUnlock()

	snap, err := converter.CanvasToSnapshot(canvas)
	if err != nil {
		return nil, fmt.Errorf("bootstrap %s: %w", projectRef, err)
	}
	return snap, nil
}

// Role returns the role of the user in the project.
func (s *Static) Role(_ context.Context, projectRef, userID string) (types.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if role, ok := s.roles[projectRef][userID]; ok {
		return role, nil
	}
	if s.defaultRole == "" {
		return "", fmt.Errorf("%s in %s: %w", userID, projectRef, ErrNotCollaborator)
	}
	return s.defaultRole, nil
}

// Close closes the bootstrapper.
func (s *Static) Close() error {
	return nil
}
