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

package types

import (
	"fmt"

	"github.com/canvasai/collab/pkg/errors"
)

// Role is the role of a user on a project.
type Role string

const (
	// RoleOwner owns the project.
	RoleOwner Role = "owner"

	// RoleEditor can edit the canvas.
	RoleEditor Role = "editor"

	// RoleCommenter can follow the session but not edit the canvas.
	RoleCommenter Role = "commenter"

	// RoleViewer can follow the session but not edit the canvas.
	RoleViewer Role = "viewer"
)

// ErrInvalidRole is returned when the role is unknown.
var ErrInvalidRole = errors.InvalidArgument("invalid role").WithCode("ErrInvalidRole")

// ParseRole returns the role of the given string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOwner, RoleEditor, RoleCommenter, RoleViewer:
		return r, nil
	}
	return "", fmt.Errorf("parse role %q: %w", s, ErrInvalidRole)
}

// CanEdit returns whether the role may change the document or take locks.
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}
