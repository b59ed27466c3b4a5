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

// Package errors provides structured error statuses shared by the merge
// engine, the session manager and the wire protocol.
package errors

import "fmt"

// StatusCode represents the error classes that cross the protocol boundary.
type StatusCode int

const (
	// ErrCodeInvalidArgument indicates a malformed request, e.g. an operation
	// whose payload does not match its kind.
	ErrCodeInvalidArgument StatusCode = 3

	// ErrCodeNotFound indicates that a room or participant does not exist.
	ErrCodeNotFound StatusCode = 5

	// ErrCodePermissionDenied indicates that the participant's role does not
	// allow the request.
	ErrCodePermissionDenied StatusCode = 7

	// ErrCodeResourceExhausted indicates that a room or message limit was hit.
	ErrCodeResourceExhausted StatusCode = 8

	// ErrCodeFailedPrecondition indicates that the room is not in a state in
	// which it can serve the request.
	ErrCodeFailedPrecondition StatusCode = 9

	// ErrCodeInternal indicates a broken invariant or a storage failure.
	ErrCodeInternal StatusCode = 13

	// ErrCodeUnavailable indicates a transient failure; clients may retry.
	ErrCodeUnavailable StatusCode = 14

	// ErrCodeUnauthenticated indicates a missing or invalid auth token.
	ErrCodeUnauthenticated StatusCode = 16
)

// String returns the string representation of the error code.
func (c StatusCode) String() string {
	switch c {
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodePermissionDenied:
		return "permission_denied"
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeFailedPrecondition:
		return "failed_precondition"
	case ErrCodeInternal:
		return "internal"
	case ErrCodeUnavailable:
		return "unavailable"
	case ErrCodeUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// IsClientError returns true if the error code represents a client-side error.
func (c StatusCode) IsClientError() bool {
	switch c {
	case ErrCodeInvalidArgument, ErrCodeNotFound, ErrCodePermissionDenied,
		ErrCodeResourceExhausted, ErrCodeFailedPrecondition, ErrCodeUnauthenticated:
		return true
	default:
		return false
	}
}
