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

package errors

import (
	"errors"
)

// StatusError is an error a participant can be told about: a status naming
// the class of failure and a stable code naming the failure itself.
type StatusError interface {
	error
	Status() StatusCode
	Code() string
	WithCode(code string) StatusError
}

// sentinel is the StatusError of this package. Sentinels compare by
// identity, so wrapping one with fmt.Errorf keeps errors.Is working.
type sentinel struct {
	message string
	status  StatusCode
	code    string
}

func (e *sentinel) Error() string { return e.message }
func (e *sentinel) Status() StatusCode { return e.status }
func (e *sentinel) Code() string { return e.code }

// WithCode names the sentinel with the code reported in error messages,
// e.g. "ErrUnknownElement".
func (e *sentinel) WithCode(code string) StatusError {
	return &sentinel{message: e.message, status: e.status, code: code}
}

// WithStatus creates a sentinel of the given status.
func WithStatus(status StatusCode, message string) StatusError {
	return &sentinel{message: message, status: status}
}

// NotFound creates a sentinel for a missing room or participant.
func NotFound(message string) StatusError { return WithStatus(ErrCodeNotFound, message) }

// InvalidArgument creates a sentinel for a malformed request. Operations
// failing validation use it.
func InvalidArgument(message string) StatusError { return WithStatus(ErrCodeInvalidArgument, message) }

// PermissionDenied creates a sentinel for a role that forbids the request.
func PermissionDenied(message string) StatusError { return WithStatus(ErrCodePermissionDenied, message) }

// ResourceExhausted creates a sentinel for a hit room or message limit.
func ResourceExhausted(message string) StatusError {
	return WithStatus(ErrCodeResourceExhausted, message)
}

// FailedPrecond creates a sentinel for a request the room state does not
// allow yet, e.g. a message before join.
func FailedPrecond(message string) StatusError { return WithStatus(ErrCodeFailedPrecondition, message) }

// Unauthenticated creates a sentinel for a missing or bad join token.
func Unauthenticated(message string) StatusError { return WithStatus(ErrCodeUnauthenticated, message) }

// Internal creates a sentinel for a broken invariant.
func Internal(message string) StatusError { return WithStatus(ErrCodeInternal, message) }

// Unavailable creates a sentinel for a transient failure such as an
// unreachable snapshot store.
func Unavailable(message string) StatusError { return WithStatus(ErrCodeUnavailable, message) }

// StatusOf returns the status of the first StatusError in the chain, or 0.
func StatusOf(err error) StatusCode {
	var statusErr StatusError
	if err == nil || !errors.As(err, &statusErr) {
		return 0
	}
	return statusErr.Status()
}

// CodeOf returns the code of the first StatusError in the chain, or "".
func CodeOf(err error) string {
	var statusErr StatusError
	if !errors.As(err, &statusErr) {
		return ""
	}
	return statusErr.Code()
}

// Is reports whether err wraps target, so callers holding this package need
// no second errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
