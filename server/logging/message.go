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

package logging

import (
	"context"
	"errors"

	collaberrors "github.com/canvasai/collab/pkg/errors"
)

// MessageLogLevel is the severity of a failed participant message.
type MessageLogLevel int

// Message log levels.
const (
	MessageLogDebug MessageLogLevel = iota
	MessageLogInfo
	MessageLogWarn
	MessageLogError
)

// String returns the string representation of MessageLogLevel.
func (l MessageLogLevel) String() string {
	switch l {
	case MessageLogDebug:
		return "debug"
	case MessageLogInfo:
		return "info"
	case MessageLogError:
		return "error"
	}
	return "warn"
}

// toMessageLogLevel classifies the error by its status. Client mistakes are
// logged below server failures.
func toMessageLogLevel(err error) MessageLogLevel {
	if err == nil || errors.Is(err, context.Canceled) {
		return MessageLogDebug
	}

	switch collaberrors.StatusOf(err) {
	case collaberrors.ErrCodeInvalidArgument, collaberrors.ErrCodeNotFound:
		return MessageLogInfo
	case collaberrors.ErrCodeUnauthenticated, collaberrors.ErrCodePermissionDenied,
		collaberrors.ErrCodeFailedPrecondition, collaberrors.ErrCodeResourceExhausted:
		return MessageLogWarn
	case collaberrors.ErrCodeInternal, collaberrors.ErrCodeUnavailable:
		return MessageLogError
	}
	return MessageLogWarn
}

// LogMessageError logs the failure of a participant message at a level
// matching its status.
func LogMessageError(logger Logger, msgType string, err error) {
	switch toMessageLogLevel(err) {
	case MessageLogDebug:
		logger.Debugf("message %s: %v", msgType, err)
	case MessageLogInfo:
		logger.Infof("message %s: %v", msgType, err)
	case MessageLogWarn:
		logger.Warnf("message %s: %v", msgType, err)
	case MessageLogError:
		logger.Errorf("message %s: %v", msgType, err)
	}
}
