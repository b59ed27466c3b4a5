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

// Package converter provides the framing of messages exchanged with
// participants and the encoding of document snapshots.
package converter

import (
	"encoding/json"
	"fmt"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/errors"
)

// ErrInvalidEnvelope is returned when a frame cannot be decoded.
var ErrInvalidEnvelope = errors.InvalidArgument("invalid envelope").WithCode("ErrInvalidEnvelope")

// validatable is a payload with its own validation.
type validatable interface {
	Validate() error
}

// ToEnvelope encodes the payload into a frame of the given type.
func ToEnvelope(msgType types.MessageType, id string, payload interface{}) ([]byte, error) {
	env := types.Envelope{Type: msgType, ID: id}
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = bytes
	}

	bytes, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return bytes, nil
}

// FromEnvelope decodes a frame without decoding its payload.
func FromEnvelope(data []byte) (*types.Envelope, error) {
	env := &types.Envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %s: %w", err.Error(), ErrInvalidEnvelope)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope without type: %w", ErrInvalidEnvelope)
	}
	return env, nil
}

// DecodePayload decodes the payload of the envelope into a T and validates
// it when T has a Validate method.
func DecodePayload[T any](env *types.Envelope) (*T, error) {
	payload := new(T)
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %s: %w", env.Type, err.Error(), ErrInvalidEnvelope)
		}
	}

	if v, ok := any(payload).(validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// ToErrorPayload converts the error into the payload reported to the
// sender.
func ToErrorPayload(err error) *types.Error {
	status := errors.StatusOf(err)
	if status == 0 {
		status = errors.ErrCodeInternal
	}

	code := errors.CodeOf(err)
	if code == "" {
		code = status.String()
	}

	return &types.Error{
		Code:    code,
		Status:  status.String(),
		Message: err.Error(),
	}
}
