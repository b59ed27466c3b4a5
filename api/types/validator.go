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
	"os"

	"github.com/canvasai/collab/internal/validation"
	"github.com/canvasai/collab/pkg/errors"
	"github.com/canvasai/collab/pkg/locker"
)

// ErrInvalidPayload is returned when a message payload does not validate.
var ErrInvalidPayload = errors.InvalidArgument("invalid payload").WithCode("ErrInvalidPayload")

// validate validates the payload and wraps violations as ErrInvalidPayload.
func validate(payload interface{}) error {
	if err := validation.ValidateStruct(payload); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidPayload)
	}
	return nil
}

func init() {
	if err := validation.RegisterValidation("lock_kind", func(level validation.FieldLevel) bool {
		return locker.Kind(level.Field().String()).IsValid()
	}); err != nil {
		fmt.Fprintln(os.Stderr, "lock kind: ", err)
		os.Exit(1)
	}

	if err := validation.RegisterTranslation("lock_kind", "{0} must be one of move, resize, rotate, edit"); err != nil {
		fmt.Fprintln(os.Stderr, "lock kind: ", err)
		os.Exit(1)
	}
}
