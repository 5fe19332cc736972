/*
 * Copyright 2025 The Jumpstarter Authors.
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

package value

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind is returned when a wire value has no structured counterpart.
	ErrUnsupportedKind = errors.New("unsupported value kind")
)

// KindError reports the location of an unsupported value inside a nested structure.
type KindError struct {
	Path string
	Kind string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s at %s: %s", ErrUnsupportedKind, e.Path, e.Kind)
}

func (*KindError) Unwrap() error {
	return ErrUnsupportedKind
}
