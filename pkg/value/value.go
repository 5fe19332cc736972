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

// Package value defines the structured values exchanged with drivers and their
// conversion to and from the protobuf Struct wire form.
package value

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a dynamically typed structured value. The set of implementations is
// closed: Null, Bool, Number, String, List and Struct.
type Value interface {
	isValue()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Number is a double precision number.
type Number float64

// String is a UTF-8 string value.
type String string

// List is an ordered sequence of values.
type List []Value

// Struct maps field names to values.
type Struct map[string]Value

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (List) isValue()   {}
func (Struct) isValue() {}

func (Null) String() string { return "null" }

func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = fmt.Sprint(v)
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func (s Struct) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, s[k])
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

// FromAny converts native Go data (as produced by encoding/json or yaml
// decoding) into a Value. Integer types are widened to Number.
func FromAny(v any) (Value, error) {
	return fromAny(v, "")
}

func fromAny(v any, path string) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(x), nil
	case int:
		return Number(x), nil
	case int8:
		return Number(x), nil
	case int16:
		return Number(x), nil
	case int32:
		return Number(x), nil
	case int64:
		return Number(x), nil
	case uint:
		return Number(x), nil
	case uint8:
		return Number(x), nil
	case uint16:
		return Number(x), nil
	case uint32:
		return Number(x), nil
	case uint64:
		return Number(x), nil
	case []any:
		out := make(List, len(x))

		for i, item := range x {
			conv, err := fromAny(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}

			out[i] = conv
		}

		return out, nil
	case map[string]any:
		out := make(Struct, len(x))

		for k, item := range x {
			conv, err := fromAny(item, path+"."+k)
			if err != nil {
				return nil, err
			}

			out[k] = conv
		}

		return out, nil
	default:
		return nil, &KindError{Path: pathOrRoot(path), Kind: fmt.Sprintf("%T", v)}
	}
}

// Any converts a Value back into plain Go data: nil, bool, float64, string,
// []any or map[string]any.
func Any(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(x)
	case Number:
		return float64(x)
	case String:
		return string(x)
	case List:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Any(item)
		}

		return out
	case Struct:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Any(item)
		}

		return out
	default:
		return nil
	}
}

// AsString returns the string held by v.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)

	return string(s), ok
}

// AsNumber returns the number held by v.
func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)

	return float64(n), ok
}

// AsBool returns the boolean held by v.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)

	return bool(b), ok
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}

	return "$" + path
}
