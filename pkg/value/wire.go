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
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToWire encodes v as a protobuf Value. It never fails; a nil Value encodes as null.
func ToWire(v Value) *structpb.Value {
	switch x := v.(type) {
	case nil, Null:
		return structpb.NewNullValue()
	case Bool:
		return structpb.NewBoolValue(bool(x))
	case Number:
		return structpb.NewNumberValue(float64(x))
	case String:
		return structpb.NewStringValue(string(x))
	case List:
		values := make([]*structpb.Value, len(x))
		for i, item := range x {
			values[i] = ToWire(item)
		}

		return structpb.NewListValue(&structpb.ListValue{Values: values})
	case Struct:
		fields := make(map[string]*structpb.Value, len(x))
		for k, item := range x {
			fields[k] = ToWire(item)
		}

		return structpb.NewStructValue(&structpb.Struct{Fields: fields})
	default:
		return structpb.NewNullValue()
	}
}

// FromWire decodes a protobuf Value. A nil pointer or a value with no kind set
// decodes to Null.
func FromWire(w *structpb.Value) (Value, error) {
	return fromWire(w, "")
}

func fromWire(w *structpb.Value, path string) (Value, error) {
	if w == nil || w.GetKind() == nil {
		return Null{}, nil
	}

	switch k := w.GetKind().(type) {
	case *structpb.Value_NullValue:
		return Null{}, nil
	case *structpb.Value_BoolValue:
		return Bool(k.BoolValue), nil
	case *structpb.Value_NumberValue:
		return Number(k.NumberValue), nil
	case *structpb.Value_StringValue:
		return String(k.StringValue), nil
	case *structpb.Value_ListValue:
		items := k.ListValue.GetValues()
		out := make(List, len(items))

		for i, item := range items {
			v, err := fromWire(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	case *structpb.Value_StructValue:
		fields := k.StructValue.GetFields()
		out := make(Struct, len(fields))

		for name, item := range fields {
			v, err := fromWire(item, path+"."+name)
			if err != nil {
				return nil, err
			}

			out[name] = v
		}

		return out, nil
	default:
		return nil, &KindError{Path: pathOrRoot(path), Kind: fmt.Sprintf("%T", k)}
	}
}

// ToWireList encodes an argument or result vector.
func ToWireList(values []Value) []*structpb.Value {
	out := make([]*structpb.Value, len(values))
	for i, v := range values {
		out[i] = ToWire(v)
	}

	return out
}

// FromWireList decodes an argument vector, attributing failures to the argument index.
func FromWireList(values []*structpb.Value) ([]Value, error) {
	out := make([]Value, len(values))

	for i, w := range values {
		v, err := fromWire(w, fmt.Sprintf("[%d]", i))
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}
