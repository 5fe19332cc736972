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

package protocol

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Values ride inside the JSON envelope as binary protobuf (base64 in JSON).
// protojson refuses NaN and infinities, the binary form keeps every double.

type callJSON struct {
	UUID   string   `json:"uuid"`
	Method string   `json:"method"`
	Args   [][]byte `json:"args,omitempty"`
}

type resultJSON struct {
	UUID   string `json:"uuid"`
	Result []byte `json:"result"`
}

var valueMarshal = proto.MarshalOptions{Deterministic: true}

func marshalValue(v *structpb.Value) ([]byte, error) {
	if v == nil {
		v = structpb.NewNullValue()
	}

	return valueMarshal.Marshal(v)
}

func unmarshalValue(raw []byte) (*structpb.Value, error) {
	v := &structpb.Value{}
	if err := proto.Unmarshal(raw, v); err != nil {
		return nil, err
	}

	if v.GetKind() == nil {
		return structpb.NewNullValue(), nil
	}

	return v, nil
}

func marshalValues(values []*structpb.Value) ([][]byte, error) {
	out := make([][]byte, len(values))

	for i, v := range values {
		raw, err := marshalValue(v)
		if err != nil {
			return nil, err
		}

		out[i] = raw
	}

	return out, nil
}

func unmarshalValues(raws [][]byte) ([]*structpb.Value, error) {
	if raws == nil {
		return nil, nil
	}

	out := make([]*structpb.Value, len(raws))

	for i, raw := range raws {
		v, err := unmarshalValue(raw)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func marshalCall(id, method string, args []*structpb.Value) ([]byte, error) {
	raws, err := marshalValues(args)
	if err != nil {
		return nil, err
	}

	return json.Marshal(callJSON{UUID: id, Method: method, Args: raws})
}

func unmarshalCall(data []byte) (id, method string, args []*structpb.Value, err error) {
	var c callJSON
	if err = json.Unmarshal(data, &c); err != nil {
		return "", "", nil, err
	}

	args, err = unmarshalValues(c.Args)

	return c.UUID, c.Method, args, err
}

func marshalResult(id string, result *structpb.Value) ([]byte, error) {
	raw, err := marshalValue(result)
	if err != nil {
		return nil, err
	}

	return json.Marshal(resultJSON{UUID: id, Result: raw})
}

func unmarshalResult(data []byte) (id string, result *structpb.Value, err error) {
	var r resultJSON
	if err = json.Unmarshal(data, &r); err != nil {
		return "", nil, err
	}

	result, err = unmarshalValue(r.Result)

	return r.UUID, result, err
}

func (r DriverCallRequest) MarshalJSON() ([]byte, error) {
	return marshalCall(r.UUID, r.Method, r.Args)
}

func (r *DriverCallRequest) UnmarshalJSON(data []byte) (err error) {
	r.UUID, r.Method, r.Args, err = unmarshalCall(data)
	return err
}

func (r StreamingDriverCallRequest) MarshalJSON() ([]byte, error) {
	return marshalCall(r.UUID, r.Method, r.Args)
}

func (r *StreamingDriverCallRequest) UnmarshalJSON(data []byte) (err error) {
	r.UUID, r.Method, r.Args, err = unmarshalCall(data)
	return err
}

func (r DriverCallResponse) MarshalJSON() ([]byte, error) {
	return marshalResult(r.UUID, r.Result)
}

func (r *DriverCallResponse) UnmarshalJSON(data []byte) (err error) {
	r.UUID, r.Result, err = unmarshalResult(data)
	return err
}

func (r StreamingDriverCallResponse) MarshalJSON() ([]byte, error) {
	return marshalResult(r.UUID, r.Result)
}

func (r *StreamingDriverCallResponse) UnmarshalJSON(data []byte) (err error) {
	r.UUID, r.Result, err = unmarshalResult(data)
	return err
}
