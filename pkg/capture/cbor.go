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

package capture

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: failed to create CBOR encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a single record.
func Marshal(rec Record) ([]byte, error) {
	return encMode.Marshal(rec)
}

// Unmarshal decodes a single record.
func Unmarshal(data []byte) (Record, error) {
	var rec Record
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}

	return rec, nil
}

// ReadAll decodes every record in r, which holds concatenated CBOR items.
func ReadAll(r io.Reader) ([]Record, error) {
	dec := decMode.NewDecoder(r)

	var records []Record

	for {
		var rec Record

		err := dec.Decode(&rec)
		if err == io.EOF {
			return records, nil
		}

		if err != nil {
			return records, fmt.Errorf("capture: record %d: %w", len(records), err)
		}

		records = append(records, rec)
	}
}
