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

package driver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouteTarget(t *testing.T) {
	id := uuid.MustParse("3f0e2d9c-6a57-4f4f-9a7f-2c5c1f1f0a01")

	tests := []struct {
		name    string
		raw     string
		want    RouteTarget
		wantErr bool
	}{
		{
			name: "driver",
			raw:  `{"kind":"driver","uuid":"3f0e2d9c-6a57-4f4f-9a7f-2c5c1f1f0a01","method":"connect"}`,
			want: DriverRoute(id, "connect"),
		},
		{
			name: "resource",
			raw:  `{"kind":"resource","uuid":"3f0e2d9c-6a57-4f4f-9a7f-2c5c1f1f0a01"}`,
			want: ResourceRoute(id),
		},
		{name: "not json", raw: `driver:connect`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
		{name: "bad uuid", raw: `{"kind":"driver","uuid":"xyz","method":"connect"}`, wantErr: true},
		{name: "missing uuid", raw: `{"kind":"resource"}`, wantErr: true},
		{name: "driver without method", raw: `{"kind":"driver","uuid":"3f0e2d9c-6a57-4f4f-9a7f-2c5c1f1f0a01"}`, wantErr: true},
		{name: "unknown kind", raw: `{"kind":"socket","uuid":"3f0e2d9c-6a57-4f4f-9a7f-2c5c1f1f0a01"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRouteTarget(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRoute)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouteTargetEncode(t *testing.T) {
	id := uuid.MustParse("3f0e2d9c-6a57-4f4f-9a7f-2c5c1f1f0a01")

	raw, err := ResourceRoute(id).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"resource","uuid":"3f0e2d9c-6a57-4f4f-9a7f-2c5c1f1f0a01"}`, raw)

	raw, err = DriverRoute(id, "connect").Encode()
	require.NoError(t, err)

	back, err := ParseRouteTarget(raw)
	require.NoError(t, err)
	assert.Equal(t, DriverRoute(id, "connect"), back)
	assert.Equal(t, "driver:3f0e2d9c-6a57-4f4f-9a7f-2c5c1f1f0a01/connect", back.String())
}
