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
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDriver logs lifecycle hooks into a shared slice.
type recordingDriver struct {
	*Base
	name     string
	log      *[]string
	resetErr error
	closeErr error
}

func newRecordingDriver(name string, log *[]string) *recordingDriver {
	return &recordingDriver{Base: NewBase(), name: name, log: log}
}

func (d *recordingDriver) Reset() error {
	*d.log = append(*d.log, "reset "+d.name)

	return d.resetErr
}

func (d *recordingDriver) Close() error {
	*d.log = append(*d.log, "close "+d.name)

	return d.closeErr
}

func buildTree(log *[]string) (root, power, serial, console *recordingDriver) {
	root = newRecordingDriver("root", log)
	power = newRecordingDriver("power", log)
	serial = newRecordingDriver("serial", log)
	console = newRecordingDriver("console", log)

	serial.AddChild("console", console)
	root.AddChild("power", power)
	root.AddChild("serial", serial)

	return root, power, serial, console
}

func TestTreeEnumerate(t *testing.T) {
	var log []string

	root, power, serial, console := buildTree(&log)

	nodes := NewTree(root).Enumerate()
	require.Len(t, nodes, 4)

	assert.Equal(t, root.UUID(), nodes[0].UUID)
	assert.Nil(t, nodes[0].Parent)
	assert.Empty(t, nodes[0].Name)

	assert.Equal(t, power.UUID(), nodes[1].UUID)
	assert.Equal(t, "power", nodes[1].Name)
	assert.Equal(t, root.UUID(), nodes[1].Parent.UUID())

	assert.Equal(t, serial.UUID(), nodes[2].UUID)
	assert.Equal(t, console.UUID(), nodes[3].UUID)
	assert.Equal(t, serial.UUID(), nodes[3].Parent.UUID())
	assert.Equal(t, "console", nodes[3].Name)
}

func TestTreeReset(t *testing.T) {
	var log []string

	root, power, _, _ := buildTree(&log)

	require.NoError(t, NewTree(root).Reset())
	assert.Equal(t, []string{"reset power", "reset console", "reset serial", "reset root"}, log)

	log = nil
	power.resetErr = errors.New("relay stuck")

	err := NewTree(root).Reset()
	require.Error(t, err)
	assert.Contains(t, err.Error(), power.UUID().String())
	assert.Equal(t, []string{"reset power"}, log)
}

func TestTreeCloseContinuesAfterFailure(t *testing.T) {
	var log []string

	root, _, serial, _ := buildTree(&log)
	serial.closeErr = errors.New("port busy")

	err := NewTree(root).Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, serial.closeErr)
	assert.Equal(t, []string{"close power", "close console", "close serial", "close root"}, log)
}

func TestTreeSingleLeaf(t *testing.T) {
	leaf := NewBase(WithUUID(uuid.MustParse("6a3b1a86-9a1f-4a47-9e55-6e0a3a4f2b10")))

	nodes := NewTree(leaf).Enumerate()
	require.Len(t, nodes, 1)
	assert.Equal(t, leaf.UUID(), nodes[0].UUID)

	require.NoError(t, NewTree(leaf).Reset())
	require.NoError(t, NewTree(leaf).Close())
}
