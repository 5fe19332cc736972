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
	"fmt"
)

type tree struct {
	root Driver
}

// NewTree returns the tree rooted at root. Children are discovered through
// the Parent interface on every call, so the tree reflects later changes.
func NewTree(root Driver) Tree {
	return &tree{root: root}
}

func (t *tree) Enumerate() []Node {
	var nodes []Node

	walk(t.root, nil, "", func(n Node) {
		nodes = append(nodes, n)
	})

	return nodes
}

func walk(d, parent Driver, name string, visit func(Node)) {
	visit(Node{UUID: d.UUID(), Parent: parent, Name: name, Driver: d})

	p, ok := d.(Parent)
	if !ok {
		return
	}

	for _, child := range p.Children() {
		walk(child.Driver, d, child.Name, visit)
	}
}

// Reset resets children before their parent and stops at the first failure.
func (t *tree) Reset() error {
	return postOrder(t.root, func(d Driver) error {
		r, ok := d.(Resetter)
		if !ok {
			return nil
		}

		if err := r.Reset(); err != nil {
			return fmt.Errorf("reset %s: %w", d.UUID(), err)
		}

		return nil
	}, true)
}

// Close closes children before their parent. Every driver is closed even
// when some fail; the failures are joined.
func (t *tree) Close() error {
	return postOrder(t.root, func(d Driver) error {
		c, ok := d.(Closer)
		if !ok {
			return nil
		}

		if err := c.Close(); err != nil {
			return fmt.Errorf("close %s: %w", d.UUID(), err)
		}

		return nil
	}, false)
}

func postOrder(d Driver, fn func(Driver) error, failFast bool) error {
	var errs []error

	if p, ok := d.(Parent); ok {
		for _, child := range p.Children() {
			if err := postOrder(child.Driver, fn, failFast); err != nil {
				if failFast {
					return err
				}

				errs = append(errs, err)
			}
		}
	}

	if err := fn(d); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
