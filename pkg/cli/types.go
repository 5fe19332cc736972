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

package cli

import "time"

// CmdConfig holds parsed command-line configuration.
type CmdConfig struct {
	Help       bool
	SubCmd     string
	Target     string
	CertDir    string
	ServerName string
	Timeout    time.Duration
	JSON       bool
	Streaming  bool
	Resource   bool
	Device     string
	Method     string
	Args       []string
	File       string
	Hosts      []string
}
