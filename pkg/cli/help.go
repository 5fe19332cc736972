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

import (
	"fmt"
	"io"
)

// ShowHelp writes the usage message to w.
func ShowHelp(w io.Writer) {
	_, _ = fmt.Fprint(w, `jmp: talk to a jumpstarter exporter
Usage:
  jmp report [options]
  jmp call [options] <uuid> <method> [args...]
  jmp stream [options] <uuid> <method>
  jmp stream [options] -resource <uuid>
  jmp capture [-json] <file>
  jmp generate-certs -cert-dir <dir> [-host names]
  jmp version

Commands:
  report          Print the exporter identity and its driver tree
  call            Invoke a driver method; arguments are JSON values
  stream          Connect stdin and stdout to a device stream
  capture         Print the frames stored in a capture file
  generate-certs  Write a CA plus exporter and client certificates
  version         Print the jmp version

Connection options (report, call, stream):
  -target string       exporter address (default "`+DefaultTarget+`")
  -cert-dir string     directory holding ca.pem and client.pem; enables mTLS
  -server-name string  expected exporter certificate name
  -timeout duration    deadline for unary calls (default 30s)

Examples:
  # List the drivers of the local exporter
  jmp report

  # Power cycle a device for 5 seconds
  jmp call 0b1d... cycle 5

  # Attach a terminal to a serial console
  jmp stream 7f3a... connect

  # Upload an image through a resource
  jmp stream -resource 9c2e... < image.bin
`)
}
