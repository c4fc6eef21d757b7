// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

const (
	// App names the process for metrics namespacing and logging.
	App = "respd"

	// Version is the module's own release version, distinct from the
	// RESP protocol version a connection negotiates via HELLO.
	Version = "v0.0.1"

	// ReadWriteBlockSize bounds a single socket read into a pooled
	// internal/buffer.Buffer.
	ReadWriteBlockSize = 4096
)
