// Copyright 2025 The respcore Authors
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

// Package resp implements an incremental, restartable parser for the
// Redis Serialization Protocol (RESP).
//
// The parser is driven by a caller that owns the socket: it hands the
// reader one buffer at a time via Feed, then calls Parse in a loop until
// either more bytes are required or a complete top-level value is ready.
// A value may span any number of buffers without ever being copied —
// string payloads are represented as PositionArray spans pointing back
// into the caller's buffers, and the caller is required to keep a buffer
// alive for as long as any Value decoded from it still holds spans into
// it.
//
// This package does not validate RESP commands semantically, does not
// enforce a maximum message size, and does not encode RESP output — it
// only decodes.
package resp
