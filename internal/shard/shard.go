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

// Package shard picks which of a fixed pool of worker slots should own a
// new proxied connection, so total concurrency stays bounded regardless
// of how many connections are in flight.
package shard

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/valyala/bytebufferpool"

	"github.com/corvusd/respcore/common/socket"
)

// Table is a fixed-size set of worker slots.
type Table struct {
	n int
}

// New returns a Table with n slots. n must be positive.
func New(n int) *Table {
	if n <= 0 {
		n = 1
	}
	return &Table{n: n}
}

// Len reports the number of worker slots.
func (t *Table) Len() int {
	return t.n
}

// Pick hashes the connection's 4-tuple and maps it into [0, Len()),
// giving every connection between the same two endpoints the same slot
// for the lifetime of the table.
func (t *Table) Pick(tuple socket.Tuple) int {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(tuple.SrcIP.String())
	buf.WriteByte(':')
	buf.WriteString(strconv.Itoa(int(tuple.SrcPort)))
	buf.WriteByte('>')
	buf.WriteString(tuple.DstIP.String())
	buf.WriteByte(':')
	buf.WriteString(strconv.Itoa(int(tuple.DstPort)))

	h := xxhash.Sum64(buf.Bytes())
	return int(h % uint64(t.n))
}
