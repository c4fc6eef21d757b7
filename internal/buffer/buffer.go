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

// Package buffer implements resp.Buffer on top of a pooled byte slice.
//
// The reference zerocopy.Buffer this package is adapted from assumes a
// single owner per buffer and is reclaimed as soon as its one reader is
// done with it. resp.Reader needs more than that: a bulk string payload
// or a simple-line span can outlive the TCP read that produced it, held
// alive only by a Position pointing back into this Buffer, for as long
// as it takes a downstream consumer (the proxy's forwarder, a monitor
// subscriber) to drain it. So instead of a single-owner Close, a Buffer
// here carries an atomic reference count: the pool hands one out with
// refs==1, resp.Reader bumps it for every message span it opens against
// the buffer, and whoever holds the last reference returns it to the
// pool.
package buffer

import (
	"io"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"

	"github.com/corvusd/respcore/common"
)

// Buffer is a pooled, reference-counted resp.Buffer.
type Buffer struct {
	bb   *bytebufferpool.ByteBuffer
	pos  int
	last int
	refs int32
	pool *Pool
}

// Bytes returns the buffer's full backing slice.
func (b *Buffer) Bytes() []byte { return b.bb.B }

// Pos returns the current read cursor.
func (b *Buffer) Pos() int { return b.pos }

// Last returns one past the final readable byte.
func (b *Buffer) Last() int { return b.last }

// Advance moves the read cursor by n bytes, forward or backward.
func (b *Buffer) Advance(n int) { b.pos += n }

// IncRef increments the reference count. Called by resp.Reader exactly
// twice per completed message; any other holder (a forwarder about to
// enqueue a span for later draining) must call it too before letting go
// of its own reference.
func (b *Buffer) IncRef() { atomic.AddInt32(&b.refs, 1) }

// Release decrements the reference count, returning the buffer to its
// pool once it reaches zero. Every IncRef — the pool's initial one and
// every one taken afterward — must be matched by exactly one Release.
func (b *Buffer) Release() {
	if atomic.AddInt32(&b.refs, -1) == 0 {
		b.pool.put(b)
	}
}

// Fill reads once from r, appending whatever it returns to the buffer's
// unconsumed tail and extending Last to cover it. It never resets Pos,
// so a buffer that is still being consumed can grow in place instead of
// losing the reader's place in it.
func (b *Buffer) Fill(r io.Reader) (int, error) {
	start := len(b.bb.B)
	if cap(b.bb.B)-start < readChunk {
		grown := make([]byte, start, 2*start+readChunk)
		copy(grown, b.bb.B)
		b.bb.B = grown
	}
	n, err := r.Read(b.bb.B[start : start+readChunk])
	b.bb.B = b.bb.B[:start+n]
	b.last = len(b.bb.B)
	return n, err
}

// readChunk bounds a single Fill's growth so one slow write from a peer
// can't force an unbounded single allocation; the backing array still
// grows as needed across repeated Fill calls.
const readChunk = common.ReadWriteBlockSize

// Pool hands out reference-counted Buffers and reclaims them once their
// last reference is released, reusing the underlying byte slices across
// connections the way bytebufferpool.Pool already does for its callers.
type Pool struct {
	bbp bytebufferpool.Pool
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{}
}

// Get returns a Buffer with a single reference, ready for Fill.
func (p *Pool) Get() *Buffer {
	return &Buffer{bb: p.bbp.Get(), pool: p, refs: 1}
}

func (p *Pool) put(b *Buffer) {
	b.pos = 0
	b.last = 0
	p.bbp.Put(b.bb)
	b.bb = nil
}
