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

package resp

// Reader drives the state machine over a sequence of fed Buffers. It is
// single-threaded and cooperative: every suspension point is a return
// from Parse, and the caller is expected to Feed the next Buffer (or
// more of the same one) before calling Parse again. A Reader that
// returns an error from Parse has hit a ProtocolError and must not be
// reused.
type Reader struct {
	ctx   *Context
	stack *taskStack

	buf Buffer

	state state
	sign  int

	arraySize  int64
	stringSize int64

	data  *Value
	ready bool

	start      Span
	end        Span
	startTaken bool
}

// NewReader allocates a Reader bound to ctx for its Value free-list. ctx
// may be shared across many Readers; it is never touched concurrently
// by this package so sharing is only safe across Readers that are
// themselves never driven concurrently with each other.
func NewReader(ctx *Context) *Reader {
	r := &Reader{ctx: ctx, stack: newTaskStack()}
	r.Init()
	return r
}

// Init resets the Reader to parse a brand new message from byte zero,
// discarding any in-progress parse state. It does not touch ctx's
// free-list or any Value the caller already obtained from a prior
// Parse; the caller is responsible for calling Context.Free on those
// first if it intends to discard them.
func (r *Reader) Init() {
	r.stack.reset()
	r.stack.push() //nolint:errcheck // depth 1 on an empty stack never fails
	r.state = stateType
	r.sign = 1
	r.arraySize = 0
	r.stringSize = 0
	r.data = nil
	r.ready = false
	r.startTaken = false
}

// Feed hands the Reader a new Buffer to resume parsing from. The
// Buffer's Pos must point at the next unconsumed byte; Parse advances
// it in place as it consumes bytes.
func (r *Reader) Feed(buf Buffer) {
	r.buf = buf
}

// Parse drives the state machine forward until either a complete
// message is ready, the current buffer is exhausted, or a
// ProtocolError is hit. It returns immediately, without error, once
// Ready reports true — call Parse again only after consuming that
// message (typically via Next).
func (r *Reader) Parse() error {
	for !r.ready && r.buf != nil && r.buf.Pos() < r.buf.Last() {
		if err := r.step(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) step() error {
	switch r.state {
	case stateType:
		return r.stepType()
	case stateArrayBegin:
		return r.stepArrayBegin()
	case stateArrayLF:
		return r.stepArrayLF()
	case stateStringBegin:
		return r.stepStringBegin()
	case stateStringHeaderLF:
		return r.stepStringHeaderLF()
	case stateStringEntity:
		return r.stepStringEntity()
	case stateStringCR:
		return r.stepStringCR()
	case stateStringLF:
		return r.stepStringLF()
	case stateIntegerBegin:
		return r.stepIntegerBegin()
	case stateIntegerLF:
		return r.stepIntegerLF()
	case stateSimpleEntity:
		return r.stepSimpleEntity()
	case stateSimpleCR:
		return r.stepSimpleCR()
	case stateSimpleLF:
		return r.stepSimpleLF()
	case stateEnd:
		return r.stepEnd()
	default:
		return newProtocolError("reader: unreachable state %d", r.state)
	}
}

// Ready reports whether a complete message is sitting in Data, waiting
// to be consumed.
func (r *Reader) Ready() bool {
	return r.ready
}

// Data returns the most recently completed message. It is only
// meaningful while Ready reports true.
func (r *Reader) Data() *Value {
	return r.data
}

// MessageSpan returns the buffer span of the most recently completed
// message: Start at its first byte, End one past its last. Both ends
// carry a reference the Reader took via Buffer.IncRef when the message
// began and finished respectively; the caller owns releasing them once
// it is done with the message.
func (r *Reader) MessageSpan() MessageSpan {
	return MessageSpan{Start: r.start, End: r.end}
}

// Next clears Ready and Data so Parse can resume producing the
// following message. It does not free the Value that was in Data — use
// Context.Free for that once the caller is done reading it.
func (r *Reader) Next() {
	r.ready = false
	r.data = nil
}

// PendingStart reports the still-open start reference of a message that
// was begun but never finished — the Reader took a Buffer.IncRef for it
// that no matching End reference will ever balance. ok is false once no
// message is in flight. A caller tearing the Reader down via Free
// should check this first and release the reference itself; Free never
// decrements a Buffer's refcount on the caller's behalf.
func (r *Reader) PendingStart() (span Span, ok bool) {
	return r.start, r.startTaken
}

// Free tears the Reader down: any message still held in Data is
// returned to ctx's free-list, and all parse state is discarded. The
// Reader is left ready for Init to be called again, but Free itself
// does not call Init — a Reader that is Free'd and never reused is
// simply dropped.
func (r *Reader) Free() {
	if r.data != nil {
		r.ctx.Free(r.data)
		r.data = nil
	}
	r.stack.reset()
	r.startTaken = false
	r.ready = false
}
