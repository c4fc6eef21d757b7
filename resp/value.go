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

// Type tags the variant a Value currently holds.
type Type uint8

const (
	// Unknown is the placeholder type of a task-local Value before its
	// type byte has been seen.
	Unknown Type = iota
	Array
	BulkString
	Integer
	SimpleString
	Error
)

func (t Type) String() string {
	switch t {
	case Array:
		return "Array"
	case BulkString:
		return "BulkString"
	case Integer:
		return "Integer"
	case SimpleString:
		return "SimpleString"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Value is one decoded RESP value: a tagged variant over array, bulk
// string, integer, simple string, and error, plus the free-list linkage
// that lets a Context reuse it across parses.
type Value struct {
	typ Type

	// Integer holds the payload for Type == Integer.
	Integer int64

	// Spans holds the payload for Type == BulkString, SimpleString, or
	// Error.
	Spans PositionArray

	// Elements holds the children for Type == Array, populated left to
	// right as each completes. len(Elements) == Count once complete.
	Elements []*Value

	// Count is the array's declared element count (set from the *<n>
	// header) or the null-bulk-string sentinel length (-1) for
	// BulkString.
	Count int

	// nullArray records whether an Array value arrived as *-1 rather
	// than *0 — both collapse to zero Elements, but a caller that cares
	// about the distinction can still ask.
	nullArray bool

	next *Value // free-list linkage
}

// Type reports the value's variant.
func (v *Value) Type() Type { return v.typ }

// NullBulkString reports whether a BulkString value is the RESP null
// bulk string ($-1\r\n), as opposed to an empty one ($0\r\n).
func (v *Value) NullBulkString() bool {
	return v.typ == BulkString && v.Count == -1
}

// NullArray reports whether an Array value arrived as *-1\r\n rather
// than *0\r\n. Both produce zero Elements; this bit preserves the
// distinction for callers that want it.
func (v *Value) NullArray() bool {
	return v.typ == Array && v.nullArray
}

// Bytes materializes a BulkString, SimpleString, or Error payload into a
// single contiguous slice. It returns false for the null bulk string.
func (v *Value) Bytes() ([]byte, bool) {
	return v.Spans.ToBytes()
}

func (v *Value) reset() {
	v.typ = Unknown
	v.Integer = 0
	v.Elements = nil
	v.Count = 0
	v.nullArray = false
	v.next = nil
}

// Context owns the free-list of released Values, the sole collaborator a
// Reader needs to avoid allocating on its steady-state hot path.
type Context struct {
	free  *Value
	nfree int
}

// NewContext returns an empty Context with no nodes on its free-list.
func NewContext() *Context {
	return &Context{}
}

// NumFree reports how many Values currently sit on the free-list.
func (c *Context) NumFree() int {
	return c.nfree
}

// get returns a Value of the given type, popped from the free-list if
// one is available, or freshly allocated otherwise.
func (c *Context) get(typ Type) *Value {
	var v *Value
	if c.free != nil {
		v = c.free
		c.free = v.next
		c.nfree--
		v.reset()
	} else {
		v = &Value{}
	}
	v.typ = typ
	return v
}

// Free recursively returns v and its whole subtree to the free-list.
// Array children are freed first (depth-first); each string variant's
// PositionArray is destroyed outright, since position arrays are never
// pooled.
func (c *Context) Free(v *Value) {
	if v == nil {
		return
	}
	switch v.typ {
	case Array:
		for _, child := range v.Elements {
			c.Free(child)
		}
		v.Elements = nil
	case BulkString, SimpleString, Error:
		v.Spans.destroy()
	}
	v.next = c.free
	c.free = v
	c.nfree++
}
