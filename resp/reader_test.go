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

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, input string) *Value {
	t.Helper()
	r := NewReader(NewContext())
	buf := newFakeBuffer(input)
	r.Feed(buf)
	require.NoError(t, r.Parse())
	require.True(t, r.Ready(), "expected a complete message from %q", input)
	return r.Data()
}

func TestReaderDecodesEachType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, v *Value)
	}{
		{
			name:  "simple string",
			input: "+OK\r\n",
			check: func(t *testing.T, v *Value) {
				assert.Equal(t, SimpleString, v.Type())
				b, ok := v.Bytes()
				assert.True(t, ok)
				assert.Equal(t, "OK", string(b))
			},
		},
		{
			name:  "error",
			input: "-WRONGTYPE bad value\r\n",
			check: func(t *testing.T, v *Value) {
				assert.Equal(t, Error, v.Type())
				b, _ := v.Bytes()
				assert.Equal(t, "WRONGTYPE bad value", string(b))
			},
		},
		{
			name:  "positive integer",
			input: ":1000\r\n",
			check: func(t *testing.T, v *Value) {
				assert.Equal(t, Integer, v.Type())
				assert.EqualValues(t, 1000, v.Integer)
			},
		},
		{
			name:  "negative integer",
			input: ":-9223372036854775808\r\n",
			check: func(t *testing.T, v *Value) {
				assert.Equal(t, Integer, v.Type())
				assert.EqualValues(t, -9223372036854775808, v.Integer)
			},
		},
		{
			name:  "bulk string",
			input: "$5\r\nhello\r\n",
			check: func(t *testing.T, v *Value) {
				assert.Equal(t, BulkString, v.Type())
				b, ok := v.Bytes()
				assert.True(t, ok)
				assert.Equal(t, "hello", string(b))
			},
		},
		{
			name:  "bulk string containing a raw newline",
			input: "$11\r\nHello\nWorld\r\n",
			check: func(t *testing.T, v *Value) {
				b, ok := v.Bytes()
				assert.True(t, ok)
				assert.Equal(t, "Hello\nWorld", string(b))
			},
		},
		{
			name:  "null bulk string",
			input: "$-1\r\n",
			check: func(t *testing.T, v *Value) {
				assert.True(t, v.NullBulkString())
				_, ok := v.Bytes()
				assert.False(t, ok)
			},
		},
		{
			name:  "empty bulk string",
			input: "$0\r\n\r\n",
			check: func(t *testing.T, v *Value) {
				assert.False(t, v.NullBulkString())
				b, ok := v.Bytes()
				assert.True(t, ok)
				assert.Equal(t, "", string(b))
			},
		},
		{
			name:  "empty array",
			input: "*0\r\n",
			check: func(t *testing.T, v *Value) {
				assert.Equal(t, Array, v.Type())
				assert.False(t, v.NullArray())
				assert.Len(t, v.Elements, 0)
			},
		},
		{
			name:  "null array",
			input: "*-1\r\n",
			check: func(t *testing.T, v *Value) {
				assert.Equal(t, Array, v.Type())
				assert.True(t, v.NullArray())
				assert.Len(t, v.Elements, 0)
			},
		},
		{
			name:  "flat array of bulk strings",
			input: "*3\r\n$3\r\nSET\r\n$4\r\nkey1\r\n$5\r\nvalue\r\n",
			check: func(t *testing.T, v *Value) {
				require.Len(t, v.Elements, 3)
				b, _ := v.Elements[0].Bytes()
				assert.Equal(t, "SET", string(b))
				b, _ = v.Elements[2].Bytes()
				assert.Equal(t, "value", string(b))
			},
		},
		{
			name:  "nested arrays and mixed leaf types",
			input: "*3\r\n:100\r\n$-1\r\n*3\r\n+OK\r\n-ERR\r\n:42\r\n",
			check: func(t *testing.T, v *Value) {
				require.Len(t, v.Elements, 3)
				assert.EqualValues(t, 100, v.Elements[0].Integer)
				assert.True(t, v.Elements[1].NullBulkString())

				inner := v.Elements[2]
				require.Len(t, inner.Elements, 3)
				assert.Equal(t, SimpleString, inner.Elements[0].Type())
				assert.Equal(t, Error, inner.Elements[1].Type())
				assert.EqualValues(t, 42, inner.Elements[2].Integer)
			},
		},
		{
			name:  "array containing a null array",
			input: "*2\r\n*-1\r\n:1\r\n",
			check: func(t *testing.T, v *Value) {
				require.Len(t, v.Elements, 2)
				assert.True(t, v.Elements[0].NullArray())
				assert.EqualValues(t, 1, v.Elements[1].Integer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, parseOne(t, tt.input))
		})
	}
}

func TestReaderDeeplyNestedArray(t *testing.T) {
	// Nine levels of array nesting is exactly the bound maxStackDepth
	// allows: the outer message counts as the first level.
	input := strings.Repeat("*1\r\n", 9) + ":7\r\n"
	v := parseOne(t, input)

	for i := 0; i < 9; i++ {
		require.Len(t, v.Elements, 1)
		v = v.Elements[0]
	}
	assert.EqualValues(t, 7, v.Integer)
}

func TestReaderNestingBeyondBoundIsProtocolError(t *testing.T) {
	input := strings.Repeat("*1\r\n", 10) + ":7\r\n"
	r := NewReader(NewContext())
	buf := newFakeBuffer(input)
	r.Feed(buf)
	err := r.Parse()
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))
}

func TestReaderMalformedInputIsProtocolError(t *testing.T) {
	tests := []string{
		"invalid\r\n",
		"*abc\r\n",
		"*2\r\n:1X\r\n",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			r := NewReader(NewContext())
			buf := newFakeBuffer(input)
			r.Feed(buf)
			err := r.Parse()
			require.Error(t, err)
			assert.True(t, IsProtocolError(err))
		})
	}
}

func TestReaderIsInvariantUnderByteSplitting(t *testing.T) {
	input := "*5\r\n" +
		":100\r\n" +
		"$-1\r\n" +
		"*3\r\n+OK\r\n-ERR\r\n:42\r\n" +
		"*2\r\n*2\r\n$5\r\nhello\r\n$5\r\nworld\r\n*1\r\n:99\r\n" +
		"$7\r\n\x00\xFF\xFE\xFD\xFC\xFB\xFA\r\n"

	data := []byte(input)
	for _, chunk := range []int{1, 2, 3, 7, len(data)} {
		r := NewReader(NewContext())
		require.NoError(t, feedInChunks(r, data, chunk))
		require.True(t, r.Ready(), "chunk size %d did not complete the message", chunk)

		v := r.Data()
		require.Len(t, v.Elements, 5)
		assert.EqualValues(t, 100, v.Elements[0].Integer)
		assert.True(t, v.Elements[1].NullBulkString())
		assert.Len(t, v.Elements[2].Elements, 3)
		assert.Len(t, v.Elements[3].Elements, 2)
		b, _ := v.Elements[4].Bytes()
		assert.Equal(t, "\x00\xFF\xFE\xFD\xFC\xFB\xFA", string(b))
	}
}

func TestReaderTakesExactlyTwoReferencesPerMessage(t *testing.T) {
	r := NewReader(NewContext())
	buf := newFakeBuffer("+OK\r\n")
	r.Feed(buf)
	require.NoError(t, r.Parse())
	require.True(t, r.Ready())

	assert.Equal(t, 2, buf.refs)

	span := r.MessageSpan()
	assert.Same(t, buf, span.Start.Buf)
	assert.Same(t, buf, span.End.Buf)
	assert.Equal(t, 0, span.Start.Pos)
	assert.Equal(t, 5, span.End.Pos)
}

func TestReaderHandlesMultipleMessagesBackToBack(t *testing.T) {
	r := NewReader(NewContext())
	buf := newFakeBuffer("+OK\r\n:5\r\n")
	r.Feed(buf)

	require.NoError(t, r.Parse())
	require.True(t, r.Ready())
	assert.Equal(t, SimpleString, r.Data().Type())
	r.Next()

	require.NoError(t, r.Parse())
	require.True(t, r.Ready())
	assert.Equal(t, Integer, r.Data().Type())
	assert.EqualValues(t, 5, r.Data().Integer)
}

func TestReaderParseIsIdempotentOnceReady(t *testing.T) {
	r := NewReader(NewContext())
	buf := newFakeBuffer("+OK\r\n")
	r.Feed(buf)
	require.NoError(t, r.Parse())
	require.True(t, r.Ready())

	posBefore := buf.Pos()
	require.NoError(t, r.Parse())
	assert.True(t, r.Ready())
	assert.Equal(t, posBefore, buf.Pos(), "Parse must not consume further bytes while a message is pending")
}

func TestReaderPendingStartSurvivesAPartialMessage(t *testing.T) {
	r := NewReader(NewContext())
	buf := newFakeBuffer("$10\r\nabc")
	r.Feed(buf)
	require.NoError(t, r.Parse())
	assert.False(t, r.Ready())

	span, ok := r.PendingStart()
	require.True(t, ok)
	assert.Same(t, buf, span.Buf)

	r.Free()
	_, ok = r.PendingStart()
	assert.False(t, ok)
}
