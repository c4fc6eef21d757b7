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

package buffer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferFillExtendsLast(t *testing.T) {
	p := NewPool()
	b := p.Get()

	n, err := b.Fill(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, b.Pos())
	assert.Equal(t, 5, b.Last())
	assert.Equal(t, "hello", string(b.Bytes()))
}

func TestBufferFillGrowsInPlaceWithoutLosingPos(t *testing.T) {
	p := NewPool()
	b := p.Get()

	_, err := b.Fill(strings.NewReader("hello"))
	require.NoError(t, err)
	b.Advance(3)

	_, err = b.Fill(strings.NewReader("world"))
	require.NoError(t, err)
	assert.Equal(t, 3, b.Pos())
	assert.Equal(t, 10, b.Last())
	assert.Equal(t, "helloworld", string(b.Bytes()))
}

func TestBufferReleaseReturnsToPoolOnlyAtZero(t *testing.T) {
	p := NewPool()
	b := p.Get()
	b.IncRef()
	b.IncRef()

	b.Release()
	assert.NotNil(t, b.bb, "buffer must stay alive while refs remain")
	b.Release()
	assert.NotNil(t, b.bb)
	b.Release()
	assert.Nil(t, b.bb, "buffer returns to the pool once refs reach zero")
}

func TestPoolGetAfterReleaseStartsEmpty(t *testing.T) {
	p := NewPool()
	first := p.Get()
	_, err := first.Fill(strings.NewReader("reused"))
	require.NoError(t, err)
	first.Release()

	second := p.Get()
	assert.Equal(t, 0, second.Pos())
	assert.Equal(t, 0, second.Last())
	assert.Len(t, second.Bytes(), 0)
}
