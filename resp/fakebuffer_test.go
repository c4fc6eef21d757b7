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

// fakeBuffer is a minimal Buffer backed by an in-memory slice, standing
// in for internal/buffer's pooled implementation so these tests can
// drive Reader without pulling in bytebufferpool.
type fakeBuffer struct {
	data []byte
	pos  int
	refs int
}

func newFakeBuffer(s string) *fakeBuffer {
	return &fakeBuffer{data: []byte(s)}
}

func (b *fakeBuffer) Bytes() []byte { return b.data }
func (b *fakeBuffer) Pos() int      { return b.pos }
func (b *fakeBuffer) Last() int     { return len(b.data) }
func (b *fakeBuffer) Advance(n int) { b.pos += n }
func (b *fakeBuffer) IncRef()       { b.refs++ }

// feedInChunks drives r over data one byte at a time if chunk is 1, or in
// chunk-sized pieces otherwise, calling Parse after each Feed. It
// returns once Ready is true or the buffer is exhausted.
func feedInChunks(r *Reader, data []byte, chunk int) error {
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		buf := &fakeBuffer{data: data[off:end]}
		r.Feed(buf)
		if err := r.Parse(); err != nil {
			return err
		}
		if r.Ready() {
			return nil
		}
	}
	return nil
}
