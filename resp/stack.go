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

// maxStackDepth bounds the parse-task stack: one frame for the outer
// message plus up to eight levels of nested arrays. An array nested
// deeper than that pushes past the ninth frame and is rejected as a
// protocol error rather than growing the stack without bound.
const maxStackDepth = 9

// task tracks the in-progress value at one array-nesting level: a
// cursor into the value's children, a residual-elements countdown, and
// the child currently under construction (current), distinct from the
// frame's own value (value) — a frame that is itself a bare, non-array
// value keeps it in value directly and never sets current at all.
type task struct {
	typ      Type
	value    *Value
	idx      int
	elements int // -1 until the header has been parsed
	current  *Value
}

func (t *task) reset() {
	t.typ = Unknown
	t.value = nil
	t.idx = 0
	t.elements = -1
	t.current = nil
}

// taskStack is the bounded, explicit stack that encodes RESP's array
// recursion without the parser's inner loop ever recursing itself.
type taskStack struct {
	tasks [maxStackDepth]task
	sidx  int // -1 means empty
}

func newTaskStack() *taskStack {
	s := &taskStack{sidx: -1}
	return s
}

func (s *taskStack) reset() {
	for i := 0; i <= s.sidx; i++ {
		s.tasks[i].reset()
	}
	s.sidx = -1
}

// top returns the task currently being worked on.
func (s *taskStack) top() *task {
	return &s.tasks[s.sidx]
}

// push opens a new nesting level. It fails once depth would exceed
// maxStackDepth, i.e. more than eight levels of array nesting.
func (s *taskStack) push() (*task, error) {
	if s.sidx+1 >= maxStackDepth {
		return nil, newProtocolError("array nesting exceeds depth %d", maxStackDepth-1)
	}
	s.sidx++
	t := &s.tasks[s.sidx]
	t.reset()
	return t, nil
}

// pop completes the task at the top of the stack and reports how its
// value should be dispatched:
//
//   - (value, true) — the popped value is the reader's completed
//     top-level message; the caller should move to the End state.
//   - (nil, false) — the value was attached as the next child of its
//     parent array; the caller should continue parsing siblings (or, if
//     the parent also just completed, pop has already cascaded into it).
func (s *taskStack) pop() (*Value, bool) {
	cur := &s.tasks[s.sidx]
	if s.sidx == 0 {
		v := cur.value
		cur.reset()
		return v, true
	}

	s.sidx--
	parent := &s.tasks[s.sidx]
	// Every frame above the base one was pushed for a nested array
	// child, so the parent here is always mid-Array; a bare value never
	// owns children and so never pushes a frame for one.
	parent.value.Elements[parent.idx] = cur.value
	parent.idx++
	cur.value = nil
	parent.elements--
	if parent.idx >= len(parent.value.Elements) {
		return s.pop()
	}
	return nil, false
}
