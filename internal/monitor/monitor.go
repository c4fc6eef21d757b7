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

// Package monitor mirrors decoded request messages to any number of
// subscribers, the way Redis's own MONITOR command taps a server's
// command stream without disturbing it.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/corvusd/respcore/common/socket"
	"github.com/corvusd/respcore/internal/metrics"
	"github.com/corvusd/respcore/internal/pubsub"
	"github.com/corvusd/respcore/resp"
)

// Queue is the subscriber-facing handle returned by Subscribe. Each
// published Entry is delivered at most once per queue, best-effort.
type Queue = pubsub.Queue

// Entry is one decoded request message as it would be rendered on a
// Redis MONITOR stream: a timestamp, the originating connection, and
// the command's arguments.
type Entry struct {
	When time.Time
	Conn socket.Tuple
	Name string
	Args []string
}

// String renders e the way `redis-cli monitor` would: a fractional unix
// timestamp, the connection in brackets, then each argument quoted.
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%06d [%s]", e.When.Unix(), e.When.Nanosecond()/1000, e.Conn)
	for _, a := range e.Args {
		fmt.Fprintf(&b, " %q", a)
	}
	return b.String()
}

// Monitor is a pub/sub fan-out of decoded top-level messages. It never
// blocks its publisher: a subscriber that can't keep up simply misses
// entries, the way a real MONITOR client falling behind does.
type Monitor struct {
	ps *pubsub.PubSub
}

// New returns an empty Monitor with no subscribers.
func New() *Monitor {
	return &Monitor{ps: pubsub.New()}
}

// Subscribe registers a new queue of the given buffer size and returns
// it. The caller must Unsubscribe when done, or the queue leaks.
func (m *Monitor) Subscribe(size int) Queue {
	q := m.ps.Subscribe(size)
	metrics.MonitorSubscribers.Set(float64(m.Num()))
	return q
}

// Unsubscribe removes q from the fan-out and closes it.
func (m *Monitor) Unsubscribe(q Queue) {
	m.ps.Unsubscribe(q)
	q.Close()
	metrics.MonitorSubscribers.Set(float64(m.Num()))
}

// Num reports the current subscriber count.
func (m *Monitor) Num() int {
	return m.ps.Num()
}

// Publish renders v — the top-level Value of one decoded client request
// — as an Entry and fans it out to every subscriber. v is expected to be
// an Array of BulkString/SimpleString/Integer leaves, matching a real
// command invocation; anything else is rendered with whatever leaves it
// has. Publish never blocks: a full subscriber queue drops this entry
// for that subscriber rather than stalling the caller.
func (m *Monitor) Publish(conn socket.Tuple, v *resp.Value, t time.Time) {
	if m.Num() == 0 {
		return
	}

	var name string
	if v != nil && v.Type() == resp.Array && len(v.Elements) > 0 {
		name = normalizeCommand(v.Elements[0])
	}

	m.ps.Publish(Entry{
		When: t,
		Conn: conn,
		Name: name,
		Args: renderArgs(v),
	})
}

func renderArgs(v *resp.Value) []string {
	if v == nil || v.Type() != resp.Array {
		return nil
	}

	args := make([]string, 0, len(v.Elements))
	for _, el := range v.Elements {
		switch el.Type() {
		case resp.Integer:
			args = append(args, fmt.Sprintf("%d", el.Integer))
		default:
			b, ok := el.Bytes()
			if !ok {
				args = append(args, "")
				continue
			}
			args = append(args, string(b))
		}
	}
	return args
}

// normalizeCommand extracts and upper-cases the display name of a
// decoded command's first argument. It is used only to label monitor
// entries — an unrecognized or malformed command still renders, just
// without a known name attached, since command validation itself is out
// of scope for this package.
func normalizeCommand(first *resp.Value) string {
	if first == nil {
		return ""
	}
	b, ok := first.Bytes()
	if !ok {
		return ""
	}
	return normalizeCommandBytes(b)
}
