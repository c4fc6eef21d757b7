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

// Package metrics holds the process's Prometheus collectors, registered
// once at package init and exported over /metrics by server.Server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/corvusd/respcore/common"
	"github.com/corvusd/respcore/internal/fasttime"
)

var (
	// Uptime reports how long the process has been running, in seconds.
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
	)

	// BuildInfo carries the build's version/git-hash/time as label
	// values on an always-1 gauge, the standard Prometheus idiom for
	// exposing non-numeric build metadata.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)

	// MessagesDecoded counts completed top-level RESP messages, by
	// connection direction (request/response).
	MessagesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "messages_decoded_total",
			Help:      "RESP messages decoded total",
		},
		[]string{"direction"},
	)

	// ProtocolErrors counts fatal decode failures, by connection
	// direction. Every increment corresponds to one closed connection:
	// the parser never attempts resynchronization.
	ProtocolErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "protocol_errors_total",
			Help:      "Fatal RESP protocol errors total",
		},
		[]string{"direction"},
	)

	// BytesForwarded counts raw bytes relayed between a client and the
	// upstream, by direction.
	BytesForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "bytes_forwarded_total",
			Help:      "Bytes forwarded between client and upstream total",
		},
		[]string{"direction"},
	)

	// ActiveConnections reports how many client connections are
	// currently proxied.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "active_connections",
			Help:      "Active proxied connections",
		},
	)

	// MonitorSubscribers reports how many monitor-tap subscribers are
	// currently attached.
	MonitorSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "monitor_subscribers",
			Help:      "Active monitor tap subscribers",
		},
	)

	// FreelistSize reports how many Values currently sit on a
	// connection's resp.Context free-list, by direction. A steady-state
	// value near zero means the parser is allocating on its hot path
	// instead of reusing freed nodes.
	FreelistSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "freelist_size",
			Help:      "resp.Context free-list size",
		},
		[]string{"direction"},
	)
)

// StartUptimeReporter refreshes the Uptime gauge once a second until stop
// is closed, reading the wall clock through fasttime instead of calling
// time.Now() on every tick.
func StartUptimeReporter(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				Uptime.Set(float64(fasttime.UnixTimestamp() - common.Started()))
			case <-stop:
				return
			}
		}
	}()
}
