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

package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/corvusd/respcore/common/socket"
	"github.com/corvusd/respcore/confengine"
	"github.com/corvusd/respcore/internal/buffer"
	"github.com/corvusd/respcore/internal/metrics"
	"github.com/corvusd/respcore/internal/monitor"
	"github.com/corvusd/respcore/internal/rescue"
	"github.com/corvusd/respcore/internal/shard"
	"github.com/corvusd/respcore/logger"
	"github.com/corvusd/respcore/resp"
)

// ProxyConfig configures a Proxy's listener, upstream, and worker-shard
// table. It is unpacked from the top level of the loaded YAML config.
type ProxyConfig struct {
	Listen      string        `config:"listen"`
	Upstream    string        `config:"upstream"`
	Workers     int           `config:"workers"`
	DialTimeout time.Duration `config:"dialTimeout"`
}

// Proxy is a transparent TCP RESP proxy: it relays every byte between a
// client and the configured upstream verbatim, decoding each direction's
// stream only to know where one message ends and the next begins, and to
// mirror client commands to the monitor tap.
type Proxy struct {
	config  ProxyConfig
	table   *shard.Table
	monitor *monitor.Monitor
	pool    *buffer.Pool

	listener net.Listener
	work     []chan net.Conn

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewProxy builds a Proxy from the "listen"/"upstream"/"workers" keys of
// conf, fanning decoded client requests out through mon. Workers sets the
// size of the fixed worker-slot pool new connections are dispatched onto
// (see internal/shard); it bounds total concurrency independent of how
// many connections arrive.
func NewProxy(conf *confengine.Config, mon *monitor.Monitor) (*Proxy, error) {
	config := ProxyConfig{Workers: 1, DialTimeout: 5 * time.Second}
	if err := conf.Unpack(&config); err != nil {
		return nil, err
	}

	return &Proxy{
		config:  config,
		table:   shard.New(config.Workers),
		monitor: mon,
		pool:    buffer.NewPool(),
		conns:   make(map[net.Conn]struct{}),
	}, nil
}

// Serve accepts connections until ctx is cancelled or the listener fails.
// On cancellation it closes the listener and every connection currently
// in flight, aggregating their close errors.
func (p *Proxy) Serve(ctx context.Context) error {
	l, err := net.Listen("tcp", p.config.Listen)
	if err != nil {
		return err
	}
	p.listener = l
	logger.Infof("proxy listening on %s, forwarding to %s", p.config.Listen, p.config.Upstream)

	p.work = make([]chan net.Conn, p.table.Len())
	for i := range p.work {
		p.work[i] = make(chan net.Conn)
		go p.worker(p.work[i])
	}

	go func() {
		<-ctx.Done()
		p.shutdown()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.track(conn)
		slot := p.work[p.table.Pick(tupleOf(conn))]
		select {
		case slot <- conn:
		case <-ctx.Done():
			conn.Close()
			return nil
		}
	}
}

// worker services one fixed slot of the connection pool, handling
// connections dispatched to it one at a time — the source of the pool's
// bounded concurrency.
func (p *Proxy) worker(jobs <-chan net.Conn) {
	for conn := range jobs {
		p.handle(conn)
	}
}

// shutdown closes the listener and every connection currently in flight.
// Idle worker goroutines are left blocked on their empty job channel;
// they exit along with the process once Serve's caller returns.
func (p *Proxy) shutdown() {
	p.listener.Close()

	p.mu.Lock()
	conns := make([]net.Conn, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.Unlock()

	var result *multierror.Error
	for _, c := range conns {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil && result.Len() > 0 {
		logger.Errorf("proxy shutdown: %s", result)
	}
}

func (p *Proxy) track(conn net.Conn) {
	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()
}

func (p *Proxy) untrack(conn net.Conn) {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
}

func (p *Proxy) handle(client net.Conn) {
	defer rescue.HandleCrash()
	defer p.untrack(client)
	defer client.Close()

	upstream, err := net.DialTimeout("tcp", p.config.Upstream, p.config.DialTimeout)
	if err != nil {
		logger.Errorf("proxy: dial upstream %s: %s", p.config.Upstream, err)
		return
	}
	defer upstream.Close()

	tuple := tupleOf(client)

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.runPipe(client, upstream, tuple, "request", true)
	}()
	go func() {
		defer wg.Done()
		p.runPipe(upstream, client, tuple.Mirror(), "response", false)
	}()
	wg.Wait()
}

// runPipe relays src into dst, closing both ends once its direction's
// stream ends (cleanly or on error) so the opposite pipe unblocks too.
func (p *Proxy) runPipe(src, dst net.Conn, tuple socket.Tuple, direction string, publish bool) {
	defer rescue.HandleCrash()
	defer src.Close()
	defer dst.Close()

	if err := p.pipe(src, dst, tuple, direction, publish); err != nil && !isClosedConnErr(err) {
		logger.Errorf("proxy: %s pipe for %s: %s", direction, tuple, err)
	}
}

func (p *Proxy) pipe(src, dst net.Conn, tuple socket.Tuple, direction string, publish bool) error {
	ctx := resp.NewContext()
	reader := resp.NewReader(ctx)
	defer reader.Free()

	buf := p.pool.Get()
	defer func() { buf.Release() }()

	for {
		if _, err := buf.Fill(src); err != nil {
			return err
		}
		reader.Feed(buf)

		for {
			if err := reader.Parse(); err != nil {
				metrics.ProtocolErrors.WithLabelValues(direction).Inc()
				return err
			}
			if !reader.Ready() {
				break
			}
			if err := p.deliver(ctx, reader, dst, tuple, direction, publish); err != nil {
				return err
			}
			metrics.FreelistSize.WithLabelValues(direction).Set(float64(ctx.NumFree()))
		}

		if _, pending := reader.PendingStart(); !pending {
			buf.Release()
			buf = p.pool.Get()
		}
	}
}

// deliver forwards the just-completed message's raw bytes to dst,
// mirrors it to the monitor tap if publish is set, then releases its
// two buffer references and returns the decoded Value to ctx's
// free-list.
func (p *Proxy) deliver(ctx *resp.Context, reader *resp.Reader, dst net.Conn, tuple socket.Tuple, direction string, publish bool) error {
	span := reader.MessageSpan()
	data := reader.Data()

	raw := span.Start.Buf.Bytes()[span.Start.Pos:span.End.Pos]
	n, err := dst.Write(raw)
	metrics.BytesForwarded.WithLabelValues(direction).Add(float64(n))
	if err != nil {
		ctx.Free(data)
		reader.Next()
		return err
	}

	if publish {
		p.monitor.Publish(tuple, data, time.Now())
	}
	metrics.MessagesDecoded.WithLabelValues(direction).Inc()

	releaseSpanRef(span.Start.Buf)
	releaseSpanRef(span.End.Buf)
	ctx.Free(data)
	reader.Next()
	return nil
}

func releaseSpanRef(b resp.Buffer) {
	if rb, ok := b.(*buffer.Buffer); ok {
		rb.Release()
	}
}

func tupleOf(conn net.Conn) socket.Tuple {
	src, srcPort := hostPort(conn.RemoteAddr())
	dst, dstPort := hostPort(conn.LocalAddr())
	return socket.Tuple{
		SrcIP:   socket.ToIPV4(src),
		DstIP:   socket.ToIPV4(dst),
		SrcPort: socket.Port(srcPort),
		DstPort: socket.Port(dstPort),
	}
}

func hostPort(addr net.Addr) (net.IP, int) {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP, tcp.Port
	}
	return net.IPv4zero, 0
}

// isClosedConnErr reports whether err is the expected consequence of the
// opposite direction's pipe closing this connection's sockets — not a
// real failure worth logging.
func isClosedConnErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
