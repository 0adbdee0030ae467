/*
 * Copyright 2024 The Halyard Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"

	"golang.org/x/sys/unix"
)

// NewListener creates a front end network listener. When reusePort is true
// the socket is opened with SO_REUSEPORT so multiple listeners (in this
// process or in sibling processes) can bind the same port and let the kernel
// balance incoming connections across them.
//
// When connectionsLimit is > 0 the listener enforces it at accept time:
// connections beyond the limit are closed immediately and counted, rather
// than queued, so an overloaded instance sheds load at the edge instead of
// building an unbounded backlog.
func NewListener(listenAddress string, listenPort, connectionsLimit int,
	reusePort bool) (net.Listener, error) {

	lc := net.ListenConfig{}
	if reusePort {
		lc.Control = func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET,
					unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return serr
		}
	}

	l, err := lc.Listen(context.Background(), "tcp",
		fmt.Sprintf("%s:%d", listenAddress, listenPort))
	if err != nil {
		// usually means the port is in use without SO_REUSEPORT
		return nil, err
	}

	logger.Debug("front end listener starting", logging.Pairs{
		"address":          listenAddress,
		"port":             listenPort,
		"connectionsLimit": connectionsLimit,
		"reusePort":        reusePort,
	})

	if connectionsLimit > 0 {
		l = &limitListener{Listener: l,
			slots: make(chan struct{}, connectionsLimit)}
	}
	return &observedListener{l}, nil
}

// limitListener caps the number of open connections accepted through it.
// Unlike a queueing limiter it rejects over-limit connections outright, so
// the rejection is visible to the peer and to metrics.
type limitListener struct {
	net.Listener
	slots chan struct{}
}

func (l *limitListener) Accept() (net.Conn, error) {
	for {
		c, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		select {
		case l.slots <- struct{}{}:
			return &limitedConn{Conn: c, release: l.release}, nil
		default:
			metrics.FrontendConnectionsLimited.Inc()
			c.Close()
		}
	}
}

func (l *limitListener) release() {
	<-l.slots
}

type limitedConn struct {
	net.Conn
	release func()
	once    sync.Once
}

func (c *limitedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.release)
	return err
}

// observedListener maintains the active-connection gauge across accepts
// and closes
type observedListener struct {
	net.Listener
}

func (l *observedListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return c, err
	}
	metrics.FrontendActiveConnections.Inc()
	return &observedConn{Conn: c}, nil
}

type observedConn struct {
	net.Conn
	once sync.Once
}

func (c *observedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(metrics.FrontendActiveConnections.Dec)
	return err
}
