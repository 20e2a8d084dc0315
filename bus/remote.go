// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

type request struct {
	Name  string `json:"name"`
	Addr  uint64 `json:"addr"`
	Value uint64 `json:"value,omitempty"`
}

type reply struct {
	Value uint64 `json:"value"`
	Msg   string `json:"msg"`
}

// ErrBroken is returned by a Remote whose connection failed.
// The Remote must be closed and the server dialed again.
var ErrBroken = errors.New("bus: broken connection (re-dial required)")

// Remote is a bus client, forwarding bus accesses to a remote Server.
//
// The first transport failure (including a deadline expiring while
// waiting for a reply) closes the connection; later accesses return
// ErrBroken.
type Remote struct {
	mu     sync.Mutex
	conn   net.Conn
	enc    *json.Encoder
	dec    *json.Decoder
	broken error // first transport failure
}

// Dial connects to the bus server at addr.
func Dial(addr string) (*Remote, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bus: could not dial %q: %w", addr, err)
	}
	return &Remote{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

// Close closes the connection to the server.
func (bus *Remote) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.broken != nil {
		return nil
	}
	bus.broken = net.ErrClosed
	return bus.conn.Close()
}

func (bus *Remote) Write(ctx context.Context, addr, value uint64) error {
	_, err := bus.send(ctx, request{Name: "write", Addr: addr, Value: value})
	return err
}

func (bus *Remote) Read(ctx context.Context, addr uint64) (uint64, error) {
	return bus.send(ctx, request{Name: "read", Addr: addr})
}

func (bus *Remote) send(ctx context.Context, req request) (uint64, error) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.broken != nil {
		return 0, fmt.Errorf("%w: %v", ErrBroken, bus.broken)
	}

	err := ctx.Err()
	if err != nil {
		return 0, err
	}

	var deadline time.Time
	if dl, ok := ctx.Deadline(); ok {
		deadline = dl
	}
	err = bus.conn.SetDeadline(deadline)
	if err != nil {
		return 0, bus.fail(fmt.Errorf("bus: could not set deadline: %w", err))
	}

	err = bus.enc.Encode(req)
	if err != nil {
		return 0, bus.fail(fmt.Errorf("bus: could not send %s request (addr=0x%x): %w", req.Name, req.Addr, err))
	}

	var rep reply
	err = bus.dec.Decode(&rep)
	if err != nil {
		return 0, bus.fail(fmt.Errorf("bus: could not receive %s reply (addr=0x%x): %w", req.Name, req.Addr, err))
	}
	if rep.Msg != "ok" {
		return 0, fmt.Errorf("bus: remote %s failed (addr=0x%x): %s", req.Name, req.Addr, rep.Msg)
	}
	return rep.Value, nil
}

// fail marks the connection as broken and closes it.
func (bus *Remote) fail(err error) error {
	bus.broken = err
	_ = bus.conn.Close()
	return err
}

// Server exposes a bus over TCP.
// Requests from all connections are serialized.
type Server struct {
	ln  net.Listener
	msg *log.Logger

	mu  sync.Mutex
	bus Bus

	cmu    sync.Mutex
	conns  map[net.Conn]struct{} // live client connections
	closed bool
}

// NewServer creates a server listening on addr and serving bus.
func NewServer(addr string, bus Bus) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bus: could not create server on %q: %w", addr, err)
	}

	return &Server{
		ln:  ln,
		msg: log.New(os.Stdout, "bus-srv: ", 0),
		bus: bus,

		conns: make(map[net.Conn]struct{}),
	}, nil
}

// Serve listens on addr and serves bus until an error occurs.
func Serve(addr string, bus Bus) error {
	srv, err := NewServer(addr, bus)
	if err != nil {
		return err
	}
	return srv.Serve()
}

// Addr returns the address the server listens on.
func (srv *Server) Addr() net.Addr {
	return srv.ln.Addr()
}

// SetLogger sets the logger of the server.
func (srv *Server) SetLogger(msg *log.Logger) {
	srv.msg = msg
}

// Close stops the server and closes every client connection.
func (srv *Server) Close() error {
	srv.cmu.Lock()
	defer srv.cmu.Unlock()

	srv.closed = true
	err := srv.ln.Close()
	for conn := range srv.conns {
		_ = conn.Close()
	}
	return err
}

func (srv *Server) track(conn net.Conn) bool {
	srv.cmu.Lock()
	defer srv.cmu.Unlock()
	if srv.closed {
		return false
	}
	srv.conns[conn] = struct{}{}
	return true
}

func (srv *Server) untrack(conn net.Conn) {
	srv.cmu.Lock()
	defer srv.cmu.Unlock()
	delete(srv.conns, conn)
}

// Serve accepts connections until the server is closed.
func (srv *Server) Serve() error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := srv.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("bus: could not accept connection: %w", err)
		}

		if !srv.track(conn) {
			_ = conn.Close()
			return nil
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.handle(conn)
		}()
	}
}

func (srv *Server) handle(conn net.Conn) {
	defer srv.untrack(conn)
	defer conn.Close()
	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

	var (
		ctx = context.Background()
		dec = json.NewDecoder(conn)
		enc = json.NewEncoder(conn)
	)

	for {
		var req request
		err := dec.Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			srv.msg.Printf("could not decode request: %+v", err)
			_ = enc.Encode(reply{Msg: err.Error()})
			return
		}

		var rep reply
		srv.mu.Lock()
		switch strings.ToLower(req.Name) {
		case "write":
			err = srv.bus.Write(ctx, req.Addr, req.Value)
		case "read":
			rep.Value, err = srv.bus.Read(ctx, req.Addr)
		default:
			err = fmt.Errorf("unknown request %q", req.Name)
		}
		srv.mu.Unlock()

		rep.Msg = "ok"
		if err != nil {
			srv.msg.Printf("could not run %s request (addr=0x%x): %+v", req.Name, req.Addr, err)
			rep = reply{Msg: err.Error()}
		}

		err = enc.Encode(rep)
		if err != nil {
			srv.msg.Printf("could not send reply: %+v", err)
			return
		}
	}
}

var _ Bus = (*Remote)(nil)
