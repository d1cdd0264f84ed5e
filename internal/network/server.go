package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ServerHandler is a common interface that wraps logic for handling datagrams received by the
// server.
type ServerHandler interface {
	// Handle describes the routine to run for a single datagram. The passed conn is a UDPConn
	// whose first Read receives the datagram and whose Writes go back to its sender.
	Handle(ctx context.Context, conn net.Conn) error

	// ConsumeError is a callback invoked when the handler returns an error.
	ConsumeError(ctx context.Context, err error)
}

// UDPServer describes a server that listens on a UDP address.
type UDPServer struct {
	addr string
	opts UDPServerOpts
}

// UDPServerOpts formalizes UDP server configuration options.
type UDPServerOpts struct {
	// ReadTimeout is the maximum amount of time the server will wait for the next datagram.
	// Since UDP is a connectionless protocol, this bounds silence on the socket rather than a
	// single client's request. Zero waits indefinitely.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum amount of time the server is allowed to take to write data
	// back to a client, after which the server will consider the write to have failed.
	WriteTimeout time.Duration
}

// NewUDPServer creates a UDP server listening on the specified address.
func NewUDPServer(addr string, opts UDPServerOpts) *UDPServer {
	return &UDPServer{addr, opts}
}

// ListenAndServe binds the IPv4 UDP address with which the server was configured and serves
// datagrams until the context is canceled. It returns an error if it fails to bind.
func (s *UDPServer) ListenAndServe(ctx context.Context, handler ServerHandler) error {
	conn, err := net.ListenPacket("udp4", s.addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen on UDP socket: addr=%s err=%v", s.addr, err)
	}

	return s.Serve(ctx, conn, handler)
}

// Serve runs the receive loop on an already bound socket, which it takes ownership of. Datagrams
// are handled strictly one at a time, each to completion before the next is read. Serve returns
// nil once the context is canceled and the socket is closed.
func (s *UDPServer) Serve(ctx context.Context, conn net.PacketConn, handler ServerHandler) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}

		conn.Close()
	}()

	for {
		udpConn := NewUDPConn(conn, s.opts.ReadTimeout, s.opts.WriteTimeout)

		if err := handler.Handle(ctx, udpConn); err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			handler.ConsumeError(ctx, err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
