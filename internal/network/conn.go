package network

import (
	"fmt"
	"net"
	"time"
)

// UDPConn is an abstraction over a UDP net.PacketConn to give it net.Conn-like semantics. It
// statefully tracks the sender of the first datagram read, assuming that writes follow that read.
type UDPConn struct {
	conn         net.PacketConn
	readTimeout  time.Duration
	writeTimeout time.Duration
	remote       net.Addr
}

// TimeoutConn is an abstraction over a net.Conn that applies read and write timeouts to every
// operation.
type TimeoutConn struct {
	readTimeout  time.Duration
	writeTimeout time.Duration

	net.Conn
}

// NewUDPConn creates a UDPConn from a backing net.PacketConn.
func NewUDPConn(conn net.PacketConn, readTimeout time.Duration, writeTimeout time.Duration) *UDPConn {
	return &UDPConn{
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Read reads a single datagram. The sender's address is statefully tracked as a struct member.
func (c *UDPConn) Read(buf []byte) (n int, err error) {
	if c.remote != nil {
		return 0, fmt.Errorf("conn: already associated with a datagram")
	}

	if c.readTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	} else if err := c.SetReadDeadline(time.Time{}); err != nil {
		return 0, err
	}

	n, c.remote, err = c.conn.ReadFrom(buf)

	return
}

// Write writes to the sender of the datagram that was read. It is an error to write to a
// connection without a prior read.
func (c *UDPConn) Write(buf []byte) (n int, err error) {
	if c.remote == nil {
		return 0, fmt.Errorf("conn: no remote associated with this connection")
	}

	if c.writeTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}

	return c.conn.WriteTo(buf, c.remote)
}

// Close closes the underlying socket, which is shared by every UDPConn the server creates.
func (c *UDPConn) Close() error {
	return c.conn.Close()
}

// LocalAddr obtains the connection's local address.
func (c *UDPConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr obtains the address of the datagram's sender, or nil before the first read.
func (c *UDPConn) RemoteAddr() net.Addr {
	return c.remote
}

// SetDeadline sets both the read and write deadline.
func (c *UDPConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *UDPConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *UDPConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// NewTimeoutConn creates a TimeoutConn from a backing net.Conn.
func NewTimeoutConn(conn net.Conn, readTimeout time.Duration, writeTimeout time.Duration) *TimeoutConn {
	return &TimeoutConn{
		Conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Read sets a read deadline followed by reading from the backing connection.
func (c *TimeoutConn) Read(buf []byte) (n int, err error) {
	if c.readTimeout > 0 {
		if err := c.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}

	return c.Conn.Read(buf)
}

// Write sets a write deadline followed by writing to the backing connection.
func (c *TimeoutConn) Write(buf []byte) (n int, err error) {
	if c.writeTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}

	return c.Conn.Write(buf)
}

// DialUDP opens a connected IPv4 UDP socket to remote. The socket is bound to local when it is
// non-empty; otherwise the OS picks an ephemeral endpoint on all interfaces.
func DialUDP(remote string, local string, readTimeout time.Duration, writeTimeout time.Duration) (*TimeoutConn, error) {
	raddr, err := net.ResolveUDPAddr("udp4", remote)
	if err != nil {
		return nil, fmt.Errorf("client: error resolving server address: addr=%s err=%v", remote, err)
	}

	var laddr *net.UDPAddr
	if local != "" {
		if laddr, err = net.ResolveUDPAddr("udp4", local); err != nil {
			return nil, fmt.Errorf("client: error resolving local address: addr=%s err=%v", local, err)
		}
	}

	conn, err := net.DialUDP("udp4", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("client: error opening UDP socket: err=%v", err)
	}

	return NewTimeoutConn(conn, readTimeout, writeTimeout), nil
}
