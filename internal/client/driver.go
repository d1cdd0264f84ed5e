// Package client implements the peer side of the lookup protocol: a strictly sequential driver
// that opens a session, issues a fixed list of queries one round trip at a time, and waits for the
// server to end the session.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"lookupd/internal/log"
	"lookupd/internal/protocol"
	"lookupd/internal/records"
)

var (
	// ErrProtocol indicates that the server sent something the driver did not expect.
	ErrProtocol = errors.New("protocol error")
	// ErrTimeout indicates that a reply did not arrive in time. The driver never retransmits,
	// so a lost datagram ends the run.
	ErrTimeout = errors.New("receive timeout")
)

// DefaultQueries exercises both exchange outcomes: two queries that resolve against the default
// record table, and two that the server must reject.
var DefaultQueries = []protocol.Query{
	{Type: "A", Name: "www.example.com"},
	{Name: "unknown.domain", Bare: true},
	{Type: "MX", Name: "example.com"},
	{Type: "A"},
}

// Result is the outcome of one query.
type Result struct {
	Query protocol.Query
	// Answer is set when the server replied with a record.
	Answer *records.Record
	// Error is the server's reason when it replied with an Error.
	Error string
}

// Driver runs one session over a connected socket. It is not safe for concurrent use.
type Driver struct {
	conn   net.Conn
	logger log.Logger
	lastID int
}

// NewDriver creates a driver over a connected socket, typically from network.DialUDP.
func NewDriver(conn net.Conn, logger log.Logger) *Driver {
	return &Driver{conn: conn, logger: logger}
}

// Run performs the handshake, sends each query in order, acknowledges every reply, and waits for
// End. Any unexpected message, undecodable datagram, timeout, or socket failure aborts the run.
// A deadline on ctx bounds the whole session unless conn applies its own per-read timeouts.
func (d *Driver) Run(ctx context.Context, greeting string, queries []protocol.Query) ([]Result, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := d.conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("client: error setting session deadline: err=%v", err)
		}
	}

	/* Handshake */

	hello := protocol.NewText(d.nextID(), protocol.Hello, greeting)

	welcome, err := d.roundTrip(ctx, hello)
	if err != nil {
		return nil, err
	}

	if welcome.Kind != protocol.Welcome {
		return nil, fmt.Errorf("client: expected %s: got=%s: %w", protocol.Welcome, welcome.Kind, ErrProtocol)
	}

	text, _ := welcome.Text()
	d.logger.Info("client: session established: server=%s welcome=%q", d.conn.RemoteAddr(), text)

	/* Queries */

	results := make([]Result, 0, len(queries))
	for _, query := range queries {
		result, err := d.query(ctx, query)
		if err != nil {
			return results, err
		}

		results = append(results, result)
	}

	/* Termination */

	end, err := d.receive(ctx)
	if err != nil {
		return results, err
	}

	if end.Kind != protocol.End {
		return results, fmt.Errorf("client: expected %s: got=%s: %w", protocol.End, end.Kind, ErrProtocol)
	}

	text, _ = end.Text()
	d.logger.Info("client: session ended by server: queries=%d message=%q", len(results), text)

	return results, nil
}

// query performs one exchange: Lookup, then either LookupReply followed by an Ack, or Error.
func (d *Driver) query(ctx context.Context, query protocol.Query) (Result, error) {
	lookup := protocol.NewLookup(d.nextID(), query)

	resp, err := d.roundTrip(ctx, lookup)
	if err != nil {
		return Result{}, err
	}

	switch resp.Kind {
	case protocol.LookupReply:
		if resp.ID != lookup.ID {
			return Result{}, fmt.Errorf(
				"client: reply does not match lookup: lookup_id=%d reply_id=%d: %w",
				lookup.ID,
				resp.ID,
				ErrProtocol,
			)
		}

		record, _ := resp.Answer()
		d.logger.Debug("client: received answer: query=%v record=%v", query, record)

		if err := d.send(protocol.NewAck(d.nextID(), resp.ID)); err != nil {
			return Result{}, err
		}

		return Result{Query: query, Answer: &record}, nil

	case protocol.Error:
		reason, _ := resp.Text()
		d.logger.Debug("client: query rejected: query=%v reason=%q", query, reason)

		return Result{Query: query, Error: reason}, nil
	}

	return Result{}, fmt.Errorf(
		"client: expected %s or %s: got=%s: %w",
		protocol.LookupReply,
		protocol.Error,
		resp.Kind,
		ErrProtocol,
	)
}

// roundTrip sends a request and blocks for the next message.
func (d *Driver) roundTrip(ctx context.Context, msg protocol.Message) (protocol.Message, error) {
	if err := d.send(msg); err != nil {
		return protocol.Message{}, err
	}

	return d.receive(ctx)
}

// send encodes and writes a single message.
func (d *Driver) send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("client: error encoding message: err=%v", err)
	}

	if _, err := d.conn.Write(data); err != nil {
		return fmt.Errorf("client: error sending message: kind=%s err=%v", msg.Kind, err)
	}

	d.logger.Debug("client: sent message: msg=%v", msg)

	return nil
}

// receive blocks for a single message.
func (d *Driver) receive(ctx context.Context) (protocol.Message, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Message{}, fmt.Errorf("client: session canceled: err=%w", err)
	}

	buf := make([]byte, protocol.MaxDatagramSize)

	n, err := d.conn.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return protocol.Message{}, fmt.Errorf("client: no reply from server: %w", ErrTimeout)
		}

		return protocol.Message{}, fmt.Errorf("client: error receiving message: err=%v", err)
	}

	msg, err := protocol.Decode(buf[:n])
	if err != nil {
		return protocol.Message{}, fmt.Errorf("client: %v: %w", err, ErrProtocol)
	}

	d.logger.Debug("client: received message: msg=%v", msg)

	return msg, nil
}

// nextID returns a fresh message ID.
func (d *Driver) nextID() int {
	d.lastID++
	return d.lastID
}
