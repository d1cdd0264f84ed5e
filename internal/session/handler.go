package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/getsentry/raven-go"
	"lib.kevinlin.info/aperture/lib"

	"lookupd/internal/log"
	"lookupd/internal/metrics"
	"lookupd/internal/protocol"
)

// Handler is the server handler that reads one datagram per invocation, decodes it, advances the
// state machine, and writes the resulting replies back to the sender.
type Handler struct {
	Machine     *Machine
	IOHook      metrics.DatagramIOHook
	SessionHook metrics.SessionHook
	Logger      log.Logger

	// IdleTimeout is how long the bound client may stay silent before its session is
	// discarded, regardless of traffic from other senders. Zero disables the check.
	IdleTimeout time.Duration
}

// ConsumeError logs a transport failure, reports it, and abandons the active session. The server
// keeps listening afterwards.
func (h *Handler) ConsumeError(ctx context.Context, err error) {
	h.Logger.Error("%v", err)
	h.SessionHook.EmitError()

	raven.CaptureError(err, h.errorTags())

	h.Machine.Abandon("transport failure")
}

// errorTags describes the live session for error reports.
func (h *Handler) errorTags() map[string]string {
	tags := map[string]string{"transport": "udp"}
	if current := h.Machine.Session(); current.Active() {
		tags["session"] = current.ID.String()
		tags["state"] = current.State.String()
	}

	return tags
}

// Handle serves a single datagram. Decode failures and protocol violations are answered (or
// ignored) by the state machine and are not errors; only socket-level failures are returned.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) error {
	buf := make([]byte, protocol.MaxDatagramSize)

	n, err := conn.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			// An idle server simply keeps waiting; an unresponsive client loses its
			// session.
			h.Machine.Abandon("receive timeout")
			return nil
		}

		h.IOHook.EmitReadError(conn.RemoteAddr())
		return fmt.Errorf("session: error reading datagram: err=%w", err)
	}

	// The read blocks until a datagram arrives, so only time the handling that follows it.
	handleTimer := lib.NewStopwatch()
	sender := conn.RemoteAddr()
	h.IOHook.EmitRead(int64(n), sender)

	// Only the bound client's own traffic resets its idle clock.
	h.Machine.ExpireIdle(h.IdleTimeout, time.Now())

	var replies []protocol.Message

	msg, err := protocol.Decode(buf[:n])
	if err != nil {
		replies = h.Machine.HandleMalformed(sender, err)
	} else {
		replies = h.Machine.Handle(sender, msg)
	}

	for _, reply := range replies {
		if err := h.write(conn, reply); err != nil {
			return err
		}
	}

	h.SessionHook.EmitLatency(handleTimer.Elapsed(), sender)

	return nil
}

// write encodes and sends one reply to the sender of the datagram just read.
func (h *Handler) write(conn net.Conn, reply protocol.Message) error {
	data, err := protocol.Encode(reply)
	if err != nil {
		return fmt.Errorf("session: error encoding reply: err=%w", err)
	}

	written, err := conn.Write(data)
	if err != nil {
		h.IOHook.EmitWriteError(conn.RemoteAddr())
		return fmt.Errorf("session: error writing reply: kind=%s err=%w", reply.Kind, err)
	}

	if written != len(data) {
		h.IOHook.EmitWriteError(conn.RemoteAddr())
		return fmt.Errorf(
			"session: failed writing reply bytes to client: expected=%d actual=%d",
			len(data),
			written,
		)
	}

	h.IOHook.EmitWrite(int64(written), conn.RemoteAddr())

	h.Logger.Debug("session: sent reply: client=%s msg=%v", conn.RemoteAddr(), reply)

	return nil
}
