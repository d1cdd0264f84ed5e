package metrics

import (
	"fmt"
	"net"
	"os"
	"time"
)

// DatagramIOHook is a metrics hook interface for reporting events related to I/O on the server's
// UDP socket.
type DatagramIOHook interface {
	// EmitRead reports the size of a received datagram.
	EmitRead(bytes int64, addr net.Addr)

	// EmitWrite reports the size of a sent datagram.
	EmitWrite(bytes int64, addr net.Addr)

	// EmitReadError reports the event that a socket read failed.
	EmitReadError(addr net.Addr)

	// EmitWriteError reports the event that a socket write failed.
	EmitWriteError(addr net.Addr)
}

// SessionHook is a metrics hook interface for reporting session lifecycle events.
type SessionHook interface {
	// EmitSessionOpen reports that a client completed the handshake.
	EmitSessionOpen(client net.Addr)

	// EmitSessionClose reports that a session ended, how long it lasted, and why it ended.
	EmitSessionClose(duration time.Duration, reason string, client net.Addr)

	// EmitExchange reports a handled datagram from the active client, classified by its outcome.
	EmitExchange(outcome string, client net.Addr)

	// EmitIgnored reports a datagram that was dropped without a reply.
	EmitIgnored(addr net.Addr)

	// EmitLatency reports the time taken to handle one datagram, from receipt to the last reply
	// being written.
	EmitLatency(latency time.Duration, addr net.Addr)

	// EmitError reports a transport failure that abandoned a session or stalled the loop.
	EmitError()
}

// AsyncStatsdDatagramIOHook is an implementation of DatagramIOHook that outputs metrics
// asynchronously to statsd.
type AsyncStatsdDatagramIOHook struct {
	client *StatsdClient
}

// AsyncStatsdSessionHook is an implementation of SessionHook that outputs metrics asynchronously to
// statsd.
type AsyncStatsdSessionHook struct {
	client *StatsdClient
}

// NoopDatagramIOHook implements the DatagramIOHook interface but noops on all emissions.
type NoopDatagramIOHook struct{}

// NoopSessionHook implements the SessionHook interface but noops on all emissions.
type NoopSessionHook struct{}

// NewAsyncStatsdDatagramIOHook creates a new hook with the specified statsd address, sample rate,
// and version tag.
func NewAsyncStatsdDatagramIOHook(addr string, sampleRate float32, version string) (DatagramIOHook, error) {
	client, err := statsdClientFactory(addr, sampleRate, version)
	if err != nil {
		return nil, err
	}

	return &AsyncStatsdDatagramIOHook{client}, nil
}

// EmitRead statsd implementation.
func (h *AsyncStatsdDatagramIOHook) EmitRead(bytes int64, addr net.Addr) {
	go h.client.Size("size.datagram.read", bytes, map[string]string{
		"addr": ipFromAddr(addr),
	})
}

// EmitWrite statsd implementation.
func (h *AsyncStatsdDatagramIOHook) EmitWrite(bytes int64, addr net.Addr) {
	go h.client.Size("size.datagram.write", bytes, map[string]string{
		"addr": ipFromAddr(addr),
	})
}

// EmitReadError statsd implementation.
func (h *AsyncStatsdDatagramIOHook) EmitReadError(addr net.Addr) {
	go h.client.Count("event.datagram.read_error", 1, map[string]string{
		"addr": ipFromAddr(addr),
	})
}

// EmitWriteError statsd implementation.
func (h *AsyncStatsdDatagramIOHook) EmitWriteError(addr net.Addr) {
	go h.client.Count("event.datagram.write_error", 1, map[string]string{
		"addr": ipFromAddr(addr),
	})
}

// NewNoopDatagramIOHook creates a noop implementation of DatagramIOHook.
func NewNoopDatagramIOHook() DatagramIOHook {
	return &NoopDatagramIOHook{}
}

// EmitRead noops.
func (h *NoopDatagramIOHook) EmitRead(bytes int64, addr net.Addr) {}

// EmitWrite noops.
func (h *NoopDatagramIOHook) EmitWrite(bytes int64, addr net.Addr) {}

// EmitReadError noops.
func (h *NoopDatagramIOHook) EmitReadError(addr net.Addr) {}

// EmitWriteError noops.
func (h *NoopDatagramIOHook) EmitWriteError(addr net.Addr) {}

// NewAsyncStatsdSessionHook creates a new hook with the specified statsd address, sample rate, and
// version tag.
func NewAsyncStatsdSessionHook(addr string, sampleRate float32, version string) (SessionHook, error) {
	client, err := statsdClientFactory(addr, sampleRate, version)
	if err != nil {
		return nil, err
	}

	return &AsyncStatsdSessionHook{client}, nil
}

// EmitSessionOpen statsd implementation
func (h *AsyncStatsdSessionHook) EmitSessionOpen(client net.Addr) {
	go h.client.Count("event.session.open", 1, map[string]string{
		"client": ipFromAddr(client),
	})
}

// EmitSessionClose statsd implementation
func (h *AsyncStatsdSessionHook) EmitSessionClose(duration time.Duration, reason string, client net.Addr) {
	go func() {
		tags := map[string]string{
			"client": ipFromAddr(client),
			"reason": reason,
		}

		h.client.Count("event.session.close", 1, tags)
		h.client.Timing("latency.session.duration", duration, tags)
	}()
}

// EmitExchange statsd implementation
func (h *AsyncStatsdSessionHook) EmitExchange(outcome string, client net.Addr) {
	go h.client.Count(fmt.Sprintf("event.session.%s", outcome), 1, map[string]string{
		"client": ipFromAddr(client),
	})
}

// EmitIgnored statsd implementation
func (h *AsyncStatsdSessionHook) EmitIgnored(addr net.Addr) {
	go h.client.Count("event.session.ignored", 1, map[string]string{
		"addr": ipFromAddr(addr),
	})
}

// EmitLatency statsd implementation
func (h *AsyncStatsdSessionHook) EmitLatency(latency time.Duration, addr net.Addr) {
	go h.client.Timing("latency.session.datagram", latency, map[string]string{
		"addr": ipFromAddr(addr),
	})
}

// EmitError statsd implementation
func (h *AsyncStatsdSessionHook) EmitError() {
	go h.client.Count("event.session.error", 1, nil)
}

// NewNoopSessionHook creates a noop implementation of SessionHook.
func NewNoopSessionHook() SessionHook {
	return &NoopSessionHook{}
}

// EmitSessionOpen noops.
func (h *NoopSessionHook) EmitSessionOpen(client net.Addr) {}

// EmitSessionClose noops.
func (h *NoopSessionHook) EmitSessionClose(duration time.Duration, reason string, client net.Addr) {}

// EmitExchange noops.
func (h *NoopSessionHook) EmitExchange(outcome string, client net.Addr) {}

// EmitIgnored noops.
func (h *NoopSessionHook) EmitIgnored(addr net.Addr) {}

// EmitLatency noops.
func (h *NoopSessionHook) EmitLatency(latency time.Duration, addr net.Addr) {}

// EmitError noops.
func (h *NoopSessionHook) EmitError() {}

// statsdClientFactory creates a configured StatsdClient with reasonable defaults for the given
// statsd server address and sample rate.
func statsdClientFactory(addr string, sampleRate float32, version string) (*StatsdClient, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}

	defaultTags := map[string]string{
		"host": hostname,
	}

	if version != "" {
		defaultTags["version"] = version
	}

	return NewStatsdClient(addr, "lookupd", defaultTags, sampleRate)
}

// ipFromAddr returns the IP address from a full net.Addr, or null if unavailable.
func ipFromAddr(addr net.Addr) string {
	switch networkAddr := addr.(type) {
	case *net.UDPAddr:
		return networkAddr.IP.String()
	default:
		return "null"
	}
}
