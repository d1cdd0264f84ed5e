package network

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler writes every datagram back to its sender. The payload "fail" makes it return an
// error instead.
type echoHandler struct {
	mutex    sync.Mutex
	inFlight int
	overlap  bool
	consumed []error
}

func (h *echoHandler) Handle(ctx context.Context, conn net.Conn) error {
	buf := make([]byte, 1024)

	n, err := conn.Read(buf)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	h.inFlight++
	if h.inFlight > 1 {
		h.overlap = true
	}
	h.mutex.Unlock()

	defer func() {
		h.mutex.Lock()
		h.inFlight--
		h.mutex.Unlock()
	}()

	if string(buf[:n]) == "fail" {
		return errors.New("handler: requested failure")
	}

	_, err = conn.Write(buf[:n])

	return err
}

func (h *echoHandler) ConsumeError(ctx context.Context, err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.consumed = append(h.consumed, err)
}

func serve(t *testing.T, handler ServerHandler, opts UDPServerOpts) (string, context.CancelFunc, chan error) {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- NewUDPServer("", opts).Serve(ctx, conn, handler)
	}()

	return conn.LocalAddr().String(), cancel, done
}

func TestServeEchoesSequentially(t *testing.T) {
	handler := &echoHandler{}
	addr, cancel, done := serve(t, handler, UDPServerOpts{})

	client, err := DialUDP(addr, "", time.Second, time.Second)
	require.NoError(t, err)
	defer client.Close()

	for _, payload := range []string{"one", "two", "three"} {
		_, err := client.Write([]byte(payload))
		require.NoError(t, err)

		buf := make([]byte, 64)
		n, err := client.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, payload, string(buf[:n]))
	}

	cancel()
	assert.NoError(t, <-done)
	assert.False(t, handler.overlap)
}

func TestServeConsumesHandlerErrors(t *testing.T) {
	handler := &echoHandler{}
	addr, cancel, done := serve(t, handler, UDPServerOpts{})

	client, err := DialUDP(addr, "", time.Second, time.Second)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("fail"))
	require.NoError(t, err)

	// The loop keeps serving after a failure.
	_, err = client.Write([]byte("after"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "after", string(buf[:n]))

	cancel()
	assert.NoError(t, <-done)

	require.Len(t, handler.consumed, 1)
	assert.EqualError(t, handler.consumed[0], "handler: requested failure")
}

func TestListenAndServeBindFailure(t *testing.T) {
	err := NewUDPServer("256.0.0.1:53", UDPServerOpts{}).ListenAndServe(context.Background(), &echoHandler{})
	assert.Error(t, err)
}

func TestUDPConnRequiresReadBeforeWrite(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	conn := NewUDPConn(pc, 50*time.Millisecond, 0)
	assert.Nil(t, conn.RemoteAddr())

	_, err = conn.Write([]byte("x"))
	assert.Error(t, err)

	// Nothing arrives, so the read deadline fires.
	_, err = conn.Read(make([]byte, 8))
	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
}

func TestDialUDPBindsLocalAddress(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := DialUDP(pc.LocalAddr().String(), "127.0.0.1:0", time.Second, time.Second)
	require.NoError(t, err)
	defer client.Close()

	local := client.LocalAddr().(*net.UDPAddr)
	assert.Equal(t, "127.0.0.1", local.IP.String())
	assert.NotZero(t, local.Port)

	_, err = DialUDP("not an address", "", 0, 0)
	assert.Error(t, err)
}

func TestTimeoutConnReadTimesOut(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := DialUDP(pc.LocalAddr().String(), "", 50*time.Millisecond, time.Second)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Read(make([]byte, 8))
	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
}
