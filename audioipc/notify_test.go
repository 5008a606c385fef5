package audioipc

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, l *NotifyListener) chan Event {
	t.Helper()
	events := make(chan Event, 16)
	l.Subscribe(func(ev Event) { events <- ev })
	return events
}

func expectEvent(t *testing.T, events chan Event, want Event) {
	t.Helper()
	select {
	case ev := <-events:
		assert.Equal(t, want, ev)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func TestListenerDecodesControlBytes(t *testing.T) {
	cfg := testConfig(t)
	listener, err := ListenNotify(cfg.SocketPath)
	require.NoError(t, err)
	defer listener.Close()
	events := collectEvents(t, listener)

	conn, err := net.Dial("unix", cfg.SocketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{notifyByteDataReady})
	require.NoError(t, err)
	expectEvent(t, events, EventDataReady)

	_, err = conn.Write([]byte{notifyByteDisconnect})
	require.NoError(t, err)
	expectEvent(t, events, EventDisconnect)
}

func TestListenerDeliversEventsInOrder(t *testing.T) {
	cfg := testConfig(t)
	listener, err := ListenNotify(cfg.SocketPath)
	require.NoError(t, err)
	defer listener.Close()
	events := make(chan Event, 512)
	listener.Subscribe(func(ev Event) { events <- ev })

	conn, err := net.Dial("unix", cfg.SocketPath)
	require.NoError(t, err)
	defer conn.Close()

	// A disconnect overtaking any of the data-ready events that preceded
	// it would end the stream with frames still pending.
	const bursts = 200
	for i := 0; i < bursts; i++ {
		_, err = conn.Write([]byte{notifyByteDataReady})
		require.NoError(t, err)
	}
	_, err = conn.Write([]byte{notifyByteDisconnect})
	require.NoError(t, err)

	for i := 0; i < bursts; i++ {
		expectEvent(t, events, EventDataReady)
	}
	expectEvent(t, events, EventDisconnect)
}

func TestNotifierLazyConnect(t *testing.T) {
	cfg := testConfig(t)
	n := newNotifier(cfg.SocketPath)
	defer n.close()

	// No listener yet: absence is not an error, and no connection is held.
	assert.NoError(t, n.notifyReady())
	assert.False(t, n.connected())

	listener, err := ListenNotify(cfg.SocketPath)
	require.NoError(t, err)
	defer listener.Close()
	events := collectEvents(t, listener)

	// Next call dials and delivers.
	assert.NoError(t, n.notifyReady())
	assert.True(t, n.connected())
	expectEvent(t, events, EventDataReady)
}

func TestNotifierReconnectAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	first, err := ListenNotify(cfg.SocketPath)
	require.NoError(t, err)

	n := newNotifier(cfg.SocketPath)
	defer n.close()
	require.NoError(t, n.notifyReady())
	require.True(t, n.connected())

	require.NoError(t, first.Close())

	// The broken connection is dropped on failure and redialed once a
	// listener is back.
	var failed bool
	for i := 0; i < 50 && !failed; i++ {
		if err := n.notifyReady(); err != nil {
			assert.True(t, IsAdvisory(err))
			failed = true
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, failed, "expected a notify failure after listener shutdown")
	assert.False(t, n.connected())

	second, err := ListenNotify(cfg.SocketPath)
	require.NoError(t, err)
	defer second.Close()
	events := collectEvents(t, second)

	assert.NoError(t, n.notifyReady())
	expectEvent(t, events, EventDataReady)
}

func TestNotifyDisconnectWithoutConnection(t *testing.T) {
	n := newNotifier("/nonexistent/socket/path")
	// Best-effort: nothing to send to, nothing blows up.
	n.notifyDisconnect()
	n.close()
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "data-ready", EventDataReady.String())
	assert.Equal(t, "disconnect", EventDisconnect.String())
	assert.Equal(t, "unknown(0x7f)", Event(0x7f).String())
}
