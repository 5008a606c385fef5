package audioipc

import (
	"net"
	"time"
)

// One-byte notification protocol. No length framing, no acknowledgment.
const (
	notifyByteDisconnect byte = 0x00
	notifyByteDataReady  byte = 0x01
)

const dialTimeout = time.Second

// notifier holds the optional out-of-band connection used to wake the
// consumer. The connection is a nullable handle: it exists only while a
// dial has succeeded, and any I/O failure drops it so the next call
// redials. It is never held open across errors.
type notifier struct {
	path string
	conn net.Conn
}

func newNotifier(path string) *notifier {
	return &notifier{path: path}
}

func (n *notifier) connect() error {
	conn, err := net.DialTimeout("unix", n.path, dialTimeout)
	if err != nil {
		return err
	}
	n.conn = conn
	return nil
}

func (n *notifier) connected() bool { return n.conn != nil }

// notifyReady signals one published frame. A missing consumer is not an
// error; the dial is retried on the next call. A write failure on an
// established connection is reported as a NotifyError and the connection
// is dropped for reconnection.
func (n *notifier) notifyReady() error {
	if n.conn == nil {
		if err := n.connect(); err != nil {
			internalLogger.debugf("no notification socket at %s yet: %v", n.path, err)
			return nil
		}
		internalLogger.infof("notification socket connected: %s", n.path)
	}
	if _, err := n.conn.Write([]byte{notifyByteDataReady}); err != nil {
		_ = n.conn.Close()
		n.conn = nil
		notifyFailures.Inc()
		return &NotifyError{Err: err}
	}
	return nil
}

// notifyDisconnect tells the consumer the writer is going away. Sent once
// during clean teardown; best-effort, errors discarded.
func (n *notifier) notifyDisconnect() {
	if n.conn == nil {
		return
	}
	_, _ = n.conn.Write([]byte{notifyByteDisconnect})
}

func (n *notifier) close() {
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}
