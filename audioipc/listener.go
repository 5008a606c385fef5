package audioipc

import (
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
)

// Event is a decoded control byte from the notification socket.
type Event uint8

const (
	// EventDisconnect means the writer is tearing down.
	EventDisconnect = Event(notifyByteDisconnect)
	// EventDataReady means a frame was published to the mailbox.
	EventDataReady = Event(notifyByteDataReady)
)

func (e Event) String() string {
	switch e {
	case EventDisconnect:
		return "disconnect"
	case EventDataReady:
		return "data-ready"
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(e))
}

const (
	eventQueueHint = 64

	// Events must reach subscribers in publish order; a disconnect
	// overtaking its preceding data-ready would end the stream with a
	// frame still in the slot. One worker keeps delivery serial.
	subscriberPoolSz = 1
)

// NotifyListener is the consumer half of the notification channel. It
// accepts the producer's unix socket connection, decodes the one-byte
// protocol into events and fans them out to subscribers on a worker pool.
type NotifyListener struct {
	path   string
	ln     net.Listener
	events *queue.Queue
	pool   *ants.Pool

	mu    sync.Mutex
	subs  []func(Event)
	conns []net.Conn

	closed atomic.Bool
	wg     sync.WaitGroup
}

// ListenNotify binds the notification socket at path, removing a stale
// socket file from a previous run first.
func ListenNotify(path string) (*NotifyListener, error) {
	safeRemoveSocketFile(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("audioipc: listen on %s: %w", path, err)
	}
	pool, err := ants.NewPool(subscriberPoolSz)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	l := &NotifyListener{
		path:   path,
		ln:     ln,
		events: queue.New(eventQueueHint),
		pool:   pool,
	}
	l.wg.Add(2)
	go l.acceptLoop()
	go l.dispatchLoop()
	internalLogger.infof("notification socket listening on %s", path)
	return l, nil
}

// Subscribe registers fn for every future event. Callbacks run serially,
// in event order, on the listener's worker pool and must not block
// indefinitely.
func (l *NotifyListener) Subscribe(fn func(Event)) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

func (l *NotifyListener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() {
				return
			}
			internalLogger.warnf("accept on %s: %v", l.path, err)
			continue
		}
		l.mu.Lock()
		l.conns = append(l.conns, conn)
		l.mu.Unlock()
		l.wg.Add(1)
		go l.serveConn(conn)
	}
}

func (l *NotifyListener) serveConn(conn net.Conn) {
	defer l.wg.Done()
	var buf [1]byte
	for {
		if _, err := conn.Read(buf[:]); err != nil {
			_ = conn.Close()
			return
		}
		if err := l.events.Put(Event(buf[0])); err != nil {
			// queue disposed during shutdown
			_ = conn.Close()
			return
		}
	}
}

func (l *NotifyListener) dispatchLoop() {
	defer l.wg.Done()
	for {
		items, err := l.events.Get(1)
		if err != nil || len(items) == 0 {
			return
		}
		ev, ok := items[0].(Event)
		if !ok {
			continue
		}
		internalLogger.debugf("notification event: %s", ev)
		l.mu.Lock()
		subs := make([]func(Event), len(l.subs))
		copy(subs, l.subs)
		l.mu.Unlock()
		for _, fn := range subs {
			fn := fn
			if err := l.pool.Submit(func() { fn(ev) }); err != nil {
				return
			}
		}
	}
}

// Close tears the listener down: socket, open connections, event queue and
// worker pool. Safe to call more than once.
func (l *NotifyListener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := l.ln.Close()
	l.mu.Lock()
	for _, c := range l.conns {
		_ = c.Close()
	}
	l.conns = nil
	l.mu.Unlock()
	l.events.Dispose()
	l.wg.Wait()
	l.pool.Release()
	safeRemoveSocketFile(l.path)
	return err
}

// safeRemoveSocketFile removes a unix socket file, reporting whether it was
// present.
func safeRemoveSocketFile(path string) bool {
	return os.Remove(path) == nil
}
