package audioipc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	internalshm "github.com/voxpipe/audio-shm/internal/shm"
)

// connRegistry tracks every open Conn in the process by a unique key, for
// diagnostics only. Handles are never deduplicated: each Dial maps the
// region independently.
var (
	connRegistry = cmap.New[*Conn]()
	connSeq      atomic.Uint64
)

// Conn is the producer's handle on the transport. It exclusively owns one
// mapping of the shared region and the optional notification socket.
// Exactly one writer process may publish through a region at a time; Conn
// methods are additionally safe for use from multiple goroutines of that
// process.
type Conn struct {
	cfg      *Config
	region   *internalshm.Region
	hdr      *headerView
	notifier *notifier
	key      string

	frameCtr metric.Int64Counter

	mu     sync.Mutex
	closed bool
}

// Dial opens or creates the shared region named in cfg, bootstraps the
// header if the region is new and attempts an initial notification socket
// connection. A missing consumer is non-fatal; the dial is retried lazily
// on the first notify. A nil cfg means DefaultConfig.
func Dial(cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if cfg.Tracer != nil {
		var span trace.Span
		ctx, span = cfg.Tracer.Start(ctx, "audioipc.Dial")
		defer span.End()
	}

	region, err := internalshm.OpenOrCreate(cfg.RegionName, cfg.RegionSize)
	if err != nil {
		return nil, err
	}
	hdr, err := newHeaderView(region.Mem)
	if err != nil {
		_ = region.Close()
		return nil, err
	}

	c := &Conn{
		cfg:      cfg,
		region:   region,
		hdr:      hdr,
		notifier: newNotifier(cfg.SocketPath),
		key:      fmt.Sprintf("%s#%d", cfg.RegionName, connSeq.Add(1)),
	}
	if hdr.bootstrapIfNew() {
		internalLogger.infof("initialized header for region %s (%d bytes)", cfg.RegionName, cfg.RegionSize)
	} else {
		internalLogger.infof("attached to existing region %s", cfg.RegionName)
	}

	if err := c.notifier.connect(); err != nil {
		internalLogger.infof("notification socket not ready, will retry lazily: %v", err)
	}

	if cfg.Meter != nil {
		ctr, err := cfg.Meter.Int64Counter("shmaudio.frames.written")
		if err == nil {
			c.frameCtr = ctr
		}
	}
	connRegistry.Set(c.key, c)
	return c, nil
}

// WriteFrame copies one frame of samples into the data area and publishes
// it. It never blocks: a full mailbox or oversized frame is reported
// immediately. A returned NotifyError is advisory; the frame is already
// committed when notification fails (see IsAdvisory).
func (c *Conn) WriteFrame(samples []float32, sampleRate uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	size := uint32(len(samples) * 4)
	if size > uint32(c.cfg.MaxChunkSize) {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, size, c.cfg.MaxChunkSize)
	}
	if size > c.hdr.DataSize() {
		return fmt.Errorf("%w: %d bytes (data area %d)", ErrBufferTooSmall, size, c.hdr.DataSize())
	}
	if c.hdr.Status() == StatusFull {
		bufferFullTotal.Inc()
		return ErrBufferFull
	}

	pos := c.hdr.WritePos()
	if pos+size > c.hdr.DataSize() {
		// No frame ever splits across the wrap boundary: restart at zero
		// and abandon the unread tail. Best-effort streaming, not
		// guaranteed delivery.
		internalLogger.debugf("write cursor %d wraps for %d byte frame", pos, size)
		pos = 0
		c.hdr.SetWritePos(0)
	}

	copy(c.data()[pos:pos+size], frameBytes(samples))

	// Publish order matters: metadata and cursor first, status last, so a
	// consumer acquiring on status sees a fully written frame.
	c.hdr.SetChunkSize(size)
	c.hdr.SetSampleRate(sampleRate)
	c.hdr.SetWritePos(pos + size)
	c.hdr.SetStatus(StatusDataAvailable)

	framesWritten.Inc()
	bytesWritten.Add(float64(size))
	if c.frameCtr != nil {
		c.frameCtr.Add(context.Background(), 1)
	}

	if err := c.notifier.notifyReady(); err != nil {
		internalLogger.warnf("consumer notification failed, frame stays committed: %v", err)
		return err
	}
	return nil
}

// BufferStatus returns the raw (write_pos, read_pos, status) tuple for
// diagnostics. Pure read, no side effects.
func (c *Conn) BufferStatus() (writePos, readPos uint32, status uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, 0, StatusEmpty
	}
	return c.hdr.WritePos(), c.hdr.ReadPos(), c.hdr.Status()
}

// ResetBuffer force-clears the mailbox: both cursors to zero and status to
// Empty. The caller must ensure no concurrent writer is mid-publish; reset
// is not coordinated with in-flight writes.
func (c *Conn) ResetBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.hdr.SetWritePos(0)
	c.hdr.SetReadPos(0)
	c.hdr.SetChunkSize(0)
	c.hdr.SetStatus(StatusEmpty)
	internalLogger.infof("reset buffer state for region %s", c.cfg.RegionName)
}

// Connected reports whether the notification socket is currently
// established.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.notifier.connected()
}

// Close emits the disconnect notification, then releases the socket and
// the mapping, in that order, on every exit path. A region this process
// created is unlinked; other processes' mappings stay valid until they
// unmap.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.notifier.notifyDisconnect()
	c.notifier.close()
	connRegistry.Remove(c.key)

	created := c.region.Created
	err := c.region.Close()
	if created {
		if uerr := c.region.Unlink(); uerr != nil {
			internalLogger.warnf("unlink region %s: %v", c.cfg.RegionName, uerr)
		}
	}
	return err
}

func (c *Conn) data() []byte { return c.region.Mem[HeaderSize:] }

// DebugConns logs the cursor state of every open connection in this
// process.
func DebugConns() {
	for item := range connRegistry.IterBuffered() {
		w, r, s := item.Val.BufferStatus()
		internalLogger.infof("conn %s: write_pos=%d read_pos=%d status=%d", item.Key, w, r, s)
	}
}
