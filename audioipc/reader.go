package audioipc

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	internalshm "github.com/voxpipe/audio-shm/internal/shm"
)

// Reader is the consumer's handle: it maps the same named region and
// drains the single-slot mailbox, waking on notification events instead of
// polling the status flag. A Reader slower than the writer loses frames;
// that is the mailbox contract.
type Reader struct {
	cfg      *Config
	region   *internalshm.Region
	hdr      *headerView
	listener *NotifyListener
	wake     chan struct{}

	// done latches the writer's disconnect. Data-ready wakeups may
	// collapse, a disconnect may not.
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.Mutex
	closed bool
}

// Frame is one drained audio chunk.
type Frame struct {
	Samples    []float32
	SampleRate uint32
}

// NewReader binds the notification socket and maps the region, creating it
// when the consumer starts first. A nil cfg means DefaultConfig.
func NewReader(cfg *Config) (*Reader, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	listener, err := ListenNotify(cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	region, err := internalshm.OpenOrCreate(cfg.RegionName, cfg.RegionSize)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	hdr, err := newHeaderView(region.Mem)
	if err != nil {
		_ = listener.Close()
		_ = region.Close()
		return nil, err
	}
	hdr.bootstrapIfNew()

	r := &Reader{
		cfg:      cfg,
		region:   region,
		hdr:      hdr,
		listener: listener,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	listener.Subscribe(func(ev Event) {
		if ev == EventDisconnect {
			r.doneOnce.Do(func() { close(r.done) })
			return
		}
		select {
		case r.wake <- struct{}{}:
		default:
			// The mailbox holds one frame; collapsed wakeups are fine.
		}
	})
	return r, nil
}

// WaitForRegion blocks until the named region's backing file exists,
// without creating it. For consumers that must attach to a region the
// producer owns.
func WaitForRegion(ctx context.Context, name string) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(10*time.Millisecond),
		backoff.WithMaxElapsedTime(0),
	), ctx)
	return backoff.Retry(func() error {
		if !internalshm.Exists(name) {
			return fmt.Errorf("region %s not present", name)
		}
		return nil
	}, policy)
}

// ReadFrame blocks until a frame is available, the writer disconnects
// (io.EOF) or ctx is done. The returned samples are a copy; draining marks
// the mailbox Empty and moves the read cursor up to the write cursor.
func (r *Reader) ReadFrame(ctx context.Context) (*Frame, error) {
	for {
		if f := r.tryRead(); f != nil {
			return f, nil
		}
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.done:
			if f := r.tryRead(); f != nil {
				return f, nil
			}
			return nil, io.EOF
		case <-r.wake:
		}
	}
}

// TryReadFrame drains the mailbox without blocking. It returns nil when no
// frame is published.
func (r *Reader) TryReadFrame() *Frame { return r.tryRead() }

func (r *Reader) tryRead() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	// Acquire on status guarantees the writer's preceding metadata and
	// data stores are visible.
	if r.hdr.Status() != StatusDataAvailable {
		return nil
	}
	size := r.hdr.ChunkSize()
	wpos := r.hdr.WritePos()
	if size == 0 || size > uint32(r.cfg.MaxChunkSize) || size > wpos || wpos > r.hdr.DataSize() {
		internalLogger.warnf("discarding frame with inconsistent cursors (chunk=%d write_pos=%d)", size, wpos)
		r.hdr.SetStatus(StatusEmpty)
		return nil
	}

	// The slot holds exactly one published frame, ending at the write
	// cursor. An overwritten frame is gone; only the last one is
	// drainable.
	start := wpos - size
	rate := r.hdr.SampleRate()
	samples := make([]float32, size/4)
	copy(frameBytes(samples), r.data()[start:wpos])

	// Metadata is only stable while status reads DataAvailable; resetting
	// to Empty releases the slot back to the writer.
	r.hdr.SetReadPos(wpos)
	r.hdr.SetStatus(StatusEmpty)
	framesRead.Inc()
	return &Frame{Samples: samples, SampleRate: rate}
}

// BufferStatus returns the raw (write_pos, read_pos, status) tuple.
func (r *Reader) BufferStatus() (writePos, readPos uint32, status uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, 0, StatusEmpty
	}
	return r.hdr.WritePos(), r.hdr.ReadPos(), r.hdr.Status()
}

// Close releases the notification listener and the mapping.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	err := r.listener.Close()
	if cerr := r.region.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if r.region.Created {
		if uerr := r.region.Unlink(); uerr != nil {
			internalLogger.debugf("unlink region %s: %v", r.cfg.RegionName, uerr)
		}
	}
	return err
}

func (r *Reader) data() []byte { return r.region.Mem[HeaderSize:] }
