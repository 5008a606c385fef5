package audioipc

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Header layout. The consumer maps the same region, so offsets are part of
// the wire contract and never change without a new region name.
//
//	offset  field        size
//	0       write_pos    4     unsigned cursor into the data area
//	4       read_pos     4     advanced only by the consumer
//	8       status       1     0=empty 1=data_available 2=full
//	9       padding      3     always zero
//	12      chunk_size   4     bytes of the last published frame
//	16      sample_rate  4     doubles as the init sentinel (0 = new region)
//	20      reserved     64
//	84      data area    rest  little-endian float32 samples
const (
	offWritePos   = 0
	offReadPos    = 4
	offStatus     = 8
	offChunkSize  = 12
	offSampleRate = 16
	offReserved   = 20
	reservedBytes = 64

	// HeaderSize is the byte length of the coordination block.
	HeaderSize = offReserved + reservedBytes
)

// Buffer status values.
const (
	StatusEmpty         uint8 = 0
	StatusDataAvailable uint8 = 1
	StatusFull          uint8 = 2
)

// headerView gives bounds-checked, atomically-typed access to the
// coordination block at the start of a mapped region. The raw base address
// never leaves this type. Go's sync/atomic operations are sequentially
// consistent, which satisfies the release/acquire pairing the consumer
// relies on: a reader that observes status==StatusDataAvailable is
// guaranteed to see the chunk_size, sample_rate and data writes that
// preceded the status store. Individual fields are atomic; there is no
// cross-field transactional guarantee.
type headerView struct {
	base     unsafe.Pointer
	dataSize uint32
}

func newHeaderView(mem []byte) (*headerView, error) {
	if len(mem) < HeaderSize+4 {
		return nil, fmt.Errorf("%w: region of %d bytes leaves no data area", ErrRegionInit, len(mem))
	}
	return &headerView{
		base:     unsafe.Pointer(&mem[0]),
		dataSize: uint32(len(mem) - HeaderSize),
	}, nil
}

// word returns the aligned uint32 at off. The mapping is page-aligned, so
// every header field offset is 4-byte aligned.
func (h *headerView) word(off uintptr) *uint32 {
	return (*uint32)(unsafe.Add(h.base, off))
}

func (h *headerView) WritePos() uint32     { return atomic.LoadUint32(h.word(offWritePos)) }
func (h *headerView) SetWritePos(v uint32) { atomic.StoreUint32(h.word(offWritePos), v) }

func (h *headerView) ReadPos() uint32     { return atomic.LoadUint32(h.word(offReadPos)) }
func (h *headerView) SetReadPos(v uint32) { atomic.StoreUint32(h.word(offReadPos), v) }

// Status is the low byte of the aligned word at offset 8; the three
// padding bytes above it stay zero, so whole-word atomics preserve the
// byte-level wire layout.
func (h *headerView) Status() uint8     { return uint8(atomic.LoadUint32(h.word(offStatus))) }
func (h *headerView) SetStatus(s uint8) { atomic.StoreUint32(h.word(offStatus), uint32(s)) }

func (h *headerView) ChunkSize() uint32     { return atomic.LoadUint32(h.word(offChunkSize)) }
func (h *headerView) SetChunkSize(v uint32) { atomic.StoreUint32(h.word(offChunkSize), v) }

func (h *headerView) SampleRate() uint32     { return atomic.LoadUint32(h.word(offSampleRate)) }
func (h *headerView) SetSampleRate(v uint32) { atomic.StoreUint32(h.word(offSampleRate), v) }

// DataSize is the byte length of the data area following the header.
func (h *headerView) DataSize() uint32 { return h.dataSize }

// bootstrapIfNew writes default header values when the sample_rate
// sentinel reads zero, meaning the region was just created. The
// check-and-write is unlocked: creation races are rare (single producer at
// a time) and concurrent double-initialization is an accepted limitation,
// not defended against.
func (h *headerView) bootstrapIfNew() bool {
	if h.SampleRate() != 0 {
		return false
	}
	h.SetWritePos(0)
	h.SetReadPos(0)
	h.SetChunkSize(0)
	h.SetStatus(StatusEmpty)
	h.SetSampleRate(DefaultSampleRate)
	return true
}

// frameBytes reinterprets a float32 slice as its raw bytes. Samples travel
// verbatim as little-endian float32; supported targets are little-endian.
func frameBytes(samples []float32) []byte {
	if len(samples) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*4)
}
