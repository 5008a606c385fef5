package audioipc

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalshm "github.com/voxpipe/audio-shm/internal/shm"
)

func TestReaderRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	reader, err := NewReader(cfg)
	require.NoError(t, err)
	defer reader.Close()

	conn, err := Dial(cfg)
	require.NoError(t, err)
	defer conn.Close()
	require.True(t, conn.Connected())

	samples := rampFrame(1600)
	require.NoError(t, conn.WriteFrame(samples, 44100))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frame, err := reader.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, samples, frame.Samples)
	assert.Equal(t, uint32(44100), frame.SampleRate)

	// Drained: cursors caught up, mailbox empty.
	writePos, readPos, status := reader.BufferStatus()
	assert.Equal(t, writePos, readPos)
	assert.Equal(t, StatusEmpty, status)
}

func TestReaderSequentialFrames(t *testing.T) {
	cfg := testConfig(t)
	reader, err := NewReader(cfg)
	require.NoError(t, err)
	defer reader.Close()

	conn, err := Dial(cfg)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 1; i <= 5; i++ {
		samples := rampFrame(100 * i)
		rate := uint32(8000 * i)
		require.NoError(t, conn.WriteFrame(samples, rate))
		frame, err := reader.ReadFrame(ctx)
		require.NoError(t, err)
		assert.Equal(t, samples, frame.Samples, "frame %d", i)
		assert.Equal(t, rate, frame.SampleRate, "frame %d", i)
	}
}

func TestReaderEOFAfterWakeupBurst(t *testing.T) {
	cfg := testConfig(t)
	reader, err := NewReader(cfg)
	require.NoError(t, err)
	defer reader.Close()

	conn, err := Dial(cfg)
	require.NoError(t, err)

	// Far more wakeups than the reader buffers, then the disconnect. The
	// disconnect must survive the collapsed wakeups.
	samples := rampFrame(8)
	for i := 0; i < 32; i++ {
		require.NoError(t, conn.WriteFrame(samples, 16000))
	}
	require.NoError(t, conn.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frame, err := reader.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, samples, frame.Samples)

	_, err = reader.ReadFrame(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderEOFOnWriterDisconnect(t *testing.T) {
	cfg := testConfig(t)
	reader, err := NewReader(cfg)
	require.NoError(t, err)
	defer reader.Close()

	conn, err := Dial(cfg)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = reader.ReadFrame(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderContextCancellation(t *testing.T) {
	cfg := testConfig(t)
	reader, err := NewReader(cfg)
	require.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = reader.ReadFrame(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTryReadFrameEmpty(t *testing.T) {
	cfg := testConfig(t)
	reader, err := NewReader(cfg)
	require.NoError(t, err)
	defer reader.Close()

	assert.Nil(t, reader.TryReadFrame())
}

func TestReaderMailboxOverwrite(t *testing.T) {
	cfg := testConfig(t)
	reader, err := NewReader(cfg)
	require.NoError(t, err)
	defer reader.Close()

	conn, err := Dial(cfg)
	require.NoError(t, err)
	defer conn.Close()

	// Two publishes before a single drain: the slot holds only the last
	// chunk's metadata. Single-slot mailbox, not a FIFO.
	require.NoError(t, conn.WriteFrame(rampFrame(10), 16000))
	second := rampFrame(20)
	require.NoError(t, conn.WriteFrame(second, 16000))

	frame := reader.TryReadFrame()
	require.NotNil(t, frame)
	assert.Equal(t, second, frame.Samples)
}

func TestWaitForRegion(t *testing.T) {
	name := testConfig(t).RegionName

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Error(t, WaitForRegion(ctx, name), "absent region times out")

	region, err := internalshm.OpenOrCreate(name, 4096)
	require.NoError(t, err)
	defer func() {
		_ = region.Close()
		_ = region.Unlink()
	}()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	assert.NoError(t, WaitForRegion(ctx2, name))
}
