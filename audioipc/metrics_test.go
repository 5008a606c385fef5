package audioipc

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue extracts a Counter's current value.
func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func TestWriteFrameCounters(t *testing.T) {
	cfg := testConfig(t)
	conn, err := Dial(cfg)
	require.NoError(t, err)
	defer conn.Close()

	framesBefore := counterValue(framesWritten)
	bytesBefore := counterValue(bytesWritten)

	require.NoError(t, conn.WriteFrame(rampFrame(256), 16000))

	assert.Equal(t, framesBefore+1, counterValue(framesWritten))
	assert.Equal(t, bytesBefore+1024, counterValue(bytesWritten))
}

func TestBufferFullCounter(t *testing.T) {
	cfg := testConfig(t)
	conn, err := Dial(cfg)
	require.NoError(t, err)
	defer conn.Close()

	before := counterValue(bufferFullTotal)
	conn.hdr.SetStatus(StatusFull)
	require.ErrorIs(t, conn.WriteFrame(rampFrame(4), 16000), ErrBufferFull)
	assert.Equal(t, before+1, counterValue(bufferFullTotal))
}
