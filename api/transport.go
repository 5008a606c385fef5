// Package api defines the public contracts of the audio-shm transport.
package api

// FrameTransport is implemented by transports that publish one audio frame
// at a time to a local consumer process.
type FrameTransport interface {
	// WriteFrame publishes one frame of float32 samples at the given
	// sample rate. It must not block.
	WriteFrame(samples []float32, sampleRate uint32) error
	// Close tears the transport down, signalling the consumer first.
	Close() error
}
