package audioipc

import (
	"errors"

	internalshm "github.com/voxpipe/audio-shm/internal/shm"
)

var (
	// ErrRegionInit reports that the shared region could neither be
	// created nor opened. Fatal at construction.
	ErrRegionInit = internalshm.ErrRegionInit

	// ErrBufferFull reports that the consumer marked the mailbox full.
	// Transient; the caller decides whether to retry or drop.
	ErrBufferFull = errors.New("audioipc: shared buffer full")

	// ErrFrameTooLarge reports a frame exceeding the maximum chunk size.
	ErrFrameTooLarge = errors.New("audioipc: frame exceeds max chunk size")

	// ErrBufferTooSmall reports a frame larger than the whole data area.
	ErrBufferTooSmall = errors.New("audioipc: frame exceeds data area size")

	// ErrClosed reports use of a closed connection.
	ErrClosed = errors.New("audioipc: connection closed")
)

// NotifyError wraps a notification channel failure. It is advisory: the
// frame that triggered the notification is already committed to the shared
// region when this error is returned.
type NotifyError struct {
	Err error
}

func (e *NotifyError) Error() string {
	return "audioipc: notify consumer: " + e.Err.Error()
}

func (e *NotifyError) Unwrap() error { return e.Err }

// IsAdvisory reports whether err only concerns the notification side
// channel, leaving the data write intact.
func IsAdvisory(err error) bool {
	var ne *NotifyError
	return errors.As(err, &ne)
}
