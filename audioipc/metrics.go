package audioipc

import "github.com/prometheus/client_golang/prometheus"

var (
	framesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmaudio_frames_written_total",
		Help: "Frames published into the shared memory mailbox.",
	})
	bytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmaudio_bytes_written_total",
		Help: "Sample bytes copied into the shared memory data area.",
	})
	bufferFullTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmaudio_buffer_full_total",
		Help: "Writes rejected because the consumer marked the mailbox full.",
	})
	notifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmaudio_notify_failures_total",
		Help: "Notification sends that failed on an established socket.",
	})
	framesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmaudio_frames_read_total",
		Help: "Frames drained from the shared memory mailbox.",
	})
)

func init() {
	prometheus.MustRegister(framesWritten, bytesWritten, bufferFullTotal, notifyFailures, framesRead)
}
