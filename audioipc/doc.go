// Package audioipc is a low-latency shared-memory transport for streaming
// audio frames from a capture process to a local speech-recognition server.
//
// The data path is a single-slot mailbox inside a named 16 MiB shared
// memory region: an atomic coordination header followed by a data area
// holding at most one published, unconsumed frame. Cursor placement wraps
// like a circular buffer, but only one chunk_size/sample_rate pair exists
// for the whole area. A separate unix socket carries one-byte wakeup
// notifications so the consumer never busy-polls the status flag.
//
// Exactly one writer process and one reader process share a region. All
// cross-process coordination happens through atomic header fields; no
// operation on the data path blocks.
package audioipc
