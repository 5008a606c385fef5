// shmaudio-recv drains the shared-memory audio mailbox and exposes
// liveness and metrics endpoints. It stands in for the recognition
// server's ingest loop when developing or soak-testing the transport.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxpipe/audio-shm/audioipc"
	internalshm "github.com/voxpipe/audio-shm/internal/shm"
)

func main() {
	cfg, err := audioipc.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	reader, err := audioipc.NewReader(cfg)
	if err != nil {
		log.Fatalf("reader: %v", err)
	}
	defer reader.Close()

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("region-mapped", func() error {
		if !internalshm.Exists(cfg.RegionName) {
			return errors.New("shared region not present")
		}
		return nil
	})
	health.AddReadinessCheck("socket-listening", func() error {
		if _, err := os.Stat(cfg.SocketPath); err != nil {
			return errors.New("notification socket not bound")
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.Handle("/live", http.HandlerFunc(health.LiveEndpoint))
	mux.Handle("/ready", http.HandlerFunc(health.ReadyEndpoint))
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(cfg.AdminAddr, mux); err != nil {
			log.Printf("admin server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("draining region %q, admin on %s", cfg.RegionName, cfg.AdminAddr)
	var frames, samples int
	for {
		frame, err := reader.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("writer disconnected after %d frames (%d samples)", frames, samples)
				return
			}
			if errors.Is(err, context.Canceled) {
				log.Printf("stopping after %d frames (%d samples)", frames, samples)
				return
			}
			log.Fatalf("read frame: %v", err)
		}
		frames++
		samples += len(frame.Samples)
		if frames%100 == 0 {
			log.Printf("%d frames so far, last: %d samples @ %d Hz",
				frames, len(frame.Samples), frame.SampleRate)
		}
	}
}
