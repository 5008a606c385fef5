// shmaudio-bench times the shared-memory write path against the simulated
// request/response baseline it replaced.
package main

import (
	"flag"
	"log"
	"math"

	"github.com/voxpipe/audio-shm/audioipc"
	"github.com/voxpipe/audio-shm/bench"
)

func main() {
	iters := flag.Int("iters", 1000, "frames to publish per run")
	samples := flag.Int("samples", 16000, "samples per frame (1s at 16kHz)")
	flag.Parse()

	cfg, err := audioipc.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := audioipc.Dial(cfg)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	frame := make([]float32, *samples)
	for i := range frame {
		frame[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}

	res, err := bench.Compare(conn, frame, *iters)
	if err != nil {
		log.Fatalf("bench: %v", err)
	}
	log.Println(res)
}
