package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/marecchia-io/node/pkg/segment"
	"github.com/marecchia-io/node/pkg/swarmnet"
)

// quitGracePeriod bounds how long a one-shot command waits for the event
// loop to drain before forcing the host closed.
const quitGracePeriod = 5 * time.Second

func runProvide(args []string) {
	fs := flag.NewFlagSet("provide", flag.ExitOnError)
	configFlag := fs.String("config", "", "path to config file")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: marecchia-node provide <segment-id> <file> [--config path]")
		os.Exit(1)
	}
	segmentID, path := remaining[0], remaining[1]

	if _, err := segment.NewID(segmentID); err != nil {
		log.Fatalf("invalid segment id: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	if err := segment.ValidatePayload(data); err != nil {
		log.Fatalf("invalid payload: %v", err)
	}

	cfg := loadConfig(*configFlag)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	node, err := swarmnet.Construct(ctx, cfg)
	if err != nil {
		log.Fatalf("Construct failed: %v", err)
	}
	defer func() {
		quitCtx, quitCancel := context.WithTimeout(context.Background(), quitGracePeriod)
		defer quitCancel()
		node.Quit(quitCtx)
	}()

	if err := node.ProvideSegment(ctx, segmentID, data); err != nil {
		log.Fatalf("provide failed: %v", err)
	}
	fmt.Printf("provided %s (%d bytes) as %s\n", segmentID, len(data), node.HostID())
}
