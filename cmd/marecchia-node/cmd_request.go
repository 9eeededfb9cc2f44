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

func runRequest(args []string) {
	fs := flag.NewFlagSet("request", flag.ExitOnError)
	configFlag := fs.String("config", "", "path to config file")
	timeout := fs.Duration("timeout", 30*time.Second, "how long to wait for the segment")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: marecchia-node request <segment-id> <out-file> [--config path] [--timeout 30s]")
		os.Exit(1)
	}
	segmentID, outPath := remaining[0], remaining[1]

	if _, err := segment.NewID(segmentID); err != nil {
		log.Fatalf("invalid segment id: %v", err)
	}

	cfg := loadConfig(*configFlag)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
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

	data, err := node.RequestSegment(ctx, segmentID)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		log.Fatalf("write %s: %v", outPath, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(data))
}
