package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/marecchia-io/node/pkg/swarmnet"
)

func runDial(args []string) {
	fs := flag.NewFlagSet("dial", flag.ExitOnError)
	configFlag := fs.String("config", "", "path to config file")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: marecchia-node dial <peer-id> <multiaddr> [--config path]")
		os.Exit(1)
	}

	p, err := peer.Decode(remaining[0])
	if err != nil {
		log.Fatalf("invalid peer id: %v", err)
	}
	addr, err := ma.NewMultiaddr(remaining[1])
	if err != nil {
		log.Fatalf("invalid multiaddr: %v", err)
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

	if err := node.Dial(ctx, p, addr); err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	fmt.Printf("dialed %s at %s\n", p, addr)
}
