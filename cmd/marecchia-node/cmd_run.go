package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marecchia-io/node/internal/config"
	"github.com/marecchia-io/node/pkg/swarmnet"
)

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFlag := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfgFile, err := config.FindConfigFile(*configFlag)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	cfg := loadConfig(cfgFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if deadline, err := config.CheckPending(cfgFile); err == nil && !deadline.IsZero() {
		go config.EnforceCommitConfirmed(ctx, cfgFile, deadline, os.Exit)
	}

	node, err := swarmnet.Construct(ctx, cfg)
	if err != nil {
		log.Fatalf("Construct failed: %v", err)
	}
	if err := config.Archive(cfgFile); err != nil {
		slog.Warn("failed to archive config", "error", err)
	}

	slog.Info("node running", "peer", node.HostID(), "namespace", cfg.Namespace)
	fmt.Printf("peer id: %s\n", node.HostID())

	<-ctx.Done()
	slog.Info("shutting down")

	quitCtx, cancel := context.WithTimeout(context.Background(), quitGracePeriod)
	defer cancel()
	if err := node.Quit(quitCtx); err != nil {
		log.Fatalf("Quit failed: %v", err)
	}
}
