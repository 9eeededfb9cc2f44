package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD)" -o marecchia-node ./cmd/marecchia-node
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "provide":
		runProvide(os.Args[2:])
	case "request":
		runRequest(os.Args[2:])
	case "dial":
		runDial(os.Args[2:])
	case "whoami":
		runWhoami(os.Args[2:])
	case "config":
		runConfig(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("marecchia-node %s (%s)\n", version, commit)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println("Usage: marecchia-node <command> [options]")
	fmt.Println()
	fmt.Println("Node:")
	fmt.Println("  run [--config path]                          Construct a node and idle until interrupted")
	fmt.Println("  provide <segment-id> <file> [--config path]  Publish a file's bytes under segment-id")
	fmt.Println("  request <segment-id> <out-file> [--config path] [--timeout 30s]")
	fmt.Println("                                                Fetch a segment and write it to out-file")
	fmt.Println("  dial <peer-id> <multiaddr> [--config path]   Dial a known peer directly")
	fmt.Println()
	fmt.Println("  whoami [--config path]                       Show this node's peer id")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  config validate [--config path]              Validate a config file")
	fmt.Println("  config show [--config path]                  Show the resolved config")
	fmt.Println("  config rollback [--config path]               Restore last-known-good config")
	fmt.Println("  config apply <new> [--confirm-timeout 2m]    Apply with auto-revert")
	fmt.Println("  config confirm [--config path]               Confirm applied config")
	fmt.Println()
	fmt.Println("  version                                      Show version information")
	fmt.Println()
	fmt.Println("Without --config, marecchia-node searches: ./marecchia-node.yaml,")
	fmt.Println("~/.config/marecchia-node/config.yaml, /etc/marecchia-node/config.yaml")
}
