package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/marecchia-io/node/internal/identity"
)

func runWhoami(args []string) {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	configFlag := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configFlag)
	id, err := identity.PeerIDFromKeyFile(cfg.Identity.KeyFile)
	if err != nil {
		log.Fatalf("failed to derive peer id: %v", err)
	}
	fmt.Println(id)
}
