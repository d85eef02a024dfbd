package main

import (
	"flag"
	"log"
	"os"

	"github.com/markgate/markgate/internal/bootstrap"
	"github.com/markgate/markgate/internal/config"
	"github.com/markgate/markgate/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	cfg := config.Load()
	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start markgate: %v", err)
	}
}
