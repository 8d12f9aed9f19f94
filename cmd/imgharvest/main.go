package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"imgharvest/internal/config"
	"imgharvest/internal/runner"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-config path] <url>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	// Optional .env for local overrides (eg. CHROME_PATH via exec_path).
	_ = godotenv.Load()

	cfgPath := flag.String("config", os.Getenv("IMGHARVEST_CONFIG"), "Path to optional configuration file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	engine, err := runner.NewEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise engine: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := engine.Run(ctx, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}
