package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hotelsync/pkg/config"
	"hotelsync/pkg/db"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	flag.Parse()

	cfg := config.Load()

	// Uses DIRECT_URL when set so migrations bypass a pooler.
	if *down > 0 {
		if err := db.Rollback(cfg, *down); err != nil {
			fmt.Fprintf(os.Stderr, "rollback failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d migration(s)\n", *down)
		return
	}

	if err := db.Migrate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}

	// Sanity check that the runtime connection opens too. DSNs are not printed.
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime db open failed: %v\n", err)
		os.Exit(1)
	}
	pool.Close()

	fmt.Println("migrations applied")
}
