package main

import (
	"log"
	"os"
	"strconv"

	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/db"
	"github.com/geocoder89/accounthub/internal/observability"
)

const usage = "usage: migrate up | down [steps] | version"

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	switch os.Args[1] {
	case "up":
		if err := db.MigrateUp(cfg.DBURL, logger); err != nil {
			log.Fatalf("migrate up failed: %v", err)
		}

	case "down":
		steps := 1
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				log.Fatalf("invalid step count %q", os.Args[2])
			}
			steps = n
		}

		if err := db.MigrateDown(cfg.DBURL, steps, logger); err != nil {
			log.Fatalf("migrate down failed: %v", err)
		}

	case "version":
		version, dirty, err := db.MigrationVersion(cfg.DBURL, logger)
		if err != nil {
			log.Fatalf("migrate version failed: %v", err)
		}
		log.Printf("schema version %d (dirty=%v)", version, dirty)

	default:
		log.Fatal(usage)
	}
}
