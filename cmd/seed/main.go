// Command main seeds the punishment log with demo data.
package main

import (
	"flag"
	"log"

	"warden/internal/bootstrap"
	"warden/internal/config"
	"warden/internal/seed"
)

func main() {
	targets := flag.Int("targets", 10, "Number of distinct target members")
	records := flag.Int("records", 3, "Punishment records per target")
	maxDays := flag.Int("max-days", 90, "Spread of record timestamps back in time")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	f := seed.NewFactory(db, seed.Options{
		Targets:          *targets,
		RecordsPerTarget: *records,
		MaxDays:          *maxDays,
	})
	if err := f.Run(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
