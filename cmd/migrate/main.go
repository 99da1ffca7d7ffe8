// Command migrate applies the database schema explicitly. Production deploys
// run this before rolling the server, since the server only auto-migrates in
// development and test.
package main

import (
	"log"

	"warden/internal/config"
	"warden/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed")
}
