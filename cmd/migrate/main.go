package main

import (
	"roomy/internal/config" // Configuration
	"roomy/internal/db"     // Database migrations
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())
}
