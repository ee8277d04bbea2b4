package main

import (
	"zeroverse/internal/config" // Custom import path (Config)
	"zeroverse/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Migration needs valid database coordinates as well
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	db.Migrate(cfg.DSN())
}
