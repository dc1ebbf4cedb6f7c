package database

import (
	"database/sql"
	"fmt"
	"log"
)

// schema holds the DDL for the POI store. Statements are idempotent so
// startup can always run the whole list.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pois (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		rating REAL NOT NULL DEFAULT 0,
		reviews_count INTEGER NOT NULL DEFAULT 0,
		price_level INTEGER NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pois_lat_lng ON pois(lat, lng)`,
	`CREATE INDEX IF NOT EXISTS idx_pois_category ON pois(category)`,
	`CREATE INDEX IF NOT EXISTS idx_pois_rating ON pois(rating)`,
}

// InitSchema creates the POI tables and indexes if they do not exist.
func InitSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	log.Printf("[Database] Schema initialized")
	return nil
}
