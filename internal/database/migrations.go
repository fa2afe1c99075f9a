package database

import (
	"database/sql"
	"log"
)

// RunMigrations ensures all required tables exist.
// Note: In production, use a proper migration tool.
func RunMigrations(db *sql.DB) error {
	log.Println("Checking database schema...")

	statements := []string{
		`CREATE TABLE IF NOT EXISTS riders (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			age INT NOT NULL CHECK (age >= 5 AND age <= 80),
			phone TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			level TEXT NOT NULL DEFAULT 'beginner',
			joined_date TEXT NOT NULL,
			fees_paid BOOLEAN NOT NULL DEFAULT FALSE,
			batch_type TEXT NOT NULL,
			batch_index INT NOT NULL CHECK (batch_index >= 0),
			version INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_riders_batch ON riders (batch_type, batch_index)`,
		`CREATE TABLE IF NOT EXISTS checkins (
			rider_id UUID NOT NULL REFERENCES riders(id) ON DELETE CASCADE,
			ride_number INT NOT NULL,
			checkin_time TIMESTAMPTZ NOT NULL,
			horse TEXT NOT NULL,
			paid BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (rider_id, ride_number)
		)`,
		`CREATE TABLE IF NOT EXISTS batches (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			time_range TEXT NOT NULL,
			batch_type TEXT NOT NULL,
			batch_index INT NOT NULL CHECK (batch_index >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (batch_type, batch_index)
		)`,
		`CREATE TABLE IF NOT EXISTS rides (
			id UUID PRIMARY KEY,
			ride_time TIMESTAMPTZ NOT NULL,
			rider_id UUID NOT NULL,
			rider_name TEXT NOT NULL,
			rider_level TEXT NOT NULL,
			horse TEXT NOT NULL,
			batch_type TEXT NOT NULL,
			batch_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rides_ride_time ON rides (ride_time DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_rides_rider_id ON rides (rider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rides_rider_level ON rides (rider_level)`,
		`CREATE TABLE IF NOT EXISTS admin_users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'admin',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	log.Println("Database schema is up to date")
	return nil
}
