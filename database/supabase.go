package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

var DB *sql.DB

// InitDatabase opens the Postgres connection used by the catalog source
func InitDatabase(dbURL string) error {
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres catalog source")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	DB.SetMaxOpenConns(5)
	DB.SetMaxIdleConns(2)
	DB.SetConnMaxLifetime(30 * time.Minute)

	// Test the connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	log.Println("Successfully connected to database")
	return nil
}

// CreateTables creates the catalog table and its index if they don't exist
func CreateTables(table string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	name := pq.QuoteIdentifier(table)
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ` + name + ` (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT,
			category TEXT NOT NULL,
			price DECIMAL(10,2),
			rating DECIMAL(3,2),
			review_count INTEGER,
			image_url TEXT,
			product_url TEXT NOT NULL,
			description TEXT,
			badges TEXT[],
			keywords TEXT[],
			category_hints TEXT[],
			availability VARCHAR(20) DEFAULT 'in_stock' CHECK (availability IN ('in_stock', 'out_of_stock')),
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS ` + pq.QuoteIdentifier("idx_"+table+"_active") + ` ON ` + name + ` (is_active)`,
	}

	for _, query := range queries {
		_, err := DB.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
