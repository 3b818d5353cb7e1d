package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

type Migration struct {
	Name string
	SQL  string
}

func migrations() []Migration {
	return []Migration{
		{
			Name: "001_create_system_alerts",
			SQL: `
			CREATE TABLE IF NOT EXISTS system_alerts (
				id VARCHAR(36) PRIMARY KEY,
				type VARCHAR(32) NOT NULL,
				severity VARCHAR(16) NOT NULL,
				title VARCHAR(255) NOT NULL,
				message TEXT NOT NULL,
				pot_id VARCHAR(255),
				sensor_data_id VARCHAR(64),
				is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
				resolved_at DATETIME(6) NULL,
				resolved_by VARCHAR(255) NULL,
				created_at DATETIME(6) NOT NULL,
				INDEX idx_created_at (created_at),
				INDEX idx_resolved_severity (is_resolved, severity)
			)
			`,
		},
	}
}

// Migrate creates the migrations ledger and runs every migration not yet recorded.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS migrations (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations() {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE name = ?", m.Name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}
		if count > 0 {
			continue
		}
		log.Printf("sqlstore: running migration %s", m.Name)
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("run migration %s: %w", m.Name, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO migrations (name) VALUES (?)", m.Name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
	}
	return nil
}
