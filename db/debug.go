package db

import (
	"context"
	"database/sql"
	"fmt"
)

var statTables = []string{"zones", "schedules", "action_events", "crops"}

// TableCounts reports row counts for the operator CLI's status command.
func TableCounts(ctx context.Context, db *sql.DB) (map[string]int, error) {
	counts := make(map[string]int, len(statTables)+1)
	for _, table := range statTables {
		var n int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}

	var open int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM action_events WHERE end_time IS NULL`).Scan(&open); err != nil {
		return nil, fmt.Errorf("count open events: %w", err)
	}
	counts["open_events"] = open
	return counts, nil
}
