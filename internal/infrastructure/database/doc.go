// Package database provides SQLite storage for afkloop.
//
// It holds the state that must outlive a session:
//   - Solved recognition thresholds per predicate
//   - Match history (character, outcome, disconnects)
//   - The control action audit trail
//
// The connection is opened through mattn/go-sqlite3 with WAL mode and a
// busy timeout. Migrations are embedded from the top-level migrations
// package and applied in version order, one transaction each.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
