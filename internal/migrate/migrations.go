package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// migration is one embedded schema step. The filename encodes it as
// NNNN_label.sql; steps apply in ascending version order.
type migration struct {
	version int
	label   string
	stmts   string
}

func load() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "sql")
	if err != nil {
		return nil, err
	}
	steps := make([]migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, label, err := parseName(entry.Name())
		if err != nil {
			return nil, err
		}
		data, err := migrationsFS.ReadFile("sql/" + entry.Name())
		if err != nil {
			return nil, err
		}
		steps = append(steps, migration{version: version, label: label, stmts: string(data)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

func parseName(name string) (int, string, error) {
	base := strings.TrimSuffix(name, ".sql")
	prefix, label, ok := strings.Cut(base, "_")
	if !ok {
		return 0, "", fmt.Errorf("migration %s: want NNNN_label.sql", name)
	}
	var version int
	if _, err := fmt.Sscanf(prefix, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("migration %s: %w", name, err)
	}
	return version, label, nil
}

// Migrate brings the database schema up to the latest embedded version.
// Each pending step commits in its own transaction together with the
// schema_version bump, so a failed step leaves the previous version intact.
func Migrate(db *sql.DB) error {
	steps, err := load()
	if err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL);`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	current, err := currentVersion(db)
	if err != nil {
		return err
	}
	for _, step := range steps {
		if step.version <= current {
			continue
		}
		if err := apply(db, step); err != nil {
			return err
		}
		current = step.version
	}
	return nil
}

func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return 0, fmt.Errorf("init schema_version: %w", err)
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return version, nil
}

func apply(db *sql.DB, step migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(step.stmts); err != nil {
		return fmt.Errorf("migration %04d_%s: %w", step.version, step.label, err)
	}
	if _, err := tx.Exec(`UPDATE schema_version SET version=?`, step.version); err != nil {
		return fmt.Errorf("record version %d: %w", step.version, err)
	}
	return tx.Commit()
}
