package export

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is stored in export_meta and checked on read.
const SchemaVersion = 2

// CreateSchema creates all tables and indexes in the database.
func CreateSchema(db *sql.DB) error {
	if err := createCoreTables(db); err != nil {
		return fmt.Errorf("create core tables: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	if err := createMetaTable(db); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

// createCoreTables creates the nodes and edges tables. position keeps the
// element order so a read returns exactly what was written.
func createCoreTables(db *sql.DB) error {
	nodesSQL := `
		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			class TEXT NOT NULL,
			label TEXT NOT NULL,
			missing INTEGER NOT NULL DEFAULT 0,
			root INTEGER NOT NULL DEFAULT 0,
			product TEXT,
			design TEXT,
			party TEXT
		)
	`
	if _, err := db.Exec(nodesSQL); err != nil {
		return fmt.Errorf("create nodes table: %w", err)
	}

	edgesSQL := `
		CREATE TABLE IF NOT EXISTS edges (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			FOREIGN KEY (source) REFERENCES nodes(id),
			FOREIGN KEY (target) REFERENCES nodes(id)
		)
	`
	if _, err := db.Exec(edgesSQL); err != nil {
		return fmt.Errorf("create edges table: %w", err)
	}
	return nil
}

func createIndexes(db *sql.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_nodes_class ON nodes(class)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_product ON nodes(product)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func createMetaTable(db *sql.DB) error {
	metaSQL := `
		CREATE TABLE IF NOT EXISTS export_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)
	`
	if _, err := db.Exec(metaSQL); err != nil {
		return fmt.Errorf("create export_meta table: %w", err)
	}
	return nil
}
