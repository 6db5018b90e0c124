package export

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
	"github.com/vanderheijden86/supplyviz/pkg/model"
	"github.com/vanderheijden86/supplyviz/pkg/version"

	_ "modernc.org/sqlite"
)

// DefaultSQLiteFilename is used when an output directory is given.
const DefaultSQLiteFilename = "supply.sqlite3"

// ErrSchemaVersion is returned when reading a database written by an
// incompatible version.
var ErrSchemaVersion = errors.New("unsupported schema version")

// ExportMeta describes one SQLite export.
type ExportMeta struct {
	RunID         string    `json:"run_id"`
	SchemaVersion int       `json:"schema_version"`
	Version       string    `json:"version"`
	DataHash      string    `json:"data_hash"`
	CreatedAt     time.Time `json:"created_at"`
	NodeCount     int       `json:"node_count"`
	EdgeCount     int       `json:"edge_count"`
	Path          string    `json:"path,omitempty"`
}

// SQLiteExporter writes a supply graph to a SQLite database. The source tree
// is stored alongside when set, so the database can be reopened in the
// viewer with the tree view intact.
type SQLiteExporter struct {
	Elements elements.Elements
	Tree     *model.Tree
}

// NewSQLiteExporter creates an exporter for e. tree may be nil.
func NewSQLiteExporter(e elements.Elements, tree *model.Tree) *SQLiteExporter {
	return &SQLiteExporter{Elements: e, Tree: tree}
}

// Export writes the database to path, replacing any existing file. A path
// without an extension is treated as a directory.
func (e *SQLiteExporter) Export(path string) (ExportMeta, error) {
	defer metrics.Timer(metrics.SQLiteExport)()

	if filepath.Ext(path) == "" {
		path = filepath.Join(path, DefaultSQLiteFilename)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ExportMeta{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return ExportMeta{}, fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return ExportMeta{}, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := CreateSchema(db); err != nil {
		return ExportMeta{}, fmt.Errorf("create schema: %w", err)
	}
	if err := e.insertNodes(db); err != nil {
		return ExportMeta{}, fmt.Errorf("insert nodes: %w", err)
	}
	if err := e.insertEdges(db); err != nil {
		return ExportMeta{}, fmt.Errorf("insert edges: %w", err)
	}

	meta := ExportMeta{
		RunID:         uuid.NewString(),
		SchemaVersion: SchemaVersion,
		Version:       version.Version,
		DataHash:      e.Elements.DataHash(),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		NodeCount:     len(e.Elements.Nodes),
		EdgeCount:     len(e.Elements.Edges),
		Path:          path,
	}
	if err := e.insertMeta(db, meta); err != nil {
		return ExportMeta{}, fmt.Errorf("insert meta: %w", err)
	}
	if err := db.Close(); err != nil {
		return ExportMeta{}, fmt.Errorf("close database: %w", err)
	}
	return meta, nil
}

func (e *SQLiteExporter) insertNodes(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO nodes (id, position, class, label, missing, root, product, design, party)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, n := range e.Elements.Nodes {
		d := n.Data
		if _, err := stmt.Exec(d.ID, i, string(d.Class), d.Label, d.Missing, d.Root, d.Product, d.Design, d.Party); err != nil {
			return fmt.Errorf("insert node %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertEdges(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO edges (id, position, source, target) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ed := range e.Elements.Edges {
		d := ed.Data
		if _, err := stmt.Exec(d.ID, i, d.Source, d.Target); err != nil {
			return fmt.Errorf("insert edge %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertMeta(db *sql.DB, meta ExportMeta) error {
	rows := map[string]string{
		"run_id":         meta.RunID,
		"schema_version": strconv.Itoa(meta.SchemaVersion),
		"version":        meta.Version,
		"data_hash":      meta.DataHash,
		"created_at":     meta.CreatedAt.Format(time.RFC3339),
		"node_count":     strconv.Itoa(meta.NodeCount),
		"edge_count":     strconv.Itoa(meta.EdgeCount),
	}
	if e.Tree != nil {
		treeJSON, err := json.Marshal(e.Tree)
		if err != nil {
			return fmt.Errorf("marshal tree: %w", err)
		}
		rows["tree"] = string(treeJSON)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for k, v := range rows {
		if _, err := tx.Exec(`INSERT INTO export_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// SQLiteSnapshot is what ReadSQLite recovers from an export.
type SQLiteSnapshot struct {
	Elements elements.Elements
	Tree     *model.Tree // nil when the export carried no tree
	Meta     ExportMeta
}

// ReadSQLite loads an export written by SQLiteExporter.
func ReadSQLite(path string) (*SQLiteSnapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	kv, err := readMeta(db)
	if err != nil {
		return nil, err
	}
	snap := &SQLiteSnapshot{Meta: ExportMeta{Path: path}}
	snap.Meta.SchemaVersion, _ = strconv.Atoi(kv["schema_version"])
	if snap.Meta.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %q", ErrSchemaVersion, kv["schema_version"])
	}
	snap.Meta.RunID = kv["run_id"]
	snap.Meta.Version = kv["version"]
	snap.Meta.DataHash = kv["data_hash"]
	snap.Meta.CreatedAt, _ = time.Parse(time.RFC3339, kv["created_at"])
	snap.Meta.NodeCount, _ = strconv.Atoi(kv["node_count"])
	snap.Meta.EdgeCount, _ = strconv.Atoi(kv["edge_count"])
	if raw, ok := kv["tree"]; ok && raw != "" {
		var t model.Tree
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("decode stored tree: %w", err)
		}
		snap.Tree = &t
	}

	if snap.Elements.Nodes, err = readNodes(db); err != nil {
		return nil, err
	}
	if snap.Elements.Edges, err = readEdges(db); err != nil {
		return nil, err
	}
	return snap, nil
}

func readMeta(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM export_meta`)
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		kv[k] = v.String
	}
	return kv, rows.Err()
}

func readNodes(db *sql.DB) ([]elements.Node, error) {
	rows, err := db.Query(`
		SELECT id, class, label, missing, root, COALESCE(product, ''), COALESCE(design, ''), COALESCE(party, '')
		FROM nodes ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []elements.Node
	for rows.Next() {
		var d elements.NodeData
		var class string
		if err := rows.Scan(&d.ID, &class, &d.Label, &d.Missing, &d.Root, &d.Product, &d.Design, &d.Party); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		d.Class = elements.Class(class)
		out = append(out, elements.Node{Data: d})
	}
	return out, rows.Err()
}

func readEdges(db *sql.DB) ([]elements.Edge, error) {
	rows, err := db.Query(`SELECT id, source, target FROM edges ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []elements.Edge
	for rows.Next() {
		var d elements.EdgeData
		if err := rows.Scan(&d.ID, &d.Source, &d.Target); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, elements.Edge{Data: d})
	}
	return out, rows.Err()
}
