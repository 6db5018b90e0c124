package export

import (
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/metrics"
)

func TestSQLiteExport_RoundTrip(t *testing.T) {
	tree := chairTree()
	e := chairElements(t)
	path := filepath.Join(t.TempDir(), "chair.sqlite3")

	meta, err := NewSQLiteExporter(e, &tree).Export(path)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := uuid.Parse(meta.RunID); err != nil {
		t.Errorf("run id %q is not a uuid: %v", meta.RunID, err)
	}
	if meta.NodeCount != len(e.Nodes) || meta.EdgeCount != len(e.Edges) {
		t.Errorf("meta counts = %d/%d", meta.NodeCount, meta.EdgeCount)
	}

	snap, err := ReadSQLite(path)
	if err != nil {
		t.Fatalf("ReadSQLite: %v", err)
	}
	if !reflect.DeepEqual(snap.Elements, e) {
		t.Errorf("elements differ after round trip:\n got %+v\nwant %+v", snap.Elements, e)
	}
	if snap.Tree == nil || !reflect.DeepEqual(*snap.Tree, tree) {
		t.Errorf("tree differs after round trip: %+v", snap.Tree)
	}
	if snap.Meta.RunID != meta.RunID || snap.Meta.DataHash != e.DataHash() {
		t.Errorf("meta = %+v", snap.Meta)
	}
	if !snap.Meta.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("created_at = %v, want %v", snap.Meta.CreatedAt, meta.CreatedAt)
	}
}

func TestSQLiteExport_WithoutTree(t *testing.T) {
	dir := t.TempDir()
	meta, err := NewSQLiteExporter(chairElements(t), nil).Export(dir)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if meta.Path != filepath.Join(dir, DefaultSQLiteFilename) {
		t.Errorf("path = %s", meta.Path)
	}
	snap, err := ReadSQLite(meta.Path)
	if err != nil {
		t.Fatalf("ReadSQLite: %v", err)
	}
	if snap.Tree != nil {
		t.Error("expected no tree")
	}
}

func TestSQLiteExport_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.sqlite3")
	first := chairElements(t)
	if _, err := NewSQLiteExporter(first, nil).Export(path); err != nil {
		t.Fatalf("first export: %v", err)
	}
	second := elements.Elements{Nodes: first.Nodes[:2], Edges: first.Edges[:1]}
	if _, err := NewSQLiteExporter(second, nil).Export(path); err != nil {
		t.Fatalf("second export: %v", err)
	}
	snap, err := ReadSQLite(path)
	if err != nil {
		t.Fatalf("ReadSQLite: %v", err)
	}
	if len(snap.Elements.Nodes) != 2 || len(snap.Elements.Edges) != 1 {
		t.Errorf("got %d nodes %d edges, want 2/1", len(snap.Elements.Nodes), len(snap.Elements.Edges))
	}
}

func TestReadSQLite_SchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.sqlite3")
	if _, err := NewSQLiteExporter(chairElements(t), nil).Export(path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`UPDATE export_meta SET value = '99' WHERE key = 'schema_version'`); err != nil {
		t.Fatalf("update: %v", err)
	}
	db.Close()

	if _, err := ReadSQLite(path); !errors.Is(err, ErrSchemaVersion) {
		t.Fatalf("err = %v, want ErrSchemaVersion", err)
	}
}

func TestReadSQLite_Missing(t *testing.T) {
	if _, err := ReadSQLite(filepath.Join(t.TempDir(), "none.sqlite3")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSQLiteExport_RecordsMetric(t *testing.T) {
	metrics.SetEnabled(true)
	defer metrics.SetEnabled(false)
	metrics.SQLiteExport.Reset()

	if _, err := NewSQLiteExporter(chairElements(t), nil).Export(filepath.Join(t.TempDir(), "m.sqlite3")); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := metrics.SQLiteExport.Stats().Count; got != 1 {
		t.Errorf("sqlite export count = %d, want 1", got)
	}
}
