package watcher

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind says how a source is laid out on disk, which decides the set of files
// whose changes trigger a reload.
type Kind int

const (
	// KindDocument is a single tree or network document.
	KindDocument Kind = iota
	// KindSQLite is a SQLite export. Writers touch the -wal or -journal
	// companion before (or instead of) the database file itself.
	KindSQLite
	// KindDirectory is a tree directory. Any document or export appearing,
	// changing or disappearing in it can change which source wins.
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindSQLite:
		return "sqlite"
	case KindDirectory:
		return "directory"
	default:
		return "document"
	}
}

// DefaultSQLiteDebounce is the quiet period for SQLite sources. An export
// writes the database, its journal and a final checkpoint in quick
// succession.
const DefaultSQLiteDebounce = 500 * time.Millisecond

// Companion suffixes SQLite appends to the database file name.
const (
	walSuffix     = "-wal"
	journalSuffix = "-journal"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// sourceExts are the file types a tree directory can hold.
var sourceExts = map[string]bool{
	".json": true, ".yaml": true, ".yml": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
}

// KindOf classifies path. A missing path is a document unless its extension
// names a SQLite file.
func KindOf(path string) Kind {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return KindDirectory
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite
	}
	if err != nil {
		return KindDocument
	}
	f, err := os.Open(path)
	if err != nil {
		return KindDocument
	}
	defer f.Close()
	head := make([]byte, len(sqliteHeader))
	if n, _ := f.Read(head); n == len(head) && bytes.Equal(head, sqliteHeader) {
		return KindSQLite
	}
	return KindDocument
}

// watchDir is the directory handed to fsnotify. Files are watched through
// their directory so editors that save by rename keep being followed.
func (k Kind) watchDir(path string) string {
	if k == KindDirectory {
		return path
	}
	return filepath.Dir(path)
}

// member reports whether a file name inside watchDir belongs to the source.
// primary is false for SQLite companions, whose removal is routine.
func (k Kind) member(path, name string) (ok, primary bool) {
	base := filepath.Base(path)
	switch k {
	case KindDirectory:
		if strings.HasPrefix(name, ".") {
			return false, false
		}
		return sourceExts[strings.ToLower(filepath.Ext(name))], false
	case KindSQLite:
		switch name {
		case base:
			return true, true
		case base + walSuffix, base + journalSuffix:
			return true, false
		}
		return false, false
	default:
		return name == base, true
	}
}

// fileStamp is what polling compares between ticks.
type fileStamp struct {
	modTime time.Time
	size    int64
}

// snapshot stamps every member file currently present. Missing companions are
// simply absent from the result.
func (k Kind) snapshot(path string) (map[string]fileStamp, error) {
	out := make(map[string]fileStamp)
	if k == KindDirectory {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if ok, _ := k.member(path, e.Name()); !ok {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			out[e.Name()] = fileStamp{modTime: info.ModTime(), size: info.Size()}
		}
		return out, nil
	}

	names := []string{filepath.Base(path)}
	if k == KindSQLite {
		names = append(names, names[0]+walSuffix, names[0]+journalSuffix)
	}
	dir := filepath.Dir(path)
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[name] = fileStamp{modTime: info.ModTime(), size: info.Size()}
	}
	return out, nil
}

// diffSnapshots lists the names added, removed or restamped between a and b.
func diffSnapshots(a, b map[string]fileStamp) []string {
	var changed []string
	for name, sa := range a {
		sb, ok := b[name]
		if !ok || !sb.modTime.Equal(sa.modTime) || sb.size != sa.size {
			changed = append(changed, name)
		}
	}
	for name := range b {
		if _, ok := a[name]; !ok {
			changed = append(changed, name)
		}
	}
	return changed
}
