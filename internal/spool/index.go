// Package spool implements the on-disk article store: one directory per
// newsgroup holding plain-text article files plus a locked, invariant-checked
// key/value index (SQLite, single kv table).
//
// Index key families, all string-keyed:
//
//	count        number of live article numbers in the group
//	min          lowest live article number (max+1 if empty)
//	max          highest article number ever assigned
//	{N}          article number -> "{TOPIC}/{COMMENT}" store path
//	+{N}         injection timestamp of article N (unix seconds)
//	:{N}         tab-separated overview record for article N
//	{TOPIC}/     number of live articles in that topic
package spool

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"golang.org/x/sys/unix"
)

// Mode selects how a group index is opened.
type Mode int

const (
	ModeRead   Mode = iota // read-only
	ModeWrite              // read/write, index must exist
	ModeCreate             // read/write, create directory and index if missing
)

// IndexFileName and LockFileName live inside each group directory.
const (
	IndexFileName = "index"
	LockFileName  = "index.lock"
)

// ErrNotFound is returned by lookups for dead or never-assigned numbers.
var ErrNotFound = fmt.Errorf("not found in index")

var digitsRe = regexp.MustCompile(`^[0-9]+$`)

// GroupIndex is an exclusive handle on one group's index. The advisory lock
// on index.lock is held from open to close; readers and writers both take
// it, there is no reader/writer separation.
type GroupIndex struct {
	Group string
	Dir   string

	// Water marks, re-validated on every open.
	Count int64
	Min   int64
	Max   int64

	db       *sql.DB
	lockFile *os.File
	mode     Mode
}

// OpenGroupIndex locks and opens the index of one group directory. The lock
// is acquired before the index is touched. The three header keys are
// validated on every open; a violation is reported as a broken index and the
// handle is not returned.
func OpenGroupIndex(dir, group string, mode Mode) (*GroupIndex, error) {
	if mode == ModeCreate {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("group %s: %w", dir, err)
		}
	}

	lockFile, err := os.OpenFile(filepath.Join(dir, LockFileName), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", dir, err)
	}
	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("group %s: lock: %w", dir, err)
	}

	indexPath := filepath.Join(dir, IndexFileName)
	if mode != ModeCreate {
		if _, err := os.Stat(indexPath); err != nil {
			lockFile.Close()
			return nil, fmt.Errorf("group %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", indexPath)
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("group %s: %w", dir, err)
	}
	// The flock serializes all access; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	idx := &GroupIndex{
		Group:    group,
		Dir:      dir,
		db:       db,
		lockFile: lockFile,
		mode:     mode,
	}

	if mode == ModeCreate {
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL)`); err != nil {
			idx.Close()
			return nil, fmt.Errorf("group %s: %w", dir, err)
		}
		if err := idx.initHeader(); err != nil {
			idx.Close()
			return nil, err
		}
	}

	if err := idx.validate(); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// initHeader seeds count/min/max for a fresh index. An empty group has
// min == max+1.
func (idx *GroupIndex) initHeader() error {
	for k, v := range map[string]string{"count": "0", "min": "1", "max": "0"} {
		if _, err := idx.db.Exec(`INSERT OR IGNORE INTO kv (k, v) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("group %s: %w", idx.Dir, err)
		}
	}
	return nil
}

// validate re-checks the index invariants and loads the water marks.
func (idx *GroupIndex) validate() error {
	var err error
	if idx.Count, err = idx.headerInt("count"); err != nil {
		return err
	}
	if idx.Min, err = idx.headerInt("min"); err != nil {
		return err
	}
	if idx.Max, err = idx.headerInt("max"); err != nil {
		return err
	}
	if idx.Count > 0 && idx.Max-idx.Min+1 < idx.Count {
		return fmt.Errorf("broken index %s: count=%d min=%d max=%d", idx.Dir, idx.Count, idx.Min, idx.Max)
	}
	if idx.Count == 0 && idx.Min != idx.Max+1 {
		return fmt.Errorf("broken index %s: empty but min=%d max=%d", idx.Dir, idx.Min, idx.Max)
	}
	return nil
}

func (idx *GroupIndex) headerInt(key string) (int64, error) {
	v, ok, err := idx.get(key)
	if err != nil {
		return 0, fmt.Errorf("broken index %s: %w", idx.Dir, err)
	}
	if !ok || !digitsRe.MatchString(v) {
		return 0, fmt.Errorf("broken index %s: bad %q key: %q", idx.Dir, key, v)
	}
	return strconv.ParseInt(v, 10, 64)
}

// Close releases the index and its advisory lock.
func (idx *GroupIndex) Close() error {
	var firstErr error
	if idx.db != nil {
		if err := idx.db.Close(); err != nil {
			firstErr = err
		}
		idx.db = nil
	}
	if idx.lockFile != nil {
		unix.Flock(int(idx.lockFile.Fd()), unix.LOCK_UN)
		if err := idx.lockFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		idx.lockFile = nil
	}
	return firstErr
}

// get reads one key. ok is false when the key is absent.
func (idx *GroupIndex) get(key string) (string, bool, error) {
	var v string
	err := idx.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// keys returns every key/value pair. The key space is small (three header
// keys plus three keys per article plus one per topic); callers filter.
func (idx *GroupIndex) keys() (map[string]string, error) {
	rows, err := idx.db.Query(`SELECT k, v FROM kv`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func txSet(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	return err
}

func txDel(tx *sql.Tx, key string) error {
	_, err := tx.Exec(`DELETE FROM kv WHERE k = ?`, key)
	return err
}
