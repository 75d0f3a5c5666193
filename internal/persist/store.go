// Package persist backs the `issaved` persistence bridge: a durable snapshot
// of every field a type declares with FlagSaved, keyed by (type id, field
// name, object handle) and flushed to a pure-Go SQLite database.
package persist

import (
	"database/sql"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dreamruntime/dmrt/internal/vm"
)

type snapshotKey struct {
	typeID  vm.TypeID
	varName string
	handle  uuid.UUID
}

// Store is a write-behind persistence bridge. OnAssign (the vm.PersistHook
// method) only updates an in-memory dirty set, matching spec's "never on the
// hot path of ordinary opcode execution"; CommitProc is the lifecycle hook a
// host calls after a proc returns to flush the accumulated writes to SQLite
// under a single transaction, serialized by mu.
type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	dirty map[snapshotKey]vm.Value
}

// Open creates (if needed) the snapshot table at dsn and returns a ready
// Store. dsn is a modernc.org/sqlite data source name, e.g.
// "file:dmrt.db?cache=shared" or "file::memory:?cache=shared" for tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &vm.PersistenceUnavailableError{Op: "open", Err: err}
	}
	const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	type_id       INTEGER NOT NULL,
	var_name      TEXT    NOT NULL,
	object_handle TEXT    NOT NULL,
	value_kind    INTEGER NOT NULL,
	value_text    TEXT,
	value_num     REAL,
	PRIMARY KEY (type_id, var_name, object_handle)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &vm.PersistenceUnavailableError{Op: "migrate", Err: err}
	}
	return &Store{db: db, dirty: make(map[snapshotKey]vm.Value)}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// OnAssign implements vm.PersistHook: record the live value for later
// flushing, overwriting any prior unflushed write for the same slot.
func (s *Store) OnAssign(typeID vm.TypeID, varName string, handle uuid.UUID, v vm.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[snapshotKey{typeID: typeID, varName: varName, handle: handle}] = v
}

// CommitProc flushes every dirty snapshot accumulated since the last commit
// in a single transaction. Safe to call whether or not anything is dirty.
func (s *Store) CommitProc() error {
	s.mu.Lock()
	pending := s.dirty
	s.dirty = make(map[snapshotKey]vm.Value)
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &vm.PersistenceUnavailableError{Op: "commit", Err: err}
	}
	stmt, err := tx.Prepare(`
INSERT INTO snapshots (type_id, var_name, object_handle, value_kind, value_text, value_num)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(type_id, var_name, object_handle) DO UPDATE SET
	value_kind = excluded.value_kind,
	value_text = excluded.value_text,
	value_num  = excluded.value_num`)
	if err != nil {
		tx.Rollback()
		return &vm.PersistenceUnavailableError{Op: "commit", Err: err}
	}
	defer stmt.Close()

	for key, v := range pending {
		kind, text, num := encodeValue(v)
		if _, err := stmt.Exec(int(key.typeID), key.varName, key.handle.String(), kind, text, num); err != nil {
			tx.Rollback()
			return &vm.PersistenceUnavailableError{Op: "commit", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &vm.PersistenceUnavailableError{Op: "commit", Err: err}
	}
	return nil
}

// Load reads back the last committed snapshot for a field. It does not
// consult the in-memory dirty set; call CommitProc first if a just-assigned
// value must be visible.
func (s *Store) Load(typeID vm.TypeID, varName string, handle uuid.UUID) (vm.Value, bool, error) {
	row := s.db.QueryRow(`
SELECT value_kind, value_text, value_num FROM snapshots
WHERE type_id = ? AND var_name = ? AND object_handle = ?`,
		int(typeID), varName, handle.String())

	var kind int
	var text sql.NullString
	var num sql.NullFloat64
	if err := row.Scan(&kind, &text, &num); err != nil {
		if err == sql.ErrNoRows {
			return vm.Value{}, false, nil
		}
		return vm.Value{}, false, &vm.PersistenceUnavailableError{Op: "load", Err: err}
	}
	return decodeValue(kind, text.String, num.Float64), true, nil
}

// value_kind tags, mirroring vm.ValueType for the scalar variants a snapshot
// can actually hold; Object/Resource/Proc values are never IsSaved (a type's
// own id/handle would be the only persistable trace of them, which the
// reference persistence layer does not attempt to round-trip).
const (
	kindNull = iota
	kindInteger
	kindDouble
	kindString
	kindPath
)

func encodeValue(v vm.Value) (kind int, text string, num float64) {
	switch v.Type {
	case vm.ValInteger:
		return kindInteger, "", float64(v.AsInt())
	case vm.ValDouble:
		return kindDouble, "", v.AsDouble()
	case vm.ValString:
		return kindString, v.AsString(), 0
	case vm.ValPath:
		return kindPath, v.AsPath().String(), 0
	default:
		return kindNull, "", 0
	}
}

func decodeValue(kind int, text string, num float64) vm.Value {
	switch kind {
	case kindInteger:
		return vm.IntVal(int32(num))
	case kindDouble:
		return vm.DoubleVal(num)
	case kindString:
		return vm.StringVal(text)
	case kindPath:
		return vm.PathVal(vm.NewPath(text))
	default:
		return vm.NullVal()
	}
}
