// Package sqlite provides a SQLite-backed persistent store. It reuses the
// in-memory transactional semantics and snapshots the full state to a single
// table as JSON blobs after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fieldroster/internal/infra/persistence/memory"
	"fieldroster/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "fieldroster.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	mem := memory.NewStore(engine)
	s := &Store{Store: mem, db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var sqliteBuckets = []string{"personnel", "teams", "work_orders", "locations", "meta"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	type raw struct {
		bucket  string
		payload []byte
	}
	var raws []raw
	for rows.Next() {
		var r raw
		if err := rows.Scan(&r.bucket, &r.payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(raws) == 0 {
		return nil
	}
	snapshot := memory.Snapshot{}
	for _, r := range raws {
		switch r.bucket {
		case "personnel":
			if err := json.Unmarshal(r.payload, &snapshot.Personnel); err != nil {
				return fmt.Errorf("decode personnel: %w", err)
			}
		case "teams":
			if err := json.Unmarshal(r.payload, &snapshot.Teams); err != nil {
				return fmt.Errorf("decode teams: %w", err)
			}
		case "work_orders":
			if err := json.Unmarshal(r.payload, &snapshot.WorkOrders); err != nil {
				return fmt.Errorf("decode work_orders: %w", err)
			}
		case "locations":
			if err := json.Unmarshal(r.payload, &snapshot.Locations); err != nil {
				return fmt.Errorf("decode locations: %w", err)
			}
		case "meta":
			if err := json.Unmarshal(r.payload, &snapshot.Meta); err != nil {
				return fmt.Errorf("decode meta: %w", err)
			}
		}
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "personnel":
			data, err = json.Marshal(snapshot.Personnel)
		case "teams":
			data, err = json.Marshal(snapshot.Teams)
		case "work_orders":
			data, err = json.Marshal(snapshot.WorkOrders)
		case "locations":
			data, err = json.Marshal(snapshot.Locations)
		case "meta":
			data, err = json.Marshal(snapshot.Meta)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
