package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"strings"
	"sync"
	"testing"

	"fieldroster/pkg/domain"
)

// stubConn records statements and serves an empty state table so the store
// can be exercised without a live Postgres.
type stubConn struct {
	mu    sync.Mutex
	execs []string
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

func (c *stubConn) Ping(context.Context) error { return nil }

func (c *stubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	c.execs = append(c.execs, query)
	c.mu.Unlock()
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if strings.Contains(query, "FROM state") {
		return &emptyRows{columns: []string{"bucket", "payload"}}, nil
	}
	return &emptyRows{}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type emptyRows struct {
	columns []string
}

func (r *emptyRows) Columns() []string              { return r.columns }
func (r *emptyRows) Close() error                   { return nil }
func (r *emptyRows) Next(dest []driver.Value) error { return io.EOF }

type stubDriver struct {
	conn *stubConn
}

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConnector struct {
	conn *stubConn
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c stubConnector) Driver() driver.Driver                        { return stubDriver{conn: c.conn} }

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{}
	return sql.OpenDB(stubConnector{conn: conn}), conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStore("", domain.NewRulesEngine()); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") {
			sawDDL = true
			break
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.execs)
	}
}

func TestRunInTransactionPersistsAllBuckets(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateTeam(domain.Team{Name: "Rig 4"})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	upserts := 0
	for _, stmt := range conn.execs {
		if strings.Contains(stmt, "INSERT INTO state") {
			upserts++
		}
	}
	if upserts != len(postgresBuckets) {
		t.Fatalf("expected %d bucket upserts, got %d", len(postgresBuckets), upserts)
	}
	if len(store.ListTeams()) != 1 {
		t.Fatalf("expected committed team in memory state")
	}
}
