package store_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"au-electorates/internal/graph"
	"au-electorates/internal/migrate"
	"au-electorates/internal/store"
	"au-electorates/internal/testutil"
)

// stubConn 记录执行过的语句；failOn 命中的语句返回错误
type stubConn struct {
	execs      []string
	args       [][]driver.NamedValue
	failOn     string
	committed  bool
	rolledBack bool
	count      int64
}

var driverSeq atomic.Int64

func newStubDB(t *testing.T) (*sql.DB, *stubConn) {
	t.Helper()
	conn := &stubConn{}
	name := fmt.Sprintf("stubpg%d", driverSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, conn
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return &stubTx{c}, nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return &stubTx{c}, nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	c.args = append(c.args, args)
	if c.failOn != "" && strings.Contains(query, c.failOn) {
		return nil, errors.New("exec fail")
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	return &stubRows{vals: []int64{c.count}}, nil
}

type stubTx struct{ c *stubConn }

func (t *stubTx) Commit() error   { t.c.committed = true; return nil }
func (t *stubTx) Rollback() error { t.c.rolledBack = true; return nil }

type stubRows struct{ vals []int64 }

func (r *stubRows) Columns() []string { return []string{"count"} }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if len(r.vals) == 0 {
		return io.EOF
	}
	dest[0] = r.vals[0]
	r.vals = r.vals[1:]
	return nil
}

func (c *stubConn) countPrefix(prefix string) int {
	n := 0
	for _, q := range c.execs {
		if strings.HasPrefix(strings.TrimSpace(q), prefix) {
			n++
		}
	}
	return n
}

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build(testutil.Records())
	require.NoError(t, err)
	return g
}

func TestSyncWritesWholeGraphInOneTransaction(t *testing.T) {
	db, conn := newStubDB(t)
	rep, err := store.AttachDB(db).Sync(context.Background(), buildGraph(t))
	require.NoError(t, err)

	assert.Equal(t, store.SyncReport{Parties: 2, Branches: 4, Divisions: 8, Members: 9, Elections: 3}, rep)
	assert.True(t, conn.committed)
	assert.Equal(t, 2, conn.countPrefix("INSERT INTO _el_parties"))
	assert.Equal(t, 8, conn.countPrefix("DELETE FROM _el_members"))
	assert.Equal(t, 3, conn.countPrefix("DELETE FROM _el_election_divisions"))
	// 2016: 6, 2019: 6, future: 6
	assert.Equal(t, 18, conn.countPrefix("INSERT INTO _el_election_divisions"))
}

func TestSyncNullsForMissingValues(t *testing.T) {
	db, conn := newStubDB(t)
	_, err := store.AttachDB(db).Sync(context.Background(), buildGraph(t))
	require.NoError(t, err)

	for i, q := range conn.execs {
		if !strings.HasPrefix(strings.TrimSpace(q), "INSERT INTO _el_divisions") {
			continue
		}
		args := conn.args[i]
		if args[0].Value != "o'connor" {
			continue
		}
		assert.Nil(t, args[6].Value, "date_gazetted")
		assert.Nil(t, args[10].Value, "unresolved elected party")
		return
	}
	t.Fatal("o'connor was not synced")
}

func TestSyncRollsBackOnFailure(t *testing.T) {
	db, conn := newStubDB(t)
	conn.failOn = "INSERT INTO _el_members"
	_, err := store.AttachDB(db).Sync(context.Background(), buildGraph(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert member bass/0")
	assert.False(t, conn.committed)
	assert.True(t, conn.rolledBack)
}

func TestDivisionCount(t *testing.T) {
	db, conn := newStubDB(t)
	conn.count = 151
	n, err := store.AttachDB(db).DivisionCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(151), n)
}

func TestEnsureSchemaIsIdempotentDDL(t *testing.T) {
	db, conn := newStubDB(t)
	require.NoError(t, migrate.EnsureSchema(context.Background(), db))
	require.NoError(t, migrate.EnsureSchema(context.Background(), db))
	require.NotEmpty(t, conn.execs)
	for _, q := range conn.execs {
		assert.Contains(t, q, "IF NOT EXISTS")
	}

	conn.failOn = "_el_members"
	assert.Error(t, migrate.EnsureSchema(context.Background(), db))
}
