package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/01moynul/catering-golang/internal/orders"
	"github.com/go-sql-driver/mysql"
)

// Querier is implemented by both *sql.DB and *sql.Tx,
// so the same scan helpers work in or out of a transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// MySQLStore implements orders.Store on a MySQL connection pool.
type MySQLStore struct {
	db *sql.DB
}

var _ orders.Store = (*MySQLStore)(nil)

func New(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// maxTxAttempts bounds how often WithinTx reruns fn after InnoDB picks it as a deadlock victim.
const maxTxAttempts = 3

// WithinTx begins a transaction, hands it to fn, and commits only if fn succeeds.
// A deadlock rolls the whole transaction back, so fn is run again from the start.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := s.withinTx(ctx, fn)
		if err == nil || !isDeadlock(err) || attempt == maxTxAttempts || ctx.Err() != nil {
			return err
		}
	}
}

func (s *MySQLStore) withinTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // Safety net, no-op after Commit

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// mysqlDeadlock is ER_LOCK_DEADLOCK.
const mysqlDeadlock = 1213

func isDuplicateEntry(err error) bool {
	return hasMySQLCode(err, mysqlDuplicateEntry)
}

func isDeadlock(err error) bool {
	return hasMySQLCode(err, mysqlDeadlock)
}

func hasMySQLCode(err error, code uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == code
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
