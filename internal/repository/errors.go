// Package repository implements the service Store and Tx contracts on
// MySQL with hand written SQL.  Driver errors are translated into the
// service sentinels: sql.ErrNoRows becomes service.ErrNotFound and a
// unique key violation (MySQL error 1062) becomes service.ErrDuplicate.
package repository

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/iliyamo/kinder-market/internal/service"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto service sentinels and annotates them
// with what was being done.  A nil err stays nil.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(service.ErrNotFound, what)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return errors.Wrap(service.ErrDuplicate, what)
	}
	return errors.Wrap(err, what)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
