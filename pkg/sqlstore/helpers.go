package sqlstore

import (
	"database/sql"

	"github.com/rollbackagent/engine/pkg/model"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows, letting scan helpers
// work with either a single-row or multi-row query result.
type rowScanner interface {
	Scan(dest ...any) error
}

// requireRowsAffected returns model.ErrNotFound if an UPDATE/DELETE
// touched no rows — the store's way of reporting "id does not resolve"
// for mutation statements (SELECT-based lookups go through translateErr).
func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
