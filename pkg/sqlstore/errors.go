package sqlstore

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/rollbackagent/engine/pkg/model"
)

// translateErr maps driver-specific errors onto the core's sentinel
// errors so callers above the store never branch on a driver type.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if isIntegrityViolation(err) {
		return model.ErrIntegrityViolation
	}
	return err
}

// isIntegrityViolation recognizes unique/foreign-key constraint failures
// across the three supported drivers by substring matching their error
// text. None of the three drivers expose a single shared error type, so
// this is the pragmatic cross-dialect approach (mirrors how the drivers'
// own doc examples recommend detecting these failures).
func isIntegrityViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	markers := []string{
		"unique constraint",    // sqlite, postgres
		"duplicate entry",      // mysql
		"foreign key constraint", // all three
		"violates unique",      // postgres
		"unique_violation",     // postgres (pq.Error.Code name)
		"23000",                // mysql integrity constraint SQLSTATE prefix
		"23505",                // postgres unique_violation SQLSTATE
	}
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
