package repositories

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Error kinds carried by StoreError. Match with errors.Is.
var (
	ErrConnection         = errors.New("storage connection failure")
	ErrEntityConstruction = errors.New("storage entity construction failure")
	ErrQueryExecution     = errors.New("storage query failure")
	ErrNotFound           = errors.New("not found")
	ErrEmptyResult        = errors.New("query returned no result")
	ErrDuplicate          = errors.New("duplicate identifier")
)

// ErrChatNotFound and ErrMessageNotFound narrow ErrNotFound to an entity.
var (
	ErrChatNotFound    = fmt.Errorf("chat %w", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
)

// StoreError identifies the failing operation and the failure kind.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func storeErr(op string, kind, err error) error {
	return &StoreError{Op: op, Kind: kind, Err: err}
}

// execErr classifies a failed statement.
func execErr(op string, err error) error {
	switch {
	case isDuplicate(err):
		return storeErr(op, ErrDuplicate, err)
	case isConnection(err):
		return storeErr(op, ErrConnection, err)
	default:
		return storeErr(op, ErrQueryExecution, err)
	}
}

func isDuplicate(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func isConnection(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrCantOpen || liteErr.Code == sqlite3.ErrNotADB
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08"
	}
	return errors.Is(err, errClosed)
}

var errClosed = errors.New("store is closed")
