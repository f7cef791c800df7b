package etl

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrUnknownStream    = errors.New("unknown stream")
	ErrSinkExhausted    = errors.New("sink retries exhausted")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrRowTypeMismatch  = errors.New("row does not belong to stream")
	ErrUnsupportedQuery = errors.New("no query for dialect")
)

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient flags err as worth retrying.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Postgres SQLSTATE classes: connection exception, insufficient resources,
// operator intervention, transaction rollback.
var transientSQLStateClasses = []string{"08", "53", "57", "40"}

// SQL Server error numbers for deadlocks, timeouts and Azure SQL throttling
// or failover.
var transientMSSQLNumbers = map[int32]bool{
	-2: true, 64: true, 233: true, 1205: true, 4060: true, 10928: true, 10929: true,
	40197: true, 40501: true, 40613: true, 49918: true, 49919: true, 49920: true,
}

// IsTransient reports whether err is a connectivity or availability failure
// that may succeed on retry.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return hasTransientClass(string(pqErr.Code))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return hasTransientClass(pgErr.Code)
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return transientMSSQLNumbers[msErr.Number]
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func hasTransientClass(code string) bool {
	for _, class := range transientSQLStateClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}
	return false
}
