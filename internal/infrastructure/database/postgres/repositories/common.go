// Package repositories implements the domain persistence contracts on
// PostgreSQL.  Every state change is one conditional UPDATE whose predicate
// encodes the allowed prior states; concurrency control never depends on a
// preceding read.
package repositories

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

func dbErr(err error, op string) error {
	return errors.Wrap(err, errors.ErrCodeDatabaseError, op)
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime maps a nil pointer to NULL.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullID maps a nil pointer to NULL.
func nullID(id *common.ID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func idPtr(s sql.NullString) *common.ID {
	if !s.Valid {
		return nil
	}
	id := common.ID(s.String)
	return &id
}
