package store

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/netology-group/iam/internal/iamerr"
)

// onConflictDoNothing builds an ON CONFLICT (cols...) DO NOTHING clause,
// used by the namespace, account and identity inserts so re-adding an
// existing row is a harmless no-op rather than a duplicate-key error the
// caller has to special-case. Edge and policy inserts do not use it.
func onConflictDoNothing(cols ...string) clause.OnConflict {
	columns := make([]clause.Column, len(cols))
	for i, c := range cols {
		columns[i] = clause.Column{Name: c}
	}
	return clause.OnConflict{Columns: columns, DoNothing: true}
}

// wrapErr turns a GORM error into an *iamerr.Error, mapping the one case
// callers distinguish (record not found) and treating everything else as
// internal.
func wrapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return iamerr.NotFound("%s: not found", op)
	}
	return iamerr.Internal(err, "store: %s", op)
}

// isNotFound reports whether err is GORM's record-not-found sentinel,
// letting callers that want to return (nil, nil) on a missing row do so
// without going through wrapErr's iamerr.NotFound conversion.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
