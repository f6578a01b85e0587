package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Driver-specific unique-violation messages, checked when gorm's error
// translation does not cover the dialect.
var duplicateKeyMarkers = []string{
	"duplicate key value violates unique constraint", // postgres 23505
	"Error 1062",                                     // mysql
	"UNIQUE constraint failed",                       // sqlite 2067
}

// IsDuplicateKeyErr reports whether err is a unique-constraint violation.
// The transaction ledger relies on it to turn an order-id collision into
// ErrDuplicateOrder instead of a generic storage error.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
