package common

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrPermissionDenied = errors.New("access denied")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

func pqCode(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique constraint error. An empty constraint matches any.
func IsUniqueViolation(err error, constraint string) bool {
	pqErr, ok := pqCode(err)
	if !ok || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsForeignKeyViolation is a helper function to check if the error is a foreign key constraint error.
func IsForeignKeyViolation(err error) bool {
	pqErr, ok := pqCode(err)
	return ok && pqErr.Code == pqForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	pqErr, ok := pqCode(err)
	return ok && pqErr.Code == pqCheckViolation
}
