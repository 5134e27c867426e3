package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/GTDGit/tenant_pos/internal/utils"
)

// PostgreSQL error codes the repositories translate.
const (
	pqUniqueViolation = "23505"
	pqNumericRange    = "22003"
	pqUndefinedTable  = "42P01"
	pqInvalidSchema   = "3F000"
)

// translateError maps driver errors onto the application taxonomy. Errors
// that are already classified pass through unchanged.
func translateError(err error, notFound error, what string) error {
	if err == nil || utils.IsDomainError(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return utils.NotFound(notFound, "%s not found", what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return utils.Duplicate(err, "%s already exists", what)
		case pqNumericRange:
			return utils.Validation("%s: value out of range", what)
		case pqUndefinedTable, pqInvalidSchema:
			return utils.Configuration(utils.ErrStoreNotReady, "store is not provisioned, run migrations: %s", pqErr.Message)
		}
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
