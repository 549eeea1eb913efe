package common

import (
	"errors"

	"github.com/lib/pq"
)

// IsUniqueViolation проверяет код 23505 от PostgreSQL.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
