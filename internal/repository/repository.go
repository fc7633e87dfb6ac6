package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("record already exists")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
