package repositories

import (
	"errors"

	"dmis/pkg/errclass"

	"github.com/jackc/pgx/v5"
)

// notFound converts pgx.ErrNoRows into a classified not-found error.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errclass.ErrNotFound.WithMessagef(format, args...)
	}
	return err
}
