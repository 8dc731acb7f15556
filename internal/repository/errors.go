package repository

import (
	"errors"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// dbError classifies a GORM failure: unique violations become Conflict, missing
// rows become NotFound, everything else is an opaque DB error.
func dbError(op, entity, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFoundError(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.WrapError(domain.KindConflict, entity+" already exists", err)
	}
	return domain.NewDBError(op, err)
}
