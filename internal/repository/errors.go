package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	sqlStateUniqueViolation  = "23505"
	sqlStateInvalidTextInput = "22P02"
)

// translate maps storage failures onto service errors. Values that are already
// service errors pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.KindOf(err); ok {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ObjectNotFound()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return apperrors.ConflictInDB(err)
		case sqlStateInvalidTextInput:
			return apperrors.ObjectNotFound()
		}
	}
	return apperrors.DBQueryError(err)
}

// validID rejects identifiers that cannot name a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
