package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"no rows", pgx.ErrNoRows, apperrors.KindObjectNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), apperrors.KindObjectNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, apperrors.KindConflictInDB},
		{"bad uuid text", &pgconn.PgError{Code: "22P02"}, apperrors.KindObjectNotFound},
		{"other pg error", &pgconn.PgError{Code: "42P01"}, apperrors.KindDBQueryError},
		{"connection failure", errors.New("dial tcp: refused"), apperrors.KindDBQueryError},
		{"context canceled", context.Canceled, apperrors.KindDBQueryError},
		{"service error passes through", apperrors.InvalidParamsRange(), apperrors.KindInvalidParamsRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := apperrors.KindOf(translate(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestTranslate_Nil(t *testing.T) {
	assert.NoError(t, translate(nil))
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("0b6c8f4e-8f51-4a44-9d7c-1a2b3c4d5e6f"))
	assert.False(t, validID("not-a-uuid"))
	assert.False(t, validID(""))
}

func TestQuestionRepository_RejectsBeforeTouchingStorage(t *testing.T) {
	// a nil pool would panic if any of these reached the database
	repo := NewQuestionRepository(nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, "nope")
	requireNotFound(t, err)

	_, err = repo.Delete(ctx, "nope", func(string) bool { return true })
	requireNotFound(t, err)

	_, err = repo.Delete(ctx, "0b6c8f4e-8f51-4a44-9d7c-1a2b3c4d5e6f", nil)
	requireNotFound(t, err)
}

func requireNotFound(t *testing.T, err error) {
	t.Helper()
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindObjectNotFound, kind)
}
