package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qaboard/qa-service/internal/domain"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// OwnerCheck decides whether the caller may mutate a row owned by ownerID.
type OwnerCheck func(ownerID string) bool

// QuestionRepository encapsulates question persistence. Update and Delete lock the row
// and consult the OwnerCheck inside the same transaction; a denied check looks exactly
// like a missing row.
type QuestionRepository interface {
	List(ctx context.Context, page domain.Pagination) ([]domain.Question, error)
	Create(ctx context.Context, question *domain.Question) error
	Get(ctx context.Context, id string) (*domain.Question, error)
	Update(ctx context.Context, id string, draft domain.QuestionDraft, allowed OwnerCheck) (*domain.Question, error)
	Delete(ctx context.Context, id string, allowed OwnerCheck) (*domain.Question, error)
}

type questionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository instantiates repository.
func NewQuestionRepository(pool *pgxpool.Pool) QuestionRepository {
	return &questionRepository{pool: pool}
}

const questionColumns = `id::text, title, content, tags, status, author::text, created_at`

func (r *questionRepository) List(ctx context.Context, page domain.Pagination) ([]domain.Question, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions ORDER BY created_at, id OFFSET $1`, questionColumns)
	args := []any{page.Offset}
	if page.Limit != nil {
		query += " LIMIT $2"
		args = append(args, *page.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, translate(err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return questions, nil
}

func (r *questionRepository) Create(ctx context.Context, question *domain.Question) error {
	const query = `
        INSERT INTO questions (title, content, tags, status, author)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id::text, created_at`

	err := r.pool.QueryRow(ctx, query,
		question.Title,
		question.Content,
		question.Tags,
		question.Status,
		question.AuthorID,
	).Scan(&question.ID, &question.CreatedAt)
	return translate(err)
}

func (r *questionRepository) Get(ctx context.Context, id string) (*domain.Question, error) {
	if !validID(id) {
		return nil, apperrors.ObjectNotFound()
	}
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE id=$1`, questionColumns)
	q, err := scanQuestion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return q, nil
}

// Update rewrites the editable fields. The author column is never touched.
func (r *questionRepository) Update(ctx context.Context, id string, draft domain.QuestionDraft, allowed OwnerCheck) (*domain.Question, error) {
	var updated *domain.Question
	err := r.withOwnedRow(ctx, id, allowed, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
        UPDATE questions SET title=$1, content=$2, tags=$3, status=$4
        WHERE id=$5
        RETURNING %s`, questionColumns)
		q, err := scanQuestion(tx.QueryRow(ctx, query,
			draft.Title,
			draft.Content,
			draft.Tags,
			draft.StatusOrDefault(),
			id,
		))
		if err != nil {
			return err
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *questionRepository) Delete(ctx context.Context, id string, allowed OwnerCheck) (*domain.Question, error) {
	var deleted *domain.Question
	err := r.withOwnedRow(ctx, id, allowed, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`DELETE FROM questions WHERE id=$1 RETURNING %s`, questionColumns)
		q, err := scanQuestion(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		deleted = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// withOwnedRow locks the row, checks ownership and runs fn in one transaction.
func (r *questionRepository) withOwnedRow(ctx context.Context, id string, allowed OwnerCheck, fn func(pgx.Tx) error) error {
	if !validID(id) || allowed == nil {
		return apperrors.ObjectNotFound()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translate(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var owner string
	if err := tx.QueryRow(ctx, `SELECT author::text FROM questions WHERE id=$1 FOR UPDATE`, id).Scan(&owner); err != nil {
		return translate(err)
	}
	if !allowed(owner) {
		return apperrors.ObjectNotFound()
	}

	if err := fn(tx); err != nil {
		return translate(err)
	}
	return translate(tx.Commit(ctx))
}

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var (
		q      domain.Question
		status string
	)
	if err := row.Scan(
		&q.ID,
		&q.Title,
		&q.Content,
		&q.Tags,
		&status,
		&q.AuthorID,
		&q.CreatedAt,
	); err != nil {
		return nil, err
	}
	q.Status = domain.QuestionStatus(status)
	return &q, nil
}
