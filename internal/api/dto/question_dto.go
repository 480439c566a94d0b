package dto

import (
	"errors"
	"time"

	"github.com/qaboard/qa-service/internal/domain"
)

// QuestionRequest payload for creating or replacing a question.
type QuestionRequest struct {
	Title   *string                `json:"title"`
	Content *string                `json:"content"`
	Tags    []string               `json:"tags"`
	Status  *domain.QuestionStatus `json:"status"`
}

// Validate reports missing fields.
func (r QuestionRequest) Validate() error {
	switch {
	case r.Title == nil:
		return errors.New("missing field `title`")
	case r.Content == nil:
		return errors.New("missing field `content`")
	}
	return nil
}

// Draft converts a validated request to the domain draft.
func (r QuestionRequest) Draft() domain.QuestionDraft {
	return domain.QuestionDraft{
		Title:   *r.Title,
		Content: *r.Content,
		Tags:    r.Tags,
		Status:  r.Status,
	}
}

// QuestionResponse is the public representation of a question.
type QuestionResponse struct {
	ID        string                `json:"_id"`
	CreatedAt string                `json:"created_at"`
	Title     string                `json:"title"`
	Content   string                `json:"content"`
	Tags      []string              `json:"tags"`
	Status    domain.QuestionStatus `json:"status"`
	Author    string                `json:"author"`
}

// ToQuestionResponse maps a domain question.
func ToQuestionResponse(q domain.Question) QuestionResponse {
	return QuestionResponse{
		ID:        q.ID,
		CreatedAt: q.CreatedAt.UTC().Format(time.RFC3339),
		Title:     q.Title,
		Content:   q.Content,
		Tags:      q.Tags,
		Status:    q.Status,
		Author:    q.AuthorID,
	}
}

// ToQuestionResponses maps a page of questions. An empty page encodes as [].
func ToQuestionResponses(qs []domain.Question) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(qs))
	for _, q := range qs {
		out = append(out, ToQuestionResponse(q))
	}
	return out
}
