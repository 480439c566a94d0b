package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// QuestionStatus represents lifecycle states for a question.
type QuestionStatus string

const (
	QuestionStatusResolved   QuestionStatus = "Resolved"
	QuestionStatusUnresolved QuestionStatus = "Unresolved"
	QuestionStatusPending    QuestionStatus = "Pending"
	QuestionStatusCanceled   QuestionStatus = "Canceled"
)

// ParseQuestionStatus accepts only the known statuses.
func ParseQuestionStatus(s string) (QuestionStatus, error) {
	switch status := QuestionStatus(s); status {
	case QuestionStatusResolved, QuestionStatusUnresolved, QuestionStatusPending, QuestionStatusCanceled:
		return status, nil
	default:
		return "", fmt.Errorf("status %q not supported", s)
	}
}

// UnmarshalJSON rejects unknown statuses so they surface as a malformed body.
func (s *QuestionStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status, err := ParseQuestionStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Question is the aggregate users ask and moderators curate. Author is set once at
// creation and never rewritten.
type Question struct {
	ID        string
	Title     string
	Content   string
	Tags      []string
	Status    QuestionStatus
	AuthorID  string
	CreatedAt time.Time
}

// QuestionDraft is the editable part of a question.
type QuestionDraft struct {
	Title   string
	Content string
	Tags    []string
	Status  *QuestionStatus
}

// StatusOrDefault returns the requested status, Pending when none was given.
func (d QuestionDraft) StatusOrDefault() QuestionStatus {
	if d.Status == nil {
		return QuestionStatusPending
	}
	return *d.Status
}
