package events

import (
	"time"

	"github.com/qaboard/qa-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventQuestionCreated EventType = "question_created"
	EventQuestionUpdated EventType = "question_updated"
	EventQuestionDeleted EventType = "question_deleted"
)

// Actor is the identity that caused an event.
type Actor struct {
	UserID      string `json:"user_id"`
	IsModerator bool   `json:"is_moderator"`
}

// ActorFrom copies the caller identity into an Actor.
func ActorFrom(identity domain.Identity) Actor {
	return Actor{UserID: identity.ID, IsModerator: identity.IsModerator}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	QuestionID string      `json:"question_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// QuestionPayload describes the question after the change. For deletions it is the
// last stored state.
type QuestionPayload struct {
	AuthorID string                `json:"author_id"`
	Status   domain.QuestionStatus `json:"status"`
	Title    string                `json:"title"`
	Censored bool                  `json:"censored"`
}

// OnBehalfOf reports whether the actor changed somebody else's question.
func (e Event) OnBehalfOf() bool {
	p, ok := e.Payload.(QuestionPayload)
	return ok && p.AuthorID != "" && p.AuthorID != e.Actor.UserID
}
