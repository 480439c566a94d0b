package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/qaboard/qa-service/internal/events"
)

// AuditService writes an audit trail of question changes to the log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventQuestionCreated, a.record)
	a.dispatcher.Subscribe(events.EventQuestionUpdated, a.record)
	a.dispatcher.Subscribe(events.EventQuestionDeleted, a.record)
}

func (a *AuditService) record(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("question_id", event.QuestionID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Bool("moderator", event.Actor.IsModerator),
		zap.Time("at", event.Timestamp),
	}
	if p, ok := event.Payload.(events.QuestionPayload); ok {
		fields = append(fields,
			zap.String("author_id", p.AuthorID),
			zap.String("status", string(p.Status)),
			zap.Bool("censored", p.Censored),
		)
	}

	// moderator overrides are the interesting part of the trail
	if event.OnBehalfOf() {
		a.logger.Warn("question changed on behalf of author", fields...)
		return nil
	}
	a.logger.Info("question changed", fields...)
	return nil
}
