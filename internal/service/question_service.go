package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qaboard/qa-service/internal/auth"
	"github.com/qaboard/qa-service/internal/censor"
	"github.com/qaboard/qa-service/internal/domain"
	"github.com/qaboard/qa-service/internal/events"
	"github.com/qaboard/qa-service/internal/repository"
)

// QuestionService coordinates question workflows.
type QuestionService struct {
	questions  repository.QuestionRepository
	censor     censor.Censor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// QuestionDependencies bundles collaborators for the question service.
type QuestionDependencies struct {
	QuestionRepo repository.QuestionRepository
	Censor       censor.Censor
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewQuestionService builds the service. A nil censor leaves text untouched.
func NewQuestionService(deps QuestionDependencies) *QuestionService {
	s := &QuestionService{
		questions:  deps.QuestionRepo,
		censor:     deps.Censor,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
	if s.censor == nil {
		s.censor = censor.Passthrough{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// List returns a page of questions, oldest first.
func (s *QuestionService) List(ctx context.Context, page domain.Pagination) ([]domain.Question, error) {
	return s.questions.List(ctx, page)
}

// Get returns a single question.
func (s *QuestionService) Get(ctx context.Context, id string) (*domain.Question, error) {
	return s.questions.Get(ctx, id)
}

// Create stores a question authored by the caller.
func (s *QuestionService) Create(ctx context.Context, caller domain.Identity, draft domain.QuestionDraft) (*domain.Question, error) {
	draft, err := s.clean(ctx, caller, draft)
	if err != nil {
		return nil, err
	}

	question := &domain.Question{
		Title:    draft.Title,
		Content:  draft.Content,
		Tags:     draft.Tags,
		Status:   draft.StatusOrDefault(),
		AuthorID: caller.ID,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventQuestionCreated, caller, question)
	return question, nil
}

// Update replaces the editable fields of a question the caller may change.
func (s *QuestionService) Update(ctx context.Context, caller domain.Identity, id string, draft domain.QuestionDraft) error {
	draft, err := s.clean(ctx, caller, draft)
	if err != nil {
		return err
	}

	updated, err := s.questions.Update(ctx, id, draft, auth.OwnershipGuard(caller))
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventQuestionUpdated, caller, updated)
	return nil
}

// Delete removes a question the caller may change.
func (s *QuestionService) Delete(ctx context.Context, caller domain.Identity, id string) error {
	deleted, err := s.questions.Delete(ctx, id, auth.OwnershipGuard(caller))
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventQuestionDeleted, caller, deleted)
	return nil
}

// clean censors title and content concurrently. Moderators are trusted.
func (s *QuestionService) clean(ctx context.Context, caller domain.Identity, draft domain.QuestionDraft) (domain.QuestionDraft, error) {
	if caller.IsModerator {
		return draft, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	var title, content string
	g.Go(func() error {
		var err error
		title, err = s.censor.Censor(gctx, draft.Title)
		return err
	})
	g.Go(func() error {
		var err error
		content, err = s.censor.Censor(gctx, draft.Content)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.QuestionDraft{}, err
	}

	draft.Title = title
	draft.Content = content
	return draft, nil
}

func (s *QuestionService) publish(ctx context.Context, eventType events.EventType, caller domain.Identity, q *domain.Question) {
	if s.dispatcher == nil || q == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		QuestionID: q.ID,
		Actor:      events.ActorFrom(caller),
		Timestamp:  s.now().UTC(),
		Payload: events.QuestionPayload{
			AuthorID: q.AuthorID,
			Status:   q.Status,
			Title:    q.Title,
			Censored: !caller.IsModerator,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("type", string(eventType)), zap.Error(err))
	}
}
