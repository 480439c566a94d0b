package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qaboard/qa-service/internal/domain"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// MemoryStore keeps users and questions in process memory. It backs the "memory"
// storage backend and mirrors the Postgres repositories' error behavior.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[string]domain.User
	emails    map[string]string
	questions map[string]domain.Question
	now       func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		emails:    make(map[string]string),
		questions: make(map[string]domain.Question),
		now:       time.Now,
	}
}

// Users exposes the store as a UserRepository.
func (m *MemoryStore) Users() UserRepository {
	return memoryUsers{m}
}

// Questions exposes the store as a QuestionRepository.
func (m *MemoryStore) Questions() QuestionRepository {
	return memoryQuestions{m}
}

type memoryUsers struct{ *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.emails[user.Email]; taken {
		return apperrors.ConflictInDB(nil)
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.now().UTC()
	r.users[user.ID] = *user
	r.emails[user.Email] = user.ID
	return nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.emails[email]
	if !ok {
		return nil, apperrors.ObjectNotFound()
	}
	user := r.users[id]
	return &user, nil
}

type memoryQuestions struct{ *MemoryStore }

func (r memoryQuestions) List(_ context.Context, page domain.Pagination) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]domain.Question, 0, len(r.questions))
	for _, q := range r.questions {
		all = append(all, cloneQuestion(q))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return strings.Compare(all[i].ID, all[j].ID) < 0
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if page.Offset >= len(all) {
		return []domain.Question{}, nil
	}
	all = all[page.Offset:]
	if page.Limit != nil && *page.Limit < len(all) {
		all = all[:*page.Limit]
	}
	return all, nil
}

func (r memoryQuestions) Create(_ context.Context, question *domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[question.AuthorID]; !ok {
		return apperrors.DBQueryError(nil)
	}
	question.ID = uuid.NewString()
	question.CreatedAt = r.now().UTC()
	r.questions[question.ID] = cloneQuestion(*question)
	return nil
}

func (r memoryQuestions) Get(_ context.Context, id string) (*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[id]
	if !ok {
		return nil, apperrors.ObjectNotFound()
	}
	out := cloneQuestion(q)
	return &out, nil
}

func (r memoryQuestions) Update(_ context.Context, id string, draft domain.QuestionDraft, allowed OwnerCheck) (*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, err := r.owned(id, allowed)
	if err != nil {
		return nil, err
	}
	q.Title = draft.Title
	q.Content = draft.Content
	q.Tags = append([]string(nil), draft.Tags...)
	q.Status = draft.StatusOrDefault()
	r.questions[id] = q

	out := cloneQuestion(q)
	return &out, nil
}

func (r memoryQuestions) Delete(_ context.Context, id string, allowed OwnerCheck) (*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, err := r.owned(id, allowed)
	if err != nil {
		return nil, err
	}
	delete(r.questions, id)
	return &q, nil
}

// owned must be called with the lock held.
func (r memoryQuestions) owned(id string, allowed OwnerCheck) (domain.Question, error) {
	q, ok := r.questions[id]
	if !ok || allowed == nil || !allowed(q.AuthorID) {
		return domain.Question{}, apperrors.ObjectNotFound()
	}
	return q, nil
}

func cloneQuestion(q domain.Question) domain.Question {
	if q.Tags != nil {
		q.Tags = append([]string(nil), q.Tags...)
	}
	return q
}
