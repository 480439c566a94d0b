package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/qaboard/qa-service/internal/auth"
	"github.com/qaboard/qa-service/internal/config"
	"github.com/qaboard/qa-service/internal/domain"
	"github.com/qaboard/qa-service/internal/events"
	"github.com/qaboard/qa-service/internal/repository"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

const moderatorKey = "let-me-moderate"

type upperCensor struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (c *upperCensor) Censor(_ context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, text)
	if c.err != nil {
		return "", c.err
	}
	return strings.ReplaceAll(text, "heck", "****"), nil
}

type fixture struct {
	store    *repository.MemoryStore
	auth     *AuthService
	question *QuestionService
	censor   *upperCensor
	tokens   auth.TokenProvider
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	tokens, err := auth.NewHMACProvider([]byte("service-test-secret"))
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, logger).RegisterHandlers()

	c := &upperCensor{}
	return &fixture{
		store: store,
		auth: NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost, ModeratorAuthKey: moderatorKey}, AuthDependencies{
			UserRepo: store.Users(),
			Tokens:   tokens,
			Logger:   logger,
		}),
		question: NewQuestionService(QuestionDependencies{
			QuestionRepo: store.Questions(),
			Censor:       c,
			Dispatcher:   dispatcher,
			Logger:       logger,
		}),
		censor: c,
		tokens: tokens,
		logs:   logs,
	}
}

func (f *fixture) register(t *testing.T, email string, moderator bool) domain.Identity {
	t.Helper()
	in := RegisterInput{Email: email, Password: "pw-" + email, FirstName: "F", LastName: "L", IsModerator: moderator}
	if moderator {
		in.ModeratorKey = moderatorKey
	}
	user, err := f.auth.RegisterUser(context.Background(), in)
	require.NoError(t, err)
	return domain.Identity{ID: user.ID, IsModerator: user.IsModerator}
}

func requireKind(t *testing.T, err error, want apperrors.Kind) {
	t.Helper()
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok, "expected service error, got %v", err)
	assert.Equal(t, want, kind)
}

func TestAuthService_RegisterUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.RegisterUser(ctx, RegisterInput{Email: "a@x.io", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "secret", user.PasswordHash)
	assert.False(t, user.IsModerator)

	_, err = f.auth.RegisterUser(ctx, RegisterInput{Email: "a@x.io", Password: "other"})
	requireKind(t, err, apperrors.KindConflictInDB)
}

func TestAuthService_ModeratorEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.RegisterUser(ctx, RegisterInput{Email: "m@x.io", Password: "pw", IsModerator: true})
	requireKind(t, err, apperrors.KindAuthCredsMissing)

	_, err = f.auth.RegisterUser(ctx, RegisterInput{Email: "m@x.io", Password: "pw", IsModerator: true, ModeratorKey: "guess"})
	requireKind(t, err, apperrors.KindAuthCredsMissing)

	// nothing was stored by the refused attempts
	_, err = f.store.Users().GetByEmail(ctx, "m@x.io")
	requireKind(t, err, apperrors.KindObjectNotFound)

	user, err := f.auth.RegisterUser(ctx, RegisterInput{Email: "m@x.io", Password: "pw", IsModerator: true, ModeratorKey: moderatorKey})
	require.NoError(t, err)
	assert.True(t, user.IsModerator)
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "m@x.io", true)

	token, err := f.auth.Login(ctx, domain.Credentials{Email: "m@x.io", Password: "pw-m@x.io"})
	require.NoError(t, err)

	identity, err := f.tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, identity)

	_, err = f.auth.Login(ctx, domain.Credentials{Email: "m@x.io", Password: "wrong"})
	requireKind(t, err, apperrors.KindObjectNotFound)

	_, err = f.auth.Login(ctx, domain.Credentials{Email: "ghost@x.io", Password: "pw"})
	requireKind(t, err, apperrors.KindObjectNotFound)
}

func TestAuthService_DummyHashMatchesAccountCost(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost, 8, 0} {
		svc := NewAuthService(config.AuthConfig{BcryptCost: cost}, AuthDependencies{
			UserRepo: repository.NewMemoryStore().Users(),
		})
		user, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "c@x.io", Password: "pw"})
		require.NoError(t, err)

		accountCost, err := bcrypt.Cost([]byte(user.PasswordHash))
		require.NoError(t, err)
		dummyCost, err := bcrypt.Cost([]byte(svc.dummyHash))
		require.NoError(t, err)
		assert.Equal(t, accountCost, dummyCost, "cost %d", cost)
	}
}

func TestAuthService_HashFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auth.hash = func(string, int) (string, error) { return "", errors.New("hash exploded") }

	_, err := f.auth.RegisterUser(ctx, RegisterInput{Email: "h@x.io", Password: "pw"})
	requireKind(t, err, apperrors.KindDBQueryError)
	assert.Equal(t, 1, f.logs.FilterMessage("password hashing failed").Len())

	_, err = f.store.Users().GetByEmail(ctx, "h@x.io")
	requireKind(t, err, apperrors.KindObjectNotFound)
}

func TestQuestionService_CreateCensorsNonModerators(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "u@x.io", false)
	mod := f.register(t, "m@x.io", true)

	q, err := f.question.Create(ctx, user, domain.QuestionDraft{Title: "what the heck", Content: "heck no"})
	require.NoError(t, err)
	assert.Equal(t, "what the ****", q.Title)
	assert.Equal(t, "**** no", q.Content)
	assert.Equal(t, user.ID, q.AuthorID)
	assert.Equal(t, domain.QuestionStatusPending, q.Status)
	assert.ElementsMatch(t, []string{"what the heck", "heck no"}, f.censor.calls)

	f.censor.calls = nil
	q, err = f.question.Create(ctx, mod, domain.QuestionDraft{Title: "heck", Content: "heck"})
	require.NoError(t, err)
	assert.Equal(t, "heck", q.Title)
	assert.Empty(t, f.censor.calls)
}

func TestQuestionService_CensorFailureStopsWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "u@x.io", false)
	f.censor.err = apperrors.ExternalAPIError(errors.New("down"))

	_, err := f.question.Create(ctx, user, domain.QuestionDraft{Title: "t", Content: "c"})
	requireKind(t, err, apperrors.KindExternalAPIError)

	all, err := f.question.List(ctx, domain.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestQuestionService_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "u1@x.io", false)
	other := f.register(t, "u2@x.io", false)
	mod := f.register(t, "m@x.io", true)

	q, err := f.question.Create(ctx, owner, domain.QuestionDraft{Title: "t", Content: "c"})
	require.NoError(t, err)

	err = f.question.Update(ctx, other, q.ID, domain.QuestionDraft{Title: "hijack"})
	requireKind(t, err, apperrors.KindObjectNotFound)
	err = f.question.Delete(ctx, other, q.ID)
	requireKind(t, err, apperrors.KindObjectNotFound)

	// a denied caller sees the same outcome as for a question that never existed
	err = f.question.Delete(ctx, other, "no-such-question")
	requireKind(t, err, apperrors.KindObjectNotFound)

	canceled := domain.QuestionStatusCanceled
	require.NoError(t, f.question.Update(ctx, mod, q.ID, domain.QuestionDraft{Title: "moderated", Status: &canceled}))

	got, err := f.question.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "moderated", got.Title)
	assert.Equal(t, domain.QuestionStatusCanceled, got.Status)
	assert.Equal(t, owner.ID, got.AuthorID)

	require.NoError(t, f.question.Delete(ctx, owner, q.ID))
	_, err = f.question.Get(ctx, q.ID)
	requireKind(t, err, apperrors.KindObjectNotFound)
}

func TestAuditService_RecordsEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "u1@x.io", false)
	mod := f.register(t, "m@x.io", true)

	q, err := f.question.Create(ctx, owner, domain.QuestionDraft{Title: "t", Content: "c"})
	require.NoError(t, err)
	require.NoError(t, f.question.Delete(ctx, mod, q.ID))

	created := f.logs.FilterMessage("question changed").FilterField(zap.String("type", string(events.EventQuestionCreated)))
	require.Equal(t, 1, created.Len())
	assert.Equal(t, owner.ID, created.All()[0].ContextMap()["actor_id"])

	overrides := f.logs.FilterMessage("question changed on behalf of author")
	require.Equal(t, 1, overrides.Len())
	entry := overrides.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, q.ID, entry.ContextMap()["question_id"])
	assert.Equal(t, true, entry.ContextMap()["moderator"])
}
