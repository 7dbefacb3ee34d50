package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/taskminder-api/internal/domain"
	jwtinfra "github.com/taskminder-api/internal/infrastructure/jwt"
	"github.com/taskminder-api/internal/pkg/password"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) SetVerified(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, text, html string) error {
	return m.Called(to, subject, text, html).Error(0)
}

func newTestService(t *testing.T, repo userStore, mailer mailSender) (Service, *jwtinfra.Provider) {
	t.Helper()
	prov, err := jwtinfra.NewProvider("test-secret", 24*time.Hour, time.Hour)
	require.NoError(t, err)
	svc := NewService(ServiceDeps{
		UserRepo:  repo,
		TokenProv: prov,
		Hasher:    password.NewHasher(bcrypt.MinCost),
		Mailer:    mailer,
		BaseURL:   "http://localhost:5000",
	})
	return svc, prov
}

func notFoundErr(username string) error {
	return fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
}

// --- register ---

func TestRegister_Success(t *testing.T) {
	repo := new(mockUserStore)
	mailer := new(mockMailer)
	svc, _ := newTestService(t, repo, mailer)

	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(nil, notFoundErr("a@x.com"))
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	mailer.On("SendEmail", "a@x.com", "Verify Your Email Address", mock.Anything, mock.Anything).Return(nil)

	res, err := svc.Register(context.Background(), domain.RegisterRequest{Username: "a@x.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.True(t, res.VerificationSent)
	assert.Equal(t, "a@x.com", res.User.Username)
	assert.False(t, res.User.Verified)
	assert.NotEqual(t, "pw123456", res.User.PasswordHash)
	repo.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestRegister_AlreadyExists(t *testing.T) {
	repo := new(mockUserStore)
	mailer := new(mockMailer)
	svc, _ := newTestService(t, repo, mailer)

	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com"}, nil)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{Username: "a@x.com", Password: "pw123456"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_MailFailureDoesNotRollBack(t *testing.T) {
	repo := new(mockUserStore)
	mailer := new(mockMailer)
	svc, _ := newTestService(t, repo, mailer)

	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(nil, notFoundErr("a@x.com"))
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("smtp down: %w", domain.ErrDeliveryFailed))

	res, err := svc.Register(context.Background(), domain.RegisterRequest{Username: "a@x.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.False(t, res.VerificationSent)
	assert.NotNil(t, res.User)
}

func TestRegister_VerificationLinkInMail(t *testing.T) {
	repo := new(mockUserStore)
	mailer := new(mockMailer)
	svc, prov := newTestService(t, repo, mailer)

	var sentText string
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(nil, notFoundErr("a@x.com"))
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	mailer.On("SendEmail", "a@x.com", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sentText = args.String(2) }).
		Return(nil)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{Username: "a@x.com", Password: "pw123456"})
	require.NoError(t, err)

	const prefix = "Please verify your email by clicking: http://localhost:5000/verify/"
	require.Contains(t, sentText, prefix)
	token := sentText[len(prefix):]
	subject, err := prov.Validate(token, jwtinfra.PurposeVerification)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", subject)
}

// --- login ---

func TestLogin_UnknownUserAndBadPasswordLookAlike(t *testing.T) {
	repo := new(mockUserStore)
	svc, _ := newTestService(t, repo, new(mockMailer))

	hasher := password.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("pw1")
	require.NoError(t, err)

	repo.On("GetByUsername", mock.Anything, "missing@x.com").Return(nil, notFoundErr("missing@x.com"))
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com", PasswordHash: hash}, nil)

	_, errMissing := svc.Login(context.Background(), "missing@x.com", "pw1")
	_, errBadPw := svc.Login(context.Background(), "a@x.com", "wrong")

	assert.ErrorIs(t, errMissing, domain.ErrUnauthorized)
	assert.ErrorIs(t, errBadPw, domain.ErrUnauthorized)
	// Same message either way; the result must not reveal which usernames exist.
	assert.Equal(t, errMissing.Error(), errBadPw.Error())
}

func TestLogin_Success(t *testing.T) {
	repo := new(mockUserStore)
	svc, prov := newTestService(t, repo, new(mockMailer))

	hasher := password.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("pw1")
	require.NoError(t, err)
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com", PasswordHash: hash, Verified: false}, nil)

	res, err := svc.Login(context.Background(), "a@x.com", "pw1")
	require.NoError(t, err)
	assert.False(t, res.Verified)

	subject, err := prov.Validate(res.Token, jwtinfra.PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", subject)
}

func TestLogin_StoreOutageIsNotInvalidCredentials(t *testing.T) {
	repo := new(mockUserStore)
	svc, _ := newTestService(t, repo, new(mockMailer))

	outage := errors.New("dynamodb: service unavailable")
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(nil, outage)

	_, err := svc.Login(context.Background(), "a@x.com", "pw1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, outage)
}

func TestLogin_UnverifiedAccountStillLogsIn(t *testing.T) {
	repo := new(mockUserStore)
	svc, _ := newTestService(t, repo, new(mockMailer))

	hasher := password.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("pw1")
	require.NoError(t, err)
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com", PasswordHash: hash, Verified: true}, nil)

	res, err := svc.Login(context.Background(), "a@x.com", "pw1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

// --- verify ---

func TestVerifyEmail_Success(t *testing.T) {
	repo := new(mockUserStore)
	svc, prov := newTestService(t, repo, new(mockMailer))

	token, err := prov.Issue("a@x.com", jwtinfra.PurposeVerification)
	require.NoError(t, err)

	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com"}, nil)
	repo.On("SetVerified", mock.Anything, "a@x.com").Return(nil)

	assert.True(t, svc.VerifyEmail(context.Background(), token))
	repo.AssertExpectations(t)
}

func TestVerifyEmail_Idempotent(t *testing.T) {
	repo := new(mockUserStore)
	svc, prov := newTestService(t, repo, new(mockMailer))

	token, err := prov.Issue("a@x.com", jwtinfra.PurposeVerification)
	require.NoError(t, err)

	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com", Verified: true}, nil)
	repo.On("SetVerified", mock.Anything, "a@x.com").Return(nil)

	assert.True(t, svc.VerifyEmail(context.Background(), token))
	assert.True(t, svc.VerifyEmail(context.Background(), token))
}

func TestVerifyEmail_SessionTokenRejected(t *testing.T) {
	repo := new(mockUserStore)
	svc, prov := newTestService(t, repo, new(mockMailer))

	token, err := prov.Issue("a@x.com", jwtinfra.PurposeSession)
	require.NoError(t, err)

	assert.False(t, svc.VerifyEmail(context.Background(), token))
	repo.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
}

func TestVerifyEmail_GarbageToken(t *testing.T) {
	repo := new(mockUserStore)
	svc, _ := newTestService(t, repo, new(mockMailer))
	assert.False(t, svc.VerifyEmail(context.Background(), "stale-or-forged"))
}

func TestVerifyEmail_UnknownSubject(t *testing.T) {
	repo := new(mockUserStore)
	svc, prov := newTestService(t, repo, new(mockMailer))

	token, err := prov.Issue("ghost@x.com", jwtinfra.PurposeVerification)
	require.NoError(t, err)
	repo.On("GetByUsername", mock.Anything, "ghost@x.com").Return(nil, notFoundErr("ghost@x.com"))

	assert.False(t, svc.VerifyEmail(context.Background(), token))
	repo.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
}

func TestVerifyEmail_StoreUpdateFailure(t *testing.T) {
	repo := new(mockUserStore)
	svc, prov := newTestService(t, repo, new(mockMailer))

	token, err := prov.Issue("a@x.com", jwtinfra.PurposeVerification)
	require.NoError(t, err)
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com"}, nil)
	repo.On("SetVerified", mock.Anything, "a@x.com").Return(errors.New("dynamo unavailable"))

	assert.False(t, svc.VerifyEmail(context.Background(), token))
}

// --- resend ---

func TestResendVerification_UnknownUser(t *testing.T) {
	repo := new(mockUserStore)
	svc, _ := newTestService(t, repo, new(mockMailer))
	repo.On("GetByUsername", mock.Anything, "missing@x.com").Return(nil, notFoundErr("missing@x.com"))

	err := svc.ResendVerification(context.Background(), "missing@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResendVerification_StoreOutageIsNotNotFound(t *testing.T) {
	repo := new(mockUserStore)
	svc, _ := newTestService(t, repo, new(mockMailer))

	outage := errors.New("dynamodb: throttled")
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(nil, outage)

	err := svc.ResendVerification(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, outage)
}

func TestResendVerification_AlreadyVerifiedIsNoop(t *testing.T) {
	repo := new(mockUserStore)
	mailer := new(mockMailer)
	svc, _ := newTestService(t, repo, mailer)
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com", Verified: true}, nil)

	require.NoError(t, svc.ResendVerification(context.Background(), "a@x.com"))
	mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResendVerification_Resends(t *testing.T) {
	repo := new(mockUserStore)
	mailer := new(mockMailer)
	svc, _ := newTestService(t, repo, mailer)
	repo.On("GetByUsername", mock.Anything, "a@x.com").Return(&domain.User{Username: "a@x.com"}, nil)
	mailer.On("SendEmail", "a@x.com", "Verify Your Email Address", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.ResendVerification(context.Background(), "a@x.com"))
	mailer.AssertExpectations(t)
}

// --- full lifecycle against an in-memory store ---

type memUserStore struct {
	users map[string]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*domain.User)}
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, notFoundErr(username)
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) Put(_ context.Context, u *domain.User) error {
	if _, ok := s.users[u.Username]; ok {
		return fmt.Errorf("username %s already registered: %w", u.Username, domain.ErrConflict)
	}
	cp := *u
	s.users[u.Username] = &cp
	return nil
}

func (s *memUserStore) SetVerified(_ context.Context, username string) error {
	u, ok := s.users[username]
	if !ok {
		return notFoundErr(username)
	}
	u.Verified = true
	return nil
}

func TestLifecycle_RegisterLoginVerifyLogin(t *testing.T) {
	store := newMemUserStore()
	mailer := new(mockMailer)
	var verifyToken string
	mailer.On("SendEmail", "a@x.com", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			const prefix = "Please verify your email by clicking: http://localhost:5000/verify/"
			verifyToken = args.String(2)[len(prefix):]
		}).
		Return(nil)
	svc, _ := newTestService(t, store, mailer)
	ctx := context.Background()

	res, err := svc.Register(ctx, domain.RegisterRequest{Username: "a@x.com", Password: "pw1pw1pw1"})
	require.NoError(t, err)
	assert.False(t, res.User.Verified)

	_, err = svc.Register(ctx, domain.RegisterRequest{Username: "a@x.com", Password: "other-pw"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	login, err := svc.Login(ctx, "a@x.com", "pw1pw1pw1")
	require.NoError(t, err)
	assert.False(t, login.Verified)

	require.NotEmpty(t, verifyToken)
	assert.True(t, svc.VerifyEmail(ctx, verifyToken))

	login, err = svc.Login(ctx, "a@x.com", "pw1pw1pw1")
	require.NoError(t, err)
	assert.True(t, login.Verified)
}
