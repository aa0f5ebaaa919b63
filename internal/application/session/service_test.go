package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-identity-api/internal/domain"
	"github.com/go-identity-api/internal/infrastructure/google"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) SetActive(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, email, role, sessionID, birthday string) (string, error) {
	args := m.Called(userID, email, role, sessionID, birthday)
	return args.String(0), args.Error(1)
}

type mockGoogleVerifier struct{ mock.Mock }

func (m *mockGoogleVerifier) Verify(ctx context.Context, token string) (*google.Payload, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*google.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func newService(us *mockUserStore, ss *mockSessionStore, jwt *mockJWTSigner, gv *mockGoogleVerifier) Service {
	return NewService(ServiceDeps{
		UserRepo:        us,
		SessionRepo:     ss,
		JWTProvider:     jwt,
		GoogleVerifier:  gv,
		RefreshTokenDur: 24 * time.Hour,
	})
}

func activeUser(password string) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &domain.User{
		UserID:       "u1",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Active:       true,
	}
}

// --- Login tests ---

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, domain.ErrUserNotFound)

	svc := newService(us, nil, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(activeUser("password123"), nil)

	svc := newService(us, nil, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "wrong"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_InactiveAccountRejected(t *testing.T) {
	u := activeUser("password123")
	u.Active = false
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	ss := &mockSessionStore{}

	svc := newService(us, ss, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "password123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUserNotActive))
	ss.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_HappyPath(t *testing.T) {
	u := activeUser("password123")
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)

	jwt := &mockJWTSigner{}
	jwt.On("Sign", "u1", "alice@example.com", domain.RoleUser, mock.AnythingOfType("string"), "").
		Return("bearer-token", nil)

	svc := newService(us, ss, jwt, nil)
	res, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", res.Bearer)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, res.Session.Enable)
	assert.Equal(t, "u1", res.Session.UserID)
	assert.Greater(t, res.Session.RefreshExpiresAt, time.Now().Unix())
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
	jwt.AssertExpectations(t)
}

func TestLogin_LowercasesEmail(t *testing.T) {
	u := activeUser("password123")
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)

	jwt := &mockJWTSigner{}
	jwt.On("Sign", "u1", "alice@example.com", domain.RoleUser, mock.AnythingOfType("string"), "").
		Return("bearer-token", nil)

	svc := newService(us, ss, jwt, nil)
	res, err := svc.Login(context.Background(), LoginRequest{Email: "  Alice@Example.COM ", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", res.Bearer)
	us.AssertExpectations(t)
}

// --- GoogleLogin tests ---

func googlePayload() *google.Payload {
	return &google.Payload{
		Sub:           "google-sub-1",
		Email:         "alice@example.com",
		EmailVerified: true,
		FirstName:     "Alice",
		LastName:      "Smith",
		Picture:       "https://lh3.example.com/alice.jpg",
	}
}

func TestGoogleLogin_InvalidToken(t *testing.T) {
	gv := &mockGoogleVerifier{}
	gv.On("Verify", mock.Anything, "bad-token").Return(nil, domain.ErrUnauthorized)

	svc := newService(nil, nil, nil, gv)
	_, err := svc.GoogleLogin(context.Background(), GoogleLoginRequest{IDToken: "bad-token"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestGoogleLogin_UnverifiedEmail(t *testing.T) {
	p := googlePayload()
	p.EmailVerified = false
	gv := &mockGoogleVerifier{}
	gv.On("Verify", mock.Anything, "tok").Return(p, nil)

	svc := newService(&mockUserStore{}, nil, nil, gv)
	_, err := svc.GoogleLogin(context.Background(), GoogleLoginRequest{IDToken: "tok"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestGoogleLogin_CreatesActiveUser(t *testing.T) {
	gv := &mockGoogleVerifier{}
	gv.On("Verify", mock.Anything, "tok").Return(googlePayload(), nil)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrUserNotFound)
	us.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Active &&
			u.AuthProvider == domain.ProviderGoogle &&
			u.FirstName == "Alice" &&
			u.Picture == "https://lh3.example.com/alice.jpg"
	})).Return(nil)

	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)

	jwt := &mockJWTSigner{}
	jwt.On("Sign", mock.Anything, "alice@example.com", domain.RoleUser, mock.Anything, "").
		Return("bearer-token", nil)

	svc := newService(us, ss, jwt, gv)
	res, err := svc.GoogleLogin(context.Background(), GoogleLoginRequest{IDToken: "tok"})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", res.Bearer)
	us.AssertExpectations(t)
}

func TestGoogleLogin_LowercasesEmail(t *testing.T) {
	p := googlePayload()
	p.Email = "Alice@Example.COM"
	gv := &mockGoogleVerifier{}
	gv.On("Verify", mock.Anything, "tok").Return(p, nil)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrUserNotFound)
	us.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "alice@example.com"
	})).Return(nil)

	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)

	jwt := &mockJWTSigner{}
	jwt.On("Sign", mock.Anything, "alice@example.com", domain.RoleUser, mock.Anything, "").
		Return("bearer-token", nil)

	svc := newService(us, ss, jwt, gv)
	_, err := svc.GoogleLogin(context.Background(), GoogleLoginRequest{IDToken: "tok"})

	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestGoogleLogin_LostCreateRaceConverges(t *testing.T) {
	gv := &mockGoogleVerifier{}
	gv.On("Verify", mock.Anything, "tok").Return(googlePayload(), nil)

	winner := activeUser("irrelevant")
	winner.AuthProvider = domain.ProviderGoogle

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrUserNotFound).Once()
	us.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(domain.ErrDuplicateEmail)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(winner, nil).Once()

	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == "u1"
	})).Return(nil)

	jwt := &mockJWTSigner{}
	jwt.On("Sign", "u1", "alice@example.com", domain.RoleUser, mock.Anything, "").
		Return("bearer-token", nil)

	svc := newService(us, ss, jwt, gv)
	res, err := svc.GoogleLogin(context.Background(), GoogleLoginRequest{IDToken: "tok"})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", res.Bearer)
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
}

func TestGoogleLogin_ActivatesExistingInactiveUser(t *testing.T) {
	gv := &mockGoogleVerifier{}
	gv.On("Verify", mock.Anything, "tok").Return(googlePayload(), nil)

	u := activeUser("irrelevant")
	u.Active = false
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)
	us.On("SetActive", mock.Anything, "u1").Return(nil)

	ss := &mockSessionStore{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)

	jwt := &mockJWTSigner{}
	jwt.On("Sign", "u1", "alice@example.com", domain.RoleUser, mock.Anything, "").
		Return("bearer-token", nil)

	svc := newService(us, ss, jwt, gv)
	_, err := svc.GoogleLogin(context.Background(), GoogleLoginRequest{IDToken: "tok"})

	require.NoError(t, err)
	us.AssertExpectations(t)
}

// --- Refresh tests ---

func TestRefresh_UnknownToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "stale").Return(nil, domain.ErrUnauthorized)

	svc := newService(nil, ss, nil, nil)
	_, _, err := svc.Refresh(context.Background(), "stale")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRefresh_ExpiredToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "old").Return(&domain.Session{
		SessionID:        "s1",
		UserID:           "u1",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}, nil)

	svc := newService(nil, ss, nil, nil)
	_, _, err := svc.Refresh(context.Background(), "old")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ss.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_RotatesToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "current").Return(&domain.Session{
		SessionID:        "s1",
		UserID:           "u1",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	ss.On("RotateRefreshToken", mock.Anything, "s1", mock.AnythingOfType("string"), mock.AnythingOfType("int64")).
		Return(nil)

	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(activeUser("x"), nil)

	jwt := &mockJWTSigner{}
	jwt.On("Sign", "u1", "alice@example.com", domain.RoleUser, "s1", "").Return("new-bearer", nil)

	svc := newService(us, ss, jwt, nil)
	bearer, newToken, err := svc.Refresh(context.Background(), "current")

	require.NoError(t, err)
	assert.Equal(t, "new-bearer", bearer)
	assert.NotEmpty(t, newToken)
	assert.NotEqual(t, "current", newToken)
	ss.AssertExpectations(t)
}

// --- Logout / GetCurrent tests ---

func TestLogout_DisablesSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Update", mock.Anything, "s1", map[string]interface{}{"enable": false}).Return(nil)

	svc := newService(nil, ss, nil, nil)
	err := svc.Logout(context.Background(), "s1")

	require.NoError(t, err)
	ss.AssertExpectations(t)
}

func TestGetCurrent_DisabledSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", Enable: false}, nil)

	svc := newService(nil, ss, nil, nil)
	_, err := svc.GetCurrent(context.Background(), "s1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestGetCurrent_AttachesUser(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)

	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(activeUser("x"), nil)

	svc := newService(us, ss, nil, nil)
	sess, err := svc.GetCurrent(context.Background(), "s1")

	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, "alice@example.com", sess.User.Email)
}
