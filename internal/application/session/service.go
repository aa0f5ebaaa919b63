package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-identity-api/internal/domain"
	"github.com/go-identity-api/internal/infrastructure/google"
	"github.com/go-identity-api/internal/pkg/id"
	pkgtoken "github.com/go-identity-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type LoginResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SetActive(ctx context.Context, userID string) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

type jwtSigner interface {
	Sign(userID, email, role, sessionID, birthday string) (string, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type service struct {
	userRepo        userStore
	sessionRepo     sessionStore
	jwtProvider     jwtSigner
	verifier        googleVerifier
	refreshTokenDur time.Duration
}

type ServiceDeps struct {
	UserRepo        userStore
	SessionRepo     sessionStore
	JWTProvider     jwtSigner
	GoogleVerifier  googleVerifier
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:        deps.UserRepo,
		sessionRepo:     deps.SessionRepo,
		jwtProvider:     deps.JWTProvider,
		verifier:        deps.GoogleVerifier,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

// Login authenticates email+password. Accounts that never confirmed their
// email are rejected outright: activation, not registration, makes a user
// login-eligible.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	// Emails are stored lowercased, so lookups must match.
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Active {
		return nil, fmt.Errorf("login rejected: %w", domain.ErrUserNotActive)
	}
	return s.openSession(ctx, u)
}

// GoogleLogin exchanges a verified Google ID token for a session. The
// provider has already proven control of the email, so the account is
// created (or switched) active without a confirmation code.
func (s *service) GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*LoginResult, error) {
	payload, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}
	if !payload.EmailVerified {
		return nil, fmt.Errorf("google account email not verified: %w", domain.ErrUnauthorized)
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		updates := map[string]interface{}{}
		if payload.FirstName != "" {
			updates["first_name"] = payload.FirstName
		}
		if payload.LastName != "" {
			updates["last_name"] = payload.LastName
		}
		if payload.Picture != "" {
			updates["picture"] = payload.Picture
		}
		if len(updates) > 0 {
			if err := s.userRepo.Update(ctx, u.UserID, updates); err != nil {
				return nil, err
			}
		}
		if !u.Active {
			if err := s.userRepo.SetActive(ctx, u.UserID); err != nil {
				return nil, err
			}
			u.Active = true
		}
	case errors.Is(err, domain.ErrUserNotFound):
		now := time.Now().UTC()
		u = &domain.User{
			UserID:       id.New(),
			Email:        email,
			FirstName:    payload.FirstName,
			LastName:     payload.LastName,
			Picture:      payload.Picture,
			Role:         domain.RoleUser,
			Active:       true,
			AuthProvider: domain.ProviderGoogle,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.userRepo.Create(ctx, u); err != nil {
			// Two first-time logins can race the create. The loser reads
			// back the row the winner wrote and carries on.
			if !errors.Is(err, domain.ErrDuplicateEmail) {
				return nil, err
			}
			u, err = s.userRepo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, err
	}

	return s.openSession(ctx, u)
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return "", "", fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	newExpiry := time.Now().Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return "", "", err
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return "", "", err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Email, u.Role, sess.SessionID, birthdayClaim(u))
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}

func (s *service) openSession(ctx context.Context, u *domain.User) (*LoginResult, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Email, u.Role, sess.SessionID, birthdayClaim(u))
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

func birthdayClaim(u *domain.User) string {
	if u.Birthday == nil {
		return ""
	}
	return u.Birthday.Format("2006-01-02")
}
