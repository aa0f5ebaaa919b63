// Package registration implements the account confirmation workflow:
// creating inactive users, issuing time-bounded confirmation codes, handing
// delivery off to the async worker pool, and activating accounts when the
// right code comes back in time.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-identity-api/internal/delivery"
	"github.com/go-identity-api/internal/domain"
	"github.com/go-identity-api/internal/pkg/id"
	"github.com/go-identity-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type RegisterResult struct {
	UserID           string `json:"user_id"`
	ConfirmationCode string `json:"confirmation_code"`
}

type VerifyResult struct {
	Activated bool   `json:"activated"`
	Token     string `json:"key"`
}

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*RegisterResult, error)
	Verify(ctx context.Context, req domain.ConfirmUserRequest) (*VerifyResult, error)
	Resend(ctx context.Context, req domain.ResendCodeRequest) error
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Delete(ctx context.Context, userID, email string) error
}

type codeStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Peek(ctx context.Context, userID string) (string, error)
	Invalidate(ctx context.Context, userID string) error
}

type activationGate interface {
	Activate(ctx context.Context, userID string) (*domain.AuthToken, error)
}

type deliveryQueue interface {
	Enqueue(delivery.Task)
}

type service struct {
	repo  userStore
	codes codeStore
	gate  activationGate
	queue deliveryQueue
}

type ServiceDeps struct {
	UserRepo userStore
	CodeRepo codeStore
	Gate     activationGate
	Queue    deliveryQueue
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:  deps.UserRepo,
		codes: deps.CodeRepo,
		gate:  deps.Gate,
		queue: deps.Queue,
	}
}

// Register creates an inactive user, issues its confirmation code and
// schedules async delivery. Delivery is enqueued only once both the user row
// and the code exist, so the worker never emails for state that didn't stick.
func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*RegisterResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Fast pre-check for a friendly failure. The authoritative duplicate
	// guard is the conditional write inside Create: two racing
	// registrations can both pass this check, but only one commits.
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email %s: %w", email, domain.ErrDuplicateEmail)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	var birthday *time.Time
	if req.Birthday != "" {
		t, err := time.Parse("2006-01-02", req.Birthday)
		if err != nil {
			return nil, fmt.Errorf("birthday must be in YYYY-MM-DD format: %w", domain.ErrBadRequest)
		}
		birthday = &t
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Birthday:     birthday,
		Role:         domain.RoleUser,
		Active:       false,
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	confirmationCode, err := s.codes.Issue(ctx, u.UserID)
	if err != nil {
		// A user without a code could never self-activate. Undo the
		// create so the client can simply retry registration.
		if delErr := s.repo.Delete(ctx, u.UserID, email); delErr != nil {
			slog.Error("failed to roll back user after code issue failure", "user_id", u.UserID, "err", delErr)
		}
		return nil, fmt.Errorf("issue confirmation code: %w", domain.ErrStoreUnavailable)
	}

	s.queue.Enqueue(delivery.Task{
		UserID:  u.UserID,
		Email:   u.Email,
		Code:    confirmationCode,
		Channel: delivery.ChannelEmail,
	})

	return &RegisterResult{UserID: u.UserID, ConfirmationCode: confirmationCode}, nil
}

// Verify checks the submitted code against the single live code for the user
// and, on a match, activates the account and consumes the code. Activation
// happens before invalidation: a crash in between leaves a stale code that
// the already-active check below rejects on any replay.
func (s *service) Verify(ctx context.Context, req domain.ConfirmUserRequest) (*VerifyResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	u, err := s.repo.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if u.Active {
		return nil, fmt.Errorf("user %s: %w", req.UserID, domain.ErrUserAlreadyActive)
	}

	stored, err := s.codes.Peek(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	// Exact string compare, no normalization: "012345" != " 012345".
	if stored != req.Code {
		return nil, fmt.Errorf("user %s: %w", req.UserID, domain.ErrCodeMismatch)
	}

	tok, err := s.gate.Activate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.codes.Invalidate(ctx, req.UserID); err != nil {
		slog.Warn("failed to invalidate consumed confirmation code", "user_id", req.UserID, "err", err)
	}
	return &VerifyResult{Activated: true, Token: tok.Token}, nil
}

// Resend issues a fresh code (invalidating the previous one) and enqueues a
// new delivery. Also the recovery path for a user whose original code was
// never issued or delivered.
func (s *service) Resend(ctx context.Context, req domain.ResendCodeRequest) error {
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	u, err := s.repo.Get(ctx, req.UserID)
	if err != nil {
		return err
	}
	if u.Active {
		return fmt.Errorf("user %s: %w", req.UserID, domain.ErrUserAlreadyActive)
	}

	task := delivery.Task{UserID: u.UserID, Email: u.Email, Channel: delivery.ChannelEmail}
	if req.Channel == string(delivery.ChannelSMS) {
		if u.Phone == nil {
			return fmt.Errorf("no phone number on account: %w", domain.ErrBadRequest)
		}
		task.Channel = delivery.ChannelSMS
		task.Phone = *u.Phone
	}

	confirmationCode, err := s.codes.Issue(ctx, u.UserID)
	if err != nil {
		return fmt.Errorf("issue confirmation code: %w", domain.ErrStoreUnavailable)
	}
	task.Code = confirmationCode
	s.queue.Enqueue(task)
	return nil
}
