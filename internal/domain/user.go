package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Auth providers recorded on the user row.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is the identity record. Created inactive by registration; Active flips
// to true only through the activation gate (or a provider-verified OAuth login).
type User struct {
	UserID       string     `json:"id" dynamodbav:"user_id"`
	Email        string     `json:"email" dynamodbav:"email"`
	Username     string     `json:"username,omitempty" dynamodbav:"username"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	Role         string     `json:"role" dynamodbav:"role"`
	FirstName    string     `json:"first_name,omitempty" dynamodbav:"first_name"`
	LastName     string     `json:"last_name,omitempty" dynamodbav:"last_name"`
	Phone        *string    `json:"phone,omitempty" dynamodbav:"phone"`
	Birthday     *time.Time `json:"birthday,omitempty" dynamodbav:"birthday"`
	Picture      string     `json:"picture,omitempty" dynamodbav:"picture"`
	Active       bool       `json:"active" dynamodbav:"active"`
	AuthProvider string     `json:"auth_provider,omitempty" dynamodbav:"auth_provider"` // "local" | "google"
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Email     string  `json:"email" validate:"required,email,max=150"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	Username  string  `json:"username" validate:"omitempty,max=50"`
	FirstName string  `json:"first_name" validate:"omitempty,max=50"`
	LastName  string  `json:"last_name" validate:"omitempty,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,e164"`
	Birthday  string  `json:"birthday" validate:"omitempty"` // expected format: YYYY-MM-DD
}

type ConfirmUserRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"confirmation_code" validate:"required,max=16"`
}

type ResendCodeRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Channel string `json:"channel" validate:"omitempty,oneof=email sms"`
}
