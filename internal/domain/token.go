package domain

import "time"

// AuthToken is the long-lived API token minted when an account activates.
// Keyed by user: get-or-create semantics guarantee at most one row per user.
type AuthToken struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Token     string    `json:"token" dynamodbav:"token"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
