package http

import (
	"github.com/go-identity-api/internal/delivery"
	"github.com/go-identity-api/internal/infrastructure/dynamo"
	"github.com/go-identity-api/internal/infrastructure/google"
	jwtinfra "github.com/go-identity-api/internal/infrastructure/jwt"
	redisinfra "github.com/go-identity-api/internal/infrastructure/redis"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	SessionRepo *dynamo.SessionRepo
	TokenRepo   *dynamo.TokenRepo
	CodeRepo    *redisinfra.CodeRepo
	Delivery    *delivery.Pool
	JWTProvider *jwtinfra.Provider
	// GoogleVerifier is optional; when nil the Google login route is not mounted.
	GoogleVerifier *google.Verifier
}
