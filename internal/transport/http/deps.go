package http

import (
	"github.com/taskminder-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/taskminder-api/internal/infrastructure/jwt"
	"github.com/taskminder-api/internal/infrastructure/smtp"
	"github.com/taskminder-api/internal/pkg/password"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	TodoRepo    *dynamo.TodoRepo
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
	Hasher      *password.Hasher
}
