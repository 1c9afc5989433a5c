// Package auth implements registration, login, and bearer-token authorization
// in front of the resource API.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"inventory/api/internal/models"
	"inventory/api/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "inventory/api/internal/auth"

// dummyPassword is verified against a throwaway hash when the login email is
// unknown, so both login failures cost one bcrypt comparison.
const dummyPassword = "unknown-account-placeholder"

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type LoginResult struct {
	User  models.User
	Token string
}

// Gateway composes the credential store, password hasher, and token service.
// It holds no per-request state and is safe for concurrent use.
type Gateway struct {
	users  store.UserStore
	hasher PasswordHasher
	tokens *TokenService
	logger *slog.Logger
	tracer trace.Tracer

	dummyOnce sync.Once
	dummyHash string
}

func NewGateway(users store.UserStore, hasher PasswordHasher, tokens *TokenService, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

func (g *Gateway) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	ctx, span := g.tracer.Start(ctx, "auth.Register")
	defer span.End()

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	if input.FirstName == "" || input.LastName == "" || input.Email == "" || input.Password == "" {
		return models.User{}, validationError("firstname, lastname, email, and password are required")
	}

	hash, err := g.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return models.User{}, validationError("password must be at most 72 bytes")
		}
		return models.User{}, g.internal(ctx, span, "hash password", err)
	}

	user, err := g.users.CreateUser(ctx, store.NewUser{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: hash,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			span.SetAttributes(attribute.String("auth.outcome", "email_taken"))
			return models.User{}, ErrDuplicateEmail
		case errors.Is(err, store.ErrInvalidUser):
			return models.User{}, validationError("firstname, lastname, email, and password are required")
		default:
			return models.User{}, g.internal(ctx, span, "create user", err)
		}
	}

	span.SetAttributes(attribute.String("auth.user_id", user.UserID))
	g.logger.InfoContext(ctx, "user registered", "user_id", user.UserID)
	return outward(user), nil
}

// Login returns ErrInvalidCredentials for both an unknown email and a wrong
// password.
func (g *Gateway) Login(ctx context.Context, email, password string) (LoginResult, error) {
	ctx, span := g.tracer.Start(ctx, "auth.Login")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, validationError("email and password are required")
	}

	user, err := g.users.FindUserByEmail(ctx, email)
	found := err == nil
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return LoginResult{}, g.internal(ctx, span, "find user by email", err)
	}

	hash := user.PasswordHash
	if !found {
		hash = g.dummy()
	}
	ok, err := g.hasher.Verify(password, hash)
	if err != nil && found {
		return LoginResult{}, g.internal(ctx, span, "verify password", err)
	}
	if !found || !ok {
		span.SetAttributes(attribute.String("auth.outcome", "invalid_credentials"))
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := g.tokens.Issue(user.UserID)
	if err != nil {
		return LoginResult{}, g.internal(ctx, span, "issue token", err)
	}

	span.SetAttributes(attribute.String("auth.user_id", user.UserID))
	return LoginResult{User: outward(user), Token: token}, nil
}

// Authorize resolves the user behind a bearer token. It is the guard for every
// protected operation.
func (g *Gateway) Authorize(ctx context.Context, token string) (models.User, error) {
	return g.authorize(ctx, "auth.Authorize", token)
}

// Validate confirms a session is still live without performing any action.
func (g *Gateway) Validate(ctx context.Context, token string) (models.User, error) {
	return g.authorize(ctx, "auth.Validate", token)
}

func (g *Gateway) authorize(ctx context.Context, spanName, token string) (models.User, error) {
	ctx, span := g.tracer.Start(ctx, spanName)
	defer span.End()

	claims, err := g.tokens.Verify(token)
	if err != nil {
		span.SetAttributes(attribute.String("auth.outcome", err.Error()))
		return models.User{}, err
	}

	user, err := g.users.FindUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			span.SetAttributes(attribute.String("auth.outcome", "user_not_found"))
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, g.internal(ctx, span, "find user by id", err)
	}
	return outward(user), nil
}

func (g *Gateway) dummy() string {
	g.dummyOnce.Do(func() {
		hash, err := g.hasher.Hash(dummyPassword)
		if err != nil {
			g.logger.Warn("dummy password hash unavailable", "error", err)
			return
		}
		g.dummyHash = hash
	})
	return g.dummyHash
}

func (g *Gateway) internal(ctx context.Context, span trace.Span, operation string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, operation)
	g.logger.ErrorContext(ctx, "auth operation failed", "operation", operation, "error", err)
	return ErrInternal
}

func outward(user models.User) models.User {
	user.PasswordHash = ""
	return user
}
