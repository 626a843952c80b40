package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"project-ledger-api/internal/log"
	"project-ledger-api/internal/models"
	"project-ledger-api/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored hashes.
const PasswordCost = 10

// Identity registers users and checks their credentials.
type Identity struct {
	users  store.UserStore
	logger *log.Logger
	// dummyHash is compared against when the username is unknown so both failure paths
	// cost one bcrypt comparison.
	dummyHash []byte
}

func NewIdentity(users store.UserStore, logger *log.Logger) *Identity {
	if logger == nil {
		logger = log.Discard()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("ledger-placeholder"), PasswordCost)
	return &Identity{users: users, logger: logger.WithComponent(log.ComponentAuth), dummyHash: dummy}
}

// Register creates a user. Registration does not start a session.
func (i *Identity) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	if err := req.Validate(); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := i.users.CreateUser(ctx, models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
	})
	if err != nil {
		if !errors.Is(err, models.ErrDuplicateIdentity) {
			i.logger.ErrorContext(ctx, "register failed", log.FieldUsername, req.Username, log.FieldError, err)
		}
		return models.User{}, err
	}
	i.logger.InfoContext(ctx, "user registered", log.FieldUsername, u.Username, "role", u.Role)
	return u, nil
}

// Authenticate returns the principal for valid credentials. An unknown username and a wrong
// password both yield models.ErrInvalidCredentials.
func (i *Identity) Authenticate(ctx context.Context, username, password string) (models.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Principal{}, models.ErrInvalidCredentials
	}

	u, err := i.users.GetUser(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(i.dummyHash, []byte(password))
		return models.Principal{}, models.ErrInvalidCredentials
	}
	if err != nil {
		return models.Principal{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.Principal{}, models.ErrInvalidCredentials
	}
	return u.Principal(), nil
}
