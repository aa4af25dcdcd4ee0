// Package auth implements trainer login against the trainers table.
package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/SkillsGen/trainers/query"
)

var (
	ErrUsernameRequired = errors.New("auth: username required")
	ErrPasswordRequired = errors.New("auth: password required")
	// ErrInvalidCredentials covers unknown, ambiguous and wrong-password
	// logins alike so callers cannot tell which usernames exist.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// Verifier checks a plaintext password against a stored hash.
type Verifier interface {
	Verify(plaintext, hash string) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(plaintext, hash string) bool

func (f VerifierFunc) Verify(plaintext, hash string) bool { return f(plaintext, hash) }

// Bcrypt verifies bcrypt hashes.
var Bcrypt = VerifierFunc(func(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
})

// HashPassword validates username/password input and returns a bcrypt hash for storage.
func HashPassword(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", ErrUsernameRequired
	}
	if strings.TrimSpace(password) == "" {
		return "", ErrPasswordRequired
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashedPassword), nil
}

type trainerRecord struct {
	ID       int64  `bun:"id"`
	Username string `bun:"username"`
	Hash     string `bun:"hash"`
}

// Authenticator runs the login check. It does not touch sessions; the
// caller records the returned trainer id.
type Authenticator struct {
	runner   query.Runner
	verifier Verifier
	logger   *zap.Logger
}

// New returns an Authenticator. A nil verifier means bcrypt.
func New(runner query.Runner, verifier Verifier, logger *zap.Logger) *Authenticator {
	if verifier == nil {
		verifier = Bcrypt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{runner: runner, verifier: verifier, logger: logger}
}

// Login returns the id of the trainer whose username and password match.
// Exactly one trainer row must carry the username. Store failures are
// returned as they are; every credential mismatch is ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, ErrUsernameRequired
	}
	if password == "" {
		return 0, ErrPasswordRequired
	}

	var matches []trainerRecord
	err := a.runner.Select(ctx, &matches,
		"SELECT id, username, hash FROM trainers WHERE username = :username",
		query.Params{"username": username})
	if err != nil {
		return 0, err
	}

	if len(matches) != 1 {
		a.logger.Info("auth_event",
			zap.String("event", "login_failed"),
			zap.String("username", username),
			zap.Int("matches", len(matches)))
		return 0, ErrInvalidCredentials
	}

	if !a.verifier.Verify(password, matches[0].Hash) {
		a.logger.Info("auth_event",
			zap.String("event", "login_failed"),
			zap.String("username", username),
			zap.String("reason", "wrong_password"))
		return 0, ErrInvalidCredentials
	}

	a.logger.Info("auth_event",
		zap.String("event", "login_success"),
		zap.String("username", username),
		zap.Int64("trainer_id", matches[0].ID))
	return matches[0].ID, nil
}

// Message returns the text shown on the login form for err, or "" when err
// is not a login outcome.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrUsernameRequired):
		return "Username required."
	case errors.Is(err, ErrPasswordRequired):
		return "Password required."
	case errors.Is(err, ErrInvalidCredentials):
		return "Incorrect password or nonexistent username."
	}
	return ""
}
