package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/james-6-23/new-api-tools-sub000/internal/config"
	"github.com/james-6-23/new-api-tools-sub000/internal/limits"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// Operator is one console account loaded from configuration.
type Operator struct {
	Email        string
	Name         string
	passwordHash string
}

// Service authenticates operators against the configured roster and issues
// session tokens.
type Service struct {
	operators map[string]Operator
	tokens    *TokenManager
	limiter   *limits.LoginLimiter
}

func NewService(cfg config.AuthConfig, tokens *TokenManager, limiter *limits.LoginLimiter) (*Service, error) {
	operators := make(map[string]Operator, len(cfg.Operators))
	for _, op := range cfg.Operators {
		email := strings.ToLower(strings.TrimSpace(op.Email))
		if email == "" || op.PasswordHash == "" {
			return nil, fmt.Errorf("operator %q: email and password_hash required", op.Email)
		}
		operators[email] = Operator{Email: email, Name: op.Name, passwordHash: op.PasswordHash}
	}
	return &Service{operators: operators, tokens: tokens, limiter: limiter}, nil
}

// Login verifies credentials and returns a session token. The clientKey is
// the throttling scope, typically the caller's IP.
func (s *Service) Login(ctx context.Context, email, password, clientKey string) (string, time.Time, error) {
	if err := s.limiter.Allow(ctx, clientKey); err != nil {
		if errors.Is(err, limits.ErrLimitExceeded) {
			return "", time.Time{}, ErrTooManyAttempts
		}
		return "", time.Time{}, fmt.Errorf("login throttle: %w", err)
	}

	op, ok := s.operators[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		// Verify against a throwaway value so unknown and wrong-password
		// logins take comparable time.
		_, _ = VerifyPassword(password, unknownOperatorHash)
		return "", time.Time{}, ErrInvalidCredentials
	}
	match, err := VerifyPassword(password, op.passwordHash)
	if err != nil || !match {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.issue(op)
}

func (s *Service) issue(op Operator) (string, time.Time, error) {
	token, exp, err := s.tokens.Generate(op.Email, op.Name)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue session: %w", err)
	}
	return token, exp, nil
}

// Authenticate validates a session token and returns the operator it names.
func (s *Service) Authenticate(tokenString string) (*Operator, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	op, ok := s.operators[claims.Email]
	if !ok {
		// The roster changed since the token was issued.
		return nil, ErrInvalidToken
	}
	return &op, nil
}

// unknownOperatorHash is a hash of a random string, used only to equalize
// timing for unknown emails.
const unknownOperatorHash = "argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$Zm9vYmFyYmF6cXV4Zm9vYmFyYmF6cXV4Zm9vYmFyYmE"
