// Package service contains application services for authentication and products.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/RamanVasko/freshkeep/internal/crypto"
	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/limiter"
	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/RamanVasko/freshkeep/internal/repository"
)

// AuthService defines account and token operations.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	// LoginWithIP applies login lockout and authenticates the user.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error)
	// UserByID returns the account profile for an authenticated subject.
	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// VerifyAccessToken validates a bearer token and returns its subject.
	VerifyAccessToken(token string) (uuid.UUID, error)
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	lim        limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL, refreshTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, refreshTTL: refreshTTL, lim: lim}
}

// Register validates the account fields and creates a new user record.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, errs.New(errs.KindValidation, "Username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.New(errs.KindValidation, "A valid email is required")
	}
	if err := pkgcrypto.ValidatePasswordStrength(password); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err.Error(), err)
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	pwdHash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:        uid,
		Username:  username,
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u, pwdHash); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginWithIP authenticates with temporary lockout keyed by (username, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, pwdHash, err := s.users.GetByUsername(ctx, username)
	if err != nil || !u.IsActive || !pkgcrypto.VerifyPassword(password, pwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// do not reveal whether the username exists
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	// Success: drop the failure counter (best-effort).
	_ = s.lim.Success(ctx, username, ipHash)

	tokens, err := s.issueTokens(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tokens, *u, nil
}

// UserByID loads the profile for an access-token subject.
func (s *AuthServiceImpl) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if id == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, errs.ErrUnauthorized
	}
	return u, nil
}

// issueTokens creates the signed HS256 access/refresh pair for a subject.
func (s *AuthServiceImpl) issueTokens(userID uuid.UUID) (model.Tokens, error) {
	access, err := s.signToken(userID, s.accessTTL)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, err := s.signToken(userID, s.refreshTTL)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *AuthServiceImpl) signToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.signKey)
}

// VerifyAccessToken parses and validates a bearer token, returning its subject.
func (s *AuthServiceImpl) VerifyAccessToken(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return uid, nil
}
