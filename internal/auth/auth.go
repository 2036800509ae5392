// Package auth verifies credentials against the account store and issues the
// bearer tokens the HTTP layer accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/config"
	"github.com/fastprodman/topup/internal/repos/accounts"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid token: %w", apperrors.ErrUnauthorized)
)

const minPasswordLen = 6

// Principal is the authenticated caller.
type Principal struct {
	AccountID string
	Role      accounts.Role
}

func (p Principal) IsOperator() bool {
	return p.Role == accounts.RoleOperator
}

// CanAccess reports whether p may read or act on accountID.
func (p Principal) CanAccess(accountID string) bool {
	return p.IsOperator() || p.AccountID == accountID
}

type claims struct {
	Role accounts.Role `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	accounts accounts.Accounts
	secret   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
}

func New(acc accounts.Accounts, cfg config.AuthConfig) (*Authenticator, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Authenticator{
		accounts: acc,
		secret:   []byte(cfg.JWTSecret),
		ttl:      ttl,
		cost:     cost,
		now:      time.Now,
	}, nil
}

// Register creates an account with a zero balance.
func (a *Authenticator) Register(ctx context.Context, username, password string, role accounts.Role) (accounts.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return accounts.Account{}, fmt.Errorf("%w: username is required", apperrors.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return accounts.Account{}, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc, err := a.accounts.Create(ctx, accounts.NewAccount{
		ID:           username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return accounts.Account{}, fmt.Errorf("create account: %w", err)
	}

	return acc, nil
}

// EnsureOperator creates an operator account unless one with that name already exists.
func (a *Authenticator) EnsureOperator(ctx context.Context, username, password string) error {
	_, err := a.Register(ctx, username, password, accounts.RoleOperator)
	if err != nil && !errors.Is(err, apperrors.ErrDuplicate) {
		return fmt.Errorf("ensure operator: %w", err)
	}

	return nil
}

// VerifyCredentials checks a username/password pair. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (a *Authenticator) VerifyCredentials(ctx context.Context, username, password string) (Principal, error) {
	creds, err := a.accounts.GetCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, fmt.Errorf("get credentials: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password))
	if err != nil {
		return Principal{}, ErrInvalidCredentials
	}

	return Principal{AccountID: creds.AccountID, Role: creds.Role}, nil
}

func (a *Authenticator) IssueToken(p Principal) (string, error) {
	now := a.now()

	c := claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (a *Authenticator) ParseToken(raw string) (Principal, error) {
	var c claims

	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid || c.Subject == "" {
		return Principal{}, ErrInvalidToken
	}

	role := c.Role
	if role == "" {
		role = accounts.RoleUser
	}

	return Principal{AccountID: c.Subject, Role: role}, nil
}
