package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// Domain errors for auth flows.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

// AuthConfig describes the single operator account.
type AuthConfig struct {
	Enabled    bool
	Username   string
	Password   string
	SigningKey string
	TokenTTL   time.Duration
}

// AuthService signs in the configured operator and validates bearer tokens.
type AuthService struct {
	enabled      bool
	username     string
	passwordHash []byte
	signingKey   []byte
	ttl          time.Duration
	now          func() time.Time
}

func NewAuthService(cfg AuthConfig) (*AuthService, error) {
	s := &AuthService{enabled: cfg.Enabled, ttl: cfg.TokenTTL, now: time.Now}
	if !cfg.Enabled {
		return s, nil
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return nil, errors.New("auth: username is empty")
	}
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return nil, errors.New("auth: signing key is empty")
	}
	hash, err := hashPassword(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	if s.ttl <= 0 {
		s.ttl = defaultTokenTTL
	}
	s.username = cfg.Username
	s.passwordHash = hash
	s.signingKey = []byte(cfg.SigningKey)
	return s, nil
}

func (s *AuthService) Enabled() bool { return s.enabled }

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken validates credentials and returns JWT
func (s *AuthService) GenerateToken(username, password string) (string, error) {
	if !s.enabled {
		return "", ErrAuthDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil || !userOK {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(username)
}

// ParseToken parses JWT and returns the operator name
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	if !s.enabled {
		return "", ErrAuthDisabled
	}
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject != s.username {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// helper: hash password safely
func hashPassword(password string) ([]byte, error) {
	if strings.TrimSpace(password) == "" {
		return nil, errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *AuthService) issueToken(subject string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString(s.signingKey)
}
