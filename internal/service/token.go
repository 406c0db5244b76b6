package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hostwatch/hostwatch/internal/model"
)

// MinTokenTTL is the floor applied to every requested token lifetime.
const MinTokenTTL = 60 * time.Second

// Claims is the verified content of a session token.
type Claims struct {
	Subject   string     `json:"sub"`
	Role      model.Role `json:"role"`
	IssuedAt  time.Time  `json:"iat"`
	ExpiresAt time.Time  `json:"exp"`
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies stateless HS256 session tokens. Nothing is
// stored server side: a token is valid until its absolute expiry.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption configures a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock overrides the codec's time source.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec creates a codec keyed with secret.
func NewTokenCodec(secret []byte, opts ...TokenOption) *TokenCodec {
	c := &TokenCodec{
		secret: secret,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c
}

// Sign mints a token for u valid for max(ttl, MinTokenTTL).
func (c *TokenCodec) Sign(u *model.User, ttl time.Duration) (string, Claims, error) {
	if ttl < MinTokenTTL {
		ttl = MinTokenTTL
	}
	now := c.now().Truncate(time.Second)
	exp := now.Add(ttl.Truncate(time.Second))

	claims := sessionClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return token, Claims{Subject: u.Username, Role: u.Role, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks a token's layout, signature and expiry, in that order. The
// signature is checked over the raw segments before any payload decoding, so
// a tampered payload always reports ErrBadSignature.
func (c *TokenCodec) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Claims{}, ErrMalformedToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(sig) != sha256.Size {
		return Claims{}, ErrBadSignature
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return Claims{}, ErrBadSignature
	}

	var claims sessionClaims
	_, err = c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classifyJWTError(err)
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil || claims.Subject == "" {
		return Claims{}, ErrMalformedToken
	}

	out := Claims{Subject: claims.Subject, Role: role}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	out.ExpiresAt = claims.ExpiresAt.Time
	return out, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

// GenerateSecret returns a random 32-byte signing secret, hex encoded.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
