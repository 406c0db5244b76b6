package service

import (
	"context"
	"strings"
	"time"

	"github.com/hostwatch/hostwatch/internal/model"
)

// DefaultPrincipalName is the identity assumed when authentication is
// disabled.
const DefaultPrincipalName = "local"

// Principal is the identity attached to an authorized request.
type Principal struct {
	Username  string
	Role      model.Role
	ExpiresAt time.Time
	Implicit  bool // true when authentication is disabled
}

// IsAdmin reports whether the principal may call admin-only operations.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role.IsAdmin()
}

// Session is the result of a successful login.
type Session struct {
	Token  string
	Claims Claims
	User   model.PublicUser
}

// GuardConfig wires a Guard.
type GuardConfig struct {
	Credentials *CredentialService
	Codec       *TokenCodec
	TokenTTL    time.Duration
	Disabled    bool
}

// Guard makes the per-request authorization decision and runs the login flow.
type Guard struct {
	creds    *CredentialService
	codec    *TokenCodec
	ttl      time.Duration
	disabled bool
}

// NewGuard creates a Guard.
func NewGuard(cfg GuardConfig) *Guard {
	return &Guard{
		creds:    cfg.Credentials,
		codec:    cfg.Codec,
		ttl:      cfg.TokenTTL,
		disabled: cfg.Disabled,
	}
}

// Enabled reports whether requests must present a token.
func (g *Guard) Enabled() bool {
	return !g.disabled
}

// TokenTTL returns the effective lifetime of newly issued tokens.
func (g *Guard) TokenTTL() time.Duration {
	if g.ttl < MinTokenTTL {
		return MinTokenTTL
	}
	return g.ttl
}

// Login validates credentials and mints a session token. Every credential
// failure is reported as ErrAuth.
func (g *Guard) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := g.creds.ValidateCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrAuth
	}

	token, claims, err := g.codec.Sign(u, g.ttl)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Claims: claims, User: u.Public()}, nil
}

// Authorize turns an Authorization header value into a Principal. With
// authentication disabled every request gets the implicit admin identity.
func (g *Guard) Authorize(authorization string) (*Principal, error) {
	if g.disabled {
		return &Principal{Username: DefaultPrincipalName, Role: model.RoleAdmin, Implicit: true}, nil
	}

	token, ok := BearerToken(authorization)
	if !ok {
		return nil, &UnauthenticatedError{Reason: "absent"}
	}

	claims, err := g.codec.Verify(token)
	if err != nil {
		return nil, &UnauthenticatedError{Reason: TokenFailureReason(err), Err: err}
	}
	return &Principal{Username: claims.Subject, Role: claims.Role, ExpiresAt: claims.ExpiresAt}, nil
}

// RequireAdmin is the role gate for admin-only operations.
func (g *Guard) RequireAdmin(p *Principal) error {
	if p == nil {
		return &UnauthenticatedError{Reason: "absent"}
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(authorization string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authorization), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
