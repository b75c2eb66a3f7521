package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or
// signed with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Principal is the authenticated caller extracted from an access token.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// AccessClaims holds the JWT claims of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// TokenProvider issues and validates HS256 access tokens. Token issuance
// belongs to the identity service; Issue exists for seeding and tests.
type TokenProvider struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

// NewTokenProvider returns a TokenProvider signing with secret. issuer
// and audience are set on claims and enforced on validation.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{secret: secret, issuer: issuer, audience: audience, accessTTL: accessTTL}
}

// Issue returns a signed access token for the given principal.
func (p *TokenProvider) Issue(principal Principal) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: principal.Email,
		Role:  string(principal.Role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateAccess parses and verifies an access token and returns the
// principal it asserts. Returns ErrInvalidToken for anything but a
// well-formed, unexpired token signed with the provider's secret.
func (p *TokenProvider) ValidateAccess(token string) (*Principal, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	role := Role(claims.Role)
	switch role {
	case RoleEmployee, RoleManager, RoleAdmin:
	default:
		role = RoleEmployee
	}
	return &Principal{UserID: claims.Subject, Email: claims.Email, Role: role}, nil
}
