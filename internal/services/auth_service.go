package services

import (
	"context"
	"time"

	sentinal_errors "sentinal-safety/pkg/errors"
	"sentinal-safety/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

// AuthService verifies access tokens issued by the platform's auth module.
// It shares the HMAC secret but never issues tokens in production.
type AuthService struct {
	jwtSecret []byte
	issuer    string
	now       Clock
}

func NewAuthService(secret, issuer string) *AuthService {
	return &AuthService{jwtSecret: []byte(secret), issuer: issuer, now: defaultClock}
}

type AccessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (s *AuthService) ParseAccessToken(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, sentinal_errors.ErrUnauthorized
	}

	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, opts...)
	if err != nil {
		return Principal{}, sentinal_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return Principal{}, sentinal_errors.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return Principal{}, sentinal_errors.ErrUnauthorized
	}

	return Principal{UserID: userID, Role: claims.Role}, nil
}

// IssueAccessToken signs a token the way the auth module does. Used by local
// tooling and tests.
func (s *AuthService) IssueAccessToken(userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

type ctxKey string

var principalKey ctxKey = "principal"

// WithPrincipal stores the caller on ctx. The user id is also exposed to the
// logger so request logs carry it.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, logger.UserIdKey, p.UserID.String())
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return p.UserID, true
}
