package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

type authKey struct{}

// Claims is the bearer token payload. Subject carries the user id.
type Claims struct {
	Role       domain.Role       `json:"role"`
	EntityType domain.EntityType `json:"entity_type"`
	EntityID   int64             `json:"entity_id,omitempty"`
	jwt.RegisteredClaims
}

var errBadSubject = errors.New("token subject is not a user id")

// AuthContext converts the claims into the caller identity.
func (c Claims) AuthContext() (domain.AuthContext, error) {
	uid, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return domain.AuthContext{}, errBadSubject
	}
	a := domain.AuthContext{UserID: uid, Role: c.Role, EntityType: c.EntityType, EntityID: c.EntityID}
	if !a.Valid() {
		return domain.AuthContext{}, errors.New("token identity is incomplete")
	}
	return a, nil
}

// SignToken issues an HS256 token for the identity.
func SignToken(secret []byte, a domain.AuthContext, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Role:       a.Role,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(a.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// WithAuth stores the caller identity in ctx.
func WithAuth(ctx context.Context, a domain.AuthContext) context.Context {
	return context.WithValue(ctx, authKey{}, a)
}

// AuthFrom returns the identity set by Auth.
func AuthFrom(ctx context.Context) (domain.AuthContext, bool) {
	a, ok := ctx.Value(authKey{}).(domain.AuthContext)
	return a, ok
}

// Auth validates the bearer token and puts the AuthContext into the request context.
func Auth(secret []byte, logger logx.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				unauthorized(w, logger, r, errors.New("missing bearer token"))
				return
			}

			var claims Claims
			if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
				unauthorized(w, logger, r, err)
				return
			}
			a, err := claims.AuthContext()
			if err != nil {
				unauthorized(w, logger, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), a)))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func unauthorized(w http.ResponseWriter, logger logx.Logger, r *http.Request, err error) {
	logger.Debug("auth rejected",
		logx.String("path", r.URL.Path),
		logx.String("reason", fmt.Sprint(err)),
	)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="portal"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
}
