// Package auth resolves the acting identity of a request from a signed
// access token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nexusmart/shop/internal/apperr"
	"github.com/nexusmart/shop/internal/respond"
)

const accessTokenCookie = "accessToken"

var ErrInvalidToken = errors.New("invalid access token")

type Identity struct {
	UserID   string
	Email    string
	Username string
	Role     string
}

// Claims is the access-token payload. The user id travels in the "_id"
// claim; "sub" is accepted when "_id" is absent.
type Claims struct {
	UserID   string `json:"_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
	logger *slog.Logger
}

func NewVerifier(secret string, logger *slog.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		logger: logger,
	}
}

func (v *Verifier) Verify(token string) (Identity, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Identity{
		UserID:   userID,
		Email:    claims.Email,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// Require rejects requests without a valid access token and stores the
// resolved identity in the request context.
func (v *Verifier) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			respond.Error(w, v.logger, apperr.Unauthorized("unauthorized request"))
			return
		}

		id, err := v.Verify(token)
		if err != nil {
			v.logger.Debug("rejected access token", "error", err)
			respond.Error(w, v.logger, apperr.Unauthorized("invalid access token"))
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Caller returns the identity stored by Require, writing a 401 response when
// the request carries none.
func Caller(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (Identity, bool) {
	id, ok := FromContext(r.Context())
	if !ok {
		respond.Error(w, logger, apperr.Unauthorized("unauthorized request"))
	}
	return id, ok
}
