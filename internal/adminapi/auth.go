// File: internal/adminapi/auth.go
package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// tokenIssuer is stamped into and required from every admin token.
const tokenIssuer = "wa-humanizer"

// ErrUnauthorized wraps every token verification failure.
var ErrUnauthorized = errors.New("adminapi: unauthorized")

// IssueToken mints an HS256 bearer token for the admin API.
func IssueToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("admin auth secret is not configured")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, algorithm, issuer and expiry of raw.
func VerifyToken(secret, raw string, now time.Time) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return claims, nil
}

// requireToken rejects requests without a valid bearer token.
func requireToken(secret string, now func() time.Time, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, log)
				return
			}
			claims, err := VerifyToken(secret, raw, now())
			if err != nil {
				log.Debug("Rejected admin token", zap.Error(err))
				unauthorized(w, log)
				return
			}
			log.Debug("Admin request authorized", zap.String("subject", claims.Subject))
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, log *zap.Logger) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="wa-humanizer"`)
	writeJSON(w, log, http.StatusUnauthorized, Response{Status: "error", Error: "Missing or invalid bearer token."})
}
