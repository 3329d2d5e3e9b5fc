package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/folio/internal/platform/errors"
	"github.com/louisbranch/folio/internal/platform/requestctx"
	"github.com/louisbranch/folio/internal/services/cms/domain"
)

// tokenIssuer is the iss claim of admin bearer tokens.
const tokenIssuer = "folio"

var (
	errMissingToken = apperrors.New(apperrors.CodeUnauthorized, "authorization bearer token is required")
	errInvalidToken = apperrors.New(apperrors.CodeUnauthorized, "authorization token is invalid")
	errInactiveUser = apperrors.New(apperrors.CodeForbidden, "user is not active")
)

// IssueToken signs an HS256 bearer token for userID valid for ttl.
func IssueToken(secret []byte, userID int64, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is required")
	}
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id %d", userID)
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates token and returns the user id in its subject.
func ParseToken(secret []byte, token string, now time.Time) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, errMissingToken
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return 0, mapJWTError(err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, apperrors.Wrap(apperrors.CodeUnauthorized, "authorization token subject is invalid", err)
	}
	return userID, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeUnauthorized, "authorization token is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeUnauthorized, "authorization token signature is invalid", err)
	}
	return apperrors.Wrap(apperrors.CodeUnauthorized, errInvalidToken.Message, err)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return token
}

// requireUser authenticates the bearer token and stores the user id in the
// request context. Inactive users are refused.
func (a *api) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := ParseToken(a.secret, bearerToken(r), a.clock())
		if err != nil {
			a.renderError(w, r, err)
			return
		}
		user, err := a.accounts.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				err = apperrors.Wrap(apperrors.CodeUnauthorized, errInvalidToken.Message, err)
			}
			a.renderError(w, r, err)
			return
		}
		if !user.IsActive {
			a.renderError(w, r, errInactiveUser)
			return
		}
		recordUser(r.Context(), user.ID)
		next.ServeHTTP(w, r.WithContext(withActor(requestctx.WithUserID(r.Context(), user.ID), user)))
	})
}

type actorContextKey struct{}

func withActor(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, actorContextKey{}, user)
}

// actorFromContext returns the user authenticated by requireUser.
func actorFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(actorContextKey{}).(domain.User)
	return user, ok
}
