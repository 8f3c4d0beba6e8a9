// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/logger"
)

// CookieName is the name of the session cookie carrying the JWT, for the
// benefit of simple frontend development.
const CookieName = "token"

type claims struct {
	ID uuid.UUID `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs JWT for authenticated users with an HMAC secret.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiry: expiry}
}

// Sign returns a signed token for the user with this issuer's expiry.
func (t *TokenIssuer) Sign(userID uuid.UUID) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		},
	})
	return token.SignedString(t.secret)
}

// Expiry returns the configured token lifetime. The session cookie uses the
// same lifetime.
func (t *TokenIssuer) Expiry() time.Duration {
	return t.expiry
}

// UserID verifies the token signature and expiry and returns the user id
// from the claims.
func (t *TokenIssuer) UserID(tokenString string) (uuid.UUID, error) {
	c := claims{}
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierr.New(apierr.Unauthorized, "unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apierr.New(apierr.Unauthorized, "not authorized to access this route")
	}
	return c.ID, nil
}

// PrincipalLookup resolves the user behind a verified token into an
// authorization, typically via a database lookup.
type PrincipalLookup func(r *http.Request, userID uuid.UUID) (*Authorization, error)

// NewJwtMiddleware returns a middleware handler to validate JWT bearer
// token.
//
// Java-Web-Token (JWT) are accepted as "Authorization: Bearer" header or as
// "token"-cookie. When a valid token is presented, the resolved principal is
// added to the request context; requests without a token pass through
// unauthenticated, the ownership policy rejects them on protected routes.
// A token that is present but invalid is a final http.StatusUnauthorized.
//
// Resolved principals are cached in authCache until the token is
// invalidated, for example on logout.
func NewJwtMiddleware(issuer *TokenIssuer, authCache *AuthorizationCache, lookup PrincipalLookup) mux.MiddlewareFunc {

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AuthorizationFromContext(r.Context()) != nil { // already authorized
				h.ServeHTTP(w, r)
				return
			}

			tokenString := ""
			bearer := r.Header.Get("Authorization")
			if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
				tokenString = bearer[7:]
			} else if cookie, err := r.Cookie(CookieName); err == nil {
				tokenString = cookie.Value
			}

			if tokenString == "" || tokenString == "none" {
				h.ServeHTTP(w, r)
				return
			}

			rlog := logger.FromContext(r.Context())

			userID, err := issuer.UserID(tokenString)
			if err != nil {
				rlog.Debugln("rejected token:", err)
				apierr.WriteError(w, err)
				return
			}

			// look up the authorization for the token. We do this by token,
			// and not by user id, so the frontend can enforce a new database
			// lookup with a new token.
			auth := authCache.Read(tokenString)
			if auth == nil {
				auth, err = lookup(r, userID)
				if err != nil {
					rlog.WithError(err).Debugln("no principal for token")
					apierr.WriteError(w, err)
					return
				}
				authCache.Write(tokenString, auth)
			}

			ctx := ContextWithAuthorization(r.Context(), auth)
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, auth.Email)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
