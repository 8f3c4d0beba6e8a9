// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*Package access provides utilities for access control
 */
package access

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/relabs-tech/campdir/core/apierr"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context key
const (
	contextKeyAuthorization contextKey = "_authorization_"
)

// Role is a user role.
type Role string

// the supported roles
const (
	RoleUser      Role = "user"
	RolePublisher Role = "publisher"
	RoleAdmin     Role = "admin"
)

// ValidRole returns true if role is one of the supported roles.
func ValidRole(role Role) bool {
	return role == RoleUser || role == RolePublisher || role == RoleAdmin
}

/*Authorization is a context object which identifies the authenticated
principal of a request.

Authorizations are added to a request context with

  ctx = ContextWithAuthorization(ctx, auth)

and retrieved with

  auth := AuthorizationFromContext(ctx)

The JWT middleware adds the authorization to the context, from a bearer
token or from the token cookie.
*/
type Authorization struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// HasRole returns true if the authorization carries the requested role;
// otherwise it returns false.
func (a *Authorization) HasRole(role Role) bool {
	return a != nil && a.Role == role
}

// Authorize decides whether the principal may perform a mutating operation
// on a resource owned by ownerID. The rules are evaluated in order:
//
//  1. an admin is always authorized
//  2. if requiredRoles is non-empty, the principal's role must be one of them
//  3. if ownerID is set, it must equal the principal's id
//
// Pass uuid.Nil as ownerID for operations which do not target an existing
// resource, such as create.
func (a *Authorization) Authorize(ownerID uuid.UUID, requiredRoles ...Role) error {
	if a == nil {
		return apierr.New(apierr.Unauthorized, "not authorized to access this route")
	}
	if a.Role == RoleAdmin {
		return nil
	}
	if len(requiredRoles) > 0 {
		gate := false
		for _, role := range requiredRoles {
			gate = gate || a.Role == role
		}
		if !gate {
			return apierr.New(apierr.Forbidden, "user role %s is not authorized to access this route", a.Role)
		}
	}
	if ownerID != uuid.Nil && ownerID != a.UserID {
		return apierr.New(apierr.Forbidden, "user %s is not authorized to modify this resource", a.UserID)
	}
	return nil
}

// ContextWithAuthorization returns a new context with the authorization added to it
func ContextWithAuthorization(ctx context.Context, a *Authorization) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, a)
}

// AuthorizationFromContext retrieves an authorization from the context
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

// AuthorizationCache is an in-memory cache for authorizations. It is used by
// the jwt middleware to cache authorization objects for bearer tokens.
// The purpose of the cache is to reduce the number of database queries, without
// the cache the middleware would have to lookup the principal for every single
// request.
type AuthorizationCache struct {
	mutex sync.RWMutex
	cache map[string]*Authorization
}

// NewAuthorizationCache creates a new authorization cache
func NewAuthorizationCache() *AuthorizationCache {
	return &AuthorizationCache{cache: make(map[string]*Authorization)}
}

// Read returns an authorization from in-process cache.
// Token should be the token the authorization was derived from, not any of the ids.
// This function is go-route safe
func (a *AuthorizationCache) Read(token string) *Authorization {
	a.mutex.RLock()
	auth, ok := a.cache[token]
	a.mutex.RUnlock()
	if ok {
		return auth
	}
	return nil
}

// Write stores an authorization in the in-memory cache.
// Token should be the token it was derived from, not any of the ids.
// This function is go-route safe
func (a *AuthorizationCache) Write(token string, auth *Authorization) {
	a.mutex.Lock()
	a.cache[token] = auth
	a.mutex.Unlock()
}

// Invalidate removes a token from the cache, for example after logout.
// This function is go-route safe
func (a *AuthorizationCache) Invalidate(token string) {
	a.mutex.Lock()
	delete(a.cache, token)
	a.mutex.Unlock()
}
