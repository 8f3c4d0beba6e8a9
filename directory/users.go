// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package directory

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/logger"
	"github.com/relabs-tech/campdir/core/mail"
	"github.com/relabs-tech/campdir/core/query"
)

// resetTokenLifetime is how long a password reset token stays valid.
const resetTokenLifetime = 10 * time.Minute

// UserService implements registration, authentication, the self-service
// account operations and the administrative user management.
type UserService struct {
	store  Store
	mailer mail.Mailer
}

// NewUserService creates the user service.
func NewUserService(store Store, mailer mail.Mailer) *UserService {
	return &UserService{store: store, mailer: mailer}
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     access.Role `json:"role"`
}

// UserDetails is the self-service details update payload.
type UserDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserInput is the administrative create payload.
type UserInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     access.Role `json:"role"`
}

// UserPatch is the administrative partial update payload.
type UserPatch struct {
	Name  *string      `json:"name"`
	Email *string      `json:"email"`
	Role  *access.Role `json:"role"`
}

func (p *UserPatch) apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return apierr.New(apierr.BadRequest, "please add a password with at least 6 characters")
	}
	return nil
}

// Register creates a new account. Accounts can self-register as user or as
// publisher, never as admin. A duplicate email surfaces as Conflict.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	role := input.Role
	if role == "" {
		role = access.RoleUser
	}
	if role != access.RoleUser && role != access.RolePublisher {
		return nil, apierr.New(apierr.BadRequest, "'%s' is not a valid role", role)
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	hash, err := access.HashPassword(input.Password)
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot hash password")
	}

	user := &User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies an email and password pair and returns the account.
// A wrong email and a wrong password produce the same Unauthorized error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, apierr.New(apierr.BadRequest, "please provide an email and password")
	}
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !access.CheckPassword(user.PasswordHash, password) {
		return nil, apierr.New(apierr.Unauthorized, "invalid credentials")
	}
	return user, nil
}

// Get returns the authenticated account.
func (s *UserService) Get(ctx context.Context, auth *access.Authorization) (*User, error) {
	if err := auth.Authorize(uuid.Nil); err != nil {
		return nil, err
	}
	return s.store.Users.Get(ctx, auth.UserID)
}

// UpdateDetails updates name and email of the authenticated account.
func (s *UserService) UpdateDetails(ctx context.Context, auth *access.Authorization, details UserDetails) (*User, error) {
	if err := auth.Authorize(uuid.Nil); err != nil {
		return nil, err
	}
	user, err := s.store.Users.Get(ctx, auth.UserID)
	if err != nil {
		return nil, err
	}
	user.Name = details.Name
	user.Email = details.Email
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdatePassword changes the password of the authenticated account. The
// current password must match.
func (s *UserService) UpdatePassword(ctx context.Context, auth *access.Authorization, currentPassword, newPassword string) (*User, error) {
	if err := auth.Authorize(uuid.Nil); err != nil {
		return nil, err
	}
	user, err := s.store.Users.Get(ctx, auth.UserID)
	if err != nil {
		return nil, err
	}
	if !access.CheckPassword(user.PasswordHash, currentPassword) {
		return nil, apierr.New(apierr.Unauthorized, "password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}
	hash, err := access.HashPassword(newPassword)
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot hash password")
	}
	if err := s.store.Users.SetPassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	return user, nil
}

// ForgotPassword issues a password reset token for the account behind the
// email and mails the reset link. Only the sha256 digest of the token is
// stored; the token itself leaves the service exactly once, inside the
// mail. When the mail cannot be sent the token is revoked again.
func (s *UserService) ForgotPassword(ctx context.Context, email, resetURLPrefix string) error {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return apierr.New(apierr.NotFound, "there is no user with that email")
	}

	token, digest, err := access.NewResetToken()
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot create reset token")
	}
	expire := time.Now().UTC().Add(resetTokenLifetime)
	if err := s.store.Users.SetResetToken(ctx, user.ID, digest, expire); err != nil {
		return err
	}

	resetURL := resetURLPrefix + token
	message := mail.Message{
		To:      user.Email,
		Subject: "Password reset token",
		Body: fmt.Sprintf("You are receiving this email because you (or someone else) "+
			"has requested the reset of a password. Please make a PUT request to:\n\n%s", resetURL),
	}
	if err := s.mailer.Send(ctx, message); err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("cannot send reset mail")
		if clearErr := s.store.Users.ClearResetToken(ctx, user.ID); clearErr != nil {
			logger.FromContext(ctx).WithError(clearErr).Errorln("cannot clear reset token")
		}
		return apierr.New(apierr.UpstreamFailure, "email could not be sent")
	}
	return nil
}

// ResetPassword sets a new password for the account holding the reset
// token, then revokes the token. An unknown or expired token is rejected.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	user, err := s.store.Users.GetByResetToken(ctx, access.HashResetToken(token))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierr.New(apierr.BadRequest, "invalid token")
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}
	hash, err := access.HashPassword(newPassword)
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot hash password")
	}
	if err := s.store.Users.SetPassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	if err := s.store.Users.ClearResetToken(ctx, user.ID); err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	return user, nil
}

// List returns one page of accounts, shaped by the request query. Admin
// only.
func (s *UserService) List(ctx context.Context, auth *access.Authorization, values url.Values) (*ListResult, error) {
	if err := auth.Authorize(uuid.Nil, access.RoleAdmin); err != nil {
		return nil, err
	}
	q, err := query.Parse(values)
	if err != nil {
		return nil, err
	}
	items, total, err := s.store.Users.List(ctx, q)
	if err != nil {
		return nil, err
	}
	pagination := q.Pagination(total)
	return newListResult(items, q.Select, &pagination)
}

// GetUser returns a single account. Admin only.
func (s *UserService) GetUser(ctx context.Context, auth *access.Authorization, id uuid.UUID) (*User, error) {
	if err := auth.Authorize(uuid.Nil, access.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.Users.Get(ctx, id)
}

// CreateUser creates an account with any role. Admin only.
func (s *UserService) CreateUser(ctx context.Context, auth *access.Authorization, input UserInput) (*User, error) {
	if err := auth.Authorize(uuid.Nil, access.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	hash, err := access.HashPassword(input.Password)
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot hash password")
	}
	role := input.Role
	if role == "" {
		role = access.RoleUser
	}
	user := &User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies a partial update to an account. Admin only.
func (s *UserService) UpdateUser(ctx context.Context, auth *access.Authorization, id uuid.UUID, patch UserPatch) (*User, error) {
	if err := auth.Authorize(uuid.Nil, access.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.store.Users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(user)
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. Admin only. Bootcamps, courses and
// reviews created by the account stay in the directory.
func (s *UserService) DeleteUser(ctx context.Context, auth *access.Authorization, id uuid.UUID) error {
	if err := auth.Authorize(uuid.Nil, access.RoleAdmin); err != nil {
		return err
	}
	return s.store.Users.Delete(ctx, id)
}
