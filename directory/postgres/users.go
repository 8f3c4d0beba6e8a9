// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/csql"
	"github.com/relabs-tech/campdir/core/query"
	"github.com/relabs-tech/campdir/directory"
)

type userStore struct {
	db *csql.DB
}

var userColumns = map[string]column{
	"id":        {"user_id", kindUUID},
	"name":      {"name", kindText},
	"email":     {"email", kindText},
	"role":      {"role", kindText},
	"createdAt": {"created_at", kindText},
}

const userFields = `user_id, name, email, role, password_hash, reset_password_token, ` +
	`reset_password_expire, created_at`

func scanUser(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*directory.User, error) {
	var u directory.User
	var expire sql.NullTime
	targets := []interface{}{
		&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.ResetPasswordToken, &expire, &u.CreatedAt,
	}
	targets = append(targets, extra...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	if expire.Valid {
		u.ResetPasswordExpire = expire.Time
	}
	return &u, nil
}

func (s *userStore) List(ctx context.Context, q query.ListQuery) ([]directory.User, int, error) {
	clauses, err := buildListClauses(userColumns, q)
	if err != nil {
		return nil, 0, err
	}
	statement := `SELECT ` + userFields + `, count(*) OVER() AS full_count FROM ` +
		s.db.Schema + `."user" ` + clauses.sql
	rows, err := s.db.QueryContext(ctx, statement, clauses.args...)
	if err != nil {
		return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot list users")
	}
	defer rows.Close()

	total := 0
	result := []directory.User{}
	for rows.Next() {
		user, err := scanUser(rows, &total)
		if err != nil {
			return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot scan user")
		}
		result = append(result, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot list users")
	}
	return result, total, nil
}

func (s *userStore) Get(ctx context.Context, id uuid.UUID) (*directory.User, error) {
	statement := `SELECT ` + userFields + ` FROM ` + s.db.Schema + `."user" WHERE user_id = $1;`
	user, err := scanUser(s.db.QueryRowContext(ctx, statement, id))
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "user not found with id of %s", id)
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot read user")
	}
	return user, nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*directory.User, error) {
	statement := `SELECT ` + userFields + ` FROM ` + s.db.Schema + `."user" WHERE email = $1;`
	user, err := scanUser(s.db.QueryRowContext(ctx, statement, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot read user")
	}
	return user, nil
}

func (s *userStore) GetByResetToken(ctx context.Context, digest string) (*directory.User, error) {
	statement := `SELECT ` + userFields + ` FROM ` + s.db.Schema +
		`."user" WHERE reset_password_token = $1 AND reset_password_expire > now();`
	user, err := scanUser(s.db.QueryRowContext(ctx, statement, digest))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot read user")
	}
	return user, nil
}

func (s *userStore) Create(ctx context.Context, user *directory.User) error {
	statement := `INSERT INTO ` + s.db.Schema + `."user" ` +
		`(user_id, name, email, role, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6);`
	_, err := s.db.ExecContext(ctx, statement,
		user.ID, user.Name, user.Email, user.Role, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == "23505" {
			return apierr.New(apierr.Conflict, "email %s is already registered", user.Email)
		}
		return apierr.Wrap(apierr.InternalError, err, "cannot create user")
	}
	return nil
}

func (s *userStore) Update(ctx context.Context, user *directory.User) error {
	statement := `UPDATE ` + s.db.Schema + `."user" SET ` +
		`name = $2, email = $3, role = $4 WHERE user_id = $1;`
	res, err := s.db.ExecContext(ctx, statement, user.ID, user.Name, user.Email, user.Role)
	if err != nil {
		if err, ok := err.(*pq.Error); ok && err.Code == "23505" {
			return apierr.New(apierr.Conflict, "email %s is already registered", user.Email)
		}
		return apierr.Wrap(apierr.InternalError, err, "cannot update user")
	}
	return requireRow(res, fmt.Sprintf("user not found with id of %s", user.ID))
}

func (s *userStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.db.Schema+`."user" WHERE user_id = $1;`, id)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot delete user")
	}
	return requireRow(res, fmt.Sprintf("user not found with id of %s", id))
}

func (s *userStore) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.db.Schema+`."user" SET password_hash = $2 WHERE user_id = $1;`, id, passwordHash)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot update user")
	}
	return requireRow(res, fmt.Sprintf("user not found with id of %s", id))
}

func (s *userStore) SetResetToken(ctx context.Context, id uuid.UUID, digest string, expire time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.db.Schema+`."user" SET reset_password_token = $2, reset_password_expire = $3 WHERE user_id = $1;`,
		id, digest, expire)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot update user")
	}
	return requireRow(res, fmt.Sprintf("user not found with id of %s", id))
}

func (s *userStore) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.db.Schema+`."user" SET reset_password_token = '', reset_password_expire = NULL WHERE user_id = $1;`, id)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot update user")
	}
	return requireRow(res, fmt.Sprintf("user not found with id of %s", id))
}
