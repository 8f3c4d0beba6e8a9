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

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/csql"
	"github.com/relabs-tech/campdir/core/query"
	"github.com/relabs-tech/campdir/directory"
)

type reviewStore struct {
	db *csql.DB
}

var reviewColumns = map[string]column{
	"id":        {"r.review_id", kindUUID},
	"bootcamp":  {"r.bootcamp_id", kindUUID},
	"user":      {"r.user_id", kindUUID},
	"title":     {"r.title", kindText},
	"text":      {"r.text", kindText},
	"rating":    {"r.rating", kindNumber},
	"createdAt": {"r.created_at", kindText},
}

const reviewFields = `review_id, bootcamp_id, user_id, title, text, rating, created_at`

const reviewFieldsAliased = `r.review_id, r.bootcamp_id, r.user_id, r.title, r.text, r.rating, r.created_at`

func scanReview(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*directory.Review, error) {
	var r directory.Review
	targets := []interface{}{
		&r.ID, &r.Bootcamp, &r.User, &r.Title, &r.Text, &r.Rating, &r.CreatedAt,
	}
	targets = append(targets, extra...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *reviewStore) List(ctx context.Context, q query.ListQuery, withBootcampInfo bool) ([]directory.Review, int, error) {
	clauses, err := buildListClauses(reviewColumns, q)
	if err != nil {
		return nil, 0, err
	}
	statement := `SELECT ` + reviewFieldsAliased + `, b.name, b.description, count(*) OVER() AS full_count FROM ` +
		s.db.Schema + `."review" r JOIN ` + s.db.Schema + `."bootcamp" b ON b.bootcamp_id = r.bootcamp_id ` +
		clauses.sql
	rows, err := s.db.QueryContext(ctx, statement, clauses.args...)
	if err != nil {
		return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot list reviews")
	}
	defer rows.Close()

	total := 0
	result := []directory.Review{}
	for rows.Next() {
		info := directory.BootcampInfo{}
		review, err := scanReview(rows, &info.Name, &info.Description, &total)
		if err != nil {
			return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot scan review")
		}
		if withBootcampInfo {
			info.ID = review.Bootcamp
			review.BootcampInfo = &info
		}
		result = append(result, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot list reviews")
	}
	return result, total, nil
}

func (s *reviewStore) ListByBootcamp(ctx context.Context, bootcampID uuid.UUID) ([]directory.Review, error) {
	statement := `SELECT ` + reviewFields + ` FROM ` + s.db.Schema +
		`."review" WHERE bootcamp_id = $1 ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, statement, bootcampID)
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot list reviews")
	}
	defer rows.Close()

	result := []directory.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, apierr.Wrap(apierr.InternalError, err, "cannot scan review")
		}
		result = append(result, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot list reviews")
	}
	return result, nil
}

func (s *reviewStore) Get(ctx context.Context, id uuid.UUID, withBootcampInfo bool) (*directory.Review, error) {
	statement := `SELECT ` + reviewFieldsAliased + `, b.name, b.description FROM ` +
		s.db.Schema + `."review" r JOIN ` + s.db.Schema + `."bootcamp" b ON b.bootcamp_id = r.bootcamp_id ` +
		`WHERE r.review_id = $1;`
	info := directory.BootcampInfo{}
	review, err := scanReview(s.db.QueryRowContext(ctx, statement, id), &info.Name, &info.Description)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "review not found with id of %s", id)
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot read review")
	}
	if withBootcampInfo {
		info.ID = review.Bootcamp
		review.BootcampInfo = &info
	}
	return review, nil
}

func (s *reviewStore) Create(ctx context.Context, review *directory.Review) error {
	statement := `INSERT INTO ` + s.db.Schema + `."review" (` + reviewFields + `) ` +
		`VALUES ($1, $2, $3, $4, $5, $6, $7);`
	_, err := s.db.ExecContext(ctx, statement,
		review.ID, review.Bootcamp, review.User, review.Title, review.Text, review.Rating, review.CreatedAt)
	if err != nil {
		// unique violations are reported as code 23505
		if err, ok := err.(*pq.Error); ok && err.Code == "23505" {
			return apierr.New(apierr.Conflict, "user %s has already reviewed bootcamp %s", review.User, review.Bootcamp)
		}
		return apierr.Wrap(apierr.InternalError, err, "cannot create review")
	}
	return nil
}

func (s *reviewStore) Update(ctx context.Context, review *directory.Review) error {
	statement := `UPDATE ` + s.db.Schema + `."review" SET ` +
		`title = $2, text = $3, rating = $4 WHERE review_id = $1;`
	res, err := s.db.ExecContext(ctx, statement, review.ID, review.Title, review.Text, review.Rating)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot update review")
	}
	return requireRow(res, fmt.Sprintf("review not found with id of %s", review.ID))
}

func (s *reviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.db.Schema+`."review" WHERE review_id = $1;`, id)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot delete review")
	}
	return requireRow(res, fmt.Sprintf("review not found with id of %s", id))
}
