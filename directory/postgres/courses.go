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

	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/csql"
	"github.com/relabs-tech/campdir/core/query"
	"github.com/relabs-tech/campdir/directory"
)

type courseStore struct {
	db *csql.DB
}

// the course table is aliased c so that the expanded parent columns stay
// unambiguous
var courseColumns = map[string]column{
	"id":                   {"c.course_id", kindUUID},
	"bootcamp":             {"c.bootcamp_id", kindUUID},
	"user":                 {"c.user_id", kindUUID},
	"title":                {"c.title", kindText},
	"description":          {"c.description", kindText},
	"weeks":                {"c.weeks", kindText},
	"tuition":              {"c.tuition", kindNumber},
	"minimumSkill":         {"c.minimum_skill", kindText},
	"scholarshipAvailable": {"c.scholarship_available", kindBool},
	"createdAt":            {"c.created_at", kindText},
}

const courseFields = `course_id, bootcamp_id, user_id, title, description, weeks, tuition, ` +
	`minimum_skill, scholarship_available, created_at`

const courseFieldsAliased = `c.course_id, c.bootcamp_id, c.user_id, c.title, c.description, ` +
	`c.weeks, c.tuition, c.minimum_skill, c.scholarship_available, c.created_at`

func scanCourse(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*directory.Course, error) {
	var c directory.Course
	targets := []interface{}{
		&c.ID, &c.Bootcamp, &c.User, &c.Title, &c.Description, &c.Weeks, &c.Tuition,
		&c.MinimumSkill, &c.ScholarshipAvailable, &c.CreatedAt,
	}
	targets = append(targets, extra...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *courseStore) List(ctx context.Context, q query.ListQuery, withBootcampInfo bool) ([]directory.Course, int, error) {
	clauses, err := buildListClauses(courseColumns, q)
	if err != nil {
		return nil, 0, err
	}
	statement := `SELECT ` + courseFieldsAliased + `, b.name, b.description, count(*) OVER() AS full_count FROM ` +
		s.db.Schema + `."course" c JOIN ` + s.db.Schema + `."bootcamp" b ON b.bootcamp_id = c.bootcamp_id ` +
		clauses.sql
	rows, err := s.db.QueryContext(ctx, statement, clauses.args...)
	if err != nil {
		return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot list courses")
	}
	defer rows.Close()

	total := 0
	result := []directory.Course{}
	for rows.Next() {
		info := directory.BootcampInfo{}
		course, err := scanCourse(rows, &info.Name, &info.Description, &total)
		if err != nil {
			return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot scan course")
		}
		if withBootcampInfo {
			info.ID = course.Bootcamp
			course.BootcampInfo = &info
		}
		result = append(result, *course)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot list courses")
	}
	return result, total, nil
}

func (s *courseStore) ListByBootcamp(ctx context.Context, bootcampID uuid.UUID) ([]directory.Course, error) {
	statement := `SELECT ` + courseFields + ` FROM ` + s.db.Schema +
		`."course" WHERE bootcamp_id = $1 ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, statement, bootcampID)
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot list courses")
	}
	defer rows.Close()

	result := []directory.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, apierr.Wrap(apierr.InternalError, err, "cannot scan course")
		}
		result = append(result, *course)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot list courses")
	}
	return result, nil
}

func (s *courseStore) Get(ctx context.Context, id uuid.UUID, withBootcampInfo bool) (*directory.Course, error) {
	statement := `SELECT ` + courseFieldsAliased + `, b.name, b.description FROM ` +
		s.db.Schema + `."course" c JOIN ` + s.db.Schema + `."bootcamp" b ON b.bootcamp_id = c.bootcamp_id ` +
		`WHERE c.course_id = $1;`
	info := directory.BootcampInfo{}
	course, err := scanCourse(s.db.QueryRowContext(ctx, statement, id), &info.Name, &info.Description)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "course not found with id of %s", id)
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot read course")
	}
	if withBootcampInfo {
		info.ID = course.Bootcamp
		course.BootcampInfo = &info
	}
	return course, nil
}

func (s *courseStore) Create(ctx context.Context, course *directory.Course) error {
	statement := `INSERT INTO ` + s.db.Schema + `."course" (` + courseFields + `) ` +
		`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err := s.db.ExecContext(ctx, statement,
		course.ID, course.Bootcamp, course.User, course.Title, course.Description,
		course.Weeks, course.Tuition, course.MinimumSkill, course.ScholarshipAvailable, course.CreatedAt)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot create course")
	}
	return nil
}

func (s *courseStore) Update(ctx context.Context, course *directory.Course) error {
	statement := `UPDATE ` + s.db.Schema + `."course" SET ` +
		`title = $2, description = $3, weeks = $4, tuition = $5, minimum_skill = $6, ` +
		`scholarship_available = $7 WHERE course_id = $1;`
	res, err := s.db.ExecContext(ctx, statement,
		course.ID, course.Title, course.Description, course.Weeks, course.Tuition,
		course.MinimumSkill, course.ScholarshipAvailable)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot update course")
	}
	return requireRow(res, fmt.Sprintf("course not found with id of %s", course.ID))
}

func (s *courseStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.db.Schema+`."course" WHERE course_id = $1;`, id)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot delete course")
	}
	return requireRow(res, fmt.Sprintf("course not found with id of %s", id))
}
