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

type bootcampStore struct {
	db *csql.DB
}

var bootcampColumns = map[string]column{
	"id":            {"bootcamp_id", kindUUID},
	"user":          {"user_id", kindUUID},
	"name":          {"name", kindText},
	"description":   {"description", kindText},
	"website":       {"website", kindText},
	"phone":         {"phone", kindText},
	"email":         {"email", kindText},
	"address":       {"address", kindText},
	"latitude":      {"latitude", kindNumber},
	"longitude":     {"longitude", kindNumber},
	"careers":       {"careers", kindTextArray},
	"housing":       {"housing", kindBool},
	"jobAssistance": {"job_assistance", kindBool},
	"jobGuarantee":  {"job_guarantee", kindBool},
	"acceptGi":      {"accept_gi", kindBool},
	"photo":         {"photo", kindText},
	"averageCost":   {"average_cost", kindNumber},
	"averageRating": {"average_rating", kindNumber},
	"createdAt":     {"created_at", kindText},
}

const bootcampFields = `bootcamp_id, user_id, name, description, website, phone, email, address, ` +
	`latitude, longitude, careers, housing, job_assistance, job_guarantee, accept_gi, photo, ` +
	`average_cost, average_rating, created_at`

// scanBootcamp reads one bootcamp row. The scan targets must match
// bootcampFields, extra targets can be appended for window columns.
func scanBootcamp(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*directory.Bootcamp, error) {
	var b directory.Bootcamp
	var latitude, longitude, averageCost, averageRating sql.NullFloat64
	targets := []interface{}{
		&b.ID, &b.User, &b.Name, &b.Description, &b.Website, &b.Phone, &b.Email, &b.Address,
		&latitude, &longitude, pq.Array(&b.Careers), &b.Housing, &b.JobAssistance, &b.JobGuarantee,
		&b.AcceptGi, &b.Photo, &averageCost, &averageRating, &b.CreatedAt,
	}
	targets = append(targets, extra...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	if latitude.Valid {
		b.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		b.Longitude = &longitude.Float64
	}
	if averageCost.Valid {
		b.AverageCost = &averageCost.Float64
	}
	if averageRating.Valid {
		b.AverageRating = &averageRating.Float64
	}
	if b.Careers == nil {
		b.Careers = []string{}
	}
	return &b, nil
}

func (s *bootcampStore) List(ctx context.Context, q query.ListQuery, withCourses bool) ([]directory.Bootcamp, int, error) {
	clauses, err := buildListClauses(bootcampColumns, q)
	if err != nil {
		return nil, 0, err
	}
	statement := `SELECT ` + bootcampFields + `, count(*) OVER() AS full_count FROM ` +
		s.db.Schema + `."bootcamp" ` + clauses.sql
	rows, err := s.db.QueryContext(ctx, statement, clauses.args...)
	if err != nil {
		return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot list bootcamps")
	}
	defer rows.Close()

	total := 0
	result := []directory.Bootcamp{}
	for rows.Next() {
		bootcamp, err := scanBootcamp(rows, &total)
		if err != nil {
			return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot scan bootcamp")
		}
		result = append(result, *bootcamp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apierr.Wrap(apierr.InternalError, err, "cannot list bootcamps")
	}

	if withCourses && len(result) > 0 {
		if err := s.attachCourses(ctx, result); err != nil {
			return nil, 0, err
		}
	}
	return result, total, nil
}

// attachCourses loads the courses of all listed bootcamps in one query.
func (s *bootcampStore) attachCourses(ctx context.Context, bootcamps []directory.Bootcamp) error {
	ids := make([]uuid.UUID, len(bootcamps))
	for i := range bootcamps {
		ids[i] = bootcamps[i].ID
	}
	statement := `SELECT ` + courseFields + ` FROM ` + s.db.Schema +
		`."course" WHERE bootcamp_id = ANY ($1) ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, statement, pq.Array(ids))
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot list courses")
	}
	defer rows.Close()

	byBootcamp := map[uuid.UUID][]directory.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return apierr.Wrap(apierr.InternalError, err, "cannot scan course")
		}
		byBootcamp[course.Bootcamp] = append(byBootcamp[course.Bootcamp], *course)
	}
	if err := rows.Err(); err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot list courses")
	}
	for i := range bootcamps {
		bootcamps[i].Courses = byBootcamp[bootcamps[i].ID]
	}
	return nil
}

func (s *bootcampStore) Get(ctx context.Context, id uuid.UUID) (*directory.Bootcamp, error) {
	statement := `SELECT ` + bootcampFields + ` FROM ` + s.db.Schema + `."bootcamp" WHERE bootcamp_id = $1;`
	bootcamp, err := scanBootcamp(s.db.QueryRowContext(ctx, statement, id))
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "bootcamp not found with id of %s", id)
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot read bootcamp")
	}
	return bootcamp, nil
}

func (s *bootcampStore) GetByOwner(ctx context.Context, userID uuid.UUID) (*directory.Bootcamp, error) {
	statement := `SELECT ` + bootcampFields + ` FROM ` + s.db.Schema + `."bootcamp" WHERE user_id = $1 LIMIT 1;`
	bootcamp, err := scanBootcamp(s.db.QueryRowContext(ctx, statement, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot read bootcamp")
	}
	return bootcamp, nil
}

func (s *bootcampStore) WithinRadius(ctx context.Context, latitude, longitude, distanceMiles float64) ([]directory.Bootcamp, error) {
	// great-circle distance in miles
	statement := `SELECT ` + bootcampFields + ` FROM ` + s.db.Schema + `."bootcamp" ` +
		`WHERE latitude IS NOT NULL AND longitude IS NOT NULL AND ` +
		`2 * 3963.0 * asin(sqrt(` +
		`power(sin(radians($1 - latitude) / 2), 2) + ` +
		`cos(radians(latitude)) * cos(radians($1)) * power(sin(radians($2 - longitude) / 2), 2)` +
		`)) <= $3 ORDER BY created_at DESC;`
	rows, err := s.db.QueryContext(ctx, statement, latitude, longitude, distanceMiles)
	if err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot search bootcamps")
	}
	defer rows.Close()

	result := []directory.Bootcamp{}
	for rows.Next() {
		bootcamp, err := scanBootcamp(rows)
		if err != nil {
			return nil, apierr.Wrap(apierr.InternalError, err, "cannot scan bootcamp")
		}
		result = append(result, *bootcamp)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Wrap(apierr.InternalError, err, "cannot search bootcamps")
	}
	return result, nil
}

func (s *bootcampStore) Create(ctx context.Context, bootcamp *directory.Bootcamp) error {
	statement := `INSERT INTO ` + s.db.Schema + `."bootcamp" (` + bootcampFields + `) ` +
		`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);`
	_, err := s.db.ExecContext(ctx, statement,
		bootcamp.ID, bootcamp.User, bootcamp.Name, bootcamp.Description, bootcamp.Website,
		bootcamp.Phone, bootcamp.Email, bootcamp.Address, bootcamp.Latitude, bootcamp.Longitude,
		pq.Array(bootcamp.Careers), bootcamp.Housing, bootcamp.JobAssistance, bootcamp.JobGuarantee,
		bootcamp.AcceptGi, bootcamp.Photo, bootcamp.AverageCost, bootcamp.AverageRating, bootcamp.CreatedAt)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot create bootcamp")
	}
	return nil
}

func (s *bootcampStore) Update(ctx context.Context, bootcamp *directory.Bootcamp) error {
	statement := `UPDATE ` + s.db.Schema + `."bootcamp" SET ` +
		`name = $2, description = $3, website = $4, phone = $5, email = $6, address = $7, ` +
		`latitude = $8, longitude = $9, careers = $10, housing = $11, job_assistance = $12, ` +
		`job_guarantee = $13, accept_gi = $14 WHERE bootcamp_id = $1;`
	res, err := s.db.ExecContext(ctx, statement,
		bootcamp.ID, bootcamp.Name, bootcamp.Description, bootcamp.Website, bootcamp.Phone,
		bootcamp.Email, bootcamp.Address, bootcamp.Latitude, bootcamp.Longitude,
		pq.Array(bootcamp.Careers), bootcamp.Housing, bootcamp.JobAssistance,
		bootcamp.JobGuarantee, bootcamp.AcceptGi)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot update bootcamp")
	}
	return requireRow(res, fmt.Sprintf("bootcamp not found with id of %s", bootcamp.ID))
}

func (s *bootcampStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.db.Schema+`."bootcamp" WHERE bootcamp_id = $1;`, id)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot delete bootcamp")
	}
	return requireRow(res, fmt.Sprintf("bootcamp not found with id of %s", id))
}

func (s *bootcampStore) SetPhoto(ctx context.Context, id uuid.UUID, filename string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.db.Schema+`."bootcamp" SET photo = $2 WHERE bootcamp_id = $1;`, id, filename)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot update bootcamp")
	}
	return requireRow(res, fmt.Sprintf("bootcamp not found with id of %s", id))
}

func (s *bootcampStore) RecomputeAverageCost(ctx context.Context, id uuid.UUID) error {
	// avg over no courses is NULL, which resets the aggregate
	statement := `UPDATE ` + s.db.Schema + `."bootcamp" SET average_cost = ` +
		`(SELECT ceil(avg(tuition) / 10) * 10 FROM ` + s.db.Schema + `."course" ` +
		`WHERE bootcamp_id = $1) WHERE bootcamp_id = $1;`
	res, err := s.db.ExecContext(ctx, statement, id)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot recompute average cost")
	}
	return requireRow(res, fmt.Sprintf("bootcamp not found with id of %s", id))
}

func (s *bootcampStore) RecomputeAverageRating(ctx context.Context, id uuid.UUID) error {
	statement := `UPDATE ` + s.db.Schema + `."bootcamp" SET average_rating = ` +
		`(SELECT avg(rating) FROM ` + s.db.Schema + `."review" ` +
		`WHERE bootcamp_id = $1) WHERE bootcamp_id = $1;`
	res, err := s.db.ExecContext(ctx, statement, id)
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "cannot recompute average rating")
	}
	return requireRow(res, fmt.Sprintf("bootcamp not found with id of %s", id))
}

// requireRow turns a zero-row write into a NotFound error.
func requireRow(res sql.Result, message string) error {
	count, err := res.RowsAffected()
	if err != nil {
		return apierr.Wrap(apierr.InternalError, err, "RowsAffected")
	}
	if count == 0 {
		return apierr.New(apierr.NotFound, "%s", message)
	}
	return nil
}
