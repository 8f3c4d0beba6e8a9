// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package directory

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/query"
)

// CourseService implements the course operations.
type CourseService struct {
	store Store
}

// NewCourseService creates the course service.
func NewCourseService(store Store) *CourseService {
	return &CourseService{store: store}
}

// CourseInput is the create payload.
type CourseInput struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Weeks                string     `json:"weeks"`
	Tuition              float64    `json:"tuition"`
	MinimumSkill         SkillLevel `json:"minimumSkill"`
	ScholarshipAvailable bool       `json:"scholarshipAvailable"`
}

// CoursePatch is the partial update payload.
type CoursePatch struct {
	Title                *string     `json:"title"`
	Description          *string     `json:"description"`
	Weeks                *string     `json:"weeks"`
	Tuition              *float64    `json:"tuition"`
	MinimumSkill         *SkillLevel `json:"minimumSkill"`
	ScholarshipAvailable *bool       `json:"scholarshipAvailable"`
}

func (p *CoursePatch) apply(c *Course) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Weeks != nil {
		c.Weeks = *p.Weeks
	}
	if p.Tuition != nil {
		c.Tuition = *p.Tuition
	}
	if p.MinimumSkill != nil {
		c.MinimumSkill = *p.MinimumSkill
	}
	if p.ScholarshipAvailable != nil {
		c.ScholarshipAvailable = *p.ScholarshipAvailable
	}
}

// List returns one page of courses, shaped by the request query, with the
// restricted parent bootcamp subset expanded.
func (s *CourseService) List(ctx context.Context, values url.Values) (*ListResult, error) {
	q, err := query.Parse(values)
	if err != nil {
		return nil, err
	}
	items, total, err := s.store.Courses.List(ctx, q, true)
	if err != nil {
		return nil, err
	}
	pagination := q.Pagination(total)
	return newListResult(items, q.Select, &pagination)
}

// ListByBootcamp returns all courses of one bootcamp, unpaginated and
// unfiltered. This is the deliberate simpler path for nested listing.
func (s *CourseService) ListByBootcamp(ctx context.Context, bootcampID uuid.UUID) (*ListResult, error) {
	items, err := s.store.Courses.ListByBootcamp(ctx, bootcampID)
	if err != nil {
		return nil, err
	}
	return newListResult(items, nil, nil)
}

// Get returns a single course with the restricted parent bootcamp subset
// expanded.
func (s *CourseService) Get(ctx context.Context, id uuid.UUID) (*Course, error) {
	return s.store.Courses.Get(ctx, id, true)
}

// Create adds a course to a bootcamp. The bootcamp must exist; publishers
// and admins may add courses. The parent's average cost is recomputed
// afterwards.
func (s *CourseService) Create(ctx context.Context, auth *access.Authorization, bootcampID uuid.UUID, input CourseInput) (*Course, error) {
	if err := auth.Authorize(uuid.Nil, access.RolePublisher, access.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.store.Bootcamps.Get(ctx, bootcampID); err != nil {
		return nil, err
	}

	course := &Course{
		ID:                   uuid.New(),
		User:                 auth.UserID,
		Bootcamp:             bootcampID,
		Title:                input.Title,
		Description:          input.Description,
		Weeks:                input.Weeks,
		Tuition:              input.Tuition,
		MinimumSkill:         input.MinimumSkill,
		ScholarshipAvailable: input.ScholarshipAvailable,
		CreatedAt:            time.Now().UTC(),
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Courses.Create(ctx, course); err != nil {
		return nil, err
	}
	if err := s.store.Bootcamps.RecomputeAverageCost(ctx, bootcampID); err != nil {
		return nil, err
	}
	return course, nil
}

// Update applies a partial update to a course. Only the owner or an admin
// may update.
func (s *CourseService) Update(ctx context.Context, auth *access.Authorization, id uuid.UUID, patch CoursePatch) (*Course, error) {
	course, err := s.store.Courses.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(course.User); err != nil {
		return nil, err
	}
	patch.apply(course)
	if err := course.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Courses.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// Delete removes a course. Only the owner or an admin may delete. The
// parent's average cost is recomputed afterwards.
func (s *CourseService) Delete(ctx context.Context, auth *access.Authorization, id uuid.UUID) error {
	course, err := s.store.Courses.Get(ctx, id, false)
	if err != nil {
		return err
	}
	if err := auth.Authorize(course.User); err != nil {
		return err
	}
	if err := s.store.Courses.Delete(ctx, id); err != nil {
		return err
	}
	return s.store.Bootcamps.RecomputeAverageCost(ctx, course.Bootcamp)
}
