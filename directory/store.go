// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package directory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/campdir/core/query"
)

// BootcampStore is the persistence interface for bootcamps.
//
// List returns one page of bootcamps plus the total count of records
// matching the filter criteria. Get and the mutating operations fail with a
// NotFound error when the bootcamp does not exist. The aggregate
// recomputations are explicit store operations invoked by the course and
// review services after their writes.
type BootcampStore interface {
	List(ctx context.Context, q query.ListQuery, withCourses bool) ([]Bootcamp, int, error)
	Get(ctx context.Context, id uuid.UUID) (*Bootcamp, error)
	// GetByOwner returns nil without error when the user owns no bootcamp
	GetByOwner(ctx context.Context, userID uuid.UUID) (*Bootcamp, error)
	WithinRadius(ctx context.Context, latitude, longitude, distanceMiles float64) ([]Bootcamp, error)
	Create(ctx context.Context, bootcamp *Bootcamp) error
	Update(ctx context.Context, bootcamp *Bootcamp) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetPhoto(ctx context.Context, id uuid.UUID, filename string) error
	RecomputeAverageCost(ctx context.Context, id uuid.UUID) error
	RecomputeAverageRating(ctx context.Context, id uuid.UUID) error
}

// CourseStore is the persistence interface for courses.
type CourseStore interface {
	List(ctx context.Context, q query.ListQuery, withBootcampInfo bool) ([]Course, int, error)
	// ListByBootcamp returns all courses of one bootcamp, unpaginated
	ListByBootcamp(ctx context.Context, bootcampID uuid.UUID) ([]Course, error)
	Get(ctx context.Context, id uuid.UUID, withBootcampInfo bool) (*Course, error)
	Create(ctx context.Context, course *Course) error
	Update(ctx context.Context, course *Course) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReviewStore is the persistence interface for reviews. Create fails with a
// Conflict error when the user has already reviewed the bootcamp; the
// unique (bootcamp,user) index is the authoritative guard.
type ReviewStore interface {
	List(ctx context.Context, q query.ListQuery, withBootcampInfo bool) ([]Review, int, error)
	ListByBootcamp(ctx context.Context, bootcampID uuid.UUID) ([]Review, error)
	Get(ctx context.Context, id uuid.UUID, withBootcampInfo bool) (*Review, error)
	Create(ctx context.Context, review *Review) error
	Update(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserStore is the persistence interface for users. Create fails with a
// Conflict error when the email is already registered.
type UserStore interface {
	List(ctx context.Context, q query.ListQuery) ([]User, int, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByEmail returns nil without error when the email is unknown
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByResetToken returns nil without error when no user carries the
	// token digest or the token has expired
	GetByResetToken(ctx context.Context, digest string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetResetToken(ctx context.Context, id uuid.UUID, digest string, expire time.Time) error
	ClearResetToken(ctx context.Context, id uuid.UUID) error
}

// Store bundles the per-resource stores.
type Store struct {
	Bootcamps BootcampStore
	Courses   CourseStore
	Reviews   ReviewStore
	Users     UserStore
}
