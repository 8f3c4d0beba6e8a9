// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package directory implements the campdir resources: bootcamps, their
courses and reviews, and the users who own them.

The services in this package compose the structured list query, the
ownership policy and the store into the six CRUD operations per resource,
including the derived average cost and rating on bootcamps.
*/
package directory

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/apierr"
)

// Bootcamp is a training-program listing, the root resource owned by a
// publisher.
type Bootcamp struct {
	ID            uuid.UUID `json:"id"`
	User          uuid.UUID `json:"user"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Website       string    `json:"website,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	Careers       []string  `json:"careers"`
	Housing       bool      `json:"housing"`
	JobAssistance bool      `json:"jobAssistance"`
	JobGuarantee  bool      `json:"jobGuarantee"`
	AcceptGi      bool      `json:"acceptGi"`
	Photo         string    `json:"photo,omitempty"`
	// AverageCost is derived from the tuitions of the bootcamp's courses,
	// rounded up to the nearest multiple of 10. Nil when there are no courses.
	AverageCost *float64 `json:"averageCost,omitempty"`
	// AverageRating is derived from the bootcamp's reviews. Nil when there
	// are no reviews.
	AverageRating *float64  `json:"averageRating,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	// Courses is only populated on expanded reads
	Courses []Course `json:"courses,omitempty"`
}

// SkillLevel is the minimum skill required for a course.
type SkillLevel string

// the supported skill levels
const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Course is a single course offered by a bootcamp.
type Course struct {
	ID                   uuid.UUID  `json:"id"`
	User                 uuid.UUID  `json:"user"`
	Bootcamp             uuid.UUID  `json:"bootcamp"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Weeks                string     `json:"weeks"`
	Tuition              float64    `json:"tuition"`
	MinimumSkill         SkillLevel `json:"minimumSkill"`
	ScholarshipAvailable bool       `json:"scholarshipAvailable"`
	CreatedAt            time.Time  `json:"createdAt"`
	// BootcampInfo is only populated on expanded reads
	BootcampInfo *BootcampInfo `json:"bootcampInfo,omitempty"`
}

// BootcampInfo is the restricted bootcamp subset included when a course or
// review read expands its parent.
type BootcampInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Review is a user review of a bootcamp. A user can review every bootcamp
// at most once.
type Review struct {
	ID        uuid.UUID `json:"id"`
	User      uuid.UUID `json:"user"`
	Bootcamp  uuid.UUID `json:"bootcamp"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	// BootcampInfo is only populated on expanded reads
	BootcampInfo *BootcampInfo `json:"bootcampInfo,omitempty"`
}

// User is an account. The password hash and the reset token never leave
// the service.
type User struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      access.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`

	PasswordHash        string    `json:"-"`
	ResetPasswordToken  string    `json:"-"`
	ResetPasswordExpire time.Time `json:"-"`
}

// the career tracks a bootcamp can teach
var validCareers = map[string]bool{
	"Web Development":    true,
	"Mobile Development": true,
	"UI/UX":              true,
	"Data Science":       true,
	"Business":           true,
	"Other":              true,
}

var emailRegexp = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)

// Validate checks the field constraints of a bootcamp, for create and for
// re-validation after a partial update.
func (b *Bootcamp) Validate() error {
	if b.Name == "" {
		return apierr.New(apierr.BadRequest, "please add a name")
	}
	if len(b.Name) > 50 {
		return apierr.New(apierr.BadRequest, "name can not be more than 50 characters")
	}
	if b.Description == "" {
		return apierr.New(apierr.BadRequest, "please add a description")
	}
	if len(b.Description) > 500 {
		return apierr.New(apierr.BadRequest, "description can not be more than 500 characters")
	}
	if len(b.Phone) > 20 {
		return apierr.New(apierr.BadRequest, "phone number can not be longer than 20 characters")
	}
	if b.Email != "" && !emailRegexp.MatchString(b.Email) {
		return apierr.New(apierr.BadRequest, "please add a valid email")
	}
	for _, career := range b.Careers {
		if !validCareers[career] {
			return apierr.New(apierr.BadRequest, "'%s' is not a valid career", career)
		}
	}
	return nil
}

// Validate checks the field constraints of a course.
func (c *Course) Validate() error {
	if c.Title == "" {
		return apierr.New(apierr.BadRequest, "please add a course title")
	}
	if len(c.Title) > 100 {
		return apierr.New(apierr.BadRequest, "title can not be more than 100 characters")
	}
	if c.Description == "" {
		return apierr.New(apierr.BadRequest, "please add a description")
	}
	if c.Weeks == "" {
		return apierr.New(apierr.BadRequest, "please add number of weeks")
	}
	if c.Tuition < 0 {
		return apierr.New(apierr.BadRequest, "tuition can not be negative")
	}
	switch c.MinimumSkill {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
	default:
		return apierr.New(apierr.BadRequest, "please add a minimum skill of beginner, intermediate or advanced")
	}
	return nil
}

// Validate checks the field constraints of a review.
func (r *Review) Validate() error {
	if r.Title == "" {
		return apierr.New(apierr.BadRequest, "please add a title for the review")
	}
	if len(r.Title) > 100 {
		return apierr.New(apierr.BadRequest, "title can not be more than 100 characters")
	}
	if r.Text == "" {
		return apierr.New(apierr.BadRequest, "please add some text")
	}
	if r.Rating < 1 || r.Rating > 10 {
		return apierr.New(apierr.BadRequest, "please add a rating between 1 and 10")
	}
	return nil
}

// Validate checks the field constraints of a user.
func (u *User) Validate() error {
	if u.Name == "" {
		return apierr.New(apierr.BadRequest, "please add a name")
	}
	if !emailRegexp.MatchString(u.Email) {
		return apierr.New(apierr.BadRequest, "please add a valid email")
	}
	if !access.ValidRole(u.Role) {
		return apierr.New(apierr.BadRequest, "'%s' is not a valid role", u.Role)
	}
	return nil
}

// Info returns the restricted subset of the bootcamp used for relation
// expansion on courses and reviews.
func (b *Bootcamp) Info() *BootcampInfo {
	return &BootcampInfo{ID: b.ID, Name: b.Name, Description: b.Description}
}
