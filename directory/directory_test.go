// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package directory_test

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/geocode"
	"github.com/relabs-tech/campdir/core/mail"
	"github.com/relabs-tech/campdir/directory"
	"github.com/relabs-tech/campdir/directory/memstore"
)

func publisherAuth() *access.Authorization {
	return &access.Authorization{UserID: uuid.New(), Email: "publisher@example.com", Role: access.RolePublisher}
}

func userAuth() *access.Authorization {
	return &access.Authorization{UserID: uuid.New(), Email: "user@example.com", Role: access.RoleUser}
}

func adminAuth() *access.Authorization {
	return &access.Authorization{UserID: uuid.New(), Email: "admin@example.com", Role: access.RoleAdmin}
}

type fixedGeocoder struct {
	latitude  float64
	longitude float64
	err       error
}

func (g fixedGeocoder) Geocode(ctx context.Context, address string) (geocode.Location, error) {
	if g.err != nil {
		return geocode.Location{}, g.err
	}
	return geocode.Location{Latitude: g.latitude, Longitude: g.longitude}, nil
}

func newBootcampService(store directory.Store) *directory.BootcampService {
	return directory.NewBootcampService(store, nil, nil, 0)
}

func createBootcamp(t *testing.T, s *directory.BootcampService, auth *access.Authorization, name string) *directory.Bootcamp {
	t.Helper()
	bootcamp, err := s.Create(context.Background(), auth, directory.BootcampInput{
		Name:        name,
		Description: "some description",
		Careers:     []string{"Web Development"},
	})
	require.NoError(t, err)
	return bootcamp
}

func TestBootcampCreateRoles(t *testing.T) {
	s := newBootcampService(memstore.New())
	input := directory.BootcampInput{Name: "Devworks", Description: "a description"}

	_, err := s.Create(context.Background(), nil, input)
	assert.Equal(t, apierr.Unauthorized, apierr.KindOf(err))

	_, err = s.Create(context.Background(), userAuth(), input)
	assert.Equal(t, apierr.Forbidden, apierr.KindOf(err))

	_, err = s.Create(context.Background(), publisherAuth(), input)
	assert.NoError(t, err)
}

func TestBootcampOnePerPublisher(t *testing.T) {
	s := newBootcampService(memstore.New())
	publisher := publisherAuth()

	createBootcamp(t, s, publisher, "Devworks")
	_, err := s.Create(context.Background(), publisher, directory.BootcampInput{
		Name:        "Second Camp",
		Description: "a description",
	})
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))

	// the one-per-publisher rule does not apply to admins
	admin := adminAuth()
	createBootcamp(t, s, admin, "Admin Camp One")
	createBootcamp(t, s, admin, "Admin Camp Two")
}

func TestBootcampOwnership(t *testing.T) {
	s := newBootcampService(memstore.New())
	owner := publisherAuth()
	other := publisherAuth()
	bootcamp := createBootcamp(t, s, owner, "Devworks")

	newName := "Renamed"
	patch := directory.BootcampPatch{Name: &newName}

	_, err := s.Update(context.Background(), other, bootcamp.ID, patch)
	assert.Equal(t, apierr.Forbidden, apierr.KindOf(err))
	err = s.Delete(context.Background(), other, bootcamp.ID)
	assert.Equal(t, apierr.Forbidden, apierr.KindOf(err))

	updated, err := s.Update(context.Background(), owner, bootcamp.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	// admins bypass the ownership check
	_, err = s.Update(context.Background(), adminAuth(), bootcamp.ID, patch)
	assert.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), owner, bootcamp.ID))
	_, err = s.Get(context.Background(), bootcamp.ID)
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))
}

func TestBootcampValidation(t *testing.T) {
	s := newBootcampService(memstore.New())

	_, err := s.Create(context.Background(), publisherAuth(), directory.BootcampInput{
		Name:        "Devworks",
		Description: "a description",
		Careers:     []string{"Quantum Baking"},
	})
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))

	_, err = s.Create(context.Background(), publisherAuth(), directory.BootcampInput{
		Description: "a description",
	})
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))
}

func TestBootcampGeocoding(t *testing.T) {
	store := memstore.New()
	s := directory.NewBootcampService(store, fixedGeocoder{latitude: 42.35, longitude: -71.05}, nil, 0)

	bootcamp, err := s.Create(context.Background(), publisherAuth(), directory.BootcampInput{
		Name:        "Devworks",
		Description: "a description",
		Address:     "233 Bay State Rd Boston MA 02215",
	})
	require.NoError(t, err)
	require.NotNil(t, bootcamp.Latitude)
	require.NotNil(t, bootcamp.Longitude)
	assert.Equal(t, 42.35, *bootcamp.Latitude)
	assert.Equal(t, -71.05, *bootcamp.Longitude)
}

func TestBootcampWithinRadius(t *testing.T) {
	store := memstore.New()
	s := directory.NewBootcampService(store, fixedGeocoder{latitude: 42.35, longitude: -71.05}, nil, 0)

	near := createBootcamp(t, s, publisherAuth(), "Near Camp")

	// the geocoder places every address at the search center
	withAddress := "233 Bay State Rd Boston MA 02215"
	_, err := s.Update(context.Background(), adminAuth(), near.ID, directory.BootcampPatch{Address: &withAddress})
	require.NoError(t, err)

	// no coordinates, never within any radius
	createBootcamp(t, s, publisherAuth(), "Unlocated Camp")

	result, err := s.WithinRadius(context.Background(), "02215", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Nil(t, result.Pagination)

	_, err = s.WithinRadius(context.Background(), "02215", 0)
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))

	unconfigured := newBootcampService(store)
	_, err = unconfigured.WithinRadius(context.Background(), "02215", 10)
	assert.Equal(t, apierr.InternalError, apierr.KindOf(err))

	failing := directory.NewBootcampService(store, fixedGeocoder{err: fmt.Errorf("quota exceeded")}, nil, 0)
	_, err = failing.WithinRadius(context.Background(), "02215", 10)
	assert.Equal(t, apierr.UpstreamFailure, apierr.KindOf(err))
}

func TestCourseAggregateCost(t *testing.T) {
	store := memstore.New()
	bootcamps := newBootcampService(store)
	courses := directory.NewCourseService(store)
	publisher := publisherAuth()
	bootcamp := createBootcamp(t, bootcamps, publisher, "Devworks")

	ctx := context.Background()
	first, err := courses.Create(ctx, publisher, bootcamp.ID, directory.CourseInput{
		Title: "Front End Web Development", Description: "d", Weeks: "8",
		Tuition: 950, MinimumSkill: directory.SkillBeginner,
	})
	require.NoError(t, err)
	_, err = courses.Create(ctx, publisher, bootcamp.ID, directory.CourseInput{
		Title: "Full Stack Web Development", Description: "d", Weeks: "12",
		Tuition: 1050, MinimumSkill: directory.SkillIntermediate,
	})
	require.NoError(t, err)

	// ceil(avg/10)*10: avg of 950 and 1050 is 1000
	got, err := bootcamps.Get(ctx, bootcamp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AverageCost)
	assert.Equal(t, 1000.0, *got.AverageCost)

	// updates do not recompute
	newTuition := 100.0
	_, err = courses.Update(ctx, publisher, first.ID, directory.CoursePatch{Tuition: &newTuition})
	require.NoError(t, err)
	got, err = bootcamps.Get(ctx, bootcamp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AverageCost)
	assert.Equal(t, 1000.0, *got.AverageCost)

	// deletes do: ceil(1050/10)*10 = 1050
	require.NoError(t, courses.Delete(ctx, publisher, first.ID))
	got, err = bootcamps.Get(ctx, bootcamp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AverageCost)
	assert.Equal(t, 1050.0, *got.AverageCost)

	list, err := courses.ListByBootcamp(ctx, bootcamp.ID)
	require.NoError(t, err)
	for _, object := range list.Data {
		id := object.(map[string]interface{})["id"].(string)
		require.NoError(t, courses.Delete(ctx, publisher, uuid.MustParse(id)))
	}
	got, err = bootcamps.Get(ctx, bootcamp.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AverageCost)
}

func TestCourseParentMustExist(t *testing.T) {
	store := memstore.New()
	courses := directory.NewCourseService(store)

	_, err := courses.Create(context.Background(), publisherAuth(), uuid.New(), directory.CourseInput{
		Title: "Orphan", Description: "d", Weeks: "4",
		Tuition: 100, MinimumSkill: directory.SkillBeginner,
	})
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))
}

func TestCourseExpandsBootcampInfo(t *testing.T) {
	store := memstore.New()
	bootcamps := newBootcampService(store)
	courses := directory.NewCourseService(store)
	publisher := publisherAuth()
	bootcamp := createBootcamp(t, bootcamps, publisher, "Devworks")

	course, err := courses.Create(context.Background(), publisher, bootcamp.ID, directory.CourseInput{
		Title: "Front End Web Development", Description: "d", Weeks: "8",
		Tuition: 950, MinimumSkill: directory.SkillBeginner,
	})
	require.NoError(t, err)

	got, err := courses.Get(context.Background(), course.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BootcampInfo)
	assert.Equal(t, bootcamp.ID, got.BootcampInfo.ID)
	assert.Equal(t, "Devworks", got.BootcampInfo.Name)
}

func TestReviewRolesAndConflict(t *testing.T) {
	store := memstore.New()
	bootcamps := newBootcampService(store)
	reviews := directory.NewReviewService(store)
	publisher := publisherAuth()
	bootcamp := createBootcamp(t, bootcamps, publisher, "Devworks")

	ctx := context.Background()
	input := directory.ReviewInput{Title: "Learned a lot", Text: "Great teachers", Rating: 8}

	// publishers may not review
	_, err := reviews.Create(ctx, publisher, bootcamp.ID, input)
	assert.Equal(t, apierr.Forbidden, apierr.KindOf(err))

	reviewer := userAuth()
	_, err = reviews.Create(ctx, reviewer, bootcamp.ID, input)
	require.NoError(t, err)

	// one review per user and bootcamp
	_, err = reviews.Create(ctx, reviewer, bootcamp.ID, input)
	assert.Equal(t, apierr.Conflict, apierr.KindOf(err))

	// another user may still review
	_, err = reviews.Create(ctx, userAuth(), bootcamp.ID, directory.ReviewInput{
		Title: "Solid", Text: "Would recommend", Rating: 9,
	})
	assert.NoError(t, err)
}

func TestReviewAggregateRating(t *testing.T) {
	store := memstore.New()
	bootcamps := newBootcampService(store)
	reviews := directory.NewReviewService(store)
	publisher := publisherAuth()
	bootcamp := createBootcamp(t, bootcamps, publisher, "Devworks")

	ctx := context.Background()
	first, err := reviews.Create(ctx, userAuth(), bootcamp.ID, directory.ReviewInput{
		Title: "Good", Text: "t", Rating: 7,
	})
	require.NoError(t, err)
	_, err = reviews.Create(ctx, userAuth(), bootcamp.ID, directory.ReviewInput{
		Title: "Better", Text: "t", Rating: 9,
	})
	require.NoError(t, err)

	got, err := bootcamps.Get(ctx, bootcamp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AverageRating)
	assert.Equal(t, 8.0, *got.AverageRating)

	require.NoError(t, reviews.Delete(ctx, adminAuth(), first.ID))
	got, err = bootcamps.Get(ctx, bootcamp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AverageRating)
	assert.Equal(t, 9.0, *got.AverageRating)
}

func TestReviewValidation(t *testing.T) {
	store := memstore.New()
	bootcamps := newBootcampService(store)
	reviews := directory.NewReviewService(store)
	bootcamp := createBootcamp(t, bootcamps, publisherAuth(), "Devworks")

	_, err := reviews.Create(context.Background(), userAuth(), bootcamp.ID, directory.ReviewInput{
		Title: "Too good", Text: "t", Rating: 11,
	})
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))
}

func TestBootcampDeleteCascades(t *testing.T) {
	store := memstore.New()
	bootcamps := newBootcampService(store)
	courses := directory.NewCourseService(store)
	reviews := directory.NewReviewService(store)
	publisher := publisherAuth()
	bootcamp := createBootcamp(t, bootcamps, publisher, "Devworks")

	ctx := context.Background()
	course, err := courses.Create(ctx, publisher, bootcamp.ID, directory.CourseInput{
		Title: "Front End Web Development", Description: "d", Weeks: "8",
		Tuition: 950, MinimumSkill: directory.SkillBeginner,
	})
	require.NoError(t, err)
	review, err := reviews.Create(ctx, userAuth(), bootcamp.ID, directory.ReviewInput{
		Title: "Good", Text: "t", Rating: 7,
	})
	require.NoError(t, err)

	require.NoError(t, bootcamps.Delete(ctx, publisher, bootcamp.ID))
	_, err = courses.Get(ctx, course.ID)
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))
	_, err = reviews.Get(ctx, review.ID)
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))
}

func TestBootcampListShaping(t *testing.T) {
	store := memstore.New()
	bootcamps := newBootcampService(store)
	courses := directory.NewCourseService(store)
	admin := adminAuth()

	ctx := context.Background()
	tuitions := []float64{500, 1500, 2500}
	for i, tuition := range tuitions {
		bootcamp := createBootcamp(t, bootcamps, admin, fmt.Sprintf("Camp %d", i))
		_, err := courses.Create(ctx, admin, bootcamp.ID, directory.CourseInput{
			Title: "Course", Description: "d", Weeks: "8",
			Tuition: tuition, MinimumSkill: directory.SkillBeginner,
		})
		require.NoError(t, err)
	}

	// averageCost[lte]=1500 matches 500 and ceil-rounded 1500
	result, err := bootcamps.List(ctx, url.Values{"averageCost[lte]": {"1500"}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)

	// select projects down to the named fields plus id
	result, err = bootcamps.List(ctx, url.Values{"select": {"name,averageCost"}})
	require.NoError(t, err)
	require.Equal(t, 3, result.Count)
	object := result.Data[0].(map[string]interface{})
	assert.Contains(t, object, "id")
	assert.Contains(t, object, "name")
	assert.Contains(t, object, "averageCost")
	assert.NotContains(t, object, "description")

	// sort ascending by averageCost
	result, err = bootcamps.List(ctx, url.Values{"sort": {"averageCost"}})
	require.NoError(t, err)
	require.Equal(t, 3, result.Count)
	previous := -1.0
	for _, item := range result.Data {
		cost := item.(map[string]interface{})["averageCost"].(float64)
		assert.GreaterOrEqual(t, cost, previous)
		previous = cost
	}

	// pagination envelope
	result, err = bootcamps.List(ctx, url.Values{"page": {"2"}, "limit": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	require.NotNil(t, result.Pagination)
	require.NotNil(t, result.Pagination.Next)
	require.NotNil(t, result.Pagination.Prev)
	assert.Equal(t, 3, result.Pagination.Next.Page)
	assert.Equal(t, 1, result.Pagination.Prev.Page)

	// non-positive page and limit fall back to the defaults
	result, err = bootcamps.List(ctx, url.Values{"page": {"0"}, "limit": {"-1"}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.Nil(t, result.Pagination.Next)
	assert.Nil(t, result.Pagination.Prev)

	// filtered listings count their matches, not the whole collection
	result, err = bootcamps.List(ctx, url.Values{"averageCost[lte]": {"1500"}, "limit": {"1"}})
	require.NoError(t, err)
	require.NotNil(t, result.Pagination)
	require.NotNil(t, result.Pagination.Next)
	assert.Equal(t, 2, result.Pagination.Next.Page)

	// careers filters match against the list elements
	result, err = bootcamps.List(ctx, url.Values{"careers[in]": {"Web Development,Business"}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	result, err = bootcamps.List(ctx, url.Values{"careers[in]": {"Business"}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)

	// malformed filters are rejected
	_, err = bootcamps.List(ctx, url.Values{"averageCost[gten]": {"100"}})
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))
}

type recordingMailer struct {
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(ctx context.Context, message mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, message)
	return nil
}

func registerUser(t *testing.T, s *directory.UserService, email string) *directory.User {
	t.Helper()
	user, err := s.Register(context.Background(), directory.RegisterInput{
		Name: "John Doe", Email: email, Password: "123456",
	})
	require.NoError(t, err)
	return user
}

func TestUserRegisterAndAuthenticate(t *testing.T) {
	s := directory.NewUserService(memstore.New(), mail.LogMailer{})
	ctx := context.Background()

	user := registerUser(t, s, "john@example.com")
	assert.Equal(t, access.RoleUser, user.Role)

	// duplicate email
	_, err := s.Register(ctx, directory.RegisterInput{
		Name: "John Doe", Email: "john@example.com", Password: "123456",
	})
	assert.Equal(t, apierr.Conflict, apierr.KindOf(err))

	// nobody self-registers as admin
	_, err = s.Register(ctx, directory.RegisterInput{
		Name: "Eve", Email: "eve@example.com", Password: "123456", Role: access.RoleAdmin,
	})
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))

	// password policy
	_, err = s.Register(ctx, directory.RegisterInput{
		Name: "Shorty", Email: "short@example.com", Password: "12345",
	})
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))

	authenticated, err := s.Authenticate(ctx, "john@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authenticated.ID)

	_, err = s.Authenticate(ctx, "john@example.com", "wrong")
	assert.Equal(t, apierr.Unauthorized, apierr.KindOf(err))
	_, err = s.Authenticate(ctx, "unknown@example.com", "123456")
	assert.Equal(t, apierr.Unauthorized, apierr.KindOf(err))
	_, err = s.Authenticate(ctx, "", "")
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))
}

func TestUserSelfService(t *testing.T) {
	s := directory.NewUserService(memstore.New(), mail.LogMailer{})
	ctx := context.Background()
	user := registerUser(t, s, "john@example.com")
	auth := &access.Authorization{UserID: user.ID, Email: user.Email, Role: user.Role}

	got, err := s.Get(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", got.Email)

	_, err = s.Get(ctx, nil)
	assert.Equal(t, apierr.Unauthorized, apierr.KindOf(err))

	updated, err := s.UpdateDetails(ctx, auth, directory.UserDetails{
		Name: "John Q Doe", Email: "johnq@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "John Q Doe", updated.Name)
	assert.Equal(t, "johnq@example.com", updated.Email)

	_, err = s.UpdatePassword(ctx, auth, "wrong", "654321")
	assert.Equal(t, apierr.Unauthorized, apierr.KindOf(err))
	_, err = s.UpdatePassword(ctx, auth, "123456", "654321")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "johnq@example.com", "654321")
	assert.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	mailer := &recordingMailer{}
	s := directory.NewUserService(memstore.New(), mailer)
	ctx := context.Background()
	registerUser(t, s, "john@example.com")

	err := s.ForgotPassword(ctx, "unknown@example.com", "https://example.com/api/v1/auth/resetpassword/")
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))

	require.NoError(t, s.ForgotPassword(ctx, "john@example.com", "https://example.com/api/v1/auth/resetpassword/"))
	require.Len(t, mailer.messages, 1)
	matches := regexp.MustCompile(`resetpassword/([0-9a-f]+)`).FindStringSubmatch(mailer.messages[0].Body)
	require.Len(t, matches, 2)
	token := matches[1]

	_, err = s.ResetPassword(ctx, "deadbeef", "654321")
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))

	user, err := s.ResetPassword(ctx, token, "654321")
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", user.Email)

	// the token is revoked after use
	_, err = s.ResetPassword(ctx, token, "abcdef")
	assert.Equal(t, apierr.BadRequest, apierr.KindOf(err))

	_, err = s.Authenticate(ctx, "john@example.com", "654321")
	assert.NoError(t, err)
}

func TestPasswordResetMailFailure(t *testing.T) {
	mailer := &recordingMailer{err: fmt.Errorf("smtp down")}
	s := directory.NewUserService(memstore.New(), mailer)
	ctx := context.Background()
	registerUser(t, s, "john@example.com")

	err := s.ForgotPassword(ctx, "john@example.com", "https://example.com/reset/")
	assert.Equal(t, apierr.UpstreamFailure, apierr.KindOf(err))
}

func TestAdminUserManagement(t *testing.T) {
	s := directory.NewUserService(memstore.New(), mail.LogMailer{})
	ctx := context.Background()
	admin := adminAuth()

	_, err := s.List(ctx, userAuth(), url.Values{})
	assert.Equal(t, apierr.Forbidden, apierr.KindOf(err))
	_, err = s.List(ctx, nil, url.Values{})
	assert.Equal(t, apierr.Unauthorized, apierr.KindOf(err))

	created, err := s.CreateUser(ctx, admin, directory.UserInput{
		Name: "Jane Doe", Email: "jane@example.com", Password: "123456", Role: access.RolePublisher,
	})
	require.NoError(t, err)
	assert.Equal(t, access.RolePublisher, created.Role)

	got, err := s.GetUser(ctx, admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)

	newRole := access.RoleAdmin
	updated, err := s.UpdateUser(ctx, admin, created.ID, directory.UserPatch{Role: &newRole})
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, updated.Role)

	result, err := s.List(ctx, admin, url.Values{"role": {"admin"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)

	require.NoError(t, s.DeleteUser(ctx, admin, created.ID))
	_, err = s.GetUser(ctx, admin, created.ID)
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))
}
