// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/campdir/api"
	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/blob"
	"github.com/relabs-tech/campdir/core/geocode"
	"github.com/relabs-tech/campdir/core/mail"
	"github.com/relabs-tech/campdir/directory"
	"github.com/relabs-tech/campdir/directory/memstore"
)

type centerGeocoder struct{}

func (centerGeocoder) Geocode(ctx context.Context, address string) (geocode.Location, error) {
	return geocode.Location{Latitude: 42.35, Longitude: -71.05}, nil
}

type recordingMailer struct {
	messages []mail.Message
}

func (m *recordingMailer) Send(ctx context.Context, message mail.Message) error {
	m.messages = append(m.messages, message)
	return nil
}

type testService struct {
	api    *api.API
	client api.Client
	mailer *recordingMailer
	photos string
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	photos := t.TempDir()
	driver, err := blob.NewLocalFilesystem(photos)
	require.NoError(t, err)

	mailer := &recordingMailer{}
	a := api.MustNew(api.Builder{
		Router:      mux.NewRouter(),
		Store:       memstore.New(),
		TokenSecret: "secret",
		Geocoder:    centerGeocoder{},
		Mailer:      mailer,
		Blob:        driver,
	})
	return &testService{
		api:    a,
		client: api.NewClientWithRouter(a.Router()),
		mailer: mailer,
		photos: photos,
	}
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type itemResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
}

type listResponse struct {
	Success    bool `json:"success"`
	Count      int  `json:"count"`
	Pagination *struct {
		Next *struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
		} `json:"next"`
		Prev *struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
		} `json:"prev"`
	} `json:"pagination"`
	Data []map[string]interface{} `json:"data"`
}

// register creates an account over the api and returns a client carrying
// the account's bearer token.
func (s *testService) register(t *testing.T, name, email, password string, role access.Role) api.Client {
	t.Helper()
	var res tokenResponse
	status, err := s.client.RawPost("/auth/register", directory.RegisterInput{
		Name: name, Email: email, Password: password, Role: role,
	}, &res)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, res.Token)
	return s.client.WithToken(res.Token)
}

func (s *testService) createBootcamp(t *testing.T, client api.Client, name string) uuid.UUID {
	t.Helper()
	var res itemResponse
	status, err := client.RawPost("/bootcamps", directory.BootcampInput{
		Name:        name,
		Description: "some description",
		Address:     "233 Bay State Rd Boston MA 02215",
		Careers:     []string{"Web Development"},
	}, &res)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)
	return uuid.MustParse(res.Data["id"].(string))
}

func TestAuthenticationFlow(t *testing.T) {
	s := newTestService(t)

	publisher := s.register(t, "John Doe", "john@example.com", "123456", access.RolePublisher)

	var me itemResponse
	status, err := publisher.RawGet("/auth/me", &me)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "john@example.com", me.Data["email"])
	// the password hash never leaves the service
	assert.NotContains(t, me.Data, "passwordHash")

	// no token
	status, _ = s.client.RawGet("/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// garbage token
	status, _ = s.client.WithToken("a.b.c").RawGet("/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// login
	var login tokenResponse
	status, err = s.client.RawPost("/auth/login", map[string]string{
		"email": "john@example.com", "password": "123456",
	}, &login)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, login.Token)

	status, _ = s.client.RawPost("/auth/login", map[string]string{
		"email": "john@example.com", "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, err = publisher.RawGet("/auth/logout", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestBootcampRoutes(t *testing.T) {
	s := newTestService(t)
	publisher := s.register(t, "John Doe", "john@example.com", "123456", access.RolePublisher)
	id := s.createBootcamp(t, publisher, "Devworks")

	// everybody can read
	var item itemResponse
	status, err := s.client.RawGet("/bootcamps/"+id.String(), &item)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Devworks", item.Data["name"])
	// the geocoder resolved the address
	assert.Equal(t, 42.35, item.Data["latitude"])

	var list listResponse
	status, err = s.client.RawGet("/bootcamps", &list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, list.Count)

	// one bootcamp per publisher
	status, _ = publisher.RawPost("/bootcamps", directory.BootcampInput{
		Name: "Second", Description: "d",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// schema validation
	status, _ = publisher.RawPost("/bootcamps", map[string]string{
		"description": "no name",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// anonymous and plain users cannot create
	status, _ = s.client.RawPost("/bootcamps", directory.BootcampInput{
		Name: "Camp", Description: "d",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	user := s.register(t, "Jane", "jane@example.com", "123456", access.RoleUser)
	status, _ = user.RawPost("/bootcamps", directory.BootcampInput{
		Name: "Camp", Description: "d",
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// only the owner or an admin can update
	status, _ = user.RawPut("/bootcamps/"+id.String(), map[string]string{"name": "Taken Over"}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, err = publisher.RawPut("/bootcamps/"+id.String(), map[string]string{"name": "Renamed"}, &item)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Renamed", item.Data["name"])

	// a broken id is simply not found
	status, _ = s.client.RawGet("/bootcamps/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = s.client.RawGet("/bootcamps/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, status)

	// radius search around the geocoded zipcode
	status, err = s.client.RawGet("/bootcamps/radius/02215/10", &list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, list.Count)

	admin := s.client.WithRole(access.RoleAdmin)
	status, err = admin.RawDelete("/bootcamps/" + id.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.client.RawGet("/bootcamps/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCourseAndReviewRoutes(t *testing.T) {
	s := newTestService(t)
	publisher := s.register(t, "John Doe", "john@example.com", "123456", access.RolePublisher)
	reviewer := s.register(t, "Jane Doe", "jane@example.com", "123456", access.RoleUser)
	id := s.createBootcamp(t, publisher, "Devworks")

	// decoding merges into a non-nil map, every request gets a fresh value
	var course itemResponse
	status, err := publisher.RawPost("/bootcamps/"+id.String()+"/courses", directory.CourseInput{
		Title: "Front End Web Development", Description: "d", Weeks: "8",
		Tuition: 950, MinimumSkill: directory.SkillBeginner,
	}, &course)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)
	courseID := course.Data["id"].(string)

	// the list expands the restricted parent subset
	var list listResponse
	status, err = s.client.RawGet("/courses", &list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, list.Count)
	info := list.Data[0]["bootcampInfo"].(map[string]interface{})
	assert.Equal(t, "Devworks", info["name"])

	var nested listResponse
	status, err = s.client.RawGet("/bootcamps/"+id.String()+"/courses", &nested)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, nested.Count)
	assert.Nil(t, nested.Pagination)

	// reviews are for users, not publishers
	review := directory.ReviewInput{Title: "Learned a lot", Text: "t", Rating: 8}
	status, _ = publisher.RawPost("/bootcamps/"+id.String()+"/reviews", review, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = reviewer.RawPost("/bootcamps/"+id.String()+"/reviews", review, nil)
	assert.Equal(t, http.StatusCreated, status)
	status, _ = reviewer.RawPost("/bootcamps/"+id.String()+"/reviews", review, nil)
	assert.Equal(t, http.StatusConflict, status)

	// the aggregates follow the children
	var withChildren itemResponse
	status, err = s.client.RawGet("/bootcamps/"+id.String(), &withChildren)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 950.0, withChildren.Data["averageCost"])
	assert.Equal(t, 8.0, withChildren.Data["averageRating"])

	status, err = publisher.RawDelete("/courses/" + courseID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	var withoutCourses itemResponse
	status, err = s.client.RawGet("/bootcamps/"+id.String(), &withoutCourses)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, withoutCourses.Data, "averageCost")
	assert.Equal(t, 8.0, withoutCourses.Data["averageRating"])
}

func TestListShapingOverHTTP(t *testing.T) {
	s := newTestService(t)
	admin := s.client.WithRole(access.RoleAdmin)
	for _, name := range []string{"Alpha Camp", "Beta Camp", "Gamma Camp"} {
		s.createBootcamp(t, admin, name)
	}

	var list listResponse
	status, err := s.client.RawGet("/bootcamps?sort=name&select=name&page=2&limit=1", &list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Beta Camp", list.Data[0]["name"])
	assert.NotContains(t, list.Data[0], "description")
	require.NotNil(t, list.Pagination)
	require.NotNil(t, list.Pagination.Next)
	require.NotNil(t, list.Pagination.Prev)
	assert.Equal(t, 3, list.Pagination.Next.Page)
	assert.Equal(t, 1, list.Pagination.Prev.Page)

	status, _ = s.client.RawGet("/bootcamps?name[gten]=x", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPhotoUpload(t *testing.T) {
	s := newTestService(t)
	publisher := s.register(t, "John Doe", "john@example.com", "123456", access.RolePublisher)
	id := s.createBootcamp(t, publisher, "Devworks")

	photo := []byte{0xff, 0xd8, 0xff, 0xe0}
	status, _ := s.client.RawPutBlob("/bootcamps/"+id.String()+"/photo", "camp.jpg", "image/jpeg", photo, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = publisher.RawPutBlob("/bootcamps/"+id.String()+"/photo", "camp.txt", "text/plain", photo, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var res struct {
		Success bool   `json:"success"`
		Data    string `json:"data"`
	}
	status, err := publisher.RawPutBlob("/bootcamps/"+id.String()+"/photo", "camp.jpg", "image/jpeg", photo, &res)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "photo_"+id.String()+".jpg", res.Data)

	stored, err := os.ReadFile(filepath.Join(s.photos, res.Data))
	require.NoError(t, err)
	assert.Equal(t, photo, stored)

	var item itemResponse
	status, err = s.client.RawGet("/bootcamps/"+id.String(), &item)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, res.Data, item.Data["photo"])
}

func TestPasswordResetOverHTTP(t *testing.T) {
	s := newTestService(t)
	s.register(t, "John Doe", "john@example.com", "123456", access.RoleUser)

	status, err := s.client.RawPost("/auth/forgotpassword", map[string]string{
		"email": "john@example.com",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, s.mailer.messages, 1)

	matches := regexp.MustCompile(`resetpassword/([0-9a-f]+)`).FindStringSubmatch(s.mailer.messages[0].Body)
	require.Len(t, matches, 2)

	var res tokenResponse
	status, err = s.client.RawPut("/auth/resetpassword/"+matches[1], map[string]string{
		"password": "654321",
	}, &res)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, res.Token)

	status, err = s.client.RawPost("/auth/login", map[string]string{
		"email": "john@example.com", "password": "654321",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminUserRoutes(t *testing.T) {
	s := newTestService(t)
	user := s.register(t, "Jane Doe", "jane@example.com", "123456", access.RoleUser)
	admin := s.client.WithRole(access.RoleAdmin)

	status, _ := user.RawGet("/users", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.client.RawGet("/users", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	var item itemResponse
	status, err := admin.RawPost("/users", directory.UserInput{
		Name: "John Doe", Email: "john@example.com", Password: "123456", Role: access.RolePublisher,
	}, &item)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)
	id := item.Data["id"].(string)
	assert.Equal(t, "publisher", item.Data["role"])

	var list listResponse
	status, err = admin.RawGet("/users?role=publisher", &list)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, list.Count)

	status, err = admin.RawPut("/users/"+id, map[string]string{"name": "John Q Doe"}, &item)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "John Q Doe", item.Data["name"])

	status, err = admin.RawDelete("/users/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	status, _ = admin.RawGet("/users/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
