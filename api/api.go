// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package api provides the campdir REST interface.

The api mounts the bootcamp, course, review, auth and user routes under
/api/v1 on a gorilla mux router. Authentication is a JWT bearer token,
also accepted as token cookie. Create payloads are validated against the
embedded JSON schemas before they reach the services.
*/
package api

import (
	"embed"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/blob"
	"github.com/relabs-tech/campdir/core/geocode"
	"github.com/relabs-tech/campdir/core/logger"
	"github.com/relabs-tech/campdir/core/mail"
	"github.com/relabs-tech/campdir/core/schema"
	"github.com/relabs-tech/campdir/directory"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Prefix is the path prefix all routes are mounted under.
const Prefix = "/api/v1"

// the upload limit for bootcamp photos
const defaultMaxUploadSize = 1000000

// Builder is the configuration of the api.
type Builder struct {
	// Router is the mux router the routes are added to. Required.
	Router *mux.Router
	// Store is the directory store. Required.
	Store directory.Store
	// TokenSecret signs the JWT tokens. Required.
	TokenSecret string
	// TokenExpiry is the lifetime of issued tokens. Default is 30 days.
	TokenExpiry time.Duration
	// Geocoder resolves bootcamp addresses and zipcodes. Optional.
	Geocoder geocode.Geocoder
	// Mailer sends the password reset mails. Default logs the mail.
	Mailer mail.Mailer
	// Blob stores uploaded bootcamp photos. Optional.
	Blob blob.Driver
	// MaxUploadSize caps photo uploads in bytes. Default is 1000000.
	MaxUploadSize int64
}

// API is the campdir REST interface.
type API struct {
	router    *mux.Router
	bootcamps *directory.BootcampService
	courses   *directory.CourseService
	reviews   *directory.ReviewService
	users     *directory.UserService
	issuer    *access.TokenIssuer
	cache     *access.AuthorizationCache
	validator *schema.Validator
}

// New realizes the api from the builder configuration.
func New(b Builder) (*API, error) {
	if b.Router == nil {
		return nil, apierr.New(apierr.InternalError, "missing router")
	}
	if b.TokenSecret == "" {
		return nil, apierr.New(apierr.InternalError, "missing token secret")
	}
	if b.TokenExpiry == 0 {
		b.TokenExpiry = 30 * 24 * time.Hour
	}
	if b.Mailer == nil {
		b.Mailer = mail.LogMailer{}
	}
	if b.MaxUploadSize == 0 {
		b.MaxUploadSize = defaultMaxUploadSize
	}

	schemas, err := fs.Sub(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}
	validator, err := schema.NewValidatorFromFS(schemas)
	if err != nil {
		return nil, err
	}

	a := &API{
		router:    b.Router,
		bootcamps: directory.NewBootcampService(b.Store, b.Geocoder, b.Blob, b.MaxUploadSize),
		courses:   directory.NewCourseService(b.Store),
		reviews:   directory.NewReviewService(b.Store),
		users:     directory.NewUserService(b.Store, b.Mailer),
		issuer:    access.NewTokenIssuer(b.TokenSecret, b.TokenExpiry),
		cache:     access.NewAuthorizationCache(),
		validator: validator,
	}

	logger.AddRequestID(a.router)
	a.handleCORS()
	a.router.Use(access.NewJwtMiddleware(a.issuer, a.cache, a.principalLookup(b.Store.Users)))
	a.handleRoutes()
	return a, nil
}

// MustNew realizes the api from the builder configuration. Panics on error.
func MustNew(b Builder) *API {
	a, err := New(b)
	if err != nil {
		panic(err)
	}
	return a
}

// Router returns the mux router the api is mounted on.
func (a *API) Router() *mux.Router {
	return a.router
}

// principalLookup resolves a token user id to an authorization, through
// the in-memory cache.
func (a *API) principalLookup(users directory.UserStore) access.PrincipalLookup {
	return func(r *http.Request, userID uuid.UUID) (*access.Authorization, error) {
		user, err := users.Get(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return &access.Authorization{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
	}
}

func (a *API) handleCORS() {
	corsMiddleware := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Set CORS headers for all requests
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, If-None-Match, Access-Control-Allow-Origin")
			w.Header().Set("Access-Control-Expose-Headers", "*")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions {
				logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method, " (handled by CORS middleware)")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.ServeHTTP(w, r)
		})
	}
	a.router.Use(corsMiddleware)
}

func (a *API) handleRoutes() {
	logger.Default().Debugln("create campdir routes")
	r := a.router.PathPrefix(Prefix).Subrouter()

	r.HandleFunc("/bootcamps", a.bootcampsList).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/bootcamps", a.bootcampsCreate).Methods(http.MethodOptions, http.MethodPost)
	r.HandleFunc("/bootcamps/radius/{zipcode}/{distance}", a.bootcampsWithinRadius).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/bootcamps/{bootcamp_id}", a.bootcampsGet).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/bootcamps/{bootcamp_id}", a.bootcampsUpdate).Methods(http.MethodOptions, http.MethodPut)
	r.HandleFunc("/bootcamps/{bootcamp_id}", a.bootcampsDelete).Methods(http.MethodOptions, http.MethodDelete)
	r.HandleFunc("/bootcamps/{bootcamp_id}/photo", a.bootcampsUploadPhoto).Methods(http.MethodOptions, http.MethodPut)

	r.HandleFunc("/bootcamps/{bootcamp_id}/courses", a.coursesListByBootcamp).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/bootcamps/{bootcamp_id}/courses", a.coursesCreate).Methods(http.MethodOptions, http.MethodPost)
	r.HandleFunc("/courses", a.coursesList).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/courses/{course_id}", a.coursesGet).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/courses/{course_id}", a.coursesUpdate).Methods(http.MethodOptions, http.MethodPut)
	r.HandleFunc("/courses/{course_id}", a.coursesDelete).Methods(http.MethodOptions, http.MethodDelete)

	r.HandleFunc("/bootcamps/{bootcamp_id}/reviews", a.reviewsListByBootcamp).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/bootcamps/{bootcamp_id}/reviews", a.reviewsCreate).Methods(http.MethodOptions, http.MethodPost)
	r.HandleFunc("/reviews", a.reviewsList).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/reviews/{review_id}", a.reviewsGet).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/reviews/{review_id}", a.reviewsUpdate).Methods(http.MethodOptions, http.MethodPut)
	r.HandleFunc("/reviews/{review_id}", a.reviewsDelete).Methods(http.MethodOptions, http.MethodDelete)

	r.HandleFunc("/auth/register", a.authRegister).Methods(http.MethodOptions, http.MethodPost)
	r.HandleFunc("/auth/login", a.authLogin).Methods(http.MethodOptions, http.MethodPost)
	r.HandleFunc("/auth/logout", a.authLogout).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/auth/me", a.authMe).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/auth/updatedetails", a.authUpdateDetails).Methods(http.MethodOptions, http.MethodPut)
	r.HandleFunc("/auth/updatepassword", a.authUpdatePassword).Methods(http.MethodOptions, http.MethodPut)
	r.HandleFunc("/auth/forgotpassword", a.authForgotPassword).Methods(http.MethodOptions, http.MethodPost)
	r.HandleFunc("/auth/resetpassword/{resettoken}", a.authResetPassword).Methods(http.MethodOptions, http.MethodPut)

	r.HandleFunc("/users", a.usersList).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/users", a.usersCreate).Methods(http.MethodOptions, http.MethodPost)
	r.HandleFunc("/users/{user_id}", a.usersGet).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc("/users/{user_id}", a.usersUpdate).Methods(http.MethodOptions, http.MethodPut)
	r.HandleFunc("/users/{user_id}", a.usersDelete).Methods(http.MethodOptions, http.MethodDelete)
}

// pathID reads a uuid path variable. An id which is no valid uuid cannot
// address any resource.
func pathID(r *http.Request, key string) (uuid.UUID, error) {
	params := mux.Vars(r)
	id, err := uuid.Parse(params[key])
	if err != nil {
		return uuid.Nil, apierr.New(apierr.NotFound, "resource not found with id of %s", params[key])
	}
	return id, nil
}

// readBody reads the request body and unmarshals it. When schemaID is set
// the payload is validated against the embedded schema first.
func (a *API) readBody(r *http.Request, schemaID string, into interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apierr.Wrap(apierr.BadRequest, err, "cannot read request body")
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if schemaID != "" {
		if err := a.validator.ValidateBytes(body, schemaID); err != nil {
			return apierr.Wrap(apierr.BadRequest, err, "invalid request body")
		}
	}
	if err := json.Unmarshal(body, into); err != nil {
		return apierr.Wrap(apierr.BadRequest, err, "invalid request body")
	}
	return nil
}
