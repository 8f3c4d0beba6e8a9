// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package memstore provides an in-memory directory store. It mirrors the
semantics of the postgres store, including the list query shaping, the
unique constraints and the derived aggregates, and backs the unit tests
of the services and the api.
*/
package memstore

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/query"
	"github.com/relabs-tech/campdir/directory"
)

type state struct {
	mutex     sync.RWMutex
	bootcamps map[uuid.UUID]*directory.Bootcamp
	courses   map[uuid.UUID]*directory.Course
	reviews   map[uuid.UUID]*directory.Review
	users     map[uuid.UUID]*directory.User
}

// New creates an empty in-memory store.
func New() directory.Store {
	s := &state{
		bootcamps: make(map[uuid.UUID]*directory.Bootcamp),
		courses:   make(map[uuid.UUID]*directory.Course),
		reviews:   make(map[uuid.UUID]*directory.Review),
		users:     make(map[uuid.UUID]*directory.User),
	}
	return directory.Store{
		Bootcamps: &bootcampStore{s},
		Courses:   &courseStore{s},
		Reviews:   &reviewStore{s},
		Users:     &userStore{s},
	}
}

// fields evaluates one object as map of json field names, for filtering
// and sorting.
func fields(object interface{}) map[string]interface{} {
	data, _ := json.Marshal(object)
	var m map[string]interface{}
	_ = json.Unmarshal(data, &m)
	return m
}

// compareValues compares a field value against a filter string. Both are
// compared numerically when they both parse as numbers, otherwise as
// strings. The result follows strings.Compare.
func compareValues(field interface{}, filter string) int {
	switch v := field.(type) {
	case float64:
		if f, err := strconv.ParseFloat(filter, 64); err == nil {
			switch {
			case v < f:
				return -1
			case v > f:
				return 1
			}
			return 0
		}
	case bool:
		if b, err := strconv.ParseBool(filter); err == nil && v == b {
			return 0
		}
		return 1
	case string:
		return strings.Compare(v, filter)
	}
	data, _ := json.Marshal(field)
	return strings.Compare(strings.Trim(string(data), `"`), filter)
}

// matchOne evaluates one condition against a scalar field value.
func matchOne(field interface{}, c query.Condition) bool {
	switch c.Op {
	case query.OpEq:
		return compareValues(field, c.Value) == 0
	case query.OpGt:
		return compareValues(field, c.Value) > 0
	case query.OpGte:
		return compareValues(field, c.Value) >= 0
	case query.OpLt:
		return compareValues(field, c.Value) < 0
	case query.OpLte:
		return compareValues(field, c.Value) <= 0
	case query.OpIn:
		for _, v := range c.Values {
			if compareValues(field, v) == 0 {
				return true
			}
		}
	}
	return false
}

// match evaluates one condition against an object. Array fields match when
// any element matches, like the careers list.
func match(m map[string]interface{}, c query.Condition) bool {
	field, ok := m[c.Field]
	if !ok || field == nil {
		return false
	}
	if elements, isArray := field.([]interface{}); isArray {
		for _, element := range elements {
			if matchOne(element, c) {
				return true
			}
		}
		return false
	}
	return matchOne(field, c)
}

func matchAll(object interface{}, conditions []query.Condition) bool {
	if len(conditions) == 0 {
		return true
	}
	m := fields(object)
	for _, c := range conditions {
		if !match(m, c) {
			return false
		}
	}
	return true
}

// sortObjects orders objects by the requested sort keys, with createdAt
// descending as the final tie breaker.
func sortObjects(objects []interface{}, keys []query.SortKey) {
	keys = append(keys, query.SortKey{Field: "createdAt", Descending: true})
	sort.SliceStable(objects, func(i, j int) bool {
		mi, mj := fields(objects[i]), fields(objects[j])
		for _, key := range keys {
			cmp := compareFields(mi[key.Field], mj[key.Field])
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareFields orders two field values, numerically when both are
// numbers, otherwise by their serialized representation.
func compareFields(vi, vj interface{}) int {
	if fi, oki := vi.(float64); oki {
		if fj, okj := vj.(float64); okj {
			switch {
			case fi < fj:
				return -1
			case fi > fj:
				return 1
			}
			return 0
		}
	}
	datai, _ := json.Marshal(vi)
	dataj, _ := json.Marshal(vj)
	return strings.Compare(string(datai), string(dataj))
}

// window cuts one page out of the ordered result.
func window(q query.ListQuery, length int) (int, int) {
	start, end := q.Window()
	if start > length {
		start = length
	}
	if end > length {
		end = length
	}
	return start, end
}

type bootcampStore struct{ *state }
type courseStore struct{ *state }
type reviewStore struct{ *state }
type userStore struct{ *state }

func cloneBootcamp(b *directory.Bootcamp) *directory.Bootcamp {
	clone := *b
	clone.Careers = append([]string(nil), b.Careers...)
	clone.Courses = nil
	return &clone
}

func (s *bootcampStore) coursesOf(bootcampID uuid.UUID) []directory.Course {
	var courses []directory.Course
	for _, course := range s.courses {
		if course.Bootcamp == bootcampID {
			courses = append(courses, *course)
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		return courses[i].CreatedAt.After(courses[j].CreatedAt)
	})
	return courses
}

func (s *bootcampStore) List(ctx context.Context, q query.ListQuery, withCourses bool) ([]directory.Bootcamp, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var objects []interface{}
	for _, bootcamp := range s.bootcamps {
		if matchAll(bootcamp, q.Filters) {
			objects = append(objects, cloneBootcamp(bootcamp))
		}
	}
	total := len(objects)
	sortObjects(objects, q.Sort)
	start, end := window(q, total)

	result := []directory.Bootcamp{}
	for _, object := range objects[start:end] {
		bootcamp := object.(*directory.Bootcamp)
		if withCourses {
			bootcamp.Courses = s.coursesOf(bootcamp.ID)
		}
		result = append(result, *bootcamp)
	}
	return result, total, nil
}

func (s *bootcampStore) Get(ctx context.Context, id uuid.UUID) (*directory.Bootcamp, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	bootcamp, ok := s.bootcamps[id]
	if !ok {
		return nil, apierr.New(apierr.NotFound, "bootcamp not found with id of %s", id)
	}
	return cloneBootcamp(bootcamp), nil
}

func (s *bootcampStore) GetByOwner(ctx context.Context, userID uuid.UUID) (*directory.Bootcamp, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, bootcamp := range s.bootcamps {
		if bootcamp.User == userID {
			return cloneBootcamp(bootcamp), nil
		}
	}
	return nil, nil
}

func (s *bootcampStore) WithinRadius(ctx context.Context, latitude, longitude, distanceMiles float64) ([]directory.Bootcamp, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	const earthRadiusMiles = 3963.0
	result := []directory.Bootcamp{}
	for _, bootcamp := range s.bootcamps {
		if bootcamp.Latitude == nil || bootcamp.Longitude == nil {
			continue
		}
		if haversineMiles(latitude, longitude, *bootcamp.Latitude, *bootcamp.Longitude, earthRadiusMiles) <= distanceMiles {
			result = append(result, *cloneBootcamp(bootcamp))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func haversineMiles(lat1, lon1, lat2, lon2, radius float64) float64 {
	toRadians := func(degrees float64) float64 { return degrees * math.Pi / 180 }
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * radius * math.Asin(math.Sqrt(a))
}

func (s *bootcampStore) Create(ctx context.Context, bootcamp *directory.Bootcamp) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.bootcamps[bootcamp.ID] = cloneBootcamp(bootcamp)
	return nil
}

func (s *bootcampStore) Update(ctx context.Context, bootcamp *directory.Bootcamp) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.bootcamps[bootcamp.ID]; !ok {
		return apierr.New(apierr.NotFound, "bootcamp not found with id of %s", bootcamp.ID)
	}
	s.bootcamps[bootcamp.ID] = cloneBootcamp(bootcamp)
	return nil
}

func (s *bootcampStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.bootcamps[id]; !ok {
		return apierr.New(apierr.NotFound, "bootcamp not found with id of %s", id)
	}
	delete(s.bootcamps, id)
	// children are removed with their bootcamp
	for courseID, course := range s.courses {
		if course.Bootcamp == id {
			delete(s.courses, courseID)
		}
	}
	for reviewID, review := range s.reviews {
		if review.Bootcamp == id {
			delete(s.reviews, reviewID)
		}
	}
	return nil
}

func (s *bootcampStore) SetPhoto(ctx context.Context, id uuid.UUID, filename string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	bootcamp, ok := s.bootcamps[id]
	if !ok {
		return apierr.New(apierr.NotFound, "bootcamp not found with id of %s", id)
	}
	bootcamp.Photo = filename
	return nil
}

func (s *bootcampStore) RecomputeAverageCost(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	bootcamp, ok := s.bootcamps[id]
	if !ok {
		return apierr.New(apierr.NotFound, "bootcamp not found with id of %s", id)
	}
	sum, count := 0.0, 0
	for _, course := range s.courses {
		if course.Bootcamp == id {
			sum += course.Tuition
			count++
		}
	}
	if count == 0 {
		bootcamp.AverageCost = nil
		return nil
	}
	average := math.Ceil(sum/float64(count)/10) * 10
	bootcamp.AverageCost = &average
	return nil
}

func (s *bootcampStore) RecomputeAverageRating(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	bootcamp, ok := s.bootcamps[id]
	if !ok {
		return apierr.New(apierr.NotFound, "bootcamp not found with id of %s", id)
	}
	sum, count := 0.0, 0
	for _, review := range s.reviews {
		if review.Bootcamp == id {
			sum += float64(review.Rating)
			count++
		}
	}
	if count == 0 {
		bootcamp.AverageRating = nil
		return nil
	}
	average := sum / float64(count)
	bootcamp.AverageRating = &average
	return nil
}

func (s *courseStore) info(bootcampID uuid.UUID) *directory.BootcampInfo {
	if bootcamp, ok := s.bootcamps[bootcampID]; ok {
		return bootcamp.Info()
	}
	return nil
}

func (s *courseStore) List(ctx context.Context, q query.ListQuery, withBootcampInfo bool) ([]directory.Course, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var objects []interface{}
	for _, course := range s.courses {
		clone := *course
		if matchAll(&clone, q.Filters) {
			objects = append(objects, &clone)
		}
	}
	total := len(objects)
	sortObjects(objects, q.Sort)
	start, end := window(q, total)

	result := []directory.Course{}
	for _, object := range objects[start:end] {
		course := object.(*directory.Course)
		if withBootcampInfo {
			course.BootcampInfo = s.info(course.Bootcamp)
		}
		result = append(result, *course)
	}
	return result, total, nil
}

func (s *courseStore) ListByBootcamp(ctx context.Context, bootcampID uuid.UUID) ([]directory.Course, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := []directory.Course{}
	for _, course := range s.courses {
		if course.Bootcamp == bootcampID {
			result = append(result, *course)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *courseStore) Get(ctx context.Context, id uuid.UUID, withBootcampInfo bool) (*directory.Course, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	course, ok := s.courses[id]
	if !ok {
		return nil, apierr.New(apierr.NotFound, "course not found with id of %s", id)
	}
	clone := *course
	if withBootcampInfo {
		clone.BootcampInfo = s.info(clone.Bootcamp)
	}
	return &clone, nil
}

func (s *courseStore) Create(ctx context.Context, course *directory.Course) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	clone := *course
	clone.BootcampInfo = nil
	s.courses[course.ID] = &clone
	return nil
}

func (s *courseStore) Update(ctx context.Context, course *directory.Course) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.courses[course.ID]; !ok {
		return apierr.New(apierr.NotFound, "course not found with id of %s", course.ID)
	}
	clone := *course
	clone.BootcampInfo = nil
	s.courses[course.ID] = &clone
	return nil
}

func (s *courseStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.courses[id]; !ok {
		return apierr.New(apierr.NotFound, "course not found with id of %s", id)
	}
	delete(s.courses, id)
	return nil
}

func (s *reviewStore) info(bootcampID uuid.UUID) *directory.BootcampInfo {
	if bootcamp, ok := s.bootcamps[bootcampID]; ok {
		return bootcamp.Info()
	}
	return nil
}

func (s *reviewStore) List(ctx context.Context, q query.ListQuery, withBootcampInfo bool) ([]directory.Review, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var objects []interface{}
	for _, review := range s.reviews {
		clone := *review
		if matchAll(&clone, q.Filters) {
			objects = append(objects, &clone)
		}
	}
	total := len(objects)
	sortObjects(objects, q.Sort)
	start, end := window(q, total)

	result := []directory.Review{}
	for _, object := range objects[start:end] {
		review := object.(*directory.Review)
		if withBootcampInfo {
			review.BootcampInfo = s.info(review.Bootcamp)
		}
		result = append(result, *review)
	}
	return result, total, nil
}

func (s *reviewStore) ListByBootcamp(ctx context.Context, bootcampID uuid.UUID) ([]directory.Review, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := []directory.Review{}
	for _, review := range s.reviews {
		if review.Bootcamp == bootcampID {
			result = append(result, *review)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *reviewStore) Get(ctx context.Context, id uuid.UUID, withBootcampInfo bool) (*directory.Review, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	review, ok := s.reviews[id]
	if !ok {
		return nil, apierr.New(apierr.NotFound, "review not found with id of %s", id)
	}
	clone := *review
	if withBootcampInfo {
		clone.BootcampInfo = s.info(clone.Bootcamp)
	}
	return &clone, nil
}

func (s *reviewStore) Create(ctx context.Context, review *directory.Review) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, existing := range s.reviews {
		if existing.Bootcamp == review.Bootcamp && existing.User == review.User {
			return apierr.New(apierr.Conflict, "user %s has already reviewed bootcamp %s", review.User, review.Bootcamp)
		}
	}
	clone := *review
	clone.BootcampInfo = nil
	s.reviews[review.ID] = &clone
	return nil
}

func (s *reviewStore) Update(ctx context.Context, review *directory.Review) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.reviews[review.ID]; !ok {
		return apierr.New(apierr.NotFound, "review not found with id of %s", review.ID)
	}
	clone := *review
	clone.BootcampInfo = nil
	s.reviews[review.ID] = &clone
	return nil
}

func (s *reviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return apierr.New(apierr.NotFound, "review not found with id of %s", id)
	}
	delete(s.reviews, id)
	return nil
}

func (s *userStore) List(ctx context.Context, q query.ListQuery) ([]directory.User, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var objects []interface{}
	for _, user := range s.users {
		clone := *user
		if matchAll(&clone, q.Filters) {
			objects = append(objects, &clone)
		}
	}
	total := len(objects)
	sortObjects(objects, q.Sort)
	start, end := window(q, total)

	result := []directory.User{}
	for _, object := range objects[start:end] {
		result = append(result, *object.(*directory.User))
	}
	return result, total, nil
}

func (s *userStore) Get(ctx context.Context, id uuid.UUID) (*directory.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apierr.New(apierr.NotFound, "user not found with id of %s", id)
	}
	clone := *user
	return &clone, nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*directory.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *userStore) GetByResetToken(ctx context.Context, digest string) (*directory.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, user := range s.users {
		if user.ResetPasswordToken == digest && user.ResetPasswordExpire.After(time.Now()) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *userStore) Create(ctx context.Context, user *directory.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return apierr.New(apierr.Conflict, "email %s is already registered", user.Email)
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *userStore) Update(ctx context.Context, user *directory.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return apierr.New(apierr.NotFound, "user not found with id of %s", user.ID)
	}
	for _, other := range s.users {
		if other.ID != user.ID && other.Email == user.Email {
			return apierr.New(apierr.Conflict, "email %s is already registered", user.Email)
		}
	}
	clone := *user
	clone.PasswordHash = existing.PasswordHash
	clone.ResetPasswordToken = existing.ResetPasswordToken
	clone.ResetPasswordExpire = existing.ResetPasswordExpire
	s.users[user.ID] = &clone
	return nil
}

func (s *userStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.users[id]; !ok {
		return apierr.New(apierr.NotFound, "user not found with id of %s", id)
	}
	delete(s.users, id)
	return nil
}

func (s *userStore) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	user, ok := s.users[id]
	if !ok {
		return apierr.New(apierr.NotFound, "user not found with id of %s", id)
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *userStore) SetResetToken(ctx context.Context, id uuid.UUID, digest string, expire time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	user, ok := s.users[id]
	if !ok {
		return apierr.New(apierr.NotFound, "user not found with id of %s", id)
	}
	user.ResetPasswordToken = digest
	user.ResetPasswordExpire = expire
	return nil
}

func (s *userStore) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	user, ok := s.users[id]
	if !ok {
		return apierr.New(apierr.NotFound, "user not found with id of %s", id)
	}
	user.ResetPasswordToken = ""
	user.ResetPasswordExpire = time.Time{}
	return nil
}
