// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package directory

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/core/blob"
	"github.com/relabs-tech/campdir/core/geocode"
	"github.com/relabs-tech/campdir/core/logger"
	"github.com/relabs-tech/campdir/core/query"
)

// BootcampService implements the bootcamp operations.
type BootcampService struct {
	store         Store
	geocoder      geocode.Geocoder
	blob          blob.Driver
	maxUploadSize int64
}

// NewBootcampService creates the bootcamp service. The geocoder and the
// blob driver are optional; without them the address stays ungeocoded and
// photo upload is unavailable.
func NewBootcampService(store Store, geocoder geocode.Geocoder, blobDriver blob.Driver, maxUploadSize int64) *BootcampService {
	return &BootcampService{store: store, geocoder: geocoder, blob: blobDriver, maxUploadSize: maxUploadSize}
}

// MaxUploadSize returns the photo upload limit in bytes.
func (s *BootcampService) MaxUploadSize() int64 {
	return s.maxUploadSize
}

// BootcampInput is the create payload.
type BootcampInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Website       string   `json:"website"`
	Phone         string   `json:"phone"`
	Email         string   `json:"email"`
	Address       string   `json:"address"`
	Careers       []string `json:"careers"`
	Housing       bool     `json:"housing"`
	JobAssistance bool     `json:"jobAssistance"`
	JobGuarantee  bool     `json:"jobGuarantee"`
	AcceptGi      bool     `json:"acceptGi"`
}

// BootcampPatch is the partial update payload. Only non-nil fields are
// applied.
type BootcampPatch struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Website       *string   `json:"website"`
	Phone         *string   `json:"phone"`
	Email         *string   `json:"email"`
	Address       *string   `json:"address"`
	Careers       *[]string `json:"careers"`
	Housing       *bool     `json:"housing"`
	JobAssistance *bool     `json:"jobAssistance"`
	JobGuarantee  *bool     `json:"jobGuarantee"`
	AcceptGi      *bool     `json:"acceptGi"`
}

func (p *BootcampPatch) apply(b *Bootcamp) (addressChanged bool) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Website != nil {
		b.Website = *p.Website
	}
	if p.Phone != nil {
		b.Phone = *p.Phone
	}
	if p.Email != nil {
		b.Email = *p.Email
	}
	if p.Address != nil && *p.Address != b.Address {
		b.Address = *p.Address
		addressChanged = true
	}
	if p.Careers != nil {
		b.Careers = *p.Careers
	}
	if p.Housing != nil {
		b.Housing = *p.Housing
	}
	if p.JobAssistance != nil {
		b.JobAssistance = *p.JobAssistance
	}
	if p.JobGuarantee != nil {
		b.JobGuarantee = *p.JobGuarantee
	}
	if p.AcceptGi != nil {
		b.AcceptGi = *p.AcceptGi
	}
	return addressChanged
}

// List returns one page of bootcamps, shaped by the request query. The
// listed bootcamps carry their courses.
func (s *BootcampService) List(ctx context.Context, values url.Values) (*ListResult, error) {
	q, err := query.Parse(values)
	if err != nil {
		return nil, err
	}
	items, total, err := s.store.Bootcamps.List(ctx, q, true)
	if err != nil {
		return nil, err
	}
	pagination := q.Pagination(total)
	return newListResult(items, q.Select, &pagination)
}

// Get returns a single bootcamp.
func (s *BootcampService) Get(ctx context.Context, id uuid.UUID) (*Bootcamp, error) {
	return s.store.Bootcamps.Get(ctx, id)
}

// Create creates a bootcamp owned by the authenticated principal. Only
// publishers and admins may create bootcamps, and a non-admin publisher can
// publish at most one.
func (s *BootcampService) Create(ctx context.Context, auth *access.Authorization, input BootcampInput) (*Bootcamp, error) {
	if err := auth.Authorize(uuid.Nil, access.RolePublisher, access.RoleAdmin); err != nil {
		return nil, err
	}

	// advisory pre-check; the one-per-publisher rule does not apply to admins
	if !auth.HasRole(access.RoleAdmin) {
		published, err := s.store.Bootcamps.GetByOwner(ctx, auth.UserID)
		if err != nil {
			return nil, err
		}
		if published != nil {
			return nil, apierr.New(apierr.BadRequest, "the user with id %s has already published a bootcamp", auth.UserID)
		}
	}

	bootcamp := &Bootcamp{
		ID:            uuid.New(),
		User:          auth.UserID,
		Name:          input.Name,
		Description:   input.Description,
		Website:       input.Website,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
		Careers:       input.Careers,
		Housing:       input.Housing,
		JobAssistance: input.JobAssistance,
		JobGuarantee:  input.JobGuarantee,
		AcceptGi:      input.AcceptGi,
		CreatedAt:     time.Now().UTC(),
	}
	if bootcamp.Careers == nil {
		bootcamp.Careers = []string{}
	}
	if err := bootcamp.Validate(); err != nil {
		return nil, err
	}
	if err := s.geocodeAddress(ctx, bootcamp); err != nil {
		return nil, err
	}
	if err := s.store.Bootcamps.Create(ctx, bootcamp); err != nil {
		return nil, err
	}
	return bootcamp, nil
}

// Update applies a partial update to a bootcamp. Only the owner or an
// admin may update.
func (s *BootcampService) Update(ctx context.Context, auth *access.Authorization, id uuid.UUID, patch BootcampPatch) (*Bootcamp, error) {
	bootcamp, err := s.store.Bootcamps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(bootcamp.User); err != nil {
		return nil, err
	}
	addressChanged := patch.apply(bootcamp)
	if err := bootcamp.Validate(); err != nil {
		return nil, err
	}
	if addressChanged {
		if err := s.geocodeAddress(ctx, bootcamp); err != nil {
			return nil, err
		}
	}
	if err := s.store.Bootcamps.Update(ctx, bootcamp); err != nil {
		return nil, err
	}
	return bootcamp, nil
}

// Delete removes a bootcamp together with its courses and reviews. Only
// the owner or an admin may delete.
func (s *BootcampService) Delete(ctx context.Context, auth *access.Authorization, id uuid.UUID) error {
	bootcamp, err := s.store.Bootcamps.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(bootcamp.User); err != nil {
		return err
	}
	return s.store.Bootcamps.Delete(ctx, id)
}

// earth radius in miles, for the radius search
const earthRadiusMiles = 3963.0

// WithinRadius returns all bootcamps within distanceMiles around the
// geocoded zipcode, unpaginated.
func (s *BootcampService) WithinRadius(ctx context.Context, zipcode string, distanceMiles float64) (*ListResult, error) {
	if s.geocoder == nil {
		return nil, apierr.New(apierr.InternalError, "geocoding is not configured")
	}
	if distanceMiles <= 0 {
		return nil, apierr.New(apierr.BadRequest, "distance must be positive")
	}
	location, err := s.geocoder.Geocode(ctx, zipcode)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFailure, err, "cannot geocode '%s'", zipcode)
	}
	items, err := s.store.Bootcamps.WithinRadius(ctx, location.Latitude, location.Longitude, distanceMiles)
	if err != nil {
		return nil, err
	}
	return newListResult(items, nil, nil)
}

// UploadPhoto stores an uploaded photo for the bootcamp and persists the
// file name on the record. Only the owner or an admin may upload.
func (s *BootcampService) UploadPhoto(ctx context.Context, auth *access.Authorization, id uuid.UUID, filename, contentType string, data []byte) (string, error) {
	bootcamp, err := s.store.Bootcamps.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := auth.Authorize(bootcamp.User); err != nil {
		return "", err
	}
	if s.blob == nil {
		return "", apierr.New(apierr.InternalError, "file upload is not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", apierr.New(apierr.BadRequest, "please upload an image file")
	}
	if s.maxUploadSize > 0 && int64(len(data)) > s.maxUploadSize {
		return "", apierr.New(apierr.BadRequest, "please upload an image less than %d bytes", s.maxUploadSize)
	}

	key := "photo_" + id.String() + filepath.Ext(filename)
	if err := s.blob.Put(ctx, key, contentType, data); err != nil {
		return "", apierr.Wrap(apierr.UpstreamFailure, err, "problem with photo upload")
	}
	if err := s.store.Bootcamps.SetPhoto(ctx, id, key); err != nil {
		return "", err
	}
	return key, nil
}

func (s *BootcampService) geocodeAddress(ctx context.Context, bootcamp *Bootcamp) error {
	if s.geocoder == nil || bootcamp.Address == "" {
		return nil
	}
	location, err := s.geocoder.Geocode(ctx, bootcamp.Address)
	if err != nil {
		// the address is optional convenience data, a failed lookup does
		// not fail the write
		logger.FromContext(ctx).WithError(err).Warnf("cannot geocode '%s'", bootcamp.Address)
		return nil
	}
	bootcamp.Latitude = &location.Latitude
	bootcamp.Longitude = &location.Longitude
	return nil
}
