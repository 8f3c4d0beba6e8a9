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

// ReviewService implements the review operations.
type ReviewService struct {
	store Store
}

// NewReviewService creates the review service.
func NewReviewService(store Store) *ReviewService {
	return &ReviewService{store: store}
}

// ReviewInput is the create payload.
type ReviewInput struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// ReviewPatch is the partial update payload.
type ReviewPatch struct {
	Title  *string `json:"title"`
	Text   *string `json:"text"`
	Rating *int    `json:"rating"`
}

func (p *ReviewPatch) apply(r *Review) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Text != nil {
		r.Text = *p.Text
	}
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
}

// List returns one page of reviews, shaped by the request query, with the
// restricted parent bootcamp subset expanded.
func (s *ReviewService) List(ctx context.Context, values url.Values) (*ListResult, error) {
	q, err := query.Parse(values)
	if err != nil {
		return nil, err
	}
	items, total, err := s.store.Reviews.List(ctx, q, true)
	if err != nil {
		return nil, err
	}
	pagination := q.Pagination(total)
	return newListResult(items, q.Select, &pagination)
}

// ListByBootcamp returns all reviews of one bootcamp, unpaginated and
// unfiltered.
func (s *ReviewService) ListByBootcamp(ctx context.Context, bootcampID uuid.UUID) (*ListResult, error) {
	items, err := s.store.Reviews.ListByBootcamp(ctx, bootcampID)
	if err != nil {
		return nil, err
	}
	return newListResult(items, nil, nil)
}

// Get returns a single review with the restricted parent bootcamp subset
// expanded.
func (s *ReviewService) Get(ctx context.Context, id uuid.UUID) (*Review, error) {
	return s.store.Reviews.Get(ctx, id, true)
}

// Create adds a review to a bootcamp. The bootcamp must exist; users and
// admins may review, and every user at most once per bootcamp. The unique
// (bootcamp,user) index is the authoritative guard, a duplicate surfaces
// as Conflict. The parent's average rating is recomputed afterwards.
func (s *ReviewService) Create(ctx context.Context, auth *access.Authorization, bootcampID uuid.UUID, input ReviewInput) (*Review, error) {
	if err := auth.Authorize(uuid.Nil, access.RoleUser, access.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.store.Bootcamps.Get(ctx, bootcampID); err != nil {
		return nil, err
	}

	review := &Review{
		ID:        uuid.New(),
		User:      auth.UserID,
		Bootcamp:  bootcampID,
		Title:     input.Title,
		Text:      input.Text,
		Rating:    input.Rating,
		CreatedAt: time.Now().UTC(),
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	if err := s.store.Bootcamps.RecomputeAverageRating(ctx, bootcampID); err != nil {
		return nil, err
	}
	return review, nil
}

// Update applies a partial update to a review. Only the owner or an admin
// may update.
func (s *ReviewService) Update(ctx context.Context, auth *access.Authorization, id uuid.UUID, patch ReviewPatch) (*Review, error) {
	review, err := s.store.Reviews.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(review.User); err != nil {
		return nil, err
	}
	patch.apply(review)
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// Delete removes a review. Only the owner or an admin may delete. The
// parent's average rating is recomputed afterwards.
func (s *ReviewService) Delete(ctx context.Context, auth *access.Authorization, id uuid.UUID) error {
	review, err := s.store.Reviews.Get(ctx, id, false)
	if err != nil {
		return err
	}
	if err := auth.Authorize(review.User); err != nil {
		return err
	}
	if err := s.store.Reviews.Delete(ctx, id); err != nil {
		return err
	}
	return s.store.Bootcamps.RecomputeAverageRating(ctx, review.Bootcamp)
}
