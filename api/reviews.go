// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"net/http"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/directory"
)

func (a *API) reviewsList(w http.ResponseWriter, r *http.Request) {
	result, err := a.reviews.List(r.Context(), r.URL.Query())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, result)
}

func (a *API) reviewsListByBootcamp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bootcamp_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	result, err := a.reviews.ListByBootcamp(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, result)
}

func (a *API) reviewsGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "review_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	review, err := a.reviews.Get(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, review)
}

func (a *API) reviewsCreate(w http.ResponseWriter, r *http.Request) {
	bootcampID, err := pathID(r, "bootcamp_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	var input directory.ReviewInput
	if err := a.readBody(r, "campdir:review", &input); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	review, err := a.reviews.Create(r.Context(), auth, bootcampID, input)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusCreated, review)
}

func (a *API) reviewsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "review_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	var patch directory.ReviewPatch
	if err := a.readBody(r, "", &patch); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	review, err := a.reviews.Update(r.Context(), auth, id, patch)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, review)
}

func (a *API) reviewsDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "review_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	if err := a.reviews.Delete(r.Context(), auth, id); err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, struct{}{})
}
