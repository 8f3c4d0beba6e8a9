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

func (a *API) coursesList(w http.ResponseWriter, r *http.Request) {
	result, err := a.courses.List(r.Context(), r.URL.Query())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, result)
}

func (a *API) coursesListByBootcamp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bootcamp_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	result, err := a.courses.ListByBootcamp(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, result)
}

func (a *API) coursesGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "course_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	course, err := a.courses.Get(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, course)
}

func (a *API) coursesCreate(w http.ResponseWriter, r *http.Request) {
	bootcampID, err := pathID(r, "bootcamp_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	var input directory.CourseInput
	if err := a.readBody(r, "campdir:course", &input); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	course, err := a.courses.Create(r.Context(), auth, bootcampID, input)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusCreated, course)
}

func (a *API) coursesUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "course_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	var patch directory.CoursePatch
	if err := a.readBody(r, "", &patch); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	course, err := a.courses.Update(r.Context(), auth, id, patch)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, course)
}

func (a *API) coursesDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "course_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	if err := a.courses.Delete(r.Context(), auth, id); err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, struct{}{})
}
