// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/directory"
)

func (a *API) bootcampsList(w http.ResponseWriter, r *http.Request) {
	result, err := a.bootcamps.List(r.Context(), r.URL.Query())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, result)
}

func (a *API) bootcampsGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bootcamp_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	bootcamp, err := a.bootcamps.Get(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, bootcamp)
}

func (a *API) bootcampsCreate(w http.ResponseWriter, r *http.Request) {
	var input directory.BootcampInput
	if err := a.readBody(r, "campdir:bootcamp", &input); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	bootcamp, err := a.bootcamps.Create(r.Context(), auth, input)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusCreated, bootcamp)
}

func (a *API) bootcampsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bootcamp_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	var patch directory.BootcampPatch
	if err := a.readBody(r, "", &patch); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	bootcamp, err := a.bootcamps.Update(r.Context(), auth, id, patch)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, bootcamp)
}

func (a *API) bootcampsDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bootcamp_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	if err := a.bootcamps.Delete(r.Context(), auth, id); err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, struct{}{})
}

func (a *API) bootcampsWithinRadius(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	distance, err := strconv.ParseFloat(params["distance"], 64)
	if err != nil {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "illegal distance '%s'", params["distance"]))
		return
	}
	result, err := a.bootcamps.WithinRadius(r.Context(), params["zipcode"], distance)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, result)
}

func (a *API) bootcampsUploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bootcamp_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if err := r.ParseMultipartForm(a.bootcamps.MaxUploadSize()); err != nil {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "please upload a file"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "please upload a file"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		apierr.WriteError(w, apierr.Wrap(apierr.BadRequest, err, "cannot read upload"))
		return
	}

	auth := access.AuthorizationFromContext(r.Context())
	key, err := a.bootcamps.UploadPhoto(r.Context(), auth, id, header.Filename,
		header.Header.Get("Content-Type"), data)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, key)
}
