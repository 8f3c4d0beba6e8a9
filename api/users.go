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

func (a *API) usersList(w http.ResponseWriter, r *http.Request) {
	auth := access.AuthorizationFromContext(r.Context())
	result, err := a.users.List(r.Context(), auth, r.URL.Query())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, result)
}

func (a *API) usersGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	user, err := a.users.GetUser(r.Context(), auth, id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, user)
}

func (a *API) usersCreate(w http.ResponseWriter, r *http.Request) {
	var input directory.UserInput
	if err := a.readBody(r, "campdir:user", &input); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	user, err := a.users.CreateUser(r.Context(), auth, input)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusCreated, user)
}

func (a *API) usersUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	var patch directory.UserPatch
	if err := a.readBody(r, "", &patch); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	user, err := a.users.UpdateUser(r.Context(), auth, id, patch)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, user)
}

func (a *API) usersDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user_id")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	if err := a.users.DeleteUser(r.Context(), auth, id); err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, struct{}{})
}
