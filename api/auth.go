// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/campdir/core/access"
	"github.com/relabs-tech/campdir/core/apierr"
	"github.com/relabs-tech/campdir/directory"
)

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// sendTokenResponse issues a token for the account and returns it both as
// response body and as httpOnly cookie.
func (a *API) sendTokenResponse(w http.ResponseWriter, status int, user *directory.User) {
	token, err := a.issuer.Sign(user.ID)
	if err != nil {
		apierr.WriteError(w, apierr.Wrap(apierr.InternalError, err, "cannot sign token"))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     access.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.issuer.Expiry()),
		HttpOnly: true,
	})
	apierr.WriteJSON(w, status, tokenResponse{Success: true, Token: token})
}

func (a *API) authRegister(w http.ResponseWriter, r *http.Request) {
	var input directory.RegisterInput
	if err := a.readBody(r, "campdir:register", &input); err != nil {
		apierr.WriteError(w, err)
		return
	}
	user, err := a.users.Register(r.Context(), input)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	a.sendTokenResponse(w, http.StatusCreated, user)
}

func (a *API) authLogin(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := a.readBody(r, "", &credentials); err != nil {
		apierr.WriteError(w, err)
		return
	}
	user, err := a.users.Authenticate(r.Context(), credentials.Email, credentials.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	a.sendTokenResponse(w, http.StatusOK, user)
}

func (a *API) authLogout(w http.ResponseWriter, r *http.Request) {
	// drop the session from the token cache
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if cookie, err := r.Cookie(access.CookieName); token == "" && err == nil {
		token = cookie.Value
	}
	if token != "" {
		a.cache.Invalidate(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     access.CookieName,
		Value:    "none",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	apierr.WriteData(w, http.StatusOK, struct{}{})
}

func (a *API) authMe(w http.ResponseWriter, r *http.Request) {
	auth := access.AuthorizationFromContext(r.Context())
	user, err := a.users.Get(r.Context(), auth)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, user)
}

func (a *API) authUpdateDetails(w http.ResponseWriter, r *http.Request) {
	var details directory.UserDetails
	if err := a.readBody(r, "", &details); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	user, err := a.users.UpdateDetails(r.Context(), auth, details)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, user)
}

func (a *API) authUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var passwords struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := a.readBody(r, "", &passwords); err != nil {
		apierr.WriteError(w, err)
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	user, err := a.users.UpdatePassword(r.Context(), auth, passwords.CurrentPassword, passwords.NewPassword)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	a.sendTokenResponse(w, http.StatusOK, user)
}

func (a *API) authForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := a.readBody(r, "", &body); err != nil {
		apierr.WriteError(w, err)
		return
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	prefix := scheme + "://" + r.Host + Prefix + "/auth/resetpassword/"
	if err := a.users.ForgotPassword(r.Context(), body.Email, prefix); err != nil {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteData(w, http.StatusOK, "email sent")
}

func (a *API) authResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := a.readBody(r, "", &body); err != nil {
		apierr.WriteError(w, err)
		return
	}
	user, err := a.users.ResetPassword(r.Context(), mux.Vars(r)["resettoken"], body.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	a.sendTokenResponse(w, http.StatusOK, user)
}
