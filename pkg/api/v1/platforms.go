// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/stacklok/hirehive/pkg/api/errors"
	herrors "github.com/stacklok/hirehive/pkg/errors"
	"github.com/stacklok/hirehive/pkg/platforms/connect"
	"github.com/stacklok/hirehive/pkg/platforms/identity"
)

// PlatformsRouter sets up the platform connection routes.
func PlatformsRouter(service *connect.Service, identities identity.Resolver) http.Handler {
	routes := &platformRoutes{service: service, identities: identities}

	r := chi.NewRouter()
	r.Get("/", apierrors.ErrorHandler(routes.listPlatforms))
	r.Get("/{provider}/authorize", apierrors.ErrorHandler(routes.authorize))
	r.Get("/{provider}/callback", apierrors.ErrorHandler(routes.callback))
	r.Post("/{provider}/refresh", apierrors.ErrorHandler(routes.refresh))
	r.Post("/{provider}/disconnect", apierrors.ErrorHandler(routes.disconnect))
	return r
}

type platformRoutes struct {
	service    *connect.Service
	identities identity.Resolver
}

// platformListResponse is the response of the platform list endpoint.
type platformListResponse struct {
	Platforms []connect.PlatformStatus `json:"platforms"`
}

//	 listPlatforms
//		@Summary		List platforms
//		@Description	List the registered providers with their connection status
//		@Tags			platforms
//		@Produce		json
//		@Success		200	{object}	platformListResponse
//		@Router			/api/platforms [get]
func (p *platformRoutes) listPlatforms(w http.ResponseWriter, r *http.Request) error {
	statuses, err := p.service.List(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, platformListResponse{Platforms: statuses})
}

//	 authorize
//		@Summary		Start a platform connection
//		@Description	Redirect to the provider consent page, or connect without OAuth when no credentials are configured
//		@Tags			platforms
//		@Param			provider	path	string	true	"Provider ID"
//		@Success		302
//		@Router			/api/platforms/{provider}/authorize [get]
func (p *platformRoutes) authorize(w http.ResponseWriter, r *http.Request) error {
	who := p.identities.Resolve(r)
	location, err := p.service.Authorize(r.Context(), chi.URLParam(r, "provider"), who.UserID)
	return p.redirect(w, r, location, err)
}

//	 callback
//		@Summary		Complete a platform connection
//		@Description	OAuth2 redirect target; exchanges the authorization code and stores the connection
//		@Tags			platforms
//		@Param			provider			path	string	true	"Provider ID"
//		@Param			code				query	string	false	"Authorization code"
//		@Param			state				query	string	false	"State token"
//		@Param			error				query	string	false	"Provider error code"
//		@Param			error_description	query	string	false	"Provider error description"
//		@Success		302
//		@Router			/api/platforms/{provider}/callback [get]
func (p *platformRoutes) callback(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	location, err := p.service.Callback(r.Context(), chi.URLParam(r, "provider"), connect.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	return p.redirect(w, r, location, err)
}

// redirect sends the browser to location, or to the settings page with the
// flow error. Internal errors are returned to the error handler.
func (p *platformRoutes) redirect(w http.ResponseWriter, r *http.Request, location string, err error) error {
	if err != nil {
		if !connect.IsFlowError(err) {
			return err
		}
		location = p.service.ErrorURL(herrors.UserMessage(err))
	}
	http.Redirect(w, r, location, http.StatusFound)
	return nil
}

//	 refresh
//		@Summary		Refresh platform tokens
//		@Tags			platforms
//		@Produce		json
//		@Param			provider	path		string	true	"Provider ID"
//		@Success		200			{object}	connect.PlatformStatus
//		@Failure		404			{string}	string	"Not Found"
//		@Failure		409			{string}	string	"Conflict"
//		@Failure		502			{string}	string	"Bad Gateway"
//		@Router			/api/platforms/{provider}/refresh [post]
func (p *platformRoutes) refresh(w http.ResponseWriter, r *http.Request) error {
	status, err := p.service.Refresh(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, status)
}

//	 disconnect
//		@Summary		Disconnect a platform
//		@Tags			platforms
//		@Param			provider	path		string	true	"Provider ID"
//		@Success		204			{string}	string	"No Content"
//		@Failure		404			{string}	string	"Not Found"
//		@Router			/api/platforms/{provider}/disconnect [post]
func (p *platformRoutes) disconnect(w http.ResponseWriter, r *http.Request) error {
	if err := p.service.Disconnect(r.Context(), chi.URLParam(r, "provider")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}
