// Copyright (c) 2026 TrustFlow. All rights reserved.

package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trustflow/identity/internal/platform/middleware"
	requestutil "github.com/trustflow/identity/internal/platform/request"
	"github.com/trustflow/identity/internal/platform/respond"
)

// Handler exposes the role registry API.
type Handler struct {
	service *Service
}

// NewHandler creates the role HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the role routes. Reads require roles:read; mutations
// require roles:manage.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.With(middleware.RequirePermission("roles", "read")).Get("/", handler.listRoles)
	router.With(middleware.RequirePermission("roles", "read")).Get("/{id}", handler.getRole)
	router.With(middleware.RequirePermission("roles", "manage")).Post("/", handler.createRole)
	router.With(middleware.RequirePermission("roles", "manage")).Patch("/{id}", handler.updateRole)
	router.With(middleware.RequirePermission("roles", "manage")).Delete("/{id}", handler.deactivateRole)
}

func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.service.List(request.Context()))
}

func (handler *Handler) getRole(writer http.ResponseWriter, request *http.Request) {
	role, err := handler.service.Get(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, role)
}

func (handler *Handler) createRole(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.Create(request.Context(), principal, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, role)
}

func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input UpdateInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.Update(request.Context(), principal, requestutil.Param(request, "id"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, role)
}

func (handler *Handler) deactivateRole(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Deactivate(request.Context(), principal, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
