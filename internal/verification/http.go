// Copyright (c) 2026 TrustFlow. All rights reserved.

package verification

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/middleware"
	requestutil "github.com/trustflow/identity/internal/platform/request"
	"github.com/trustflow/identity/internal/platform/respond"
)

// Handler exposes the verification API.
type Handler struct {
	service *Service
}

// NewHandler creates the verification HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the verification routes. Self-service routes need
// only authentication; reviewer routes need verifications permissions.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/", handler.submit)
	router.Get("/mine", handler.listMine)
	router.Get("/levels/{level}", handler.levelValid)
	router.Delete("/{id}", handler.cancel)

	router.With(middleware.RequirePermission("verifications", "read")).
		Get("/{id}", handler.get)
	router.With(middleware.RequirePermission("verifications", "decide")).
		Post("/{id}/decision", handler.decide)
	router.With(middleware.RequirePermission("verifications", "decide")).
		Post("/{id}/escalate", handler.escalate)
}

func (handler *Handler) submit(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input SubmitInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.Submit(request.Context(), principal.UserID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, record)
}

func (handler *Handler) listMine(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	records, err := handler.service.ListForUser(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, records)
}

// levelValid reports whether the caller's given level is still backed by a
// live grant. Collaborating services use this to gate sensitive operations.
func (handler *Handler) levelValid(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	level, err := strconv.Atoi(requestutil.Param(request, "level"))
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid level",
			apperr.FieldError{Field: "level", Message: "Must be an integer"}))
		return
	}

	valid, err := handler.service.IsLevelValid(request.Context(), principal.UserID, level)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{"level": level, "valid": valid})
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	record, err := handler.service.Get(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, record)
}

func (handler *Handler) decide(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input DecideInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.Decide(request.Context(), principal.UserID, requestutil.Param(request, "id"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, record)
}

func (handler *Handler) escalate(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.Escalate(request.Context(), principal.UserID, requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, record)
}

func (handler *Handler) cancel(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Cancel(request.Context(), principal.UserID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
