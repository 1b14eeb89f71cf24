// Copyright (c) 2026 TrustFlow. All rights reserved.

package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trustflow/identity/internal/platform/respond"
)

// Handler exposes the read-only audit query API.
type Handler struct {
	store Store
}

// NewHandler creates the audit HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the audit routes. The caller is responsible for
// guarding them with the audit:read permission.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.listEntries)
}

func (handler *Handler) listEntries(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	filter := ListFilter{
		ActorID:    query.Get("actor_id"),
		EntityType: query.Get("entity_type"),
		EntityID:   query.Get("entity_id"),
		Action:     query.Get("action"),
		Limit:      limit,
		Offset:     offset,
	}

	entries, err := handler.store.List(request.Context(), filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if entries == nil {
		entries = []Entry{}
	}
	respond.OK(writer, entries)
}
