// Copyright (c) 2026 TrustFlow. All rights reserved.

// Package requestutil provides helpers for extracting data from HTTP requests.
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/ctxutil"
	"github.com/trustflow/identity/internal/platform/sec"
	"github.com/trustflow/identity/internal/platform/validate"
)

// maxBodyBytes caps request bodies at 1 MiB. Identity payloads are small;
// anything larger is either a mistake or abuse.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into dst, enforcing a size cap and
// rejecting unknown fields.
func DecodeJSON(writer http.ResponseWriter, request *http.Request, dst interface{}) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)

	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// Param returns the value of a chi URL parameter.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// UUIDParam parses a chi URL parameter as a UUID, returning a validation
// error naming the parameter on failure.
func UUIDParam(request *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(request, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.ValidationError("Invalid URL parameter",
			apperr.FieldError{Field: name, Message: "Must be a valid UUID"})
	}
	return id, nil
}

// Principal returns the authenticated principal attached by the auth
// middleware, or an Unauthorized error if the request is anonymous.
func Principal(request *http.Request) (*sec.Principal, error) {
	principal := ctxutil.GetPrincipal(request.Context())
	if principal == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return principal, nil
}
