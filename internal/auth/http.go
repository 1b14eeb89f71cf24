// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/middleware"
	requestutil "github.com/trustflow/identity/internal/platform/request"
	"github.com/trustflow/identity/internal/platform/respond"
)

// Handler exposes the credential and session API.
type Handler struct {
	service *Service
}

// NewHandler creates the auth HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the auth routes.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	// Credential endpoints, open to anonymous callers.
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/login/mfa", handler.completeMFA)
	router.Post("/refresh", handler.refresh)
	router.Post("/introspect", handler.introspect)

	// Session and profile endpoints for the authenticated principal.
	router.With(middleware.RequireAuth).Get("/me", handler.getMe)
	router.With(middleware.RequireAuth).Patch("/me/profile", handler.updateProfile)
	router.With(middleware.RequireAuth).Put("/me/password", handler.changePassword)
	router.With(middleware.RequireAuth).Put("/me/mfa", handler.setMFA)
	router.With(middleware.RequireAuth).Post("/logout", handler.logout)
	router.With(middleware.RequireAuth).Get("/sessions", handler.listSessions)
	router.With(middleware.RequireAuth).Delete("/sessions", handler.revokeOwnSessions)

	// One-time password endpoints for channel confirmation.
	router.With(middleware.RequireAuth).Post("/otp/request", handler.requestOTP)
	router.With(middleware.RequireAuth).Post("/otp/confirm", handler.confirmOTP)

	// Moderation endpoints.
	router.With(middleware.RequirePermission("users", "manage")).
		Put("/users/{id}/status", handler.setStatus)
	router.With(middleware.RequirePermission("users", "manage")).
		Put("/users/{id}/role", handler.assignRole)
	router.With(middleware.RequirePermission("users", "manage")).
		Delete("/users/{id}/sessions", handler.revokeUserSessions)

	// Invite endpoints.
	router.With(middleware.RequirePermission("invites", "manage")).Post("/invites", handler.createInvite)
	router.With(middleware.RequirePermission("invites", "manage")).Get("/invites", handler.listInvites)
	router.With(middleware.RequirePermission("invites", "manage")).Delete("/invites/{id}", handler.disableInvite)
}

// # Credentials

func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input RegisterInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Register(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, user)
}

type loginRequest struct {
	// Identifier is an email address or a phone number. The email field is
	// kept as an alias for older clients.
	Identifier string `json:"identifier"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name,omitempty"`
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Authenticate(
		request.Context(), coalesce(input.Identifier, input.Email), input.Password,
		deviceFrom(request, input.DeviceName))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

type mfaRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

func (handler *Handler) completeMFA(writer http.ResponseWriter, request *http.Request) {
	var input mfaRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.CompleteMFA(
		request.Context(), input.ChallengeID, input.Code, deviceFrom(request, ""))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Refresh(
		request.Context(), input.RefreshToken, deviceFrom(request, ""))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

// introspect exchanges a bearer token for a signed assertion. Internal
// services call this once and verify the assertion offline afterwards.
func (handler *Handler) introspect(writer http.ResponseWriter, request *http.Request) {
	token := bearerToken(request)
	if token == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing bearer token"))
		return
	}

	assertion, err := handler.service.Introspect(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"assertion": assertion})
}

// # Profile

func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	me, err := handler.service.GetMe(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, me)
}

func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input UpdateProfileInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.UpdateProfile(request.Context(), principal.UserID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, profile)
}

// # Credentials Self-Service

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ChangePassword(
		request.Context(), principal, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

type setMFARequest struct {
	Enabled bool `json:"enabled"`
}

func (handler *Handler) setMFA(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setMFARequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.SetMFA(request.Context(), principal, input.Enabled); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// # Sessions

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Logout(request.Context(), principal); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.service.ListSessions(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, sessions)
}

func (handler *Handler) revokeOwnSessions(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.service.RevokeAllForUser(request.Context(), principal, principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int{"revoked": count})
}

// # One-Time Passwords

type otpRequest struct {
	Channel string `json:"channel"`
	Code    string `json:"code,omitempty"`
}

func (handler *Handler) requestOTP(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input otpRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RequestOTP(request.Context(), principal.UserID, input.Channel); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) confirmOTP(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input otpRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ConfirmOTP(
		request.Context(), principal.UserID, input.Channel, input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// # Moderation

type setStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (handler *Handler) setStatus(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setStatusRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.SetStatus(
		request.Context(), principal, requestutil.Param(request, "id"),
		Status(input.Status), input.Reason)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

func (handler *Handler) assignRole(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input assignRoleRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.AssignRole(
		request.Context(), principal, requestutil.Param(request, "id"), input.RoleID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) revokeUserSessions(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.service.RevokeAllForUser(
		request.Context(), principal, requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int{"revoked": count})
}

// # Invites

func (handler *Handler) createInvite(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateInviteInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.CreateInvite(request.Context(), principal, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, created)
}

func (handler *Handler) listInvites(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	invites, err := handler.service.ListInvites(request.Context(), principal)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, invites)
}

func (handler *Handler) disableInvite(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.Principal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DisableInvite(
		request.Context(), principal, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// deviceFrom assembles client metadata from the request.
func deviceFrom(request *http.Request, deviceName string) DeviceInfo {
	return DeviceInfo{
		DeviceName: deviceName,
		IPAddress:  middleware.RealIP(request),
		UserAgent:  request.UserAgent(),
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}
