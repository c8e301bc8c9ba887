package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-shop/meridian/internal/accounts"
	"github.com/meridian-shop/meridian/internal/platform/httpx"
	"github.com/meridian-shop/meridian/internal/token"
)

// Handler wires HTTP endpoints for the authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignUp)
	r.Post("/signin", h.handleSignIn)
	r.Get("/emailActivation/{token}", h.handleActivation)
	r.Post("/emailActivation", h.handleActivationRequest)
	r.Post("/passwordReset/{token}", h.handlePasswordReset)
	r.Post("/passwordReset", h.handlePasswordResetRequest)
}

type signUpRequest struct {
	Name     string `json:"name" validate:"required,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type newPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type signInResponse struct {
	accounts.Projection
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	projection, err := h.service.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, projection)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !h.decode(w, r, &req) {
		return
	}
	projection, signed, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, signInResponse{Projection: projection, Token: signed})
}

func (h *Handler) handleActivation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Activate(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "Account enabled"})
}

func (h *Handler) handleActivationRequest(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RequestActivation(r.Context(), req.Email); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "Email sent"})
}

func (h *Handler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req newPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "Password changed"})
}

func (h *Handler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Message: "Email sent"})
}

// decode unmarshals and validates the request body, answering 400 itself
// when the input is malformed.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "incorrect data")
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounts.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Conflict", "name or email already exists")
	case errors.Is(err, accounts.ErrDisabled):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "account is not enabled")
	case errors.Is(err, accounts.ErrAlreadyEnabled):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "account is already enabled")
	case errors.Is(err, accounts.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	case errors.Is(err, ErrIncorrectData):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "incorrect data")
	case errors.Is(err, ErrWrongPurpose):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "wrong token purpose")
	case errors.Is(err, ErrStaleToken):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "stale token")
	case errors.Is(err, token.ErrExpiredToken):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "expired token")
	case errors.Is(err, token.ErrInvalidToken):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
	default:
		if h.logger != nil {
			h.logger.Error("auth flow", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
