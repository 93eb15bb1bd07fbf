package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLen    = 8
	maxDisplayNameLen = 64
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// credentials is the request body of both /auth/register and
// /auth/login; displayName is only read on registration.
type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	email, name, problem := validateRegistration(req)
	if problem != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": problem})
		return
	}

	result, err := h.service.Register(r.Context(), email, req.Password, name)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		slog.Error("register failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	result, err := h.service.Login(r.Context(), email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		slog.Error("login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// validateRegistration normalizes and checks a registration request.
// It returns the canonical email and display name, or a non-empty
// problem string describing the first failed check.
func validateRegistration(req credentials) (email, name, problem string) {
	email = normalizeEmail(req.Email)
	name = strings.TrimSpace(req.DisplayName)
	switch {
	case email == "":
		return "", "", "email is required"
	case !strings.Contains(email, "@"):
		return "", "", "email is not valid"
	case len(req.Password) < minPasswordLen:
		return "", "", "password must be at least 8 characters"
	case name == "":
		return "", "", "displayName is required"
	case utf8.RuneCountInString(name) > maxDisplayNameLen:
		return "", "", "displayName is too long"
	}
	return email, name, ""
}

// normalizeEmail canonicalizes an address so lookups and the unique
// index see one spelling per account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
