package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-passwordless/internal/application/auth"
	"github.com/go-passwordless/internal/domain"
)

const maxBodyBytes = 16 << 10

// AuthHandler exposes one channel's controller over HTTP.
type AuthHandler struct {
	ctrl auth.Controller
}

func NewAuthHandler(ctrl auth.Controller) *AuthHandler {
	return &AuthHandler{ctrl: ctrl}
}

// Authenticate sends a code to the address in the body. The message language
// comes from ?lang= or, failing that, Accept-Language.
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}
	env, err := h.ctrl.Authenticate(r.Context(), body, lang)
	h.respond(w, env, err)
}

func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	env, err := h.ctrl.VerifyCode(r.Context(), body)
	h.respond(w, env, err)
}

func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	env, err := h.ctrl.VerifyToken(r.Context(), body)
	h.respond(w, env, err)
}

func (h *AuthHandler) respond(w http.ResponseWriter, env domain.TokenEnvelope, err error) {
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Channel().Envelope(env))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return nil, false
	}
	return body, true
}

// writeAuthError maps controller errors to status codes. Denials carry no
// detail so callers cannot tell a wrong code from a bad token.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many code requests, try again later")
	default:
		slog.Error("auth request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
