package handler

import (
	"net/http"
	"strconv"

	"github.com/go-passwordless/internal/application/audit"
	"github.com/go-passwordless/internal/domain"
	"github.com/go-passwordless/internal/transport/http/middleware"
)

const defaultEventLimit = 20

// SubjectHandler serves endpoints for holders of a verified token.
type SubjectHandler struct {
	audit audit.Service
}

// NewSubjectHandler accepts a nil audit service; Events then reports 404.
func NewSubjectHandler(a audit.Service) *SubjectHandler {
	return &SubjectHandler{audit: a}
}

func (h *SubjectHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, SubjectEnvelope{Subject: subject})
}

// Events lists the caller's most recent auth events, newest first.
func (h *SubjectHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusNotFound, "audit log is disabled")
		return
	}
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := h.audit.Recent(r.Context(), subject, limit)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if events == nil {
		events = []domain.AuthEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
