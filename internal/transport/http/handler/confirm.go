package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-identity-api/internal/application/registration"
	"github.com/go-identity-api/internal/domain"
)

// ConfirmHandler handles the account confirmation endpoints.
type ConfirmHandler struct {
	svc registration.Service
}

func NewConfirmHandler(svc registration.Service) *ConfirmHandler {
	return &ConfirmHandler{svc: svc}
}

// Verify activates the account when the submitted code matches the live one.
// Responds with the user's API token on success.
func (h *ConfirmHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Resend issues a fresh confirmation code and schedules delivery over the
// requested channel.
func (h *ConfirmHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Channel == "" {
		req.Channel = "email"
	}
	if err := h.svc.Resend(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "confirmation code sent"})
}
