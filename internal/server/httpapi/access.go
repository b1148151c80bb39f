package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/casefile/internal/common"
)

// authorize always answers with a JSON body; the client looks at
// access_token and error, not at the status code.
func (h *handlers) authorize(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Error: err.Error()})
		return
	}

	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, loginResponse{Error: "invalid email or password"})
			return
		}
		h.logger.Error(r.Context(), "login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, loginResponse{Error: common.ErrInternal.Error()})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   int64(res.ExpiresIn.Seconds()),
		FirstLogin:  res.FirstLogin,
	})
}

func (h *handlers) verify(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	success, err := h.users.Verify(r.Context(), p.SessionID, req.Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Success: success})
}

func (h *handlers) resend(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.users.Resend(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.users.ResetPassword(r.Context(), p.UserID, req.NewPassword, req.NewPasswordConfirmation); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, true)
}
