package httpapi

import (
	"net/http"
)

func (h *handlers) counties(w http.ResponseWriter, r *http.Request) {
	list, err := h.reference.Counties(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]countyDTO, 0, len(list))
	for _, c := range list {
		out = append(out, countyDTO{ID: c.ID, Name: c.Name, Code: c.Code})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) cities(w http.ResponseWriter, r *http.Request) {
	countyID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list, err := h.reference.Cities(r.Context(), countyID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]cityDTO, 0, len(list))
	for _, c := range list {
		out = append(out, cityDTO{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) forms(w http.ResponseWriter, r *http.Request) {
	list, err := h.reference.Forms(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := formListResponse{FormVersions: make([]formSummaryDTO, 0, len(list))}
	for _, f := range list {
		out.FormVersions = append(out.FormVersions, formSummaryDTO{
			ID:             f.ID,
			Code:           f.Code,
			CurrentVersion: f.CurrentVersion,
			Description:    f.Description,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// form serves the stored sections document as is.
func (h *handlers) form(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	f, err := h.reference.Form(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	body := []byte(f.Sections)
	if len(body) == 0 {
		body = []byte("[]")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
