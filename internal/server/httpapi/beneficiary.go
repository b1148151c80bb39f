package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/casefile/internal/server/services"
)

func (h *handlers) listBeneficiaries(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	list, err := h.beneficiaries.List(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now()
	out := beneficiaryListResponse{Data: make([]beneficiaryDetailsDTO, 0, len(list))}
	for i := range list {
		out.Data = append(out.Data, toDetails(&list[i], now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getBeneficiary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.beneficiaries.Get(r.Context(), p.UserID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBeneficiary(b, h.now()))
}

// createBeneficiary answers with the new server id.
func (h *handlers) createBeneficiary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	in, err := decodeBeneficiary(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.beneficiaries.Create(r.Context(), p.UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *handlers) updateBeneficiary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	in, err := decodeBeneficiary(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.beneficiaries.Update(r.Context(), p.UserID, in); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

// sendForm reports false rather than 404 for unknown beneficiaries.
func (h *handlers) sendForm(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("beneficiaryId"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, r, badRequest("invalid beneficiaryId"))
		return
	}

	sent, err := h.beneficiaries.Send(r.Context(), p.UserID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func decodeBeneficiary(r *http.Request) (*services.BeneficiaryInput, error) {
	var req beneficiaryRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return &services.BeneficiaryInput{
		ID:           req.ID,
		Name:         req.Name,
		BirthDate:    req.BirthDate.Time,
		CivilStatus:  req.CivilStatus,
		Gender:       req.Gender,
		CountyID:     req.CountyID,
		CityID:       req.CityID,
		FormsIDs:     req.FormsIDs,
		NewAllocated: req.NewAllocatedFormsIDs,
		Deallocated:  req.DeallocatedFormsIDs,
		IsFamilyOf:   req.IsFamilyOf,
	}, nil
}
