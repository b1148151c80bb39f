package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/casefile/internal/server/models"
	"github.com/dmitrijs2005/casefile/internal/server/services"
	"github.com/dmitrijs2005/casefile/internal/timex"
)

const (
	maxMultipartMemory = 8 << 20
	maxAttachmentSize  = 20 << 20
)

func (h *handlers) saveAnswers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req answersRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	batch := &models.AnswerBatch{
		UserID:         p.UserID,
		FormID:         req.FormID,
		CompletionDate: req.CompletionDate.Time,
		Answers:        make([]models.Answer, 0, len(req.Answers)),
	}
	for _, a := range req.Answers {
		answer := models.Answer{BeneficiaryID: a.BeneficiaryID, QuestionID: a.QuestionID}
		for _, o := range a.Options {
			answer.Options = append(answer.Options, models.AnswerOption{OptionID: o.OptionID, Value: o.Value})
		}
		batch.Answers = append(batch.Answers, answer)
	}

	if err := h.submissions.SaveAnswers(r.Context(), batch); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

// uploadNote accepts multipart/form-data with BeneficiaryId, Text, an
// optional QuestionId and an optional "file" part.
func (h *handlers) uploadNote(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.fail(w, r, badRequest("invalid multipart body"))
		return
	}

	beneficiaryID, err := strconv.ParseInt(r.FormValue("BeneficiaryId"), 10, 64)
	if err != nil || beneficiaryID <= 0 {
		h.fail(w, r, badRequest("invalid BeneficiaryId"))
		return
	}
	note := &models.Note{
		UserID:        p.UserID,
		BeneficiaryID: beneficiaryID,
		Text:          r.FormValue("Text"),
	}
	if raw := strings.TrimSpace(r.FormValue("QuestionId")); raw != "" {
		qid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.fail(w, r, badRequest("invalid QuestionId"))
			return
		}
		note.QuestionID = &qid
	}

	file, err := readAttachment(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.submissions.SaveNote(r.Context(), note, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func readAttachment(r *http.Request) (*services.Attachment, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest("invalid file part")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxAttachmentSize+1))
	if err != nil {
		return nil, badRequest("invalid file part")
	}
	if len(data) > maxAttachmentSize {
		return nil, badRequest("attachment too large")
	}
	return &services.Attachment{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *handlers) savePollingStation(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req pollingStationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	arrival, err := parseAPITime(req.ArrivalTime)
	if err != nil {
		h.fail(w, r, badRequest("invalid observerArrivalTime"))
		return
	}
	leave, err := parseAPITime(req.LeaveTime)
	if err != nil {
		h.fail(w, r, badRequest("invalid observerLeaveTime"))
		return
	}

	err = h.submissions.SavePollingStation(r.Context(), &models.PollingStation{
		UserID:            p.UserID,
		Number:            req.ID,
		CountyCode:        req.CountyCode,
		UrbanArea:         req.UrbanArea,
		ArrivalTime:       arrival,
		LeaveTime:         leave,
		PresidentIsFemale: req.PresidentIsFemale,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

// parseAPITime accepts an empty string as the zero time.
func parseAPITime(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	var t timex.APITime
	if err := t.UnmarshalJSON([]byte(s)); err != nil {
		return time.Time{}, err
	}
	return t.Time, nil
}
