package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/adrctl/internal/adrservice"
	"github.com/starford/adrctl/internal/models"
)

const maxBody = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *adrservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *adrservice.Service) *Handler {
	return &Handler{svc: svc}
}

// recordName extracts the record filename from the URL.
func recordName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeRecord responds with the named record and its checksum as ETag.
func (h *Handler) writeRecord(w http.ResponseWriter, r *http.Request, status int, name string) {
	rec, err := h.svc.Get(r.Context(), name)
	if err != nil {
		writeError(w, "get record", err)
		return
	}
	w.Header().Set("ETag", `"`+rec.Checksum+`"`)
	writeJSON(w, status, rec)
}

// ListRecords handles GET /api/records.
//
//	@Summary		List records in index order
//	@Tags			records
//	@Produce		json
//	@Param			status	query		string	false	"Only records whose current status starts with this word"
//	@Success		200		{object}	RecordListResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list records", err)
		return
	}
	if want := r.URL.Query().Get("status"); want != "" {
		filtered := make([]models.Record, 0, len(recs))
		for _, rec := range recs {
			if strings.HasPrefix(strings.ToLower(rec.Status), strings.ToLower(want)) {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: recs, Total: len(recs)})
}

// GetRecord handles GET /api/records/{name}.
//
//	@Summary		Get a single record by filename
//	@Tags			records
//	@Produce		json
//	@Param			name	path		string	true	"Record filename"
//	@Success		200		{object}	RecordDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{name} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	h.writeRecord(w, r, http.StatusOK, recordName(r))
}

// CreateRecord handles POST /api/records.
//
//	@Summary		Create the next record, optionally linked to an existing one
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRecordRequest	true	"Record to create"
//	@Success		201		{object}	RecordDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if !decode(w, r, &req) {
		return
	}
	path, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create record", err)
		return
	}
	name := filepath.Base(path)
	w.Header().Set("Location", "/api/records/"+url.PathEscape(name))
	h.writeRecord(w, r, http.StatusCreated, name)
}

// ChangeStatus handles PUT /api/records/{name}/status.
//
//	@Summary		Change a record's status, keeping the old one as history
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			name		path		string				true	"Record filename"
//	@Param			If-Match	header		string				false	"Checksum from a previous GET"
//	@Param			body		body		ChangeStatusRequest	true	"New status"
//	@Success		200			{object}	RecordDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{name}/status [put]
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if !decode(w, r, &req) {
		return
	}
	name := recordName(r)
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	if err := h.svc.ChangeStatusIfMatch(r.Context(), name, req.Status, ifMatch); err != nil {
		writeError(w, "change status", err)
		return
	}
	h.writeRecord(w, r, http.StatusOK, name)
}

// AddLink handles POST /api/records/{name}/links.
//
//	@Summary		Record on a record that another one links to it
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Record receiving the link line"
//	@Param			body	body		AddLinkRequest	true	"Linking record and link type"
//	@Success		200		{object}	RecordDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{name}/links [post]
func (h *Handler) AddLink(w http.ResponseWriter, r *http.Request) {
	var req AddLinkRequest
	if !decode(w, r, &req) {
		return
	}
	name := recordName(r)
	if err := h.svc.AddLink(r.Context(), req.Source, name, req.LinkType); err != nil {
		writeError(w, "add link", err)
		return
	}
	h.writeRecord(w, r, http.StatusOK, name)
}
