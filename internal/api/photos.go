package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/platelog/internal/photo"
)

const maxUploadBytes = 20 << 20 // 20 MB

// ServePhoto handles GET /records/{id}/photo.
//
//	@Summary		Get a record's photo
//	@Description	Tries the remote copy first, then the local file.
//	@Tags			records
//	@Produce		image/jpeg,image/png,image/gif,image/webp
//	@Param			id	path	string	true	"Record id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/photo [get]
func (h *Handler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Photo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "load photo", err)
		return
	}
	if data == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no photo"))
		return
	}
	w.Header().Set("Content-Type", photo.ContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UploadPhoto handles PUT /records/{id}/photo (multipart/form-data, field "file").
//
//	@Summary		Set a record's photo
//	@Tags			records
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Record id"
//	@Param			file	formData	file	true	"Image"
//	@Success		200		{object}	models.MealRecord
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{id}/photo [put]
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	rec, err := h.svc.SetPhoto(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		writeError(w, "set photo", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
