package http

import (
	"errors"
	"io"
	"net/http"

	"deal-underwriter/domain"
	"deal-underwriter/service"
)

// multipart overhead allowed on top of the file itself
const uploadFormOverhead = 1 << 20

type DocumentHandler struct {
	service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Upload accepts a multipart form with a "file" part and a "fileType" field
// of t12 or rentRoll.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxDocumentSize+uploadFormOverhead)
	if err := r.ParseMultipartForm(service.MaxDocumentSize + uploadFormOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, service.MaxDocumentSize+1))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read file")
		return
	}

	doc, err := h.service.Upload(
		r.Context(),
		r.PathValue("id"),
		domain.DocumentType(r.FormValue("fileType")),
		header.Filename,
		content,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, doc)
}
