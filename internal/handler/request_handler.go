package handler

import (
	"errors"
	"net/http"

	"github.com/communityportal/backend/internal/service"
	"github.com/communityportal/backend/internal/upload"
	"github.com/communityportal/backend/internal/validation"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// RequestHandler handles help request submissions with attachments.
type RequestHandler struct {
	requestService service.RequestService
	maxBodyBytes   int64
}

// NewRequestHandler creates a RequestHandler. The body limit is derived from
// policy so that oversized single files still reach the policy check.
func NewRequestHandler(requestService service.RequestService, policy upload.Policy) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		maxBodyBytes:   int64(policy.MaxFiles)*policy.MaxFileSize + policy.MaxFileSize + 1<<20,
	}
}

// Submit handles POST /api/submit-request (multipart/form-data, files under "files").
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, err, "")
			return
		}
		writeMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var in validation.RequestInput
	if err := validation.DecodeForm(r.MultipartForm.Value, &in); err != nil {
		writeError(w, r, err, "Failed to submit request")
		return
	}

	files := upload.FromMultipart(r.MultipartForm.File["files"])
	sub, err := h.requestService.Submit(r.Context(), in, files)
	if err != nil {
		writeError(w, r, err, "Failed to submit request")
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{
		Message: "Request submitted successfully",
		Data:    sub,
	})
}
