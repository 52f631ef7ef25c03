package handler

import (
	"net/http"

	"github.com/communityportal/backend/internal/service"
	"github.com/communityportal/backend/internal/validation"
)

// ContactHandler handles contact form submission.
type ContactHandler struct {
	contactService service.ContactService
}

// NewContactHandler creates a ContactHandler with the given service.
func NewContactHandler(contactService service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Submit handles POST /api/contact.
// All fields are required; message max 5000 chars.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var in validation.ContactInput
	if err := validation.DecodeJSON(r.Body, &in); err != nil {
		writeError(w, r, err, "Failed to send message")
		return
	}

	msg, err := h.contactService.Submit(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "Failed to send message")
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{
		Message: "Message sent successfully",
		Data:    msg,
	})
}
