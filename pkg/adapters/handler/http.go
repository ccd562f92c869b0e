package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/zap"
)

// UUIDHeader carries the caller identity.
const UUIDHeader = "UUID"

const timeLayout = "2006-01-02 15:04:05"

type HTTPHandler struct {
	service ports.LinkService
	baseURL string
	logger  *zap.Logger
}

func NewHTTPHandler(service ports.LinkService, baseURL string, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, baseURL: baseURL, logger: logger}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	LongURL  string `json:"long_url"`
	UseLimit *int   `json:"use_limit,omitempty"`
	TTLHours *int   `json:"ttl_hours,omitempty"`
}

// UpdateLinkRequest payload; omitted fields are left unchanged
type UpdateLinkRequest struct {
	LongURL  *string `json:"long_url,omitempty"`
	UseLimit *int    `json:"use_limit,omitempty"`
	TTLHours *int    `json:"ttl_hours,omitempty"`
}

type LinkResponse struct {
	ShortURL  string `json:"short_url"`
	Code      string `json:"code"`
	LongURL   string `json:"long_url"`
	CreatorID string `json:"creator_id"`
	UseCount  int    `json:"use_count"`
	UseLimit  int    `json:"use_limit"`
	CreatedAt string `json:"created_at"`
	TTLHours  int    `json:"ttl_hours"`
}

type EventResponse struct {
	Kind      domain.EventKind `json:"kind"`
	Detail    string           `json:"detail,omitempty"`
	CreatedAt string           `json:"created_at"`
}

func (h *HTTPHandler) toResponse(link *domain.Link) LinkResponse {
	return LinkResponse{
		ShortURL:  h.baseURL + "/" + link.Code,
		Code:      link.Code,
		LongURL:   link.Target,
		CreatorID: link.OwnerID,
		UseCount:  link.UseCount,
		UseLimit:  link.UseLimit,
		CreatedAt: link.CreatedAt.Format(timeLayout),
		TTLHours:  link.TTLHours,
	}
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	requesterID, err := optionalIdentity(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.service.Create(r.Context(), ports.CreateInput{
		RequesterID: requesterID,
		Target:      req.LongURL,
		UseLimit:    req.UseLimit,
		TTLHours:    req.TTLHours,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(link))
}

// Redirect to the long URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code, ok := pathCode(w, r)
	if !ok {
		return
	}

	target, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Update Link
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	code, ok := pathCode(w, r)
	if !ok {
		return
	}
	requesterID, err := requiredIdentity(r, "update")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.service.Update(r.Context(), ports.UpdateInput{
		Code:        code,
		RequesterID: requesterID,
		Target:      req.LongURL,
		UseLimit:    req.UseLimit,
		TTLHours:    req.TTLHours,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(link))
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code, ok := pathCode(w, r)
	if !ok {
		return
	}
	requesterID, err := requiredIdentity(r, "delete")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), code, requesterID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Events lists the notifications sent for the caller's link
func (h *HTTPHandler) Events(w http.ResponseWriter, r *http.Request) {
	code, ok := pathCode(w, r)
	if !ok {
		return
	}
	requesterID, err := requiredIdentity(r, "view events of")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	events, err := h.service.Events(r.Context(), code, requesterID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, EventResponse{
			Kind:      e.Kind,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format(timeLayout),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":   code,
		"events": resp,
	})
}

// pathCode answers 404 itself for anything that cannot be a short code.
func pathCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := r.PathValue("code")
	if !domain.IsValidCode(code) {
		writeMessage(w, http.StatusNotFound, "short link '"+code+"' not found")
		return "", false
	}
	return code, true
}

var (
	errMissingIdentity = errors.New("missing identity header")
	errBadIdentity     = errors.New("malformed identity header")
)

// identityError keeps the user-facing message for a header problem.
type identityError struct {
	kind    error
	message string
}

func (e *identityError) Error() string { return e.message }
func (e *identityError) Unwrap() error { return e.kind }

func optionalIdentity(r *http.Request) (string, error) {
	raw := r.Header.Get(UUIDHeader)
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &identityError{kind: errBadIdentity, message: "the UUID header must be a valid UUID"}
	}
	return id.String(), nil
}

func requiredIdentity(r *http.Request, action string) (string, error) {
	id, err := optionalIdentity(r)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", &identityError{
			kind:    errMissingIdentity,
			message: "the UUID header is required to " + action + " short links",
		}
	}
	return id, nil
}

type ErrorResponse struct {
	Timestamp string            `json:"timestamp"`
	Error     string            `json:"error,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Timestamp: time.Now().Format(timeLayout),
		Error:     message,
	})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, errBadIdentity):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsForbidden(err):
		return http.StatusForbidden
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsExpired(err), domain.IsLimitExceeded(err), domain.IsInvalidUpdate(err),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Timestamp: time.Now().Format(timeLayout)}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Errors = verr.Fields()
	case status == http.StatusInternalServerError:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		resp.Error = "internal server error"
	default:
		resp.Error = err.Error()
	}

	writeJSON(w, status, resp)
}
