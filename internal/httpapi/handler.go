package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"turnos/shift-service/internal/identity"
	"turnos/shift-service/internal/models"
	"turnos/shift-service/internal/shifts"
	"turnos/shift-service/internal/store"
)

// UserDirectory is the slice of the identity layer the user listing
// endpoint needs.
type UserDirectory interface {
	Users(ctx context.Context, requesterID string) ([]models.User, error)
}

type Handler struct {
	service shifts.Lifecycle
	users   UserDirectory
}

type createShiftRequest struct {
	UserID          string `json:"user_id"`
	Specialty       string `json:"specialty"`
	SpecialPriority bool   `json:"special_priority"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(service shifts.Lifecycle, users UserDirectory) *Handler {
	return &Handler{service: service, users: users}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/shifts", h.handleShifts)
	mux.HandleFunc("/api/shifts/", h.handleShiftSubpaths)
	mux.HandleFunc("/api/users", h.handleUsers)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleShifts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		shiftList, err := h.service.Shifts(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, shiftList)
	case http.MethodPost:
		h.handleCreateShift(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	var req createShiftRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.Specialty = strings.TrimSpace(req.Specialty)
	if req.UserID == "" || req.Specialty == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id and specialty are required")
		return
	}

	shift, err := h.service.Generate(r.Context(), models.Shift{
		UserID:          req.UserID,
		Specialty:       req.Specialty,
		SpecialPriority: req.SpecialPriority,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, shift)
}

func (h *Handler) handleShiftSubpaths(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/shifts/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch len(parts) {
	case 1:
		h.handleShiftByID(w, r, parts[0])
	case 2:
		h.handleShiftQuery(w, r, parts[0], parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleShiftByID(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		shift, err := h.service.ShiftByID(r.Context(), id)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, shift)
	case http.MethodDelete:
		if err := h.service.Delete(r.Context(), id); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleShiftQuery(w http.ResponseWriter, r *http.Request, kind, value string) {
	if value == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if kind == "code" {
		h.handleShiftByCode(w, r, value)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var (
		shiftList []models.Shift
		err       error
	)
	switch kind {
	case "role":
		shiftList, err = h.service.ShiftsByRole(r.Context(), value)
	case "user":
		shiftList, err = h.service.ShiftsByUserID(r.Context(), value)
	case "specialty":
		shiftList, err = h.service.ShiftsBySpecialtyToday(r.Context(), value)
	case "status":
		shiftList, err = h.service.ShiftsByStatusToday(r.Context(), value)
	case "priority":
		priority, parseErr := strconv.ParseBool(value)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "priority must be true or false")
			return
		}
		shiftList, err = h.service.ShiftsByPriorityToday(r.Context(), priority)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, shiftList)
}

func (h *Handler) handleShiftByCode(w http.ResponseWriter, r *http.Request, code string) {
	switch r.Method {
	case http.MethodGet:
		shift, err := h.service.ShiftByTurnCodeToday(r.Context(), code)
		if err != nil {
			status, errCode, msg := mapError(err)
			writeError(w, status, errCode, msg)
			return
		}
		writeJSON(w, http.StatusOK, shift)
	case http.MethodDelete:
		deleted, err := h.service.DeleteByTurnCodeToday(r.Context(), code)
		if err != nil {
			status, errCode, msg := mapError(err)
			writeError(w, status, errCode, msg)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deleted": deleted})
	case http.MethodPut:
		h.handleChangeStatus(w, r, code)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request, code string) {
	var req changeStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	shift, err := h.service.ShiftByTurnCodeToday(r.Context(), code)
	if err != nil {
		status, errCode, msg := mapError(err)
		writeError(w, status, errCode, msg)
		return
	}

	updated, err := h.service.ChangeStatus(r.Context(), shift, strings.TrimSpace(req.Status))
	if err != nil {
		status, errCode, msg := mapError(err)
		writeError(w, status, errCode, msg)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	requesterID := strings.TrimSpace(r.URL.Query().Get("requester_id"))
	if requesterID == "" {
		requesterID = strings.TrimSpace(r.Header.Get("X-User-ID"))
	}
	if requesterID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "requester_id is required")
		return
	}

	users, err := h.users.Users(r.Context(), requesterID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrShiftNotFound):
		return http.StatusNotFound, "shift_not_found", "shift not found"
	case errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "user not found"
	case errors.Is(err, shifts.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status", "status is missing or not a known shift status"
	case errors.Is(err, shifts.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "shift status does not allow this transition"
	case errors.Is(err, identity.ErrMissingCredentials), errors.Is(err, identity.ErrNoToken):
		return http.StatusBadGateway, "credential_error", "could not authenticate against the identity service"
	case errors.Is(err, shifts.ErrUpstream), errors.Is(err, identity.ErrUnavailable):
		return http.StatusBadGateway, "upstream_error", "a dependency call failed"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
