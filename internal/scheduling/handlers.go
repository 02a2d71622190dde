package scheduling

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/KentSpendy/BukCare/pkg/interfaces"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// Handlers contains HTTP handlers for scheduling operations
type Handlers struct {
	service interfaces.SchedulingService
	logger  *logger.Logger
}

// NewHandlers creates new scheduling HTTP handlers
func NewHandlers(service interfaces.SchedulingService, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers scheduling routes on an authenticated router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/availabilities/", h.listAvailabilitiesHandler).Methods("GET")
	router.HandleFunc("/availabilities/", h.createAvailabilityHandler).Methods("POST")
	router.HandleFunc("/availabilities/{id}/", h.updateAvailabilityHandler).Methods("PUT")
	router.HandleFunc("/availabilities/{id}/", h.deleteAvailabilityHandler).Methods("DELETE")

	// Fixed paths are registered ahead of the {id} routes
	router.HandleFunc("/appointments/queue/", h.queueHandler).Methods("GET")
	router.HandleFunc("/appointments/export/", h.exportHistoryHandler).Methods("GET")
	router.HandleFunc("/appointments/history/", h.historyHandler).Methods("GET")
	router.HandleFunc("/appointments/", h.listAppointmentsHandler).Methods("GET")
	router.HandleFunc("/appointments/", h.bookAppointmentHandler).Methods("POST")
	router.HandleFunc("/appointments/{id}/detail/", h.getAppointmentHandler).Methods("GET")
	router.HandleFunc("/appointments/{id}/", h.getAppointmentHandler).Methods("GET")
	router.HandleFunc("/appointments/{id}/", h.updateAppointmentHandler).Methods("PATCH")
	router.HandleFunc("/appointments/{id}/", h.rescheduleHandler).Methods("PUT")
}

// RegisterDoctorRoutes registers the doctor-only scheduling tools on a router
// already mounted under the /doctor/ prefix and restricted to the doctor role.
func (h *Handlers) RegisterDoctorRoutes(router *mux.Router) {
	router.HandleFunc("/export-appointments/", h.exportHistoryHandler).Methods("GET")
	router.HandleFunc("/notifications/", h.notificationsHandler).Methods("GET")
	router.HandleFunc("/notifications/{id}/", h.markNotificationReadHandler).Methods("PATCH")
}

func (h *Handlers) listAvailabilitiesHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	doctorID := r.URL.Query().Get("doctor")
	slots, err := h.service.GetAvailabilities(doctorID, claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, slots)
}

func (h *Handlers) createAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	var req types.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}

	slots, err := h.service.CreateAvailability(&req, claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, slots)
}

func (h *Handlers) updateAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	var req types.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}

	slot, err := h.service.UpdateAvailability(mux.Vars(r)["id"], &req, claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, slot)
}

func (h *Handlers) deleteAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	if err := h.service.DeleteAvailability(mux.Vars(r)["id"], claims); err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Availability deleted"})
}

func (h *Handlers) bookAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	var req types.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}

	apt, err := h.service.BookAppointment(&req, claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, apt)
}

func (h *Handlers) listAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	filters := &types.AppointmentFilters{
		DoctorID:  r.URL.Query().Get("doctor"),
		PatientID: r.URL.Query().Get("patient"),
		Date:      r.URL.Query().Get("date"),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := types.NormalizeStatus(raw)
		if !ok {
			h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Unknown status", nil))
			return
		}
		filters.Status = status
	}

	appointments, err := h.service.GetAppointments(filters, claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, appointments)
}

func (h *Handlers) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	detail, err := h.service.GetAppointmentDetail(mux.Vars(r)["id"], claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, detail)
}

func (h *Handlers) updateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	// Status is normalized at the boundary so legacy "rejected" payloads
	// land as "declined"
	var raw struct {
		Status       *string `json:"status"`
		TriageStatus *string `json:"triage_status"`
		Reason       *string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}

	updates := &types.AppointmentUpdates{Reason: raw.Reason}
	if raw.Status != nil {
		status, ok := types.NormalizeStatus(*raw.Status)
		if !ok {
			h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Unknown status", nil))
			return
		}
		updates.Status = &status
	}
	if raw.TriageStatus != nil {
		triage := types.TriageStatus(*raw.TriageStatus)
		updates.TriageStatus = &triage
	}

	apt, err := h.service.UpdateAppointment(mux.Vars(r)["id"], updates, claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, apt)
}

func (h *Handlers) rescheduleHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	var req struct {
		Availability string `json:"availability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Availability == "" {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "A target availability slot is required", nil))
		return
	}

	apt, err := h.service.RescheduleAppointment(mux.Vars(r)["id"], req.Availability, claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, apt)
}

func (h *Handlers) queueHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	var triage []types.TriageStatus
	for _, raw := range r.URL.Query()["triage"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t := types.TriageStatus(part)
			if !types.ValidTriage(t) {
				h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput,
					fmt.Sprintf("Unknown triage status: %s", part), nil))
				return
			}
			triage = append(triage, t)
		}
	}

	queue, err := h.service.GetQueue(r.URL.Query().Get("doctor"), triage, claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, queue)
}

func (h *Handlers) historyHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	history, err := h.service.GetHistory(claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, history)
}

func (h *Handlers) exportHistoryHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	csvBytes, err := h.service.ExportHistoryCSV(claims)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="appointment_history.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.WithError(err).Error("Failed to write CSV response")
	}
}

func (h *Handlers) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	if claims.Role != types.RoleDoctor {
		h.writeErrorResponse(w, types.NewAuthorizationError(types.ErrCodeForbidden, "Only doctors have notifications"))
		return
	}

	notifications, err := h.service.GetNotifications(claims.UserID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, notifications)
}

func (h *Handlers) markNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	if claims.Role != types.RoleDoctor {
		h.writeErrorResponse(w, types.NewAuthorizationError(types.ErrCodeForbidden, "Only doctors have notifications"))
		return
	}

	if err := h.service.MarkNotificationRead(mux.Vars(r)["id"], claims.UserID); err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse maps service errors onto HTTP status codes
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	response := map[string]interface{}{
		"error": "Internal server error",
	}

	var clinicErr *types.ClinicError
	if errors.As(err, &clinicErr) {
		statusCode = httpStatusForErrorType(clinicErr.Type)
		response["error"] = clinicErr.Message
		response["code"] = clinicErr.Code
		if clinicErr.Details != nil {
			response["details"] = clinicErr.Details
		}
	}

	if statusCode >= 500 {
		h.logger.WithError(err).Error("Request failed")
	}

	h.writeJSONResponse(w, statusCode, response)
}

func httpStatusForErrorType(t types.ErrorType) int {
	switch t {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case types.ErrorTypeExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
