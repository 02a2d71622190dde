package doctor

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/interfaces"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// Handlers contains HTTP handlers for the doctor portal
type Handlers struct {
	service interfaces.DoctorService
	config  *config.Config
	logger  *logger.Logger
}

// NewHandlers creates new doctor HTTP handlers
func NewHandlers(service interfaces.DoctorService, cfg *config.Config, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		config:  cfg,
		logger:  log,
	}
}

// RegisterPublicRoutes registers the unauthenticated doctor directory
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/public/doctors/", h.searchPublicDoctorsHandler).Methods("GET")
	router.HandleFunc("/public/doctors/{id}/", h.getPublicDoctorHandler).Methods("GET")
	router.HandleFunc("/doctor/profile/{id}/", h.getPublicDoctorHandler).Methods("GET")
}

// RegisterProtectedRoutes registers the doctor portal on a router already
// mounted under the /doctor/ prefix and restricted to the doctor role.
func (h *Handlers) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/profile/", h.getProfileHandler).Methods("GET")
	router.HandleFunc("/profile/", h.updateProfileHandler).Methods("PUT")
	router.HandleFunc("/profile/photo/", h.uploadPhotoHandler).Methods("POST")
	router.HandleFunc("/dashboard/overview/", h.dashboardOverviewHandler).Methods("GET")
	router.HandleFunc("/patient-summaries/", h.patientSummariesHandler).Methods("GET")
	router.HandleFunc("/toggle-available/", h.toggleAvailableHandler).Methods("POST")
	router.HandleFunc("/logout/", h.logoutHandler).Methods("POST")
}

// requireDoctorClaims resolves the caller and checks the doctor role
func (h *Handlers) requireDoctorClaims(w http.ResponseWriter, r *http.Request) (*types.UserClaims, bool) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return nil, false
	}
	if claims.Role != types.RoleDoctor {
		h.writeErrorResponse(w, types.NewAuthorizationError(types.ErrCodeForbidden, "Doctor access required"))
		return nil, false
	}
	return claims, true
}

func (h *Handlers) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireDoctorClaims(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(claims.UserID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, user)
}

func (h *Handlers) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireDoctorClaims(w, r)
	if !ok {
		return
	}

	var updates types.ProfileUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}

	user, err := h.service.UpdateProfile(claims.UserID, &updates)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, user)
}

// uploadPhotoHandler accepts a multipart form with a "photo" file field
func (h *Handlers) uploadPhotoHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireDoctorClaims(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Media.MaxBytes)
	if err := r.ParseMultipartForm(h.config.Media.MaxBytes); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Photo exceeds the size limit or is not multipart form data", nil))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "A photo file is required", nil))
		return
	}
	defer file.Close()

	user, err := h.service.UploadProfilePhoto(r.Context(), claims.UserID, header.Filename, file)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, user)
}

func (h *Handlers) dashboardOverviewHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireDoctorClaims(w, r)
	if !ok {
		return
	}

	overview, err := h.service.GetDashboardOverview(claims.UserID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, overview)
}

func (h *Handlers) patientSummariesHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireDoctorClaims(w, r)
	if !ok {
		return
	}

	summaries, err := h.service.GetPatientSummaries(claims.UserID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, summaries)
}

func (h *Handlers) toggleAvailableHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireDoctorClaims(w, r)
	if !ok {
		return
	}

	available, err := h.service.ToggleAvailableOnCall(claims.UserID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]bool{"is_available_on_call": available})
}

func (h *Handlers) logoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireDoctorClaims(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID); err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]string{"detail": "Logged out"})
}

func (h *Handlers) searchPublicDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.service.SearchPublicDoctors(r.URL.Query().Get("q"))
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, doctors)
}

func (h *Handlers) getPublicDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["id"]

	profile, err := h.service.GetPublicProfile(doctorID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, profile)
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
