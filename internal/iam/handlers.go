package iam

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KentSpendy/BukCare/pkg/interfaces"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// Handlers contains HTTP handlers for IAM operations
type Handlers struct {
	service interfaces.IAMService
	logger  *logger.Logger
}

// NewHandlers creates new IAM HTTP handlers
func NewHandlers(service interfaces.IAMService, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterPublicRoutes registers routes that require no authentication
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/register/", h.registerHandler).Methods("POST")
	router.HandleFunc("/login/", h.loginHandler).Methods("POST")
	router.HandleFunc("/token/refresh/", h.refreshHandler).Methods("POST")
}

// RegisterProtectedRoutes registers routes that require authentication
func (h *Handlers) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/whoami/", h.whoamiHandler).Methods("GET")
	router.HandleFunc("/users/", h.listUsersHandler).Methods("GET")
	router.HandleFunc("/users/{id}/", h.getUserHandler).Methods("GET")
}

// registerHandler handles user registration
func (h *Handlers) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req types.UserRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}

	user, err := h.service.RegisterUser(&req)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, user)
}

// loginHandler handles user authentication
func (h *Handlers) loginHandler(w http.ResponseWriter, r *http.Request) {
	var credentials types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}

	token, err := h.service.AuthenticateUser(&credentials)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, token)
}

// refreshHandler handles access token refresh
func (h *Handlers) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		h.writeErrorResponse(w, types.NewValidationError(types.ErrCodeInvalidInput, "Refresh token is required", nil))
		return
	}

	token, err := h.service.RefreshToken(req.Refresh)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, token)
}

// whoamiHandler resolves the calling user's identity
func (h *Handlers) whoamiHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	identity, err := h.service.WhoAmI(claims.UserID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, identity)
}

// listUsersHandler lists users by role for staff
func (h *Handlers) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	role := types.UserRole(r.URL.Query().Get("role"))
	if role == "" {
		role = types.RolePatient
	}

	users, err := h.service.ListUsersByRole(role, claims.Role)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, users)
}

// getUserHandler returns one user: staff see anyone, others only themselves
func (h *Handlers) getUserHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		h.writeErrorResponse(w, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required"))
		return
	}

	userID := mux.Vars(r)["id"]
	if userID != claims.UserID && claims.Role != types.RoleStaff && claims.Role != types.RoleAdmin {
		h.writeErrorResponse(w, types.NewAuthorizationError(types.ErrCodeForbidden, "Not allowed to view this user"))
		return
	}

	user, err := h.service.GetUser(userID)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, user)
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
