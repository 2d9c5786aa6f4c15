package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/pulseboard/pulse/pkg/api"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteAccepted writes a 202 Accepted response with JSON data
func WriteAccepted(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusAccepted, data)
}

// WriteAPIError writes a structured error envelope, mapping the error kind to
// an HTTP status. Unclassified errors are reported as execution failures.
func WriteAPIError(w http.ResponseWriter, err error) {
	apiErr := api.AsError(err)
	WriteJSON(w, StatusForKind(apiErr.Kind), map[string]interface{}{
		"error": apiErr,
	})
}

// StatusForKind maps an error kind to its HTTP status code
func StatusForKind(kind api.ErrorKind) int {
	switch kind {
	case api.KindClientInput:
		return http.StatusBadRequest
	case api.KindAuthentication:
		return http.StatusUnauthorized
	case api.KindRateLimited:
		return http.StatusTooManyRequests
	case api.KindGeneration:
		return http.StatusBadGateway
	case api.KindValidationRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteNotFoundError writes a not found error response (404 Not Found)
func WriteNotFoundError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes an internal server error response (500)
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteErrorMessage(w, http.StatusInternalServerError, err.Error())
}
