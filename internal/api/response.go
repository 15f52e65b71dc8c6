package api

import (
	"encoding/json"
	"io"
	"net/http"
)

// WriteJSON writes a JSON response to the response writer.
// HTML escaping is disabled so hypotheses read naturally.
func WriteJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// WriteError sends an error response with the specified status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = WriteJSON(w, ErrorResponse{Error: errorCode, Message: message})
}

// WriteAPIError sends err using the status and code it maps to
func WriteAPIError(w http.ResponseWriter, err error) {
	apiErr := AsAPIError(err)
	WriteError(w, apiErr.StatusCode, string(apiErr.Code), apiErr.Message)
}

// WriteSuccess sends a success response with HTTP 200
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return WriteJSON(w, data)
}
