package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the envelope every JSON endpoint writes. Data carries the
// payload on success, Error the reason on failure; clients key off the
// HTTP status code, not the Status string.
type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WriteJSON writes the payload with the given HTTP status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps a single error into the envelope.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError flattens validator failures into one field: tag list.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Field()+": "+err.Tag())
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(msgs, "; "),
	}
}

// RequestOK wraps a successful payload with a human-readable message.
func RequestOK(message string, data any) Response {
	return Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}
