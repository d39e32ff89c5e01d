package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/content"
)

// maxJSONBody caps request bodies decoded by DecodeJSON
const maxJSONBody = 1 << 20

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// DecodeJSON reads a JSON body into dst and validates it
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := Validator().Struct(dst); err != nil {
		return describeValidation(err)
	}
	return nil
}

// decodeStatus is the response status for a DecodeJSON error
func decodeStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// describeValidation turns validator errors into a single readable message
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

// statusForError maps service errors to HTTP status codes
func statusForError(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, content.ErrInvalid), errors.Is(err, interfaces.ErrInvalidPartitionKey):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, content.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// splitList parses a comma separated query value, dropping blanks
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// failRoute writes an error response. Server-side failures are also recorded as
// server events under source; client errors are only reported to the caller.
func failRoute(w http.ResponseWriter, r *http.Request, events interfaces.ServerEventLogger, source models.ProcessSource, message string, err error) {
	status := statusForError(err)
	if status < http.StatusInternalServerError {
		WriteError(w, status, err.Error())
		return
	}

	if events != nil {
		events.LogError(source, message, err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	WriteError(w, status, message)
}
