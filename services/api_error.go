package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const CodeValidation = "VALIDATION"

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	Errors  map[string][]string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsValidation reports whether the backend rejected the payload (422).
func (e *APIError) IsValidation() bool {
	return e.Status == http.StatusUnprocessableEntity
}

// FirstFieldError returns the first field message in field-name order, or
// "" when there are none.
func (e *APIError) FirstFieldError() string {
	if len(e.Errors) == 0 {
		return ""
	}
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		for _, msg := range e.Errors[f] {
			if strings.TrimSpace(msg) != "" {
				return msg
			}
		}
	}
	return ""
}

type errorPayload struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// translateError maps a response to *APIError, or nil for 2xx.
func translateError(status int, body []byte) *APIError {
	if status >= 200 && status < 300 {
		return nil
	}

	var payload errorPayload
	parsed := json.Unmarshal(body, &payload) == nil

	switch status {
	case http.StatusUnauthorized:
		return &APIError{Status: status, Message: orDefault(payload.Message, "Não autenticado."), Errors: payload.Errors}
	case http.StatusForbidden:
		return &APIError{Status: status, Message: orDefault(payload.Message, "Não autorizado.")}
	case http.StatusNotFound:
		return &APIError{Status: status, Message: orDefault(payload.Message, "Recurso não encontrado.")}
	case http.StatusUnprocessableEntity:
		return &APIError{
			Status:  status,
			Code:    CodeValidation,
			Message: orDefault(payload.Message, "Os dados enviados são inválidos."),
			Errors:  payload.Errors,
		}
	}

	message := fmt.Sprintf("Erro %d", status)
	if parsed && payload.Message != "" {
		message = payload.Message
	} else if !parsed {
		if text := strings.TrimSpace(string(body)); text != "" {
			message = text
		}
	}
	return &APIError{Status: status, Message: message}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
