package gateway

import (
	"encoding/json"
	"net/http"
)

// Error envelope codes beyond the persisted query codes.
const (
	codeSchemaNotFound         = "SCHEMA_NOT_FOUND"
	codeSchemaDisabled         = "SCHEMA_DISABLED"
	codeAuthenticationRequired = "authentication_required"
	codeSuperuserRequired      = "superuser_required"
	codeInternalError          = "INTERNAL_ERROR"
	codePayloadTooLarge        = "payload_too_large"
	codeBadRequest             = "BAD_REQUEST"
	codeMethodNotAllowed       = "METHOD_NOT_ALLOWED"
	codeRegistryUnavailable    = "REGISTRY_UNAVAILABLE"
)

// graphqlError is one entry in the errors array of a response.
type graphqlError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// graphqlResponse is the wire shape of every reply, success or error.
type graphqlResponse struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []graphqlError `json:"errors,omitempty"`
}

func codedError(code, message string) graphqlError {
	return graphqlError{
		Message:    message,
		Extensions: map[string]any{"code": code},
	}
}

// writeError writes the standard error envelope with the given HTTP status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, &graphqlResponse{
		Errors: []graphqlError{codedError(code, message)},
	}, false)
}

func writeJSON(w http.ResponseWriter, status int, body any, pretty bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(body)
}
