package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rmonteiro-dev/stocktrades/internal/service"
)

// Link is a hypermedia reference to an operation on a record.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

func recordHref(id int) string {
	return fmt.Sprintf("/stocktrades/%d", id)
}

// recordLinks are the links attached to a full record representation.
func recordLinks(id int) []Link {
	href := recordHref(id)
	return []Link{
		{Rel: "self", Href: href},
		{Rel: "delete", Href: href},
		{Rel: "update", Href: href},
	}
}

// updateLinks are the links returned after an update or patch.
func updateLinks(id int) []Link {
	href := recordHref(id)
	return []Link{
		{Rel: "self", Href: href},
		{Rel: "delete", Href: href},
	}
}

// ErrorResponse is the error body shape: a fixed category message plus the
// textual detail of what went wrong.
type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details"`
}

const requiredFieldsMessage = "id, security, date, open, high, low, close, volume, adjClose are required fields"

// errorStatus maps a business error to its HTTP status and response body.
// All three business error kinds surface as 404; anything else is an
// unanticipated failure and becomes a generic 500.
func errorStatus(err error) (int, ErrorResponse) {
	var notFound *service.NotFoundError
	var invalid *service.InvalidRecordError
	var duplicate *service.DuplicateRecordError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorResponse{Message: "Record(s) Not Found", Details: []string{notFound.Detail}}
	case errors.As(err, &invalid):
		return http.StatusNotFound, ErrorResponse{Message: requiredFieldsMessage, Details: []string{invalid.Detail}}
	case errors.As(err, &duplicate):
		return http.StatusNotFound, ErrorResponse{Message: "duplicate record", Details: []string{duplicate.Detail}}
	default:
		return http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error", Details: []string{"an unexpected error occurred"}}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("unhandled error in stocktrade handler")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
