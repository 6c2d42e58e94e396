package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/ptnfw/pkg/ptn"
)

var ErrBodyTooLarge = errors.New("request_too_large")

// errorStatus maps codec errors to an HTTP status and error type.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "request_too_large"
	case errors.Is(err, ptn.ErrUnsupportedModel):
		return http.StatusBadRequest, "unsupported_model"
	case errors.Is(err, ptn.ErrMalformedTable):
		return http.StatusUnprocessableEntity, "malformed_table"
	case errors.Is(err, ptn.ErrCorruptImage), errors.Is(err, ptn.ErrHeaderSize):
		return http.StatusUnprocessableEntity, "corrupt_image"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
