package rest

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/civicview/comment-service/domain"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// getStatusCode maps usecase errors to HTTP status codes
func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		logrus.Error(err)
		return http.StatusInternalServerError
	}
}

// errorMessage hides store details behind the generic internal error.
func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return domain.ErrInternalServerError.Error()
	}
	return err.Error()
}
