// AngelaMos | 2026
// response.go

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorBody is the wire shape for every failed response, matching the
// errcode/error convention of the upstream registration protocol.
type ErrorBody struct {
	Errcode string `json:"errcode"`
	Error   any    `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

func Created(w http.ResponseWriter, v any) {
	JSON(w, http.StatusCreated, v)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Error(w http.ResponseWriter, status int, errcode string, detail any) {
	JSON(w, status, ErrorBody{Errcode: errcode, Error: detail})
}

func BadRequest(w http.ResponseWriter, detail any) {
	Error(w, http.StatusBadRequest, CodeBadUserRequest, detail)
}

func NotFound(w http.ResponseWriter, resource string) {
	Error(
		w,
		http.StatusNotFound,
		CodeTokenNotFound,
		fmt.Sprintf("%s does not exist", resource),
	)
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, CodeBadSecret, "wrong shared secret")
}

func InternalServerError(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	Error(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

// FormatValidationError flattens validator.ValidationErrors into a
// field -> message map so callers see every violation at once.
func FormatValidationError(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		fields["request"] = err.Error()
		return fields
	}

	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = fmt.Sprintf(
			"failed validation on %q", fieldErr.Tag(),
		)
	}

	return fields
}
