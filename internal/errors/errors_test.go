package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperror "stockledger/internal/errors"
)

func TestMapToHTTPStatus(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantCategory string
		wantMessage  string
	}{
		{"validation", apperror.NewValidationError("quantity required"), http.StatusBadRequest, "VALIDATION_ERROR", "quantity required"},
		{"number format", apperror.NewNumberFormatError("", ""), http.StatusBadRequest, "NUMBER_FORMAT_ERROR", "invalid number format"},
		{"not found", apperror.NewNotFoundError("product not found"), http.StatusNotFound, "NOT_FOUND", "product not found"},
		{"conflict", apperror.NewConflictError("stock changed"), http.StatusConflict, "CONFLICT", "stock changed"},
		{"store", apperror.NewDBError("select", errors.New("connection refused")), http.StatusInternalServerError, "STORE_ERROR", "an unexpected store error occurred"},
		{"wrapped", fmt.Errorf("ctx: %w", apperror.NewNotFoundError("gone")), http.StatusNotFound, "NOT_FOUND", "gone"},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR", "an unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, category, message := apperror.MapToHTTPStatus(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCategory, category)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperror.NewDBError("insert restock", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert restock")
}

func TestNumberFormatErrorMessage(t *testing.T) {
	err := apperror.NewNumberFormatError("page", "abc")
	assert.Equal(t, `invalid number format for page: "abc"`, err.Error())
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, apperror.IsNotFound(fmt.Errorf("wrap: %w", apperror.NewNotFoundError("x"))))
	assert.False(t, apperror.IsNotFound(apperror.NewValidationError("x")))
	assert.True(t, apperror.IsConflict(apperror.NewConflictError("x")))
}
