// errors_test.go - Tests for API error mapping
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/vbc-logbook/backend/internal/jobs"
	"github.com/vbc-logbook/backend/internal/storage"
)

func TestFromDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"store not found", fmt.Errorf("model 3: %w", storage.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"job not found", jobs.ErrJobNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"import running", jobs.ErrImportRunning, http.StatusConflict, "CONFLICT"},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := fromDomainError("model", "3", tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		err         error
		wantStatus  int
		wantBody    string
	}{
		{
			name:       "api error",
			err:        NewValidationError("from"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":"VALIDATION_ERROR","message":"validation failed for field: from"}`,
		},
		{
			name:       "echo error",
			err:        echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"),
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   `{"code":"HTTP_ERROR","message":"Method Not Allowed"}`,
		},
		{
			name:       "unknown error hides details",
			err:        errors.New("secret"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"UNKNOWN_ERROR","message":"An unexpected error occurred"}`,
		},
		{
			name:        "unknown error in development",
			development: true,
			err:         errors.New("secret"),
			wantStatus:  http.StatusInternalServerError,
			wantBody:    `{"code":"UNKNOWN_ERROR","message":"An unexpected error occurred","details":"secret"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			NewErrorHandler(nil, tt.development)(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
