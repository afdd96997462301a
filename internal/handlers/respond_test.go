package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"icarus/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", apperror.ValidationFailed("mealName", "meal name is required"), http.StatusBadRequest, `"message":"meal name is required"`},
		{"wrapped not found", fmt.Errorf("ctx: %w", apperror.NotFound("entry", "e1")), http.StatusNotFound, `entry not found with id e1`},
		{"unauthorized", apperror.Unauthorized("nope"), http.StatusUnauthorized, `"message":"nope"`},
		{"conflict", apperror.Conflict("taken"), http.StatusConflict, `"message":"taken"`},
		{"storage", errors.New("disk full"), http.StatusInternalServerError, `"error":"disk full"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, zap.NewNop(), "Error adding entry", tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst goalRequest

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, decodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{nope"))
	err := decodeJSON(req, &dst)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"proteinGoal":"120"}`))
	assert.NoError(t, decodeJSON(req, &dst))
	assert.Equal(t, flexString("120"), dst.ProteinGoal)
}
