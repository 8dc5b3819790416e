package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fulfillment/internal/model"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"concurrency conflict", fmt.Errorf("failed to update delivery: %w", model.ErrConcurrencyConflict), http.StatusConflict, "CONCURRENCY_CONFLICT"},
		{"illegal transition", model.NewStateError("ILLEGAL_TRANSITION", "cannot skip"), http.StatusConflict, "ILLEGAL_TRANSITION"},
		{"validation", model.NewValidationError("quantity", "must be positive"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"not found", fmt.Errorf("failed to load order: %w", model.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"network", model.NewNetworkError("legacy api error 503"), http.StatusBadGateway, "NETWORK_ERROR"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestConcurrencyConflictIsNotAStateError(t *testing.T) {
	assert.Equal(t, model.KindConflict, model.KindOf(model.ErrConcurrencyConflict))
	assert.False(t, model.IsState(model.ErrConcurrencyConflict))
}
