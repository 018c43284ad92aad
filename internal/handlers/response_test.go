package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

func TestRespondErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", utils.NotFound("playbook %s not found", "p1"), http.StatusNotFound, "playbook p1 not found"},
		{"validation", utils.Validation("days must be positive"), http.StatusBadRequest, "days must be positive"},
		{"business rule", utils.BusinessRule("experiment is draft"), http.StatusUnprocessableEntity, "experiment is draft"},
		{"unexpected hides details", utils.Unexpected(errors.New("connection refused"), "failed to load"), http.StatusInternalServerError, "Internal server error"},
		{"plain error is unexpected", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/playbooks/p1", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, `{"success":false,"message":"`+tt.message+`"}`, w.Body.String())
		})
	}
}
