package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/pkg/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"unauthenticated", apperr.Unauthenticated("not authenticated"), http.StatusUnauthorized, "not authenticated"},
		{"forbidden", apperr.Forbidden("admin access required"), http.StatusForbidden, "admin access required"},
		{"not found", apperr.NotFound("event not found"), http.StatusNotFound, "event not found"},
		{"conflict", apperr.Conflict("you already have a ticket for this event"), http.StatusConflict, "you already have a ticket for this event"},
		{"validation", apperr.Validation("title is required"), http.StatusBadRequest, "title is required"},
		{"internal", errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			Error(c, zap.NewNop(), tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body Body
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.msg, body.Error)
		})
	}
}

func TestCreated_IncludesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Created(c, gin.H{"id": "t1"}, "Ticket booked successfully")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"t1"},"message":"Ticket booked successfully"}`, w.Body.String())
}
