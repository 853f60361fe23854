package pkg

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/items", nil)
	c.Request.RemoteAddr = "10.1.2.3:5555"

	assert.Equal(t, "10.1.2.3", GetClientIP(c))
}
