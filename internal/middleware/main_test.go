package middleware

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("SHIPLOG_JWT_SECRET", "test-secret-that-is-long-enough-for-hmac")
	os.Exit(m.Run())
}
