package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/chats", AuthMiddleware(token), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		header string
		query  string
		code   int
	}{
		{name: "disabled", token: "", code: http.StatusOK},
		{name: "missing", token: "s3cret", code: http.StatusUnauthorized},
		{name: "bad scheme", token: "s3cret", header: "Basic s3cret", code: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", header: "Bearer nope", code: http.StatusUnauthorized},
		{name: "bearer", token: "s3cret", header: "bearer s3cret", code: http.StatusOK},
		{name: "query", token: "s3cret", query: "?token=s3cret", code: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/chats"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			newRouter(tc.token).ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
