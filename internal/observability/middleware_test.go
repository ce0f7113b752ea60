package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/penne/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(HTTPMiddleware("pennectl-mw", logger))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/health", "/broken", "/missing"} {
		w := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, path, nil)
		require.NoError(t, err)
		r.ServeHTTP(w, req)
	}

	out := buf.String()
	assert.Contains(t, out, `"route":"/health"`)
	assert.Contains(t, out, `"status":500`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"route":"unmatched","path":"/missing"`)
	assert.Contains(t, out, `"level":"warn"`)

	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("pennectl-mw", "GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("pennectl-mw", "GET", "/health", "204")))
}
