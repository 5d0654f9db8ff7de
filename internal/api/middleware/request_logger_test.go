package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/skillradar/internal/utils"
)

func loggedRouter(l *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(l))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(utils.E(utils.CodeInternal, "Thing.Do", "failed", io.ErrUnexpectedEOF))
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func TestRequestLoggerEchoesWellFormedID(t *testing.T) {
	l, hook := test.NewNullLogger()
	r := loggedRouter(l)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "trace-1234abcd")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-1234abcd", w.Header().Get(HeaderRequestID))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/ok", entry.Data["route"])
	assert.Equal(t, 4, entry.Data["bytes"])
}

func TestRequestLoggerReplacesMalformedID(t *testing.T) {
	l, _ := test.NewNullLogger()
	r := loggedRouter(l)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "bad id\n")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get(HeaderRequestID)
	assert.NotEqual(t, "bad id\n", id)
	assert.Len(t, id, 36)
}

func TestRequestLoggerLevels(t *testing.T) {
	l, hook := test.NewNullLogger()
	r := loggedRouter(l)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "Thing.Do", entry.Data["op"])

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	entry = hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "unmatched", entry.Data["route"])
}
