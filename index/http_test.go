package index

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestHTTPHandler(t *testing.T) {
	index := NewFileIndex()
	index.Register([]string{"b.txt", "a.txt"}, mustAddress(t, "tcp:127.0.0.1:6001"))
	handler := NewHTTPHandler(index, zaptest.NewLogger(t))

	get := func(path string) *httptest.ResponseRecorder {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		return recorder
	}

	recorder := get("/healthz")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok","files":2}`, recorder.Body.String())

	recorder = get("/search?q=txt")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, `{"b.txt":["tcp:127.0.0.1:6001"],"a.txt":["tcp:127.0.0.1:6001"]}`, recorder.Body.String())

	recorder = get("/files/a.txt")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"file":"a.txt","peers":["tcp:127.0.0.1:6001"]}`, recorder.Body.String())

	recorder = get("/files/missing.txt")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
