package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitesmith/internal/archive"
	"sitesmith/internal/artifact"
	"sitesmith/internal/pipeline"
	"sitesmith/internal/workspace"
)

type stubClient struct {
	response string
	err      error
}

func (s *stubClient) Generate(context.Context, string) (string, error) {
	return s.response, s.err
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

const validResponse = `{"files": {
	"package.json": "{\"name\":\"demo\",\"version\":\"1.0.0\",\"dependencies\":{},\"devDependencies\":{}}",
	"index.html": "<!doctype html>"
}}`

func newTestServer(t *testing.T, client *stubClient) (*Server, *artifact.Registry) {
	t.Helper()
	fs := memfs.New()
	reg := artifact.NewRegistry(fs, time.Minute, zap.NewNop(),
		artifact.WithScheduler(func(time.Duration, func()) artifact.Timer { return noopTimer{} }))
	p := pipeline.New(client,
		workspace.NewMaterializer(fs, zap.NewNop()),
		archive.NewBuilder(fs, zap.NewNop()),
		reg,
		zap.NewNop())
	return New(":0", p, reg, "*", time.Minute, zap.NewNop()), reg
}

func postGenerate(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateEndpointSuccess(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{response: validResponse})
	h := srv.Handler()

	rec := postGenerate(t, h, `{"query":"a demo","projectName":"demo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success           bool              `json:"success"`
		Files             map[string]string `json:"files"`
		ZipFileName       string            `json:"zipFileName"`
		DownloadURL       string            `json:"downloadUrl"`
		ActualProjectName string            `json:"actualProjectName"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Files, 2)
	assert.Equal(t, "/download/"+resp.ZipFileName, resp.DownloadURL)
	assert.NotEmpty(t, resp.ActualProjectName)

	// The archive is immediately retrievable.
	dl := httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil)
	dlRec := httptest.NewRecorder()
	h.ServeHTTP(dlRec, dl)
	require.Equal(t, http.StatusOK, dlRec.Code)
	assert.Equal(t, "application/zip", dlRec.Header().Get("Content-Type"))
	assert.Contains(t, dlRec.Header().Get("Content-Disposition"), resp.ZipFileName)
	assert.NotEmpty(t, dlRec.Body.Bytes())
}

func TestGenerateEndpointRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{response: validResponse})

	rec := postGenerate(t, srv.Handler(), `{"projectName":"demo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postGenerate(t, srv.Handler(), `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateEndpointDecodeFailure(t *testing.T) {
	raw := "sorry, no JSON today"
	srv, _ := newTestServer(t, &stubClient{response: raw})

	rec := postGenerate(t, srv.Handler(), `{"query":"a demo"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp struct {
		Success     bool   `json:"success"`
		RawResponse string `json:"rawResponse"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, raw, resp.RawResponse)
}

func TestGenerateEndpointValidationFailure(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{response: `{"files": {
		"package.json": "{\"name\":\"demo\",\"version\":\"1.0.0\",\"dependencies\":{},\"devDependencies\":{}}",
		"src/a.js": "import pad from \"left-pad\""
	}}`})

	rec := postGenerate(t, srv.Handler(), `{"query":"a demo"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Success bool     `json:"success"`
		Issues  []string `json:"issues"`
		Hint    string   `json:"hint"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotEmpty(t, resp.Issues)
	assert.Contains(t, resp.Issues[0], "left-pad")
	assert.NotEmpty(t, resp.Hint)
}

func TestDownloadUnknownNameIs404(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{response: validResponse})
	h := srv.Handler()

	for _, name := range []string{"nope.zip", "nope.txt", "..%2Fescape.zip"} {
		req := httptest.NewRequest(http.MethodGet, "/download/"+name, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "name %q", name)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{response: validResponse})

	req := httptest.NewRequest(http.MethodOptions, "/api/generate", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{response: validResponse})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
