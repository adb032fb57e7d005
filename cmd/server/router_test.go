package main

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/pixelforge/internal/app"
	"github.com/phrazzld/pixelforge/internal/config"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/platform/logger"
	"github.com/phrazzld/pixelforge/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "pixel-pass"

// svgTransport answers every request with the same valid SVG document.
type svgTransport struct{}

func (svgTransport) Complete(context.Context, generation.Request) (string, error) {
	return `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 8 8">` +
		`<rect x="0" y="0" width="8" height="8" fill="#335577"/>` +
		`<rect x="3" y="3" width="2" height="2" fill="#eeddaa"/>` +
		strings.Repeat("<!-- pixel -->", 10) + `</svg>`, nil
}

func (t svgTransport) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s, err := t.Complete(ctx, req)
		yield(s, err)
	}
}

func newTestApplication(t *testing.T) *application {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	t.Setenv("PIXELFORGE_LIBRARY_DIR", filepath.Join(t.TempDir(), "library"))
	t.Setenv("PIXELFORGE_SERVER_OUTPUT_DIR", filepath.Join(t.TempDir(), "out"))
	t.Setenv("PIXELFORGE_IMAGE_PIXEL_SCALE", "1")
	t.Setenv("PIXELFORGE_AUTH_JWT_SECRET", "router-test-secret-with-enough-length")
	t.Setenv("PIXELFORGE_AUTH_PASSWORD_HASH", string(hash))
	t.Setenv("PIXELFORGE_GENERATION_PROMPT_DIR", filepath.Join(t.TempDir(), "prompts"))
	t.Setenv("PIXELFORGE_SERVER_PARAMS_FILE", filepath.Join(t.TempDir(), "generation-params.json"))
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.NewDiscardLogger()
	a := &application{config: cfg, logger: log}

	a.jwtService, err = auth.NewJWTService(cfg.Auth)
	require.NoError(t, err)
	a.authenticator, err = auth.NewAuthenticator(cfg.Auth, nil)
	require.NoError(t, err)
	a.components, err = app.Build(svgTransport{}, cfg, log)
	require.NoError(t, err)
	a.params, err = config.NewParamsStore(cfg.Server.ParamsFile)
	require.NoError(t, err)
	require.NoError(t, a.setupTasks(context.Background()))
	t.Cleanup(a.cleanup)

	return a
}

func request(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_TaskLifecycle(t *testing.T) {
	a := newTestApplication(t)
	router := a.setupRouter()

	rr := request(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = request(t, router, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = request(t, router, http.MethodPost, "/api/tasks", "", map[string]string{"description": "x"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = request(t, router, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "admin", "password": testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&login))
	require.NotEmpty(t, login.Token)

	rr = request(t, router, http.MethodPost, "/api/tasks", login.Token, map[string]string{
		"description": "a slime in a cave",
		"type":        "mob",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	var status struct {
		Status    string `json:"status"`
		SVGURL    string `json:"svgUrl"`
		RasterURL string `json:"rasterUrl"`
	}
	require.Eventually(t, func() bool {
		rr := request(t, router, http.MethodGet, "/api/tasks/"+created.TaskID, login.Token, nil)
		if rr.Code != http.StatusOK {
			return false
		}
		if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
			return false
		}
		return status.Status == "completed" || status.Status == "failed"
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "completed", status.Status)

	rr = request(t, router, http.MethodGet, status.SVGURL, login.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<svg")

	rr = request(t, router, http.MethodGet, status.RasterURL, login.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = request(t, router, http.MethodGet, "/api/tasks/status", login.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"maxConcurrent":3`)
}

func TestRouter_UnknownTask(t *testing.T) {
	a := newTestApplication(t)
	router := a.setupRouter()

	token, err := a.jwtService.GenerateToken(context.Background(), "admin")
	require.NoError(t, err)

	rr := request(t, router, http.MethodGet, "/api/tasks/0191f8a0-0000-7000-8000-000000000000", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_SettingsEndpoints(t *testing.T) {
	a := newTestApplication(t)
	router := a.setupRouter()

	token, err := a.jwtService.GenerateToken(context.Background(), "admin")
	require.NoError(t, err)

	for _, path := range []string{"/api/generation-params", "/api/prompts"} {
		rr := request(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := request(t, router, http.MethodPut, "/api/generation-params", token, map[string]int{"gridRows": 9})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	reloaded, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9, reloaded.Generation.GridRows)
	assert.Equal(t, 12, a.config.Generation.GridRows)

	rr = request(t, router, http.MethodPut, "/api/prompts/expand_user.tmpl", token,
		map[string]string{"content": "Richer: {{.Description}}"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.FileExists(t, filepath.Join(a.config.Generation.PromptDir, "expand_user.tmpl"))

	rr = request(t, router, http.MethodGet, "/api/prompts/expand_user.tmpl", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Richer:")
}
