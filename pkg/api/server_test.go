package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/topgen/pkg/generator"
	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/validation"
)

const validConfigYAML = `
protocols:
  axi4:
    data_width: 64
endpoints:
  - name: cpu
    type: master
    protocol: axi4
    chimneys:
      - name: cpu_ni
  - name: mem
    type: slave
    protocol: axi4
    addr_range: ["0x0000_0000", "0x0000_FFFF"]
    chimneys:
      - name: mem_ni
routers:
  - name: r0
connections:
  - from: cpu_ni
    to: r0
  - from: r0
    to: mem_ni
top:
  export_axi: [cpu]
`

// stubRunner writes a single RTL file and exits with exitCode, or fails with err
type stubRunner struct {
	exitCode int
	err      error
}

func (s *stubRunner) Run(ctx context.Context, req *generator.RunRequest) (*generator.RunResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := os.WriteFile(filepath.Join(req.OutputDir, "floo_noc.sv"), []byte("module floo_noc; endmodule\n"), 0o644); err != nil {
		return nil, err
	}
	return &generator.RunResult{ExitCode: s.exitCode, Stdout: "floogen ok", Stderr: "warn"}, nil
}

func newTestValidator(t *testing.T) *validation.ConfigValidator {
	t.Helper()
	gate, err := validation.DefaultSchemaGate()
	require.NoError(t, err)
	return validation.NewConfigValidator(gate)
}

func newTestServer(t *testing.T, runner generator.Runner, opts ...ServerOption) (*Server, *generator.Service) {
	t.Helper()
	var svc *generator.Service
	if runner != nil {
		var err error
		svc, err = generator.NewService(runner, generator.NewJobStore(16, time.Hour), t.TempDir())
		require.NoError(t, err)
	}
	return NewServer(newTestValidator(t), svc, opts...), svc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestServer_RegisterRoutes(t *testing.T) {
	server, _ := newTestServer(t, &stubRunner{}, WithMetrics(observability.NewMetrics(nil)))

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/api/health"},
		{"GET", "/api/schemas/current"},
		{"POST", "/api/validate"},
		{"POST", "/api/generate"},
		{"GET", "/api/jobs/job_1"},
		{"GET", "/api/jobs/job_1/download"},
		{"GET", "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			var match mux.RouteMatch
			assert.True(t, server.Router().Match(req, &match), "Route %s %s should be registered", tt.method, tt.path)
		})
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, nil)

	w := doJSON(t, server, "GET", "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"topgen"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCurrentSchema(t *testing.T) {
	server, _ := newTestServer(t, nil)

	w := doJSON(t, server, "GET", "/api/schemas/current", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decodeBody(t, w)
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", body["$schema"])
}

func TestValidate(t *testing.T) {
	server, _ := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       any
		expectCode int
		expectBody string
	}{
		{
			name:       "valid yaml string",
			body:       map[string]any{"config": validConfigYAML},
			expectCode: http.StatusOK,
			expectBody: `{"valid":true,"errors":[]}`,
		},
		{
			name: "semantic errors on object",
			body: map[string]any{"config": map[string]any{
				"protocols": map[string]any{},
				"endpoints": []any{
					map[string]any{"name": "cpu", "type": "master", "protocol": "axi"},
					map[string]any{"name": "mem", "type": "slave"},
				},
			}},
			expectCode: http.StatusOK,
			expectBody: `{"valid":false,"errors":[
				"Endpoint 'cpu' references undefined protocol 'axi'",
				"Slave endpoint 'mem' must have 'addr_range'"
			]}`,
		},
		{
			name:       "yaml parse error",
			body:       map[string]any{"config": "endpoints: [unclosed"},
			expectCode: http.StatusOK,
		},
		{
			name:       "missing config",
			body:       map[string]any{"job_id": "x"},
			expectCode: http.StatusBadRequest,
			expectBody: `{"valid":false,"errors":["Missing 'config' field in request body"]}`,
		},
		{
			name:       "non object body",
			body:       "[1, 2]",
			expectCode: http.StatusBadRequest,
			expectBody: `{"valid":false,"errors":["Missing 'config' field in request body"]}`,
		},
		{
			name:       "invalid json",
			body:       "{not json",
			expectCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, server, "POST", "/api/validate", tt.body)

			assert.Equal(t, tt.expectCode, w.Code)
			if tt.expectBody != "" {
				assert.JSONEq(t, tt.expectBody, w.Body.String())
			}
			body := decodeBody(t, w)
			assert.Contains(t, body, "valid")
			assert.Contains(t, body, "errors")
		})
	}
}

func TestValidate_NullConfigIsSchemaError(t *testing.T) {
	server, _ := newTestServer(t, nil)

	w := doJSON(t, server, "POST", "/api/validate", `{"config": null}`)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["valid"])
	errs := body["errors"].([]any)
	require.NotEmpty(t, errs)
	assert.True(t, strings.HasPrefix(errs[0].(string), "root: "), errs[0])
}

func TestValidate_BodyTooLarge(t *testing.T) {
	server, _ := newTestServer(t, nil, WithMaxBodyBytes(32))

	w := doJSON(t, server, "POST", "/api/validate", map[string]any{"config": validConfigYAML})

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestGenerate_Success(t *testing.T) {
	server, _ := newTestServer(t, &stubRunner{})

	w := doJSON(t, server, "POST", "/api/generate", map[string]any{"config": validConfigYAML, "job_id": "job_ok"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "job_ok", body["job_id"])
	assert.Equal(t, "RTL generation successful", body["message"])
	assert.True(t, strings.HasSuffix(body["zip_path"].(string), filepath.Join("job_ok", "job_ok_rtl.zip")))
	assert.True(t, strings.HasSuffix(body["output_path"].(string), filepath.Join("job_ok", "rtl_output")))

	w = doJSON(t, server, "GET", "/api/jobs/job_ok", nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decodeBody(t, w)
	assert.Equal(t, "completed", job["status"])
	assert.Equal(t, "floogen ok", job["stdout"])
	assert.Equal(t, "warn", job["stderr"])
	assert.NotEmpty(t, job["timestamp"])
	assert.NotEmpty(t, job["config_file"])

	w = doJSON(t, server, "GET", "/api/jobs/job_ok/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="job_ok_rtl.zip"`, w.Header().Get("Content-Disposition"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "floo_noc.sv", zr.File[0].Name)
}

func TestGenerate_GeneratesJobID(t *testing.T) {
	server, _ := newTestServer(t, &stubRunner{})

	w := doJSON(t, server, "POST", "/api/generate", map[string]any{"config": validConfigYAML})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Regexp(t, `^job_\d{8}_\d{6}_[0-9a-f]{8}$`, decodeBody(t, w)["job_id"])
}

func TestGenerate_ValidationFailed(t *testing.T) {
	runner := &stubRunner{}
	server, svc := newTestServer(t, runner)

	w := doJSON(t, server, "POST", "/api/generate", map[string]any{
		"config": "protocols: {}\nendpoints:\n  - name: mem\n    type: slave\n",
		"job_id": "job_bad",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{
		"success": false,
		"error": "Configuration validation failed",
		"validation_errors": ["Slave endpoint 'mem' must have 'addr_range'"]
	}`, w.Body.String())

	_, err := svc.Job("job_bad")
	assert.ErrorIs(t, err, generator.ErrJobNotFound)
}

func TestGenerate_MissingConfig(t *testing.T) {
	server, _ := newTestServer(t, &stubRunner{})

	w := doJSON(t, server, "POST", "/api/generate", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Missing 'config' field in request body"}`, w.Body.String())
}

func TestGenerate_InvalidJobID(t *testing.T) {
	server, _ := newTestServer(t, &stubRunner{})

	w := doJSON(t, server, "POST", "/api/generate", map[string]any{"config": validConfigYAML, "job_id": "../etc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, server, "POST", "/api/generate", map[string]any{"config": validConfigYAML, "job_id": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_RunnerFailures(t *testing.T) {
	tests := []struct {
		name       string
		runner     *stubRunner
		expectBody string
		recorded   bool
	}{
		{
			name:       "non-zero exit",
			runner:     &stubRunner{exitCode: 1},
			expectBody: `{"success":false,"error":"floogen exited with code 1","stdout":"floogen ok","stderr":"warn"}`,
			recorded:   true,
		},
		{
			name:   "tool missing",
			runner: &stubRunner{err: generator.ErrToolNotFound},
			expectBody: `{"success":false,
				"error":"floogen command not found. Please ensure floogen is installed.",
				"stdout":"",
				"stderr":"floogen command not found. Please ensure floogen is installed."}`,
		},
		{
			name:   "timeout",
			runner: &stubRunner{err: generator.ErrTimeout},
			expectBody: `{"success":false,
				"error":"floogen execution timed out (>5 minutes)",
				"stdout":"",
				"stderr":"floogen execution timed out (>5 minutes)"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, svc := newTestServer(t, tt.runner)

			w := doJSON(t, server, "POST", "/api/generate", map[string]any{"config": validConfigYAML, "job_id": "job_x"})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, tt.expectBody, w.Body.String())

			job, err := svc.Job("job_x")
			if tt.recorded {
				require.NoError(t, err)
				assert.Equal(t, generator.StatusFailed, job.Status)
			} else {
				assert.True(t, errors.Is(err, generator.ErrJobNotFound))
			}
		})
	}
}

func TestGenerate_NotConfigured(t *testing.T) {
	server, _ := newTestServer(t, nil)

	w := doJSON(t, server, "POST", "/api/generate", map[string]any{"config": validConfigYAML})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestJobs_NotFound(t *testing.T) {
	server, _ := newTestServer(t, &stubRunner{})

	w := doJSON(t, server, "GET", "/api/jobs/job_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Job job_missing not found"}`, w.Body.String())

	w = doJSON(t, server, "GET", "/api/jobs/job_missing/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Job job_missing not found"}`, w.Body.String())
}

func TestDownload_FailedJobHasNoFiles(t *testing.T) {
	server, _ := newTestServer(t, &stubRunner{exitCode: 2})

	doJSON(t, server, "POST", "/api/generate", map[string]any{"config": validConfigYAML, "job_id": "job_failed"})
	w := doJSON(t, server, "GET", "/api/jobs/job_failed/download", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Generated files not found"}`, w.Body.String())
}

func TestDownload_ArchiveRemoved(t *testing.T) {
	server, svc := newTestServer(t, &stubRunner{})

	doJSON(t, server, "POST", "/api/generate", map[string]any{"config": validConfigYAML, "job_id": "job_gone"})
	job, err := svc.Job("job_gone")
	require.NoError(t, err)
	require.NoError(t, os.Remove(job.ZipPath))

	w := doJSON(t, server, "GET", "/api/jobs/job_gone/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Generated files not found"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	server, _ := newTestServer(t, nil, WithMetrics(metrics))

	doJSON(t, server, "GET", "/api/health", nil)
	doJSON(t, server, "GET", "/api/health", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200")))

	w := doJSON(t, server, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "topgen_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t, nil, WithCORSOrigins([]string{"http://ui.local"}))

	req := httptest.NewRequest("OPTIONS", "/api/validate", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://ui.local", w.Header().Get("Access-Control-Allow-Origin"))
}
