package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"relana/app"
	"relana/domain/project"
	"relana/internal"
)

func plantModel(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../yamlmodel/testdata/plant.yaml")
	require.NoError(t, err)
	return data
}

func newTestServer(opts Options) *Server {
	logger := internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError)
	svc := app.NewAnalysisService(app.AnalysisConfig{MaxWorkers: 2}, logger)
	return NewServer(svc, logger, opts)
}

func post(t *testing.T, s http.Handler, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/yaml")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyzeReturnsExactResults(t *testing.T) {
	rec := post(t, newTestServer(Options{}), "/api/analyses", plantModel(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Project string `json:"project"`
		Results []struct {
			Path  string `json:"path"`
			Exact string `json:"exact"`
		} `json:"results"`
		Summary struct {
			Outputs int `json:"outputs"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cooling-plant", body.Project)
	assert.Equal(t, 2, body.Summary.Outputs)

	exact := map[string]string{}
	for _, r := range body.Results {
		exact[r.Path] = r.Exact
	}
	assert.Equal(t, "109/1000", exact["cooling"])
	assert.Equal(t, "1/10", exact["spill"])
}

func TestAnalyzeRendersMarkdown(t *testing.T) {
	rec := post(t, newTestServer(Options{Decimals: 4}), "/api/analyses?format=markdown", plantModel(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "109/1000")
}

func TestAnalyzeRejectsUnknownFormat(t *testing.T) {
	rec := post(t, newTestServer(Options{}), "/api/analyses?format=pdf", plantModel(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestValidate(t *testing.T) {
	rec := post(t, newTestServer(Options{}), "/api/validations", plantModel(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res app.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "cooling-plant", res.Project)
	assert.ElementsMatch(t, []string{"cooling", "spill"}, res.Outputs)
}

func TestRequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty body", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed yaml", "project: [", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown base class", "project: p\nbase: Missing\n", http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, newTestServer(Options{}), "/api/analyses", []byte(tt.body))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.code != "" {
				assert.Equal(t, tt.code, body.Code)
			}
		})
	}
}

const cyclicModel = `
project: cyc
base: P
component_classes:
  - name: P
    effects:
      - name: a
        class: Boolean
        output: true
        formula: {effect: b}
      - name: b
        class: Boolean
        formula: {effect: a}
`

func TestCyclicModelIsRejected(t *testing.T) {
	for _, target := range []string{"/api/validations", "/api/analyses"} {
		t.Run(target, func(t *testing.T) {
			rec := post(t, newTestServer(Options{}), target, []byte(cyclicModel))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "MODEL_INVALID", body.Code)
			assert.Contains(t, body.Error, "depend on each other")
		})
	}
}

func TestBodyLimit(t *testing.T) {
	rec := post(t, newTestServer(Options{MaxBodyBytes: 16}), "/api/analyses", plantModel(t))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), CodeTooLarge))
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, proj *project.Project) (*project.Report, error) {
	args := m.Called(ctx, proj)
	rep, _ := args.Get(0).(*project.Report)
	return rep, args.Error(1)
}

func (m *MockAnalyzer) Validate(ctx context.Context, proj *project.Project) (*app.ValidationResult, error) {
	args := m.Called(ctx, proj)
	res, _ := args.Get(0).(*app.ValidationResult)
	return res, args.Error(1)
}

func TestAnalyzerFailureIsInternal(t *testing.T) {
	analyzer := &MockAnalyzer{}
	analyzer.On("Analyze", mock.Anything, mock.AnythingOfType("*project.Project")).
		Return(nil, errors.New("disk on fire")).Once()

	s := NewServer(analyzer, internal.NewLoggerTo(&bytes.Buffer{}, internal.LogLevelError), Options{})
	rec := post(t, s, "/api/analyses", plantModel(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	analyzer.AssertExpectations(t)
}
