package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prem-080/cgpa-fetcher/internal/app"
	"github.com/Prem-080/cgpa-fetcher/internal/fetcher"
)

// fakeFetcher returns a canned result or error.
type fakeFetcher struct {
	result *fetcher.Result
	err    error

	lastRoll string
	lastTerm string
}

func (f *fakeFetcher) Fetch(ctx context.Context, roll, term string) (*fetcher.Result, error) {
	f.lastRoll = roll
	f.lastTerm = term
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestServer(f GradeFetcher) *Server {
	return New(app.ServerConfig{
		Addr:           ":0",
		AllowedOrigins: []string{"http://localhost:5173"},
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
	}, f)
}

func postFetchGrade(t *testing.T, srv *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/fetch-grade", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestFetchGradeSuccess(t *testing.T) {
	sgpa := 6.89
	fake := &fakeFetcher{result: &fetcher.Result{
		CGPA:             "7.46",
		SGPA:             &sgpa,
		StudentName:      "STUDENT NAME",
		Screenshots:      []fetcher.Screenshot{{Name: "21ABCD01EF_II_I_cgpa", Data: "aGk="}},
		ProcessingTimeMs: 1234,
	}}
	srv := newTestServer(fake)

	rec := postFetchGrade(t, srv, map[string]string{"roll": "21abcd01ef", "semester": "II_I"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "21abcd01ef", fake.lastRoll)
	assert.Equal(t, "II_I", fake.lastTerm)

	var resp fetcher.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "7.46", resp.CGPA)
	require.NotNil(t, resp.SGPA)
	assert.Equal(t, 6.89, *resp.SGPA)
	assert.Len(t, resp.Screenshots, 1)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFetchGradeErrorMapping(t *testing.T) {
	cases := []struct {
		kind   fetcher.Kind
		status int
	}{
		{fetcher.KindValidation, http.StatusBadRequest},
		{fetcher.KindDataUnavailable, http.StatusNotFound},
		{fetcher.KindNavigation, http.StatusBadGateway},
		{fetcher.KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		fake := &fakeFetcher{err: &fetcher.Error{Kind: tc.kind, Message: "boom"}}
		srv := newTestServer(fake)

		rec := postFetchGrade(t, srv, map[string]string{"roll": "X", "semester": "II_I"})
		assert.Equal(t, tc.status, rec.Code, "kind %s", tc.kind)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, string(tc.kind), resp["kind"])
		assert.Contains(t, resp["error"], "boom")
		assert.Contains(t, resp, "processingTimeMs")
	}
}

func TestFetchGradeRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(&fakeFetcher{})

	req := httptest.NewRequest(http.MethodPost, "/fetch-grade", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Contains(t, resp, "uptime")
	assert.Contains(t, resp, "timestamp")
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	srv := newTestServer(&fakeFetcher{})

	req := httptest.NewRequest(http.MethodOptions, "/fetch-grade", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	srv := newTestServer(&fakeFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIndexDocumentsEndpoints(t *testing.T) {
	srv := newTestServer(&fakeFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	endpoints, ok := resp["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, endpoints, "/fetch-grade")
	assert.Contains(t, endpoints, "/health")
}
