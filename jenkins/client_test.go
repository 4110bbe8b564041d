package jenkins

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != BasicAuth("bot", "secret") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		path := strings.TrimSuffix(r.URL.EscapedPath(), "/")
		if path == "/api/json" {
			_, _ = w.Write([]byte(`{"mode":"NORMAL"}`))
			return
		}
		body, ok := routes[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBasicAuth(t *testing.T) {
	assert.Equal(t, "Basic Ym90OnNlY3JldA==", BasicAuth("bot", "secret"))
}

func TestJobPath(t *testing.T) {
	tests := []struct {
		name string
		job  string
		want string
	}{
		{name: "plain", job: "build-pipeline", want: "/job/build-pipeline"},
		{name: "folder", job: "team/deploy", want: "/job/team/job/deploy"},
		{name: "surrounding slashes", job: "/team/deploy/", want: "/job/team/job/deploy"},
		{name: "space escaped", job: "my job", want: "/job/my%20job"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jobPath(tt.job))
		})
	}
}

func TestGetLastBuild(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/job/build-pipeline/api/json":    `{"displayName":"build-pipeline","description":"CI","url":"http://ci/job/build-pipeline/","lastBuild":{"number":42}}`,
		"/job/build-pipeline/42/api/json": `{"number":42,"result":"SUCCESS","duration":125000,"timestamp":1700000000000}`,
	})
	c := NewClient(srv.URL+"/", "bot", "secret")

	job, build, err := c.GetLastBuild(context.Background(), "build-pipeline")
	require.NoError(t, err)
	assert.Equal(t, "build-pipeline", job.DisplayName)
	assert.Equal(t, "CI", job.Description)
	require.NotNil(t, job.LastBuild)
	assert.Equal(t, int64(42), build.Number)
	assert.Equal(t, "SUCCESS", build.Result)
	assert.Equal(t, int64(125000), build.Duration)
	assert.Equal(t, int64(1700000000000), build.Timestamp)
}

func TestGetLastBuildWithoutBuilds(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/job/fresh/api/json": `{"displayName":"fresh","lastBuild":null}`,
	})
	c := NewClient(srv.URL, "bot", "secret")

	job, build, err := c.GetLastBuild(context.Background(), "fresh")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBuilds))
	assert.NotNil(t, job)
	assert.Nil(t, build)
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	c := NewClient(srv.URL, "bot", "secret")

	_, err := c.GetJob(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "/job/missing/api/json", apiErr.Path)
}

func TestBadCredentials(t *testing.T) {
	srv := newTestServer(t, nil)
	c := NewClient(srv.URL, "bot", "wrong")

	_, err := c.GetCurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestGetConsoleLog(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/job/team/job/deploy-job/7/api/json":    `{"number":7,"result":"SUCCESS"}`,
		"/job/team/job/deploy-job/7/consoleText": "Started by user admin\nFinished: SUCCESS\n",
	})
	c := NewClient(srv.URL, "bot", "secret")

	text, err := c.GetConsoleLog(context.Background(), "team/deploy-job", 7)
	require.NoError(t, err)
	assert.Equal(t, "Started by user admin\nFinished: SUCCESS\n", text)
}

func TestGetCurrentUser(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "plain", body: `{"id":"bot","fullName":"Build Bot"}`, want: "Build Bot"},
		{name: "wrapped", body: `{"user":{"id":"bot","fullName":"Wrapped Bot"}}`, want: "Wrapped Bot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, map[string]string{"/me/api/json": tt.body})
			c := NewClient(srv.URL, "bot", "secret")

			user, err := c.GetCurrentUser(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, user.FullName)
		})
	}
}

func TestMalformedJSON(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/me/api/json": `<html>`})
	c := NewClient(srv.URL, "bot", "secret")

	_, err := c.GetCurrentUser(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get current user")

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestOptions(t *testing.T) {
	hc := &http.Client{}
	c := NewClient("http://ci.example.com/", "u", "t", WithHTTPClient(hc), WithTimeout(5*time.Second))

	assert.Equal(t, "http://ci.example.com", c.BaseURL())
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestConnectionIsReused(t *testing.T) {
	var rootHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimSuffix(r.URL.Path, "/") {
		case "/api/json":
			rootHits.Add(1)
			_, _ = w.Write([]byte(`{}`))
		case "/me/api/json":
			_, _ = w.Write([]byte(`{"fullName":"Build Bot"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "bot", "secret")

	_, err := c.GetCurrentUser(context.Background())
	require.NoError(t, err)
	afterConnect := rootHits.Load()
	assert.Positive(t, afterConnect)

	for i := 0; i < 3; i++ {
		_, err := c.GetCurrentUser(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, afterConnect, rootHits.Load())
}

func TestConnectFailureIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "bot", "secret")

	_, err := c.GetJob(context.Background(), "build-pipeline")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Contains(t, err.Error(), "failed to connect to Jenkins")
}

func TestUnknownBuildConsoleLog(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/job/deploy-job/7/api/json": `{"number":7}`,
	})
	c := NewClient(srv.URL, "bot", "secret")

	_, err := c.GetConsoleLog(context.Background(), "deploy-job", 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStatusTransportPassesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	hc := &http.Client{Transport: &statusTransport{}}
	resp, err := hc.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
