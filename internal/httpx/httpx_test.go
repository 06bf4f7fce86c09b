package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := PostJSON(context.Background(), srv.Client(), srv.URL, map[string]string{"Authorization": "Bearer k"}, map[string]string{"a": "b"}, &out)
	require.NoError(t, err)
	require.True(t, out.OK)
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	var out map[string]any
	err := PostJSON(context.Background(), srv.Client(), srv.URL, nil, struct{}{}, &out)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "upstream down", statusErr.Body)
}

func TestPostJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := PostJSON(context.Background(), srv.Client(), srv.URL, nil, struct{}{}, &out)
	require.ErrorContains(t, err, "decode response")
}

func TestClient_DefaultTimeout(t *testing.T) {
	c := Client(nil)
	require.Equal(t, DefaultTimeout, c.Timeout)

	custom := &http.Client{}
	require.Same(t, custom, Client(custom))
}
