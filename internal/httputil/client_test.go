package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStandardClient(t *testing.T) {
	custom := &http.Client{}
	assert.Same(t, custom, NewStandardClient(custom).Client)
	assert.Same(t, http.DefaultClient, NewStandardClient(nil).Client)
}

func TestFetchWithMock(t *testing.T) {
	mock := NewMockHTTPClient(
		MockResponse{StatusCode: http.StatusOK, Body: `{"events":[]}`, ContentType: "application/json"},
		MockResponse{StatusCode: http.StatusBadRequest, Body: `{"error":"bad units"}`},
		MockResponse{Error: errors.New("connection refused")},
	)

	body, ct, err := Fetch(context.Background(), mock, "http://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, `{"events":[]}`, string(body))
	assert.Equal(t, "application/json", ct)

	_, _, err = Fetch(context.Background(), mock, "http://example.com/b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad units")

	_, _, err = Fetch(context.Background(), mock, "http://example.com/c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	// queue exhausted
	mock.AddResponse(http.StatusNoContent, "")
	_, _, err = Fetch(context.Background(), mock, "http://example.com/d")
	require.NoError(t, err)

	assert.Equal(t, 4, mock.RequestCount())
	assert.Equal(t, "/b", mock.Requests[1].URL.Path)
}

func TestFetchWithServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("ID,Time\n"))
	}))
	defer srv.Close()

	body, ct, err := Fetch(context.Background(), NewStandardClient(srv.Client()), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", ct)
	assert.Equal(t, "ID,Time\n", string(body))
}
