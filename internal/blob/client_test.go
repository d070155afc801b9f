package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_ShouldSendMultipartForm(t *testing.T) {
	// given
	var (
		gotAuth    string
		gotPayload map[string]string
		gotFile    string
		gotType    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("payload_json")), &gotPayload))
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		gotFile = string(b)
		gotType = fh.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"success":true,"data":{"direct_url":"https://cdn.example/a.mp3","deletion_url":"https://api.example/del/a"}}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)

	// when
	up, err := c.Upload(context.Background(), "key-1", "cdn.example", "a.mp3", "audio/mpeg", strings.NewReader("ID3"))

	// then
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.mp3", up.DirectURL)
	assert.Equal(t, "https://api.example/del/a", up.DeletionURL)
	assert.Equal(t, "key-1", gotAuth)
	assert.Equal(t, map[string]string{"domain": "cdn.example", "name": "a.mp3"}, gotPayload)
	assert.Equal(t, "ID3", gotFile)
	assert.Equal(t, "audio/mpeg", gotType)
}

func TestUpload_ShouldFailOnRejection(t *testing.T) {
	for _, tc := range []struct {
		description string
		status      int
		body        string
	}{
		{description: "non-2xx", status: http.StatusUnauthorized, body: `{"success":false}`},
		{description: "success false", status: http.StatusOK, body: `{"success":false,"error":{"message":"quota"}}`},
		{description: "garbage", status: http.StatusOK, body: `<html>`},
	} {
		t.Run(tc.description, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Upload(context.Background(), "k", "d", "a.mp3", "audio/mpeg", strings.NewReader("x"))

			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestRevoke(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, http.MethodGet, r.Method)
		if r.URL.Path == "/gone" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()
	c := NewClient("", time.Second)

	require.NoError(t, c.Revoke(context.Background(), srv.URL+"/ok"))
	err := c.Revoke(context.Background(), srv.URL+"/gone")

	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 2, hits)
}
