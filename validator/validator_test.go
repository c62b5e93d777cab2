package validator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dooropener/credential"
)

func TestValidateSendsJSON(t *testing.T) {
	var gotBody []byte
	var gotType, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	out, err := c.Validate(context.Background(), credential.Credential{ID: 42, Secret: `se"cret`})
	require.NoError(t, err)
	assert.Equal(t, Valid, out)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"id":42,"secret":"se\"cret"}`, string(gotBody))
}

func TestValidateNonOKIsInvalid(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError, http.StatusNoContent} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
		}))

		c := NewWithHTTPClient(srv.URL, srv.Client())
		out, err := c.Validate(context.Background(), credential.Credential{ID: 1, Secret: "x"})
		assert.NoError(t, err, "status %d", code)
		assert.Equal(t, Invalid, out, "status %d", code)
		srv.Close()
	}
}

func TestValidateConnectionRefusedIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewWithHTTPClient(url, &http.Client{Timeout: time.Second})
	out, err := c.Validate(context.Background(), credential.Credential{ID: 1, Secret: "x"})
	assert.Error(t, err)
	assert.Equal(t, Unreachable, out)
}

func TestValidateTimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewWithHTTPClient(srv.URL, &http.Client{Timeout: 50 * time.Millisecond})
	out, err := c.Validate(context.Background(), credential.Credential{ID: 1, Secret: "x"})
	assert.Error(t, err)
	assert.Equal(t, Unreachable, out)
}

func TestValidateCanceledContextIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewWithHTTPClient(srv.URL, srv.Client())
	out, err := c.Validate(ctx, credential.Credential{ID: 1, Secret: "x"})
	assert.Error(t, err)
	assert.Equal(t, Unreachable, out)
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultURL, c.url)
	assert.Equal(t, 5*time.Second, c.http.Timeout)
}

func TestNewBadCAFile(t *testing.T) {
	_, err := New(Config{CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("not a cert"), 0o644))
	_, err = New(Config{CAFile: empty})
	assert.Error(t, err)
}
