package revealapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Reveal(t *testing.T) {
	t.Parallel()

	var gotReq RevealRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/vault/reveal", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(RevealResponse{
			SessionToken:     "tok-123",
			ExpiresAt:        1_700_000_900,
			HiddenFolderPath: "docs/Secret",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, slog.Default())

	resp, err := c.Reveal(context.Background(), RevealRequest{Path: "docs/secret", Passphrase: "hunter2"})
	require.NoError(t, err)

	assert.Equal(t, "tok-123", resp.SessionToken)
	assert.Equal(t, int64(1_700_000_900), resp.ExpiresAt)
	assert.Equal(t, "docs/Secret", resp.HiddenFolderPath)
	assert.Equal(t, RevealRequest{Path: "docs/secret", Passphrase: "hunter2"}, gotReq)
}

func TestClient_Reveal_ErrorBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(errorBody{Title: "Access denied", Message: "incorrect passphrase"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, slog.Default())

	_, err := c.Reveal(context.Background(), RevealRequest{Path: "docs", Passphrase: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "incorrect passphrase", apiErr.Message)
	assert.Equal(t, "Access denied", apiErr.Title)
}

func TestClient_Reveal_NonJSONErrorBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("gateway exploded"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, slog.Default())

	_, err := c.Reveal(context.Background(), RevealRequest{Path: "docs", Passphrase: "pw"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "gateway exploded", apiErr.Message)
}

func TestClient_Hide(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vault/hide", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, slog.Default())
	require.NoError(t, c.Hide(context.Background(), HideRequest{Path: "docs", Passphrase: "pw"}))
}

func TestClient_List_AttachesSessionHeader(t *testing.T) {
	t.Parallel()

	var gotHeader, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(SessionHeader)
		gotPath = r.URL.Query().Get("path")

		json.NewEncoder(w).Encode([]Entry{{Name: "file.txt", Size: 42}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, slog.Default())

	entries, err := c.List(context.Background(), "docs/secret", "tok-123")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file.txt", entries[0].Name)
	assert.Equal(t, "tok-123", gotHeader)
	assert.Equal(t, "docs/secret", gotPath)
}

func TestClient_List_NoTokenNoHeader(t *testing.T) {
	t.Parallel()

	headerPresent := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, headerPresent = r.Header[SessionHeader]

		json.NewEncoder(w).Encode([]Entry{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, slog.Default())

	_, err := c.List(context.Background(), "docs", "")
	require.NoError(t, err)
	assert.False(t, headerPresent, "empty token must not produce a session header")
}
