package infer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arjunmahishi/rsdoc/types"
)

func TestHTTPAdapter(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"summary": "Adds two numbers.\nWraps on overflow.",
			"sections": [{"heading": "Panics", "lines": ["Never."]}]
		}`)
	}))
	defer srv.Close()

	a := NewHTTP(srv.URL, srv.Client())
	b, err := a.Infer(context.Background(), types.Descriptor{
		Kind:       types.KindFunction,
		Name:       "add",
		Signature:  "pub fn add(a: i32, b: i32) -> i32",
		FieldNames: []string{},
		Public:     true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Adds two numbers.", "Wraps on overflow."}, b.Summary)
	require.Equal(t, []types.Section{{Heading: "Panics", Lines: []string{"Never."}}}, b.Sections)

	require.Equal(t, "function", got["item_kind"])
	require.Equal(t, "add", got["name"])
	require.Equal(t, "pub fn add(a: i32, b: i32) -> i32", got["signature_text"])
	require.Equal(t, []any{}, got["field_names"])
	require.Equal(t, false, got["is_unsafe"])
	require.Equal(t, true, got["is_public"])
}

func TestHTTPAdapterFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		refused bool
		errText string
	}{
		{
			name: "no_content_is_refusal",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			refused: true,
		},
		{
			name: "refused_flag",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"refused": true}`)
			},
			refused: true,
		},
		{
			name: "server_error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
			errText: "503",
		},
		{
			name: "error_field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"error": "model unavailable"}`)
			},
			errText: "model unavailable",
		},
		{
			name: "bad_json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `not json`)
			},
			errText: "decode response",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := NewHTTP(srv.URL, nil).Infer(context.Background(), types.Descriptor{Kind: types.KindStruct, Name: "S"})
			require.Error(t, err)
			if tc.refused {
				require.ErrorIs(t, err, ErrRefused)
				return
			}
			require.NotErrorIs(t, err, ErrRefused)
			require.Contains(t, err.Error(), tc.errText)
		})
	}
}

func TestHTTPAdapterHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewHTTP(srv.URL, nil).Infer(ctx, types.Descriptor{Kind: types.KindStruct, Name: "S"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
