package netx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	t.Run("post with body and headers", func(t *testing.T) {
		var got payload
		var gotKey, gotCT, gotMethod string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotKey = r.Header.Get("apikey")
			gotCT = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"email":"echo@example.com"}`))
		}))
		defer ts.Close()

		var out payload
		err := DoJSON(context.Background(), ts.Client(), Request{
			Method: http.MethodPost,
			URL:    ts.URL + "/auth/v1/signup",
			Header: http.Header{"apikey": []string{"anon"}},
			Body:   payload{Email: "me@example.com"},
		}, &out)
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "anon", gotKey)
		assert.Equal(t, "application/json", gotCT)
		assert.Equal(t, "me@example.com", got.Email)
		assert.Equal(t, "echo@example.com", out.Email)
	})

	t.Run("empty response body with out", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		var out payload
		require.NoError(t, DoJSON(context.Background(), ts.Client(), Request{Method: http.MethodGet, URL: ts.URL}, &out))
		assert.Empty(t, out.Email)
	})

	t.Run("non-2xx becomes StatusError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"Invalid login credentials"}`))
		}))
		defer ts.Close()

		err := DoJSON(context.Background(), ts.Client(), Request{Method: http.MethodGet, URL: ts.URL}, nil)
		require.Error(t, err)

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
		assert.Contains(t, se.Body, "Invalid login credentials")
		assert.ErrorIs(t, err, common.ErrUnauthorized)
		assert.NotErrorIs(t, err, common.ErrNotFound)
		assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	})

	t.Run("404 maps to ErrNotFound", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		err := DoJSON(context.Background(), ts.Client(), Request{Method: http.MethodGet, URL: ts.URL}, nil)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		err := DoJSON(context.Background(), nil, Request{Method: http.MethodGet, URL: ts.URL}, nil)
		require.Error(t, err)
		assert.Equal(t, 0, StatusCode(err))
	})

	t.Run("bad json", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer ts.Close()

		var out payload
		err := DoJSON(context.Background(), ts.Client(), Request{Method: http.MethodGet, URL: ts.URL}, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})
}
