// Package supabase talks to the hosted Supabase project: GoTrue for
// authentication and PostgREST for the small tables continu keeps.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/continu/internal/netx"
)

// endpoint is the project URL plus the anon key sent as "apikey".
type endpoint struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func newEndpoint(baseURL, anonKey string, hc *http.Client) endpoint {
	if hc == nil {
		hc = http.DefaultClient
	}
	return endpoint{baseURL: strings.TrimRight(baseURL, "/"), anonKey: anonKey, http: hc}
}

// do sends a JSON request. bearer defaults to the anon key.
func (e endpoint) do(ctx context.Context, method, path, bearer string, header http.Header, body, out any) error {
	if bearer == "" {
		bearer = e.anonKey
	}
	h := http.Header{}
	for k, vs := range header {
		h[k] = vs
	}
	h.Set("apikey", e.anonKey)
	h.Set("Authorization", "Bearer "+bearer)

	return netx.DoJSON(ctx, e.http, netx.Request{
		Method: method,
		URL:    e.baseURL + path,
		Header: h,
		Body:   body,
	}, out)
}

// apiMessage extracts the human readable message GoTrue and PostgREST put
// into error bodies. It falls back to err.Error().
func apiMessage(err error) string {
	var se *netx.StatusError
	if !errors.As(err, &se) {
		return err.Error()
	}
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal([]byte(se.Body), &body) == nil {
		for _, m := range []string{body.Msg, body.ErrorDescription, body.Message} {
			if m != "" {
				return m
			}
		}
	}
	if se.Body != "" {
		return se.Body
	}
	return http.StatusText(se.StatusCode)
}
