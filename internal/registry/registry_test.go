package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.EscapedPath() {
		case "/axios":
			w.Write([]byte(`{"name":"axios","description":"Promise based HTTP client","homepage":"https://axios-http.com","repository":{"type":"git","url":"git+https://github.com/axios/axios.git"}}`))
		case "/@types%2Fnode":
			w.Write([]byte(`{"name":"@types/node","description":"TypeScript definitions","repository":"github:DefinitelyTyped/DefinitelyTyped"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL + "/"})
	ctx := context.Background()

	m, err := c.Lookup(ctx, "axios")
	require.NoError(t, err)
	assert.Equal(t, "Promise based HTTP client", m.Description)
	assert.Equal(t, "https://axios-http.com", m.Homepage)
	assert.Equal(t, "git+https://github.com/axios/axios.git", m.Repository)

	m, err = c.Lookup(ctx, "@types/node")
	require.NoError(t, err)
	assert.Equal(t, "github:DefinitelyTyped/DefinitelyTyped", m.Repository)
	assert.Empty(t, m.Homepage)

	_, err = c.Lookup(ctx, "axios")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "second axios lookup should be cached")

	_, err = c.Lookup(ctx, "left-pad")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)

	c.Purge()
	_, err = c.Lookup(ctx, "axios")
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load())
}

func TestLookupBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL}).Lookup(context.Background(), "x")
	assert.Error(t, err)
}

func TestLookupEmptyName(t *testing.T) {
	_, err := New(Options{}).Lookup(context.Background(), "  ")
	assert.Error(t, err)
}

func TestEscapeName(t *testing.T) {
	assert.Equal(t, "react", EscapeName("react"))
	assert.Equal(t, "@babel%2Fcore", EscapeName("@babel/core"))
	assert.Equal(t, "@weird", EscapeName("@weird"))
}
