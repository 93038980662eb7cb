package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersDoc = `{"swagger":"2.0","definitions":{
	"Users":{"properties":{"id":{},"name":{},"email":{}}},
	"Logs":{"properties":{"id":{},"ts":{}}}}}`

func newSchemaServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		assert.Empty(t, req.URL.RawQuery)
		assert.NotEmpty(t, req.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/openapi+json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTP_Fetch(t *testing.T) {
	srv := newSchemaServer(t, http.StatusOK, usersDoc)

	src := NewHTTP(srv.URL, srv.Client(), nil)
	doc, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Definitions, 2)
	assert.Equal(t, "Users", doc.Definitions[0].Name)
	assert.Equal(t, []string{"id", "name", "email"}, doc.Definitions[0].Properties)
}

func TestHTTP_EndpointNormalisesSlash(t *testing.T) {
	assert.Equal(t, "http://api:3000/", NewHTTP("http://api:3000", nil, nil).Endpoint())
	assert.Equal(t, "http://api:3000/", NewHTTP("http://api:3000/", nil, nil).Endpoint())
	assert.Equal(t, "http://api/v1/", NewHTTP("http://api/v1", nil, nil).Endpoint())
	assert.Equal(t, "http://h/api/", NewHTTP("http://h/api?x=1", nil, nil).Endpoint())
	assert.Equal(t, "http://h/api/", NewHTTP("http://h/api/?x=1#top", nil, nil).Endpoint())
	assert.Equal(t, "http://h/", NewHTTP("http://h?", nil, nil).Endpoint())
}

func TestHTTP_FetchDropsQuery(t *testing.T) {
	var gotPath, gotQuery string
	r := chi.NewRouter()
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		gotPath, gotQuery = req.URL.Path, req.URL.RawQuery
		_, _ = w.Write([]byte(`{"definitions":{}}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, err := NewHTTP(srv.URL+"/rest?select=id", nil, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/rest/", gotPath)
	assert.Equal(t, "", gotQuery)
}

func TestHTTP_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   errs.ErrKind
	}{
		{http.StatusNotFound, errs.ErrKindNotFound},
		{http.StatusUnauthorized, errs.ErrKindPermissionDenied},
		{http.StatusForbidden, errs.ErrKindPermissionDenied},
		{http.StatusGatewayTimeout, errs.ErrKindTimeout},
		{http.StatusInternalServerError, errs.ErrKindConnectionFailed},
		{http.StatusMovedPermanently, errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			srv := httptest.NewServer(r)
			defer srv.Close()

			// Do not follow redirects so 3xx is observed as a status.
			client := srv.Client()
			client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

			_, err := NewHTTP(srv.URL, client, nil).Fetch(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.KindOf(err))
		})
	}
}

func TestHTTP_MalformedBody(t *testing.T) {
	srv := newSchemaServer(t, http.StatusOK, `{"definitions": [1, 2]}`)

	_, err := NewHTTP(srv.URL, srv.Client(), nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsMalformedDocument(err))
}

func TestHTTP_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(url, nil, nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestHTTP_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTP(srv.URL, srv.Client(), nil).Fetch(ctx)
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
}
