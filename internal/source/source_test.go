package source

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialer_OpenHTTP(t *testing.T) {
	src, err := NewDialer(Options{}).Open(context.Background(), "https://api.example.com/")
	require.NoError(t, err)
	defer src.Close()

	h, ok := src.(*HTTP)
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com/", h.Endpoint())
}

func TestDialer_OpenRejectsBadURLs(t *testing.T) {
	d := NewDialer(Options{})
	for _, raw := range []string{"ftp://host/x", "://nope", "mysql://hostonly"} {
		_, err := d.Open(context.Background(), raw)
		require.Error(t, err, raw)
		assert.True(t, errs.IsInvalidInput(err), "%s: %v", raw, err)
	}
}

func TestDialer_OpenPostgresInvalidDSN(t *testing.T) {
	_, err := NewDialer(Options{}).Open(context.Background(), "postgres://user@host:notaport/db")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestOpenerFunc(t *testing.T) {
	called := ""
	var o Opener = OpenerFunc(func(_ context.Context, raw string) (Source, error) {
		called = raw
		return NewHTTP(raw, nil, nil), nil
	})

	_, err := o.Open(context.Background(), "http://x")
	require.NoError(t, err)
	assert.Equal(t, "http://x", called)
}

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"connection class", &pgconn.PgError{Code: "08006", Message: "connection failure"}, errs.ErrKindConnectionFailed},
		{"unknown database", &pgconn.PgError{Code: "3D000", Message: "database does not exist"}, errs.ErrKindNotFound},
		{"bad password", &pgconn.PgError{Code: "28P01", Message: "auth failed"}, errs.ErrKindPermissionDenied},
		{"syntax", &pgconn.PgError{Code: "42601", Message: "syntax error"}, errs.ErrKindQueryFailed},
		{"network", errors.New("dial tcp: refused"), errs.ErrKindConnectionFailed},
		{"already mapped", errs.New(errs.ErrKindMalformedDocument, "x"), errs.ErrKindMalformedDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapPgError(tt.err, "introspect").Kind)
		})
	}
	assert.Nil(t, mapPgError(nil, "x"))
}
